package services

import (
	"errors"
	"fmt"
)

// Business rule errors. These surface as client errors with a descriptive
// message; state is unchanged when they occur.
var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("email and password combination is not valid")
	ErrAlreadySubscribed  = errors.New("already subscribed to this event")
	ErrNotSubscribed      = errors.New("not subscribed to this event")
)

// UnknownRoleError reports a requested role name outside the seeded set.
type UnknownRoleError struct {
	Name string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("role %s not found", e.Name)
}
