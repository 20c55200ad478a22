package handlers

import (
	"context"
	"errors"

	"github.com/gatherly/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

// UserFromContext returns the authenticated user attached by the
// authentication middleware.
func UserFromContext(ctx context.Context) (types.User, error) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	if !ok || user.ID < 1 {
		return types.User{}, errors.New("no authenticated user in context")
	}
	return user, nil
}

func contextWithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}
