package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gatherly/apiserver/types"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Status  bool     `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// FieldError names one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationFailureResponse is the payload validation error envelope.
type ValidationFailureResponse struct {
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields"`
	Errors  []string     `json:"errors"`
}

// UserResource is the outward representation of a user. The password hash is
// never part of it.
type UserResource struct {
	ID    int            `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Roles []RoleResource `json:"roles,omitempty"`
}

type RoleResource struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// EventResource is the outward representation of an event.
type EventResource struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func newUserResource(user types.User) UserResource {
	res := UserResource{ID: user.ID, Name: user.Name, Email: user.Email}
	for _, role := range user.Roles {
		res.Roles = append(res.Roles, RoleResource{ID: role.ID, Name: role.Name})
	}
	return res
}

func newUserCollection(users []types.User) []UserResource {
	collection := make([]UserResource, 0, len(users))
	for _, user := range users {
		collection = append(collection, newUserResource(user))
	}
	return collection
}

func newEventResource(event types.Event) EventResource {
	return EventResource{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Date:        event.Date.Format(timeFormat),
	}
}

func newEventCollection(events []types.Event) []EventResource {
	collection := make([]EventResource, 0, len(events))
	for _, event := range events {
		collection = append(collection, newEventResource(event))
	}
	return collection
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Status: false, Message: message, Errors: []string{}})
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "Not found")
}

func writeValidationFailure(w http.ResponseWriter, fields []FieldError) {
	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, field.Message)
	}
	writeJSON(w, http.StatusBadRequest, ValidationFailureResponse{
		Message: "Validation failed",
		Fields:  fields,
		Errors:  messages,
	})
}
