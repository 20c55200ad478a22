package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides registration and login endpoints.
type AuthHandler struct {
	users  *services.UserService
	tokens *auth.TokenService
}

func NewAuthHandler(users *services.UserService, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// UserRouter registers the public user routes.
func UserRouter(r chi.Router, users *services.UserService, tokens *auth.TokenService) {
	handler := NewAuthHandler(users, tokens)

	r.Post("/signup", handler.Signup)
	r.Post("/login", handler.Login)
}

type SignupRequest struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles" validate:"omitempty,min=1,dive,oneof=admin organiser participant"`
}

type SignupResponse struct {
	Status    bool         `json:"status"`
	Message   string       `json:"message"`
	User      UserResource `json:"user"`
	EmailSent bool         `json:"email_sent"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Status  bool         `json:"status"`
	Message string       `json:"message"`
	User    UserResource `json:"user"`
	Token   string       `json:"token"`
}

// Signup registers a new user with the requested roles.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := checkStruct(req); fields != nil {
		writeValidationFailure(w, fields)
		return
	}

	user, emailSent, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password, req.Roles)
	if err != nil {
		var roleErr *services.UnknownRoleError
		switch {
		case errors.Is(err, services.ErrDuplicateEmail):
			writeValidationFailure(w, []FieldError{{Field: "email", Message: `"email" already exists`}})
		case errors.As(err, &roleErr):
			writeError(w, http.StatusBadRequest, "Role "+roleErr.Name+" not found")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusOK, SignupResponse{
		Status:    true,
		Message:   "User created successfully",
		User:      newUserResource(user),
		EmailSent: emailSent,
	})
}

// Login verifies credentials and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := checkStruct(req); fields != nil {
		writeValidationFailure(w, fields)
		return
	}

	user, err := h.users.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Email and password combination is not valid")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Status:  true,
		Message: "User logged in successfully",
		User:    newUserResource(user),
		Token:   token,
	})
}
