package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/notify"
	"github.com/gatherly/apiserver/internal/store"
	"github.com/gatherly/apiserver/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users and roles.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetRoleByName(ctx context.Context, name string) (types.Role, error)
	Create(ctx context.Context, user types.User, roles []types.Role) (types.User, error)
}

// UserService is the credential store: it owns registration, password hashing,
// and verification.
type UserService struct {
	repo          UserRepository
	notifier      notify.Notifier
	notifyTimeout time.Duration
	logger        zerolog.Logger
}

func NewUserService(repo UserRepository, notifier notify.Notifier, notifyTimeout time.Duration, logger zerolog.Logger) *UserService {
	return &UserService{
		repo:          repo,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        logger.With().Str("component", "users").Logger(),
	}
}

// Register creates a user with the requested roles. The plaintext password is
// hashed with a per-record random salt and discarded; it is never persisted.
// The returned flag reports whether the welcome email was delivered.
func (s *UserService) Register(ctx context.Context, name, email, password string, roleNames []string) (types.User, bool, error) {
	email = NormalizeEmail(email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, false, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, false, fmt.Errorf("check existing email: %w", err)
	}

	if len(roleNames) == 0 {
		roleNames = []string{string(auth.RoleParticipant)}
	}

	roles := make([]types.Role, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.repo.GetRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return types.User{}, false, &UnknownRoleError{Name: name}
			}
			return types.User{}, false, fmt.Errorf("resolve role: %w", err)
		}
		roles = append(roles, role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, false, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
	}, roles)
	if err != nil {
		// The unique constraint closes the check-then-create race.
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, false, ErrDuplicateEmail
		}
		return types.User{}, false, fmt.Errorf("create user: %w", err)
	}

	emailSent := notify.BestEffort(
		s.notifier, s.logger, s.notifyTimeout,
		user.Email,
		"Welcome aboard!",
		"You have successfully signed up with email: "+user.Email,
	)

	return user, emailSent, nil
}

// Verify checks an email/password pair. A single undifferentiated error covers
// both unknown email and wrong password so account existence does not leak.
func (s *UserService) Verify(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("fetch user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID loads a user with its materialized role set.
func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// NormalizeEmail trims and lower-cases an email for uniqueness comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
