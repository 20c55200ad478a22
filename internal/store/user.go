package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gatherly/apiserver/types"
)

// UserRepository handles persistence for users and their role references.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	roles, err := r.rolesForUser(ctx, user.ID)
	if err != nil {
		return types.User{}, err
	}
	user.Roles = roles
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}

	roles, err := r.rolesForUser(ctx, user.ID)
	if err != nil {
		return types.User{}, err
	}
	user.Roles = roles
	return user, nil
}

// GetRoleByName resolves a seeded role by name.
func (r *UserRepository) GetRoleByName(ctx context.Context, name string) (types.Role, error) {
	const query = `SELECT id, name FROM roles WHERE name = $1`
	var role types.Role
	err := r.db.QueryRowContext(ctx, query, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Role{}, ErrNotFound
		}
		return types.Role{}, err
	}
	return role, nil
}

// Create inserts a user and links the resolved roles in one transaction.
// A duplicate email surfaces as ErrDuplicate via the unique constraint.
func (r *UserRepository) Create(ctx context.Context, user types.User, roles []types.Role) (types.User, error) {
	user.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertUser = `
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertUser,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}

	const insertUserRole = `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx, insertUserRole, user.ID, role.ID); err != nil {
			return types.User{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}

	user.Roles = roles
	return user, nil
}

func (r *UserRepository) rolesForUser(ctx context.Context, userID int) ([]types.Role, error) {
	const query = `
		SELECT r.id, r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []types.Role
	for rows.Next() {
		var role types.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
