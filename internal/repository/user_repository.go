package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Miompolly/capstone/internal/models"
)

// ErrDuplicateEmail indicates a user with the same email already exists
var ErrDuplicateEmail = errors.New("email already registered")

const userColumns = `
	id, email, name, role, is_active, password_hash, bio, expertise, created_at, updated_at`

// UserRepository handles user data access backed by PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool: pool,
	}
}

// Create stores a new user and returns it with its assigned ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	start := time.Now()

	query := `
		INSERT INTO users (email, name, role, is_active, password_hash, bio, expertise)
		VALUES (lower($1), $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	created, err := models.ScanUser(r.pool.QueryRow(ctx, query,
		user.Email, user.Name, user.Role, user.IsActive, user.PasswordHash, user.Bio, user.Expertise))
	observeDB("user_create", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// GetByID fetches a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	start := time.Now()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := models.ScanUser(r.pool.QueryRow(ctx, query, id))
	observeDB("user_get_by_id", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByEmail fetches a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`

	user, err := models.ScanUser(r.pool.QueryRow(ctx, query, email))
	observeDB("user_get_by_email", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetAll fetches all users, optionally filtered by role
func (r *UserRepository) GetAll(ctx context.Context, role string) ([]*models.User, error) {
	start := time.Now()

	query := `SELECT ` + userColumns + ` FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		observeDB("user_get_all", start, err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := models.ScanUsers(rows)
	observeDB("user_get_all", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	return users, nil
}

// SetActive flips a user's active flag
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	start := time.Now()

	query := `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, active)
	observeDB("user_set_active", start, err)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
