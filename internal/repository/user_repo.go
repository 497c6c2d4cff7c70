package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"receiptvault/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = sql.ErrNoRows

// UserRepository handles user database operations
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user record
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, token, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		user.Username,
		user.PasswordHash,
		user.Token,
		user.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByUsername retrieves a user by username. Returns ErrNotFound when the
// username is unknown.
func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, token, created_at
		FROM users
		WHERE username = ?
	`
	return r.getOne(query, username)
}

// GetByToken retrieves a user by session token. Returns ErrNotFound when the
// token is unknown.
func (r *UserRepository) GetByToken(token string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, token, created_at
		FROM users
		WHERE token = ?
	`
	return r.getOne(query, token)
}

func (r *UserRepository) getOne(query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Token,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
