package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"receiptvault/internal/models"
	"receiptvault/internal/repository"
)

const tokenBytes = 16

var (
	// ErrUsernameTaken is returned by Signup when the username exists.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrInvalidCredentials is returned by Login on a bad username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned by ResolveToken for an unknown token.
	ErrInvalidToken = errors.New("invalid or missing token")
)

// Service resolves caller credentials to an owner identity. Everything
// downstream of it (report generation included) works with the opaque user id
// and never authenticates on its own.
type Service struct {
	users  *repository.UserRepository
	logger *zap.Logger
}

// NewService creates a new auth service
func NewService(users *repository.UserRepository, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		logger: logger,
	}
}

// Signup registers a new user and returns the session token for it.
func (s *Service) Signup(username, password string) (string, error) {
	if _, err := s.users.GetByUsername(username); err == nil {
		return "", ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Token:        token,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(user); err != nil {
		return "", err
	}

	s.logger.Info("User registered", zap.String("username", username), zap.Int64("user_id", user.ID))
	return token, nil
}

// Login verifies a username/password pair and returns the session token.
func (s *Service) Login(username, password string) (string, error) {
	user, err := s.users.GetByUsername(username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return user.Token, nil
}

// ResolveToken maps a session token to the owning user id.
func (s *Service) ResolveToken(token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}
	user, err := s.users.GetByToken(token)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
