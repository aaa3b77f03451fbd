package service

import (
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/capsulebuddy/backend/internal/domain"
)

// ErrInvalidCredentials is returned on any login failure. Callers get the
// same error for unknown email and wrong password to prevent enumeration.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles registration and login. Passwords are stored only as
// bcrypt hashes.
type AuthService struct {
	userRepo domain.UserRepository
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo domain.UserRepository, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Register creates a new user account
func (s *AuthService) Register(name, email, password string, conditions []string) (*domain.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email, and password are required")
	}

	if existing, err := s.userRepo.GetByEmail(email); err == nil && existing != nil {
		return nil, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	if conditions == nil {
		conditions = []string{}
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Conditions:   conditions,
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	return user, nil
}

// Login authenticates a user by email and password
func (s *AuthService) Login(email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}
