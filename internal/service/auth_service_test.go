package service

import (
	"errors"
	"testing"
	"time"

	"github.com/capsulebuddy/backend/internal/domain"
)

type memUserRepo struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(u *domain.User) error {
	if u.ID == "" {
		u.ID = "u-" + u.Email
	}
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}
func (m *memUserRepo) GetByID(id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}
func (m *memUserRepo) GetByEmail(email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newMemUserRepo()
	s := NewAuthService(repo, nil)

	// Register
	u, err := s.Register("Alice", "alice@example.com", "Password123", []string{"Asthma"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected user id")
	}
	if u.PasswordHash == "Password123" {
		t.Fatalf("password must not be stored in plaintext")
	}

	// Duplicate email
	if _, err := s.Register("Alice Again", "alice@example.com", "Password123", nil); err == nil {
		t.Fatalf("expected duplicate email error")
	}

	// Login ok
	lu, err := s.Login("alice@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lu.ID != u.ID {
		t.Fatalf("login returned wrong user")
	}

	// Login wrong password
	if _, err := s.Login("alice@example.com", "Wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}

	// Login unknown email gets the same error as a wrong password
	if _, err := s.Login("nobody@example.com", "Password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	repo := newMemUserRepo()
	s := NewAuthService(repo, nil)

	if _, err := s.Register("", "a@example.com", "pass", nil); err == nil {
		t.Fatalf("expected error for missing name")
	}
	if _, err := s.Register("A", "", "pass", nil); err == nil {
		t.Fatalf("expected error for missing email")
	}
	if _, err := s.Register("A", "a@example.com", "", nil); err == nil {
		t.Fatalf("expected error for missing password")
	}
}

func TestRegisterNilConditionsBecomeEmpty(t *testing.T) {
	repo := newMemUserRepo()
	s := NewAuthService(repo, nil)

	u, err := s.Register("Bob", "bob@example.com", "Password123", nil)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if u.Conditions == nil {
		t.Fatalf("conditions must be an empty slice, not nil")
	}
}
