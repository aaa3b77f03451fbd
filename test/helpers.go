package test

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/capsulebuddy/backend/internal/domain"
	"github.com/capsulebuddy/backend/internal/handler"
	"github.com/capsulebuddy/backend/internal/infrastructure/logger"
	"github.com/capsulebuddy/backend/internal/safety"
	"github.com/capsulebuddy/backend/internal/security/audit"
	"github.com/capsulebuddy/backend/internal/security/auth"
	"github.com/capsulebuddy/backend/internal/service"
)

// In-memory repositories backing the test server

type memUserRepo struct {
	mu    sync.Mutex
	seq   int
	byID  map[string]*domain.User
	email map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, email: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.email[u.Email]; exists {
		return errors.New("email already registered")
	}
	m.seq++
	u.ID = fmt.Sprintf("u-%d", m.seq)
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	m.email[u.Email] = u
	return nil
}
func (m *memUserRepo) GetByID(id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}
func (m *memUserRepo) GetByEmail(email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.email[email]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

type memMedicineRepo struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*domain.Medicine
}

func newMemMedicineRepo() *memMedicineRepo {
	return &memMedicineRepo{byID: map[string]*domain.Medicine{}}
}

func (m *memMedicineRepo) Create(med *domain.Medicine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	med.ID = fmt.Sprintf("m-%d", m.seq)
	med.CreatedAt = time.Now()
	m.byID[med.ID] = med
	return nil
}
func (m *memMedicineRepo) GetByID(id string) (*domain.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if med, ok := m.byID[id]; ok {
		return med, nil
	}
	return nil, errors.New("not found")
}
func (m *memMedicineRepo) SearchByName(name string) ([]*domain.Medicine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Medicine{}
	for _, med := range m.byID {
		if strings.Contains(strings.ToLower(med.Name), strings.ToLower(name)) {
			out = append(out, med)
		}
	}
	return out, nil
}

type memReminderRepo struct {
	mu        sync.Mutex
	seq       int
	reminders []*domain.Reminder
}

func (m *memReminderRepo) Create(r *domain.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r.ID = fmt.Sprintf("r-%d", m.seq)
	r.CreatedAt = time.Now()
	m.reminders = append(m.reminders, r)
	return nil
}
func (m *memReminderRepo) GetByID(id string) (*domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}
func (m *memReminderRepo) ListByUser(userID string) ([]*domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Reminder{}
	for _, r := range m.reminders {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}
func (m *memReminderRepo) ListActive() ([]*domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Reminder{}
	for _, r := range m.reminders {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

// labelStub is a fake drug-label upstream whose contraindications can be
// swapped per test.
type labelStub struct {
	mu                sync.Mutex
	contraindications []string
	warnings          []string
}

func (s *labelStub) set(contraindications, warnings []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contraindications = contraindications
	s.warnings = warnings
}

func (s *labelStub) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"results":[{"contraindications":%s,"warnings":%s}]}`,
		quoteAll(s.contraindications), quoteAll(s.warnings))
}

func quoteAll(values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("%q", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// TestServerHelper runs the full HTTP surface over in-memory repositories
// and a stubbed drug-label upstream.
type TestServerHelper struct {
	Server *httptest.Server
	Logger *slog.Logger

	Users     *memUserRepo
	Medicines *memMedicineRepo
	Reminders *memReminderRepo
	Labels    *labelStub

	labelServer *httptest.Server
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()
	log := logger.NewLogger("debug")

	users := newMemUserRepo()
	medicines := newMemMedicineRepo()
	reminders := &memReminderRepo{}

	labels := &labelStub{contraindications: []string{}, warnings: []string{}}
	labelServer := httptest.NewServer(http.HandlerFunc(labels.handler))

	checker := safety.NewChecker(labelServer.URL, 2*time.Second, log)
	authService := service.NewAuthService(users, log)
	tokenManager := auth.NewTokenManager("test-secret", "capsulebuddy")
	auditLogger := audit.NewLogger(log)

	mux := http.NewServeMux()
	mux.Handle("POST /api/register", handler.NewRegisterHandler(authService, log))
	mux.Handle("POST /api/login", handler.NewLoginHandler(authService, tokenManager, auditLogger, log))
	mux.Handle("POST /api/medicine", handler.NewMedicineHandler(medicines, log))
	mux.Handle("GET /api/medicine/search/{name}", handler.NewMedicineSearchHandler(medicines, log))
	mux.Handle("POST /api/reminder", handler.NewReminderHandler(reminders, users, medicines, checker, auditLogger, log))
	mux.Handle("GET /api/reminders/{user_id}", handler.NewRemindersListHandler(reminders, medicines, log))
	mux.Handle("POST /api/check-safety", handler.NewSafetyHandler(users, medicines, checker, log))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &TestServerHelper{
		Server:      httptest.NewServer(mux),
		Logger:      log,
		Users:       users,
		Medicines:   medicines,
		Reminders:   reminders,
		Labels:      labels,
		labelServer: labelServer,
	}
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
	h.labelServer.Close()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}
