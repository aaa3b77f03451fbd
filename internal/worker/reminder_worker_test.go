package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/capsulebuddy/backend/internal/domain"
	"github.com/capsulebuddy/backend/internal/evaluator"
)

type memUserRepo struct{ users map[string]*domain.User }

func (m *memUserRepo) Create(u *domain.User) error { m.users[u.ID] = u; return nil }
func (m *memUserRepo) GetByID(id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}
func (m *memUserRepo) GetByEmail(email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

type memMedicineRepo struct{ medicines map[string]*domain.Medicine }

func (m *memMedicineRepo) Create(med *domain.Medicine) error {
	m.medicines[med.ID] = med
	return nil
}
func (m *memMedicineRepo) GetByID(id string) (*domain.Medicine, error) {
	if med, ok := m.medicines[id]; ok {
		return med, nil
	}
	return nil, errors.New("not found")
}
func (m *memMedicineRepo) SearchByName(name string) ([]*domain.Medicine, error) {
	return nil, nil
}

type memReminderRepo struct{ reminders []*domain.Reminder }

func (m *memReminderRepo) Create(r *domain.Reminder) error {
	m.reminders = append(m.reminders, r)
	return nil
}
func (m *memReminderRepo) GetByID(id string) (*domain.Reminder, error) {
	return nil, errors.New("not found")
}
func (m *memReminderRepo) ListByUser(userID string) ([]*domain.Reminder, error) {
	return m.reminders, nil
}
func (m *memReminderRepo) ListActive() ([]*domain.Reminder, error) {
	out := []*domain.Reminder{}
	for _, r := range m.reminders {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

type captureNotifier struct {
	mu      sync.Mutex
	matches []evaluator.Match
}

func (c *captureNotifier) Notify(_ context.Context, match evaluator.Match) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = append(c.matches, match)
	return nil
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matches)
}

func testEvaluator(times []string) *evaluator.Evaluator {
	users := &memUserRepo{users: map[string]*domain.User{
		"u-1": {ID: "u-1", Name: "Alice", Email: "alice@example.com"},
	}}
	medicines := &memMedicineRepo{medicines: map[string]*domain.Medicine{
		"m-1": {ID: "m-1", Name: "Ibuprofen"},
	}}
	start, _ := time.Parse(time.DateOnly, "2024-01-01")
	reminders := &memReminderRepo{reminders: []*domain.Reminder{{
		ID:            "r-1",
		UserID:        "u-1",
		MedicineID:    "m-1",
		Dosage:        "200mg",
		SpecificTimes: times,
		StartDate:     start,
		Active:        true,
	}}}
	return evaluator.New(reminders, users, medicines, nil)
}

func TestRunOnceReportsMatches(t *testing.T) {
	w := NewReminderWorker(testEvaluator([]string{"08:00"}), &captureNotifier{}, nil, time.Minute)

	now, _ := time.Parse("2006-01-02 15:04", "2024-06-01 08:00")
	report, err := w.RunOnce(context.Background(), now)
	if err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if len(report.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(report.Matches))
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	w := NewReminderWorker(testEvaluator([]string{"08:00"}), &captureNotifier{}, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop after context cancellation")
	}
}

func TestStartNotifiesDueReminders(t *testing.T) {
	notifier := &captureNotifier{}
	// Schedule at the current and next wall-clock minutes so the ticker
	// fires a match even if the minute rolls over mid-test.
	now := time.Now().Format("15:04")
	next := time.Now().Add(time.Minute).Format("15:04")
	start, _ := time.Parse(time.DateOnly, "2024-01-01")

	users := &memUserRepo{users: map[string]*domain.User{
		"u-1": {ID: "u-1", Name: "Alice", Email: "alice@example.com"},
	}}
	medicines := &memMedicineRepo{medicines: map[string]*domain.Medicine{
		"m-1": {ID: "m-1", Name: "Ibuprofen"},
	}}
	reminders := &memReminderRepo{reminders: []*domain.Reminder{{
		ID: "r-1", UserID: "u-1", MedicineID: "m-1", Dosage: "200mg",
		SpecificTimes: []string{now, next}, StartDate: start, Active: true,
	}}}

	w := NewReminderWorker(evaluator.New(reminders, users, medicines, nil), notifier, nil, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	if notifier.count() == 0 {
		t.Fatalf("expected at least one notification for a due reminder")
	}
}
