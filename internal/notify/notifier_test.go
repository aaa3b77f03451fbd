package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/capsulebuddy/backend/internal/domain"
	"github.com/capsulebuddy/backend/internal/evaluator"
)

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(_ context.Context, _ evaluator.Match) error {
	s.calls++
	return s.err
}

func sampleMatch() evaluator.Match {
	return evaluator.Match{
		User:        &domain.User{ID: "u-1", Name: "Alice"},
		Medicine:    &domain.Medicine{ID: "m-1", Name: "Ibuprofen"},
		Reminder:    &domain.Reminder{ID: "r-1", Dosage: "200mg"},
		MatchedTime: "08:00",
	}
}

func TestMultiNotifierFansOutPastFailure(t *testing.T) {
	failing := &stubNotifier{err: errors.New("socket closed")}
	healthy := &stubNotifier{}
	multi := NewMultiNotifier(failing, healthy)

	err := multi.Notify(context.Background(), sampleMatch())
	if err == nil {
		t.Fatalf("expected first error to propagate")
	}
	if healthy.calls != 1 {
		t.Fatalf("failure must not stop remaining notifiers, got %d calls", healthy.calls)
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(nil)
	if err := n.Notify(context.Background(), sampleMatch()); err != nil {
		t.Fatalf("log notifier returned error: %v", err)
	}
}
