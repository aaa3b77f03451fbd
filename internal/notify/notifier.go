package notify

import (
	"context"
	"log/slog"

	"github.com/capsulebuddy/backend/internal/evaluator"
)

// Notifier consumes a due-reminder match. Delivery transports (push, SMS,
// email) are out of scope; implementations here only surface the decision.
type Notifier interface {
	Notify(ctx context.Context, match evaluator.Match) error
}

// LogNotifier writes each due reminder to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, match evaluator.Match) error {
	n.logger.Info("reminder due",
		slog.String("user", match.User.Name),
		slog.String("user_id", match.User.ID),
		slog.String("medicine", match.Medicine.Name),
		slog.String("dosage", match.Reminder.Dosage),
		slog.String("time", match.MatchedTime),
		slog.String("reminder_id", match.Reminder.ID),
	)
	return nil
}

// MultiNotifier fans a match out to several notifiers. A failing notifier
// does not stop the others; the first error is returned.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (n *MultiNotifier) Notify(ctx context.Context, match evaluator.Match) error {
	var firstErr error
	for _, notifier := range n.notifiers {
		if err := notifier.Notify(ctx, match); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
