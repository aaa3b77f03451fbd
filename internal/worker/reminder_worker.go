package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/capsulebuddy/backend/internal/evaluator"
	"github.com/capsulebuddy/backend/internal/notify"
	"github.com/capsulebuddy/backend/internal/observability/metrics"
)

// ReminderWorker periodically runs the evaluator and hands matches to the
// notifier. Dependencies are injected; there is no package-level state.
type ReminderWorker struct {
	evaluator *evaluator.Evaluator
	notifier  notify.Notifier
	logger    *slog.Logger
	interval  time.Duration
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(
	eval *evaluator.Evaluator,
	notifier notify.Notifier,
	logger *slog.Logger,
	interval time.Duration,
) *ReminderWorker {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReminderWorker{
		evaluator: eval,
		notifier:  notifier,
		logger:    logger,
		interval:  interval,
	}
}

// Start runs the evaluation loop until ctx is cancelled. Ticks run
// synchronously on this goroutine, so a tick can never overlap a prior one
// and shutdown waits for any in-flight tick to finish. A tick that outlasts
// the interval causes ticker fires to coalesce; the skipped minutes are
// missed, matching the evaluator's no-catch-up policy.
func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case now := <-ticker.C:
			w.tick(ctx, now)
		}
	}
}

// RunOnce performs a single evaluation tick (used by the CLI and tests)
func (w *ReminderWorker) RunOnce(ctx context.Context, now time.Time) (*evaluator.Report, error) {
	return w.evaluator.Evaluate(now)
}

func (w *ReminderWorker) tick(ctx context.Context, now time.Time) {
	start := time.Now()

	report, err := w.evaluator.Evaluate(now)
	if err != nil {
		w.logger.Error("evaluation tick failed", slog.String("error", err.Error()))
		metrics.ObserveEvaluation("error", time.Since(start))
		return
	}

	for _, match := range report.Matches {
		if err := w.notifier.Notify(ctx, match); err != nil {
			w.logger.Error("failed to notify",
				slog.String("reminder_id", match.Reminder.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	metrics.ObserveEvaluation("success", time.Since(start))

	if len(report.Matches) > 0 || len(report.Faults) > 0 {
		w.logger.Info("evaluation tick finished",
			slog.Int("matches", len(report.Matches)),
			slog.Int("faults", len(report.Faults)),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
