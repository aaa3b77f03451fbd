package evaluator

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/capsulebuddy/backend/internal/domain"
	"github.com/capsulebuddy/backend/internal/observability/metrics"
)

// Match is one due reminder: the instant's wall-clock time equalled one of
// the reminder's scheduled times while its date window was in effect.
// Duplicate time tokens and overlapping reminders each produce their own
// Match; nothing is deduplicated.
type Match struct {
	User        *domain.User
	Medicine    *domain.Medicine
	Reminder    *domain.Reminder
	MatchedTime string
}

// Fault records a per-reminder failure that was isolated during a tick.
type Fault struct {
	ReminderID string
	Err        error
}

// Report is the outcome of one evaluation tick.
type Report struct {
	At      time.Time
	Matches []Match
	Faults  []Fault
}

// timeToken is the only accepted shape for a scheduled time.
var timeToken = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Evaluator decides which active reminders are due at a given instant.
type Evaluator struct {
	reminders domain.ReminderRepository
	users     domain.UserRepository
	medicines domain.MedicineRepository
	logger    *slog.Logger
}

// New creates an evaluator over the given repositories
func New(
	reminders domain.ReminderRepository,
	users domain.UserRepository,
	medicines domain.MedicineRepository,
	logger *slog.Logger,
) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{
		reminders: reminders,
		users:     users,
		medicines: medicines,
		logger:    logger,
	}
}

// Evaluate scans every active reminder and returns the matches for now.
// Matching is exact to the minute: now is formatted as zero-padded 24-hour
// "HH:MM" and compared for string equality against each scheduled time. A
// minute skipped between ticks is simply missed; there is no catch-up.
// Faults (bad time token, dangling user or medicine reference) are isolated
// per reminder and reported in the Report, never raised.
func (e *Evaluator) Evaluate(now time.Time) (*Report, error) {
	currentTime := now.Format("15:04")

	reminders, err := e.reminders.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list active reminders: %w", err)
	}
	metrics.SetActiveReminders(len(reminders))

	report := &Report{At: now, Matches: []Match{}}

	for _, reminder := range reminders {
		if !reminder.InEffectOn(now) {
			continue
		}

		for _, token := range reminder.SpecificTimes {
			if !timeToken.MatchString(token) {
				report.Faults = append(report.Faults, Fault{
					ReminderID: reminder.ID,
					Err:        fmt.Errorf("malformed time token %q", token),
				})
				continue
			}

			if token != currentTime {
				continue
			}

			user, err := e.users.GetByID(reminder.UserID)
			if err != nil {
				report.Faults = append(report.Faults, Fault{
					ReminderID: reminder.ID,
					Err:        fmt.Errorf("failed to resolve user %s: %w", reminder.UserID, err),
				})
				continue
			}

			medicine, err := e.medicines.GetByID(reminder.MedicineID)
			if err != nil {
				report.Faults = append(report.Faults, Fault{
					ReminderID: reminder.ID,
					Err:        fmt.Errorf("failed to resolve medicine %s: %w", reminder.MedicineID, err),
				})
				continue
			}

			report.Matches = append(report.Matches, Match{
				User:        user,
				Medicine:    medicine,
				Reminder:    reminder,
				MatchedTime: token,
			})
		}
	}

	for _, fault := range report.Faults {
		e.logger.Warn("reminder skipped during evaluation",
			slog.String("reminder_id", fault.ReminderID),
			slog.String("error", fault.Err.Error()),
		)
	}

	metrics.ObserveDueReminders(len(report.Matches))
	metrics.ObserveEvaluationFaults(len(report.Faults))

	return report, nil
}
