package domain

import "time"

// Reminder schedules a dosage of one medicine for one user at specific times
// of day within an inclusive calendar-date window.
type Reminder struct {
	ID            string // UUID
	UserID        string
	MedicineID    string
	Dosage        string     // e.g. "1 tablet", "5ml"
	Frequency     string     // Descriptive only, e.g. "twice daily"
	SpecificTimes []string   // Wall-clock "HH:MM" tokens; order carries no meaning
	StartDate     time.Time
	EndDate       *time.Time // nil means in effect indefinitely
	Active        bool
	CreatedAt     time.Time
}

// InEffectOn reports whether the reminder's date window covers day d.
// Both bounds are inclusive and only the calendar date is considered.
func (r *Reminder) InEffectOn(d time.Time) bool {
	day := d.Format(time.DateOnly)
	if r.StartDate.Format(time.DateOnly) > day {
		return false
	}
	if r.EndDate != nil && r.EndDate.Format(time.DateOnly) < day {
		return false
	}
	return true
}

// ReminderRepository defines data access for reminders
type ReminderRepository interface {
	Create(reminder *Reminder) error
	GetByID(id string) (*Reminder, error)
	ListByUser(userID string) ([]*Reminder, error)
	ListActive() ([]*Reminder, error)
}
