package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/capsulebuddy/backend/internal/domain"
)

// PostgresReminderRepository implements domain.ReminderRepository using PostgreSQL
type PostgresReminderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReminderRepository creates a new reminder repository
func NewPostgresReminderRepository(db *sql.DB, logger *slog.Logger) *PostgresReminderRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReminderRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new reminder. Times are stored as a text[] column; start
// and end dates as DATE columns.
func (r *PostgresReminderRepository) Create(reminder *domain.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}

	query := `
		INSERT INTO reminders (id, user_id, medicine_id, dosage, frequency, specific_times, start_date, end_date, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		query,
		reminder.ID,
		reminder.UserID,
		reminder.MedicineID,
		reminder.Dosage,
		reminder.Frequency,
		pq.Array(reminder.SpecificTimes),
		reminder.StartDate,
		reminder.EndDate,
		reminder.Active,
	).Scan(&reminder.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create reminder",
			slog.String("user_id", reminder.UserID),
			slog.String("medicine_id", reminder.MedicineID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	return nil
}

// GetByID retrieves a reminder by ID
func (r *PostgresReminderRepository) GetByID(id string) (*domain.Reminder, error) {
	query := `
		SELECT id, user_id, medicine_id, dosage, frequency, specific_times, start_date, end_date, active, created_at
		FROM reminders
		WHERE id = $1
	`

	reminder, err := scanReminder(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to get reminder by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	return reminder, nil
}

// ListByUser returns all reminders owned by a user, newest first
func (r *PostgresReminderRepository) ListByUser(userID string) ([]*domain.Reminder, error) {
	query := `
		SELECT id, user_id, medicine_id, dosage, frequency, specific_times, start_date, end_date, active, created_at
		FROM reminders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	return r.list(query, userID)
}

// ListActive returns every reminder with active = true, regardless of its
// date window. The evaluator applies the window itself on each tick.
func (r *PostgresReminderRepository) ListActive() ([]*domain.Reminder, error) {
	query := `
		SELECT id, user_id, medicine_id, dosage, frequency, specific_times, start_date, end_date, active, created_at
		FROM reminders
		WHERE active = true
	`

	return r.list(query)
}

func (r *PostgresReminderRepository) list(query string, args ...any) ([]*domain.Reminder, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("failed to list reminders", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			r.logger.Error("failed to scan reminder row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}

	return reminders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	reminder := &domain.Reminder{}
	var times pq.StringArray
	var endDate sql.NullTime

	err := row.Scan(
		&reminder.ID,
		&reminder.UserID,
		&reminder.MedicineID,
		&reminder.Dosage,
		&reminder.Frequency,
		&times,
		&reminder.StartDate,
		&endDate,
		&reminder.Active,
		&reminder.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	reminder.SpecificTimes = times
	if endDate.Valid {
		reminder.EndDate = &endDate.Time
	}
	return reminder, nil
}
