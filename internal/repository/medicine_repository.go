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

// PostgresMedicineRepository implements domain.MedicineRepository using PostgreSQL
type PostgresMedicineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresMedicineRepository creates a new medicine repository
func NewPostgresMedicineRepository(db *sql.DB, logger *slog.Logger) *PostgresMedicineRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMedicineRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new medicine
func (r *PostgresMedicineRepository) Create(medicine *domain.Medicine) error {
	if medicine.ID == "" {
		medicine.ID = uuid.NewString()
	}

	query := `
		INSERT INTO medicines (id, name, description, side_effects, interactions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRow(
		query,
		medicine.ID,
		medicine.Name,
		medicine.Description,
		pq.Array(medicine.SideEffects),
		pq.Array(medicine.Interactions),
	).Scan(&medicine.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create medicine",
			slog.String("name", medicine.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create medicine: %w", err)
	}

	return nil
}

// GetByID retrieves a medicine by ID
func (r *PostgresMedicineRepository) GetByID(id string) (*domain.Medicine, error) {
	medicine := &domain.Medicine{}
	var sideEffects, interactions pq.StringArray

	query := `
		SELECT id, name, description, side_effects, interactions, created_at
		FROM medicines
		WHERE id = $1
	`

	err := r.db.QueryRow(query, id).Scan(
		&medicine.ID,
		&medicine.Name,
		&medicine.Description,
		&sideEffects,
		&interactions,
		&medicine.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to get medicine by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}

	medicine.SideEffects = sideEffects
	medicine.Interactions = interactions
	return medicine, nil
}

// SearchByName returns medicines whose name contains the given fragment,
// case-insensitively.
func (r *PostgresMedicineRepository) SearchByName(name string) ([]*domain.Medicine, error) {
	query := `
		SELECT id, name, description, side_effects, interactions, created_at
		FROM medicines
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
	`

	rows, err := r.db.Query(query, name)
	if err != nil {
		r.logger.Error("failed to search medicines",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to search medicines: %w", err)
	}
	defer rows.Close()

	var medicines []*domain.Medicine
	for rows.Next() {
		medicine := &domain.Medicine{}
		var sideEffects, interactions pq.StringArray
		err := rows.Scan(
			&medicine.ID,
			&medicine.Name,
			&medicine.Description,
			&sideEffects,
			&interactions,
			&medicine.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan medicine row",
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("failed to scan medicine: %w", err)
		}
		medicine.SideEffects = sideEffects
		medicine.Interactions = interactions
		medicines = append(medicines, medicine)
	}

	return medicines, rows.Err()
}
