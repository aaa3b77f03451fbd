package domain

import "time"

// Medicine represents a drug known to the system
type Medicine struct {
	ID           string // UUID
	Name         string
	Description  string
	SideEffects  []string
	Interactions []string // Names of other medicines/substances it interacts with
	CreatedAt    time.Time
}

// MedicineRepository defines data access for medicines
type MedicineRepository interface {
	Create(medicine *Medicine) error
	GetByID(id string) (*Medicine, error)
	SearchByName(name string) ([]*Medicine, error)
}
