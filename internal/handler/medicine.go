package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/capsulebuddy/backend/internal/domain"
)

// MedicineRequest represents the payload for adding a medicine
type MedicineRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	SideEffects  []string `json:"side_effects"`
	Interactions []string `json:"interactions"`
}

// MedicineHandler handles adding medicines
type MedicineHandler struct {
	medicineRepo domain.MedicineRepository
	logger       *slog.Logger
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(medicineRepo domain.MedicineRepository, logger *slog.Logger) *MedicineHandler {
	return &MedicineHandler{
		medicineRepo: medicineRepo,
		logger:       logger,
	}
}

// ServeHTTP handles POST /api/medicine requests
func (h *MedicineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req MedicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode medicine request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sideEffects := req.SideEffects
	if sideEffects == nil {
		sideEffects = []string{}
	}
	interactions := req.Interactions
	if interactions == nil {
		interactions = []string{}
	}

	medicine := &domain.Medicine{
		Name:         req.Name,
		Description:  req.Description,
		SideEffects:  sideEffects,
		Interactions: interactions,
	}

	if err := h.medicineRepo.Create(medicine); err != nil {
		h.logger.Error("failed to create medicine", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "failed to add medicine")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Medicine added successfully",
		"medicine_id": medicine.ID,
	})
}

// MedicineSearchHandler handles medicine name search
type MedicineSearchHandler struct {
	medicineRepo domain.MedicineRepository
	logger       *slog.Logger
}

// NewMedicineSearchHandler creates a new medicine search handler
func NewMedicineSearchHandler(medicineRepo domain.MedicineRepository, logger *slog.Logger) *MedicineSearchHandler {
	return &MedicineSearchHandler{
		medicineRepo: medicineRepo,
		logger:       logger,
	}
}

// ServeHTTP handles GET /api/medicine/search/{name} requests. Matching is a
// case-insensitive substring search on the medicine name.
func (h *MedicineSearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	medicines, err := h.medicineRepo.SearchByName(name)
	if err != nil {
		h.logger.Error("failed to search medicines",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to search medicines")
		return
	}

	type MedicineResponse struct {
		ID           string   `json:"id"`
		Name         string   `json:"name"`
		Description  string   `json:"description"`
		SideEffects  []string `json:"side_effects"`
		Interactions []string `json:"interactions"`
	}

	respItems := make([]MedicineResponse, 0, len(medicines))
	for _, m := range medicines {
		sideEffects := m.SideEffects
		if sideEffects == nil {
			sideEffects = []string{}
		}
		interactions := m.Interactions
		if interactions == nil {
			interactions = []string{}
		}

		respItems = append(respItems, MedicineResponse{
			ID:           m.ID,
			Name:         m.Name,
			Description:  m.Description,
			SideEffects:  sideEffects,
			Interactions: interactions,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"medicines": respItems})
}
