package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/capsulebuddy/backend/internal/domain"
	"github.com/capsulebuddy/backend/internal/safety"
)

// SafetyCheckRequest represents the payload for an ad-hoc safety check
type SafetyCheckRequest struct {
	UserID     string `json:"user_id"`
	MedicineID string `json:"medicine_id"`
}

// SafetyHandler handles ad-hoc medicine safety checks for a user
type SafetyHandler struct {
	userRepo     domain.UserRepository
	medicineRepo domain.MedicineRepository
	checker      *safety.Checker
	logger       *slog.Logger
}

// NewSafetyHandler creates a new safety handler
func NewSafetyHandler(
	userRepo domain.UserRepository,
	medicineRepo domain.MedicineRepository,
	checker *safety.Checker,
	logger *slog.Logger,
) *SafetyHandler {
	return &SafetyHandler{
		userRepo:     userRepo,
		medicineRepo: medicineRepo,
		checker:      checker,
		logger:       logger,
	}
}

// ServeHTTP handles POST /api/check-safety requests
func (h *SafetyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req SafetyCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode safety request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userRepo.GetByID(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user not found")
		return
	}

	medicine, err := h.medicineRepo.GetByID(req.MedicineID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "medicine not found")
		return
	}

	result := h.checker.Check(r.Context(), medicine.Name, user.Conditions, []string{})
	writeJSON(w, http.StatusOK, result.Verdict)
}
