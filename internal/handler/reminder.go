package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/capsulebuddy/backend/internal/domain"
	"github.com/capsulebuddy/backend/internal/safety"
	"github.com/capsulebuddy/backend/internal/security/audit"
)

// ReminderRequest represents the payload for creating a reminder
type ReminderRequest struct {
	UserID        string   `json:"user_id"`
	MedicineID    string   `json:"medicine_id"`
	Dosage        string   `json:"dosage"`
	Frequency     string   `json:"frequency"`
	SpecificTimes []string `json:"specific_times"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
}

// ReminderHandler handles reminder creation with a safety pre-check
type ReminderHandler struct {
	reminderRepo domain.ReminderRepository
	userRepo     domain.UserRepository
	medicineRepo domain.MedicineRepository
	checker      *safety.Checker
	auditLogger  *audit.Logger
	logger       *slog.Logger
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(
	reminderRepo domain.ReminderRepository,
	userRepo domain.UserRepository,
	medicineRepo domain.MedicineRepository,
	checker *safety.Checker,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *ReminderHandler {
	return &ReminderHandler{
		reminderRepo: reminderRepo,
		userRepo:     userRepo,
		medicineRepo: medicineRepo,
		checker:      checker,
		auditLogger:  auditLogger,
		logger:       logger,
	}
}

// ServeHTTP handles POST /api/reminder requests. The medicine is checked
// against the user's conditions first; an unsafe verdict returns a warning
// and the reminder is not created. The check and the insert are two
// independent operations with no transaction between them.
func (h *ReminderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode reminder request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if req.UserID == "" || req.MedicineID == "" || req.Dosage == "" || req.Frequency == "" {
		writeError(w, http.StatusBadRequest, "user_id, medicine_id, dosage, and frequency are required")
		return
	}
	if len(req.SpecificTimes) == 0 {
		writeError(w, http.StatusBadRequest, "specific_times is required")
		return
	}

	startDate, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}

	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := time.Parse(time.DateOnly, req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}
		endDate = &parsed
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

	// Interaction checking against the user's other medicines is not yet
	// implemented; the empty set mirrors what the checker expects.
	result := h.checker.Check(r.Context(), medicine.Name, user.Conditions, []string{})

	if !result.Safe {
		writeJSON(w, http.StatusOK, map[string]any{
			"warning":  "This medicine may not be safe for you",
			"issues":   result.Issues,
			"warnings": result.Warnings,
		})
		return
	}

	reminder := &domain.Reminder{
		UserID:        req.UserID,
		MedicineID:    req.MedicineID,
		Dosage:        req.Dosage,
		Frequency:     req.Frequency,
		SpecificTimes: req.SpecificTimes,
		StartDate:     startDate,
		EndDate:       endDate,
		Active:        true,
	}

	if err := h.reminderRepo.Create(reminder); err != nil {
		h.logger.Error("failed to create reminder", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "failed to add reminder")
		return
	}

	h.auditLogger.LogReminderCreated(r.Context(), req.UserID, reminder.ID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Reminder added successfully",
		"reminder_id":  reminder.ID,
		"safety_check": result.Verdict,
	})
}

// RemindersListHandler handles listing a user's reminders
type RemindersListHandler struct {
	reminderRepo domain.ReminderRepository
	medicineRepo domain.MedicineRepository
	logger       *slog.Logger
}

// NewRemindersListHandler creates a new reminders list handler
func NewRemindersListHandler(
	reminderRepo domain.ReminderRepository,
	medicineRepo domain.MedicineRepository,
	logger *slog.Logger,
) *RemindersListHandler {
	return &RemindersListHandler{
		reminderRepo: reminderRepo,
		medicineRepo: medicineRepo,
		logger:       logger,
	}
}

// ServeHTTP handles GET /api/reminders/{user_id} requests
func (h *RemindersListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")

	reminders, err := h.reminderRepo.ListByUser(userID)
	if err != nil {
		h.logger.Error("failed to list reminders",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list reminders")
		return
	}

	type ReminderResponse struct {
		ID           string   `json:"id"`
		MedicineName string   `json:"medicine_name"`
		Dosage       string   `json:"dosage"`
		Frequency    string   `json:"frequency"`
		Times        []string `json:"times"`
		StartDate    string   `json:"start_date"`
		EndDate      *string  `json:"end_date"`
		Active       bool     `json:"active"`
	}

	respItems := make([]ReminderResponse, 0, len(reminders))
	for _, rem := range reminders {
		medicineName := ""
		if medicine, err := h.medicineRepo.GetByID(rem.MedicineID); err == nil {
			medicineName = medicine.Name
		}

		var endDate *string
		if rem.EndDate != nil {
			formatted := rem.EndDate.Format(time.DateOnly)
			endDate = &formatted
		}

		times := rem.SpecificTimes
		if times == nil {
			times = []string{}
		}

		respItems = append(respItems, ReminderResponse{
			ID:           rem.ID,
			MedicineName: medicineName,
			Dosage:       rem.Dosage,
			Frequency:    rem.Frequency,
			Times:        times,
			StartDate:    rem.StartDate.Format(time.DateOnly),
			EndDate:      endDate,
			Active:       rem.Active,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"reminders": respItems})
}
