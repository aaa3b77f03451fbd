package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/capsulebuddy/backend/internal/security/audit"
	"github.com/capsulebuddy/backend/internal/security/auth"
	"github.com/capsulebuddy/backend/internal/service"
)

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	Conditions []string `json:"conditions"`
}

// RegisterHandler handles user registration
type RegisterHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewRegisterHandler creates a new register handler
func NewRegisterHandler(authService *service.AuthService, logger *slog.Logger) *RegisterHandler {
	return &RegisterHandler{
		authService: authService,
		logger:      logger,
	}
}

// ServeHTTP handles POST /api/register requests
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode register request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.authService.Register(req.Name, req.Email, req.Password, req.Conditions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user_id": user.ID,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler handles user authentication
type LoginHandler struct {
	authService  *service.AuthService
	tokenManager *auth.TokenManager
	auditLogger  *audit.Logger
	logger       *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(
	authService *service.AuthService,
	tokenManager *auth.TokenManager,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *LoginHandler {
	return &LoginHandler{
		authService:  authService,
		tokenManager: tokenManager,
		auditLogger:  auditLogger,
		logger:       logger,
	}
}

// ServeHTTP handles POST /api/login requests
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode login request", slog.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		h.auditLogger.LogLogin(r.Context(), "", "failed")
		// Generic error to prevent user enumeration
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokenManager.GenerateToken(user.ID, user.Email, 24*time.Hour)
	if err != nil {
		h.logger.Error("failed to generate token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	h.auditLogger.LogLogin(r.Context(), user.ID, "success")

	conditions := user.Conditions
	if conditions == nil {
		conditions = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Login successful",
		"user_id":    user.ID,
		"name":       user.Name,
		"conditions": conditions,
		"token":      token,
	})
}
