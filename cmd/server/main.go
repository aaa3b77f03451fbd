package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/capsulebuddy/backend/internal/evaluator"
	"github.com/capsulebuddy/backend/internal/featureflags"
	"github.com/capsulebuddy/backend/internal/handler"
	"github.com/capsulebuddy/backend/internal/infrastructure/logger"
	redisinfra "github.com/capsulebuddy/backend/internal/infrastructure/redis"
	"github.com/capsulebuddy/backend/internal/notify"
	"github.com/capsulebuddy/backend/internal/observability/metrics"
	"github.com/capsulebuddy/backend/internal/observability/tracing"
	"github.com/capsulebuddy/backend/internal/repository"
	"github.com/capsulebuddy/backend/internal/safety"
	"github.com/capsulebuddy/backend/internal/security/audit"
	"github.com/capsulebuddy/backend/internal/security/auth"
	"github.com/capsulebuddy/backend/internal/security/middleware"
	"github.com/capsulebuddy/backend/internal/security/ratelimit"
	"github.com/capsulebuddy/backend/internal/service"
	"github.com/capsulebuddy/backend/internal/worker"
	"github.com/capsulebuddy/backend/pkg/cache"
	"github.com/capsulebuddy/backend/pkg/config"
	"github.com/capsulebuddy/backend/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting CapsuleBuddy server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless OTEL endpoint configured)
	shutdownTracing, err := tracing.Init(ctx, log, "capsulebuddy", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres and ensure schema
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		log.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Optional Redis verdict cache, in-memory fallback otherwise
	var redisClient *redisinfra.Client
	var verdictCache safety.VerdictCache
	if cfg.RedisURL != "" {
		redisClient, err = redisinfra.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		verdictCache = safety.NewRedisVerdictCache(redisClient)
	} else {
		verdictCache = safety.NewMemoryVerdictCache(cache.New())
	}

	// 6. Initialize repositories
	db := pool.GetDB()
	userRepo := repository.NewPostgresUserRepository(db, log)
	medicineRepo := repository.NewPostgresMedicineRepository(db, log)
	reminderRepo := repository.NewPostgresReminderRepository(db, log)

	// 7. Initialize services
	authService := service.NewAuthService(userRepo, log)
	checker := safety.NewChecker(
		cfg.SafetyAPIBaseURL,
		time.Duration(cfg.SafetyTimeoutSeconds)*time.Second,
		log,
		safety.WithCache(verdictCache, time.Duration(cfg.SafetyCacheTTLMin)*time.Minute),
	)

	// 7a. Initialize security components
	tokenManager := auth.NewTokenManager(os.Getenv("JWT_SECRET"), "capsulebuddy")
	rateLimiter := ratelimit.NewLimiter(100, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Initialize handlers and routes
	registerHandler := handler.NewRegisterHandler(authService, log)
	loginHandler := handler.NewLoginHandler(authService, tokenManager, auditLogger, log)
	medicineHandler := handler.NewMedicineHandler(medicineRepo, log)
	medicineSearchHandler := handler.NewMedicineSearchHandler(medicineRepo, log)
	reminderHandler := handler.NewReminderHandler(reminderRepo, userRepo, medicineRepo, checker, auditLogger, log)
	remindersListHandler := handler.NewRemindersListHandler(reminderRepo, medicineRepo, log)
	safetyHandler := handler.NewSafetyHandler(userRepo, medicineRepo, checker, log)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	mux := http.NewServeMux()
	mux.Handle("POST /api/register", registerHandler)
	mux.Handle("POST /api/login", loginHandler)
	mux.Handle("POST /api/medicine", medicineHandler)
	mux.Handle("GET /api/medicine/search/{name}", medicineSearchHandler)
	mux.Handle("POST /api/reminder", reminderHandler)
	mux.Handle("GET /api/reminders/{user_id}", remindersListHandler)
	mux.Handle("POST /api/check-safety", safetyHandler)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// 8a. Notification consumers: structured log always, WebSocket feed
	// behind a feature flag
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if featureflags.Enabled("ws_notifications") {
		hub := notify.NewHub(log)
		mux.Handle("GET /ws/notifications", handler.NewNotificationsHandler(hub, log, cfg.CORSAllowedOrigins))
		notifier = notify.NewMultiNotifier(notifier, hub)
		log.Info("websocket notification feed enabled")
	}

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> audit -> rate limit -> JWT -> CORS
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.AuditMiddleware(auditLogger)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.JWTMiddleware(tokenManager, log)(
						middleware.ValidateJSONContentType(log)(handlerWithCORS),
					),
				),
			),
		),
		log,
	)

	// 9. Start reminder worker in background
	eval := evaluator.New(reminderRepo, userRepo, medicineRepo, log)
	reminderWorker := worker.NewReminderWorker(
		eval,
		notifier,
		log,
		time.Duration(cfg.CheckIntervalSeconds)*time.Second,
	)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		reminderWorker.Start(ctx)
	}()

	// 10. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("check_interval_seconds", cfg.CheckIntervalSeconds),
		slog.String("safety_api", cfg.SafetyAPIBaseURL),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel()     // Stop reminder worker
	<-workerDone // Wait for any in-flight tick
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
