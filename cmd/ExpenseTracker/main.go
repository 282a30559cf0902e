package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/sebuszqo/ExpenseTracker/internal/auth"
	"github.com/sebuszqo/ExpenseTracker/internal/clock"
	"github.com/sebuszqo/ExpenseTracker/internal/config"
	database "github.com/sebuszqo/ExpenseTracker/internal/db"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/infrastructure"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/interfaces"
	"github.com/sebuszqo/ExpenseTracker/internal/logging"
	"github.com/sebuszqo/ExpenseTracker/internal/user"
)

type Response struct {
	Message string `json:"message"`
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		reqLogger := logger.With("request_id", requestID, "method", r.Method, "path", r.URL.Path)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID)))

		reqLogger.Info("Request completed", "status", recorder.status, "duration", time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("JSON encoding error", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, errors ...[]string) {
	payload := map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	}
	if len(errors) > 0 && len(errors[0]) > 0 {
		payload["errors"] = errors[0]
	}
	respondJSON(w, status, payload)
}

type Server struct {
	router             *http.ServeMux
	db                 *database.DBService
	authHandler        *auth.Handler
	authService        auth.Service
	userHandler        *user.Handler
	categoryHandler    *interfaces.CategoryHandler
	transactionHandler *interfaces.TransactionHandler
}

func NewServer(db *database.DBService, authHandler *auth.Handler, authService auth.Service, userHandler *user.Handler, categoryHandler *interfaces.CategoryHandler, transactionHandler *interfaces.TransactionHandler) *Server {
	return &Server{
		router:             http.NewServeMux(),
		db:                 db,
		authHandler:        authHandler,
		authService:        authService,
		userHandler:        userHandler,
		categoryHandler:    categoryHandler,
		transactionHandler: transactionHandler,
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	status := http.StatusOK
	if health["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, health)
}

func (s *Server) RegisterRoutes() {
	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.HandleFunc("POST /api/auth/register", s.authHandler.HandleRegister)
	publicRoutes.HandleFunc("POST /api/auth/login", s.authHandler.HandleLogin)
	publicRoutes.HandleFunc("GET /api/ready", s.handleReady)

	// Protected routes (using JWT Access Token Middleware)
	protectedRoutes := http.NewServeMux()
	protect := func(pattern string, handler http.HandlerFunc) {
		protectedRoutes.Handle(pattern, s.authService.JWTAccessTokenMiddleware()(handler))
	}

	// USERS API
	protect("GET /api/protected/users/all", s.userHandler.HandleListUsers)
	protect("GET /api/protected/users/me", s.userHandler.HandleGetCurrentUser)
	protect("PUT /api/protected/users/me", s.userHandler.HandleUpdateCurrentUser)
	protect("DELETE /api/protected/users/me", s.userHandler.HandleDeleteCurrentUser)
	protect("GET /api/protected/users/{userID}", s.userHandler.HandleGetUser)
	protect("PUT /api/protected/users/{userID}", s.userHandler.HandleUpdateUser)
	protect("DELETE /api/protected/users/{userID}", s.userHandler.HandleDeleteUser)

	// CATEGORIES API
	protect("GET /api/protected/categories", s.categoryHandler.GetCategories)
	protect("POST /api/protected/categories", s.categoryHandler.CreateCategory)
	protect("GET /api/protected/categories/all", s.categoryHandler.GetAllCategories)
	protect("GET /api/protected/categories/default", s.categoryHandler.GetDefaultCategories)
	protect("PUT /api/protected/categories/default", s.categoryHandler.UpdateDefaultCategories)
	protect("GET /api/protected/categories/{categoryID}", s.categoryHandler.GetCategory)
	protect("PUT /api/protected/categories/{categoryID}", s.categoryHandler.UpdateCategory)
	protect("DELETE /api/protected/categories/{categoryID}", s.categoryHandler.DeleteCategory)

	// TRANSACTIONS API
	protect("GET /api/protected/transactions", s.transactionHandler.GetUserTransactions)
	protect("POST /api/protected/transactions", s.transactionHandler.CreateTransaction)
	protect("POST /api/protected/transactions/bulk", s.transactionHandler.CreateTransactionsBulk)
	protect("GET /api/protected/transactions/all", s.transactionHandler.GetAllTransactions)
	protect("GET /api/protected/transactions/summary", s.transactionHandler.GetTransactionSummary)
	protect("GET /api/protected/transactions/{transactionID}", s.transactionHandler.GetTransaction)
	protect("PUT /api/protected/transactions/{transactionID}", s.transactionHandler.UpdateTransaction)
	protect("DELETE /api/protected/transactions/{transactionID}", s.transactionHandler.DeleteTransaction)

	// Refresh token routes
	refreshTokenRoutes := http.NewServeMux()
	refreshTokenRoutes.Handle("PUT /api/refresh/token", s.authService.JWTRefreshTokenMiddleware()(http.HandlerFunc(s.authHandler.RefreshAccessToken)))
	refreshTokenRoutes.Handle("POST /api/refresh/logout", s.authService.JWTRefreshTokenMiddleware()(http.HandlerFunc(s.authHandler.HandleLogout)))

	// Main router
	mainRouter := http.NewServeMux()

	// Combine public, protected, and refresh routes with distinct paths
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/protected/", protectedRoutes)
	mainRouter.Handle("/api/refresh/", refreshTokenRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

// StartSessionSweeper periodically drops refresh tokens that are past their
// expiry.
func StartSessionSweeper(schedule string, userService user.Service, logger *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		cleared, err := userService.ClearExpiredSessions(context.Background())
		if err != nil {
			logger.Error("Error clearing expired sessions", "error", err)
			return
		}
		logger.Info("Expired sessions cleared", "count", cleared)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// buildServer wires repositories, services and handlers on top of an open
// database.
func buildServer(cfg *config.Config, dbService *database.DBService, clk clock.Clock, logger *slog.Logger) (*Server, user.Service) {
	store := infrastructure.NewStore(dbService)
	categoryService := application.NewCategoryService(store, cfg.Categories.Defaults, clk, logger)
	transactionService := application.NewTransactionService(store, categoryService, clk, logger)

	userRepo := user.NewUserRepository(dbService.Conn())
	userService := user.NewUserService(userRepo, dbService, user.NewBcryptHasher(cfg.Security.BcryptCost), categoryService, clk, logger)
	userHandler := user.NewHandler(userService, respondJSON, respondError)

	jwtManager := auth.NewJWTManager(cfg.JWT, clk)
	authService := auth.NewAuthService(userService, jwtManager, clk, logger)
	authHandler := auth.NewHandler(authService, cfg.Security.CookieSecure, respondJSON, respondError)

	categoryHandler := interfaces.NewCategoryHandler(categoryService, respondJSON, respondError)
	transactionHandler := interfaces.NewTransactionHandler(transactionService, respondJSON, respondError)

	server := NewServer(dbService, authHandler, authService, userHandler, categoryHandler, transactionHandler)
	server.RegisterRoutes()
	return server, userService
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}
	logger := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbService, err := database.NewDBService(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("could not initialize database: %w", err)
	}
	defer dbService.Close()

	server, userService := buildServer(cfg, dbService, clock.System(), logger)

	sweeper, err := StartSessionSweeper(cfg.Sweeper.Schedule, userService, logger)
	if err != nil {
		return fmt.Errorf("scheduler didn't start: %w", err)
	}
	defer sweeper.Stop()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:           loggingMiddleware(logger, server.router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", httpServer.Addr, "driver", dbService.Driver())
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
