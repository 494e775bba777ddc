package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medgraph/patient-portal-go/internal/audit"
	"github.com/medgraph/patient-portal-go/internal/config"
	"github.com/medgraph/patient-portal-go/internal/database"
	"github.com/medgraph/patient-portal-go/internal/handler"
	"github.com/medgraph/patient-portal-go/internal/jobs"
	"github.com/medgraph/patient-portal-go/internal/middleware"
	"github.com/medgraph/patient-portal-go/internal/redis"
	"github.com/medgraph/patient-portal-go/internal/repository"
	"github.com/medgraph/patient-portal-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	identityRepo := repository.NewIdentityRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)

	recorder := audit.NewDispatcher(auditRepo, cfg.AuditBufferSize)
	defer recorder.Close()

	tokenManager, err := service.NewTokenManager(cfg.PortalJWTSecret, cfg.SessionTTL())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init token manager")
	}

	sessionService := service.NewSessionService(sessionRepo, cfg.SessionTTL())
	authService := service.NewAuthService(
		db, identityRepo, sessionRepo, sessionService,
		service.NewPasswordHasher(), tokenManager, recorder,
	)

	sessionMW := middleware.NewSessionAuthMiddleware(authService)
	staffMW := middleware.NewStaffAuthMiddleware(cfg.StaffAPIToken)
	securityHeadersMW := middleware.NewSecurityHeadersMiddleware(isProduction)
	bodyLimitMW := middleware.NewBodyLimitMiddleware(0)

	var loginLimit func(http.Handler) http.Handler
	if cfg.LoginRateLimitEnabled() {
		loginLimit = middleware.NewLoginRateLimitMiddleware(redisClient.Client, cfg.LoginRatePerMin).Handler
	}

	authHandler := handler.NewAuthHandler(authService, sessionMW, loginLimit)
	accessHandler := handler.NewAccessHandler(authService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(securityHeadersMW.Handler)
	r.Use(bodyLimitMW.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/portal/auth", func(r chi.Router) {
		r.Mount("/", authHandler.Routes())
	})

	r.Route("/staff", func(r chi.Router) {
		r.Use(staffMW.Handler)
		r.Mount("/", accessHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(sessionRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
