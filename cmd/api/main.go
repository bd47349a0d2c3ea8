package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "cv-intake/docs" // Swagger docs
	"cv-intake/internal/admin"
	"cv-intake/internal/api"
	"cv-intake/internal/application"
	"cv-intake/internal/auth"
	"cv-intake/internal/config"
	"cv-intake/internal/cv"
	"cv-intake/internal/logging"
	"cv-intake/internal/notify"
	"cv-intake/internal/ratelimit"
	"cv-intake/internal/storage"
)

// @title CV Intake API
// @version 1.0
// @description Job application intake and admin review

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	var (
		appRepo   application.Repository
		adminRepo admin.Repository
	)
	if cfg.MemoryStore {
		logger.Warn("using in-memory store, data is lost on restart")
		appRepo = storage.NewMemoryApplications()
		adminRepo = storage.NewMemoryAdmins()
	} else {
		logger.Info("connecting to database", slog.String("driver", cfg.DBDriver))
		db, err := storage.NewDB(storage.Options{
			Driver:          cfg.DBDriver,
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLife,
		}, logger)
		if err != nil {
			logger.Error("db open", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()

		if cfg.MigrateOnStart {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := db.Migrate(ctx)
			cancel()
			if err != nil {
				logger.Error("migrate", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
		appRepo = storage.NewApplicationRepository(db)
		adminRepo = storage.NewAdminRepository(db)
	}

	resumes, err := cv.NewStore(cfg.UploadsDir, cfg.MaxUploadBytes, logger)
	if err != nil {
		logger.Error("resume store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("token issuer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mailCfg := notify.Config{
		Host:       cfg.EmailHost,
		Port:       cfg.EmailPort,
		User:       cfg.EmailUser,
		Password:   cfg.EmailPass,
		From:       cfg.EmailFrom,
		AdminEmail: cfg.AdminEmail,
		BaseURL:    cfg.PublicBaseURL,
		Workers:    cfg.MailWorkers,
		QueueSize:  cfg.MailQueueSize,
	}
	var sender notify.Sender = notify.LogSender{Logger: logger}
	if mailCfg.Enabled() {
		sender = notify.NewSMTPSender(mailCfg)
	}
	dispatcher := notify.NewDispatcher(mailCfg, sender, logger)
	dispatcher.Start()

	var limiter ratelimit.Limiter
	if cfg.SubmitRatePerMin > 0 {
		limiter = ratelimit.NewMemory(cfg.SubmitRatePerMin, time.Minute)
		if cfg.RedisURL != "" {
			client, err := ratelimit.NewRedisClient(context.Background(), cfg.RedisURL)
			if err != nil {
				logger.Warn("redis unavailable, using in-process rate limiting", slog.String("error", err.Error()))
			} else {
				defer client.Close()
				limiter = ratelimit.NewRedis(client, cfg.SubmitRatePerMin, time.Minute, "submit", logger)
			}
		}
	}

	apiSrv := api.NewAPI(api.Deps{
		Applications:   application.NewService(appRepo, resumes, dispatcher, logger),
		Admins:         admin.NewService(adminRepo, tokens, 0, logger),
		Resumes:        resumes,
		Limiter:        limiter,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(apiSrv),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // resume uploads
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown", slog.String("error", err.Error()))
		}
		if err := dispatcher.Close(ctx); err != nil {
			logger.Warn("mail queue not drained", slog.String("error", err.Error()))
		}
		close(idleConnsClosed)
	}()

	logger.Info("API server listening", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("listen", slog.String("error", err.Error()))
		os.Exit(1)
	}

	<-idleConnsClosed
}
