package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"scan2cal/calendar-app/internal/api"
	"scan2cal/calendar-app/internal/config"
	"scan2cal/calendar-app/internal/extraction"
	"scan2cal/calendar-app/internal/llm"
	"scan2cal/calendar-app/internal/logging"
	"scan2cal/calendar-app/internal/repository"
	"scan2cal/calendar-app/internal/repository/mongo"
	"scan2cal/calendar-app/internal/repository/postgres"
	"scan2cal/calendar-app/internal/service"
	"scan2cal/calendar-app/internal/storage"
)

type repositories struct {
	accounts  repository.AccountRepository
	uploads   repository.UploadRepository
	calendars repository.CalendarRepository
	close     func()
}

// @title Scan2cal API
// @version 1.0
// @description Turns uploaded documents into editable calendars.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: could not load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}
	log.Info(ctx, "starting scan2cal server", "database", cfg.Database.Driver, "bucket", cfg.S3.BucketName)

	// --- Repositories ---
	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "could not open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer repos.close()

	// --- Storage ---
	fileStorage, err := storage.NewS3Storage(ctx, cfg.S3, log)
	if err != nil {
		log.Error(ctx, "failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}

	// --- Services ---
	engine := extraction.NewEngine(llm.NewOpenAICompleter(cfg.LLM), cfg.Extraction, log)
	texts := service.NewTextService(repos.uploads, fileStorage, log)
	calendars := service.NewCalendarService(repos.calendars, log)
	services := api.Services{
		Accounts:   service.NewAccountService(repos.accounts, cfg.JWT.Secret, cfg.JWT.Expiration, log),
		Uploads:    service.NewUploadService(repos.uploads, fileStorage, log),
		Texts:      texts,
		Calendars:  calendars,
		Extraction: service.NewExtractionService(repos.calendars, texts, engine, log),
	}

	// --- Router ---
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, cfg.JWT.Secret, cfg.Auth.BridgeSecret, services, log)

	// Extraction requests wait on the model, so the write timeout covers the LLM timeout.
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		log.Info(ctx, "server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "listen failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info(ctx, "shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error(ctx, "server forced to shutdown", "error", err)
	}
	log.Info(ctx, "server exiting")
}

func openRepositories(ctx context.Context, cfg config.Config, log logging.Logger) (*repositories, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.URI)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info(ctx, "postgres ready, migrations applied")
		return &repositories{
			accounts:  postgres.NewAccountRepository(db),
			uploads:   postgres.NewUploadRepository(db),
			calendars: postgres.NewCalendarRepository(db),
			close: func() {
				if err := db.Close(); err != nil {
					log.Error(ctx, "failed to close postgres", "error", err)
				}
			},
		}, nil

	default:
		client, err := mongo.ConnectDB(ctx, cfg.Database.URI)
		if err != nil {
			return nil, err
		}
		appDB := client.Database(cfg.Database.Name)

		go func() {
			idxCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := mongo.EnsureIndexes(idxCtx, appDB); err != nil {
				log.Error(idxCtx, "index creation failed", "error", err)
				return
			}
			log.Info(idxCtx, "index creation completed")
		}()

		return &repositories{
			accounts:  mongo.NewMongoAccountRepository(appDB),
			uploads:   mongo.NewMongoUploadRepository(appDB),
			calendars: mongo.NewMongoCalendarRepository(appDB),
			close: func() {
				if err := mongo.DisconnectDB(client); err != nil {
					log.Error(ctx, "failed to disconnect mongo", "error", err)
				}
			},
		}, nil
	}
}
