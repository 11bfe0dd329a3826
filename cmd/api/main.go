package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/calendar-ads/internal/config"
	"github.com/Dan9191/calendar-ads/internal/handler"
	"github.com/Dan9191/calendar-ads/internal/middleware"
	"github.com/Dan9191/calendar-ads/internal/notify"
	"github.com/Dan9191/calendar-ads/internal/reminder"
	"github.com/Dan9191/calendar-ads/internal/repository"
	"github.com/Dan9191/calendar-ads/internal/service"
	"github.com/Dan9191/calendar-ads/internal/store"
	"github.com/Dan9191/calendar-ads/internal/store/memory"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize storage
	var st store.Store
	switch cfg.Store {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		st = memory.New()
	default:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		repo := repository.NewRepository(db)
		if cfg.DBAutoMigrate {
			if err := repo.Migrate(context.Background()); err != nil {
				logger.Fatalf("Failed to migrate database: %v", err)
			}
		}
		st = repo
	}

	// Initialize layers
	svc := service.NewService(st, logger)
	h := handler.NewHandler(svc, cfg.WebhookSecret, logger)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(logger))
	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret, logger))
	h.Register(r, protected)

	// Late installment reminders
	var job *reminder.Job
	if cfg.RemindersEnabled {
		job = reminder.NewJob(st, notify.NewSender(cfg, logger), logger)
		if err := job.Start(cfg.ReminderCron); err != nil {
			logger.Fatalf("Failed to start reminders: %v", err)
		}
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if job != nil {
		select {
		case <-job.Stop().Done():
		case <-ctx.Done():
		}
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
}
