// Copyright 2024 Package Tracking System
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"ordertracker/internal/config"
	"ordertracker/internal/database"
	"ordertracker/internal/modules/analyzer/llm"
	"ordertracker/internal/modules/notifier/email"
	"ordertracker/internal/modules/notifier/webhook"
	"ordertracker/internal/modules/provider/globalmailbox"
	"ordertracker/internal/modules/provider/useraccount"
	"ordertracker/internal/modules"
	"ordertracker/internal/processor"
	"ordertracker/internal/queue"
	"ordertracker/internal/scheduler"
	"ordertracker/internal/secrets"
	"ordertracker/internal/server"
	"ordertracker/internal/watcher"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.Info("database initialized", "path", cfg.DatabaseURL)

	box, err := secrets.NewBox([]byte(cfg.EncryptionKey))
	if err != nil {
		log.Fatalf("Failed to initialize secret box: %v", err)
	}

	registry := modules.NewRegistry(db, logger)

	// The supervisor's callback resolver closes over these two module
	// pointers before they exist; both need the supervisor in turn, so
	// the pointers are filled in immediately after.
	var globalMailboxModule *globalmailbox.Module
	var userAccountModule *useraccount.Module

	supervisor := watcher.NewSupervisor(func(mailboxID int64) watcher.Callbacks {
		if mailboxID == globalmailbox.WatcherID {
			return globalMailboxModule.Callbacks()
		}
		return userAccountModule.CallbacksFor(mailboxID)
	}, logger)

	globalMailboxModule = globalmailbox.New(db, box, supervisor)
	userAccountModule = useraccount.New(db, box, supervisor)

	llmModule := llm.New(db, box)
	emailModule := email.New(db, box)
	webhookModule := webhook.New(db)

	for _, m := range []modules.Module{userAccountModule, globalMailboxModule, llmModule, emailModule, webhookModule} {
		if err := registry.Register(m); err != nil {
			log.Fatalf("Failed to register module %s: %v", m.Manifest().Key, err)
		}
	}

	proc := processor.New(db, registry, registry, logger)

	sched := scheduler.New(logger)
	sched.Register("queue-worker", "drains queued items through the active analyzer", config.QueueTickInterval, proc.Tick)
	sched.Register("retention-cleanup", "deletes queue items past retention and enforces per-user caps", config.RetentionInterval, func(ctx context.Context) error {
		_, err := queue.Sweep(db, cfg.QueueMaxAgeDays, cfg.QueueMaxPerUser)
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry.Startup(ctx)
	sched.Start(ctx)

	r := chi.NewRouter()
	r.Use(server.LoggingMiddleware(logger))
	r.Use(server.RecoveryMiddleware(logger))
	r.Use(server.SecurityMiddleware)

	healthHandler := server.NewHealthHandler(db)
	statusHandler := server.NewStatusHandler(registry, supervisor, db.QueueItems, sched)
	moduleHandler := server.NewModuleHandler(registry)
	watcherHandler := server.NewWatcherHandler(supervisor)
	queueHandler := server.NewQueueHandler(db.QueueItems)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)

		r.Group(func(r chi.Router) {
			if !cfg.DisableAdminAuth {
				r.Use(server.AuthMiddleware(cfg.AdminAPIKey, logger))
				logger.Info("admin API authentication enabled")
			} else {
				logger.Warn("admin API authentication disabled")
			}

			r.Get("/status", statusHandler.GetStatus)
			r.Get("/modules", moduleHandler.ListModules)
			r.Post("/modules/{key}/enable", moduleHandler.Enable)
			r.Post("/modules/{key}/disable", moduleHandler.Disable)

			r.With(server.ModuleTypeGate(registry, modules.TypeProvider)).
				Post("/watchers/{mailbox_id}/restart", watcherHandler.Restart)
			r.With(server.ModuleTypeGate(registry, modules.TypeAnalyzer)).
				Get("/queue", queueHandler.Peek)
		})
	})

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownTimeout := 30 * time.Second
	if err := server.HandleSignals(srv, shutdownTimeout, logger); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	sched.Stop()
	supervisor.StopAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	registry.Shutdown(shutdownCtx)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
