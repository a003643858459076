package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalHandler manages graceful shutdown of the HTTP server
type SignalHandler struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// WaitForShutdown waits for shutdown signals and handles graceful shutdown
func (sh *SignalHandler) WaitForShutdown() {
	// Create channel to receive OS signals
	quit := make(chan os.Signal, 1)

	// Register the channel to receive specific signals
	// SIGINT - typically sent by Ctrl+C
	// SIGTERM - standard termination signal sent by process managers
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive a signal
	sig := <-quit
	sh.logger.Info("received signal, initiating graceful shutdown", "signal", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), sh.shutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := sh.server.Shutdown(ctx); err != nil {
		sh.logger.Error("server forced to shutdown due to timeout", "error", err)
	} else {
		sh.logger.Info("server gracefully shut down")
	}
}

// HandleSignals starts the daemon's status HTTP server in the background
// and blocks until SIGINT/SIGTERM triggers a graceful shutdown.
func HandleSignals(server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	// Start server in a goroutine
	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	handler := NewSignalHandler(server, shutdownTimeout, logger)
	handler.WaitForShutdown()

	return nil
}
