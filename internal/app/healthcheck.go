package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// healthHandler answers liveness probes while a flow is running.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// serveHealthcheck runs the health check HTTP server until ctx is cancelled,
// then shuts it down gracefully. A graceful shutdown is not an error.
func (a *App) serveHealthcheck(ctx context.Context, port int) error {
	a.logger.Debug("Configuring health check server.")
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("🩺 Health check server starting.", "address", fmt.Sprintf("http://localhost%s/health", addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		// ListenAndServe only returns before the shutdown path when it
		// failed to serve at all.
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health check server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down health check server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Health check server shutdown failed.", "error", err)
		return err
	}

	a.logger.Debug("Health check server shut down gracefully.")
	return nil
}
