package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/employee-portal/api"
	"github.com/frahmantamala/employee-portal/internal/transport/rest"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var docsAddr string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Serve the portal API reference",
	Long:  `Serve the OpenAPI document of the portal API with Swagger UI, plus health checks for the API and the local storage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			return serveDocs(ctx, deps)
		})
	},
}

func serveDocs(ctx context.Context, deps *Dependencies) error {
	router := chi.NewRouter()
	rest.RegisterDocsRoutes(router, api.OpenAPI, map[string]rest.Check{
		"portal_api": deps.Client.Ping,
		"storage":    deps.DB.Ping,
	}, deps.Logger)

	server := &http.Server{
		Addr:              docsAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()
	deps.Logger.Info("serving API reference", "address", docsAddr, "swagger", fmt.Sprintf("http://%s/swagger/index.html", docsAddr))

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	deps.Logger.Info("server stopped")
	return nil
}

func init() {
	docsCmd.Flags().StringVar(&docsAddr, "addr", "localhost:8080", "listen address")
}
