package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vsinha/mrp-planner/pkg/interfaces/api"
)

// ServeConfig holds configuration for the API server
type ServeConfig struct {
	ConfigFile     string
	ScenarioDir    string
	AllowedOrigins []string
	Verbose        bool
}

// ServeCommand loads a scenario and serves the planning and matching API until ctx is done
type ServeCommand struct {
	config ServeConfig
}

func NewServeCommand(config ServeConfig) *ServeCommand {
	return &ServeCommand{config: config}
}

// Execute blocks until ctx is cancelled, then drains in-flight requests for up to 30s
func (c *ServeCommand) Execute(ctx context.Context) error {
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("validation error: -scenario directory is required")
	}
	env, err := loadEnvironment(ctx, c.config.ConfigFile, c.config.ScenarioDir, c.config.Verbose)
	if err != nil {
		return err
	}
	defer env.services.Close()

	handler := api.NewHandler(env.services.Planner, env.services.Reconciler, env.logger)
	server := &http.Server{
		Addr:         env.cfg.HTTP.Addr(),
		Handler:      api.NewRouter(handler, env.logger, c.config.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		env.logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	env.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	env.logger.Info().Msg("server stopped")
	return nil
}
