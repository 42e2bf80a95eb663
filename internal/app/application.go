package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/telemetry"
)

// Version is reported by the CLI, the API docs and telemetry.
const Version = "0.1.0"

// Application is the global runtime state container. It holds config, the
// shared components and the orchestrator. Pass Application into modules that
// need access to the global state rather than using package-level variables.
type Application struct {
	Config     *Config
	Logger     logging.Logger
	Components *Components
	Orch       *Orchestrator

	shutdownTelemetry telemetry.ShutdownFunc
}

// NewLogger builds the process logger from cfg.Log, writing to w.
func NewLogger(cfg *Config, w io.Writer) logging.Logger {
	return logging.NewLogger("lawtrack", logging.ParseLevel(cfg.Log.Level), w)
}

// NewApplication wires telemetry, components and the orchestrator.
func NewApplication(ctx context.Context, cfg *Config, logger logging.Logger, opts ...ComponentOption) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		return nil, errors.New("app: nil logger provided")
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	comps, err := NewComponents(cfg, logger, opts...)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	orch, err := NewOrchestrator(cfg, comps, logger)
	if err != nil {
		_ = comps.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	return &Application{
		Config:            cfg,
		Logger:            logger,
		Components:        comps,
		Orch:              orch,
		shutdownTelemetry: shutdown,
	}, nil
}

// Shutdown stops running jobs, closes components and flushes telemetry.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	// Ask orchestrator to shut down first with a bounded timeout.
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := a.Orch.Shutdown(shutdownCtx); err != nil {
		a.Logger.Info("orchestrator shutdown returned error", logging.Field{Key: "error", Value: err.Error()})
	}

	var firstErr error
	if err := a.Components.Close(); err != nil {
		firstErr = err
	}
	if err := a.shutdownTelemetry(shutdownCtx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("shutdown telemetry: %w", err)
	}
	return firstErr
}
