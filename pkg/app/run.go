// Package app provides the shared entry point for the ctxweave binary.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmertens/ctxweave/internal/config"
	"github.com/jmertens/ctxweave/internal/cron"
	"github.com/jmertens/ctxweave/internal/gateway"
	"github.com/jmertens/ctxweave/internal/reload"
	"github.com/jmertens/ctxweave/internal/security"
	"github.com/jmertens/ctxweave/internal/telemetry"
	mcpserver "github.com/jmertens/ctxweave/modules/mcp"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// Workspace overrides the configured workspace root.
	Workspace string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level
}

// Run loads configuration, starts the gateway and background jobs, and
// blocks until a shutdown signal is received. SIGHUP and file-change
// events trigger a live configuration reload.
func Run(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, version, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg, params.LogLevel)

	comps, err := buildComponents(cfg, version, params.Workspace, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.close(); err != nil {
			logger.Error("closing components", "error", err)
		}
	}()

	logger.Info("ctxweave starting",
		"version", params.Version,
		"config", cfgPath,
		"workspace", comps.workspace.Root,
		"config_version", version,
	)

	// --- telemetry (optional) ---
	if cfg.Telemetry != nil {
		provider, err := telemetry.Setup(context.Background(), telemetry.Config{
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			ServiceName: "ctxweave",
		}, logger)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(ctx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	// --- HTTP gateway (optional) ---
	var gw *gateway.Gateway
	if cfg.Gateway != nil {
		gw = gateway.New(gateway.Deps{
			Config: gateway.Config{
				Listen:       cfg.Gateway.Listen,
				Auth:         gateway.AuthConfig{BearerToken: cfg.Gateway.AuthToken},
				ReadTimeout:  cfg.Gateway.ReadTimeout,
				WriteTimeout: cfg.Gateway.WriteTimeout,
			},
			Logger:    logger,
			Assembler: comps.assembler,
			Skills:    comps.skills,
			Layers:    comps.layers,
			History:   comps.history,
			Hooks:     comps.hooks,
			MaxTokens: comps.maxTokensFor(),
			Profile:   comps.budgetProfileFor(),
		})
		if err := gw.Start(); err != nil {
			return fmt.Errorf("starting gateway: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := gw.Stop(ctx); err != nil {
				logger.Error("stopping gateway", "error", err)
			}
		}()
	}

	// --- background maintenance jobs ---
	scheduler := cron.NewScheduler(logger)
	jobs := []cron.Job{
		&cron.CacheSweepJob{
			Cache:        comps.assembler.Cache(),
			Logger:       logger,
			ScheduleExpr: cfg.Jobs.CacheSweep,
		},
		&cron.OverrideRescanJob{
			Layers:       comps.layers,
			Workspace:    comps.workspace.Root,
			Logger:       logger,
			ScheduleExpr: cfg.Jobs.OverrideRescan,
		},
	}
	for _, job := range jobs {
		if err := scheduler.RegisterJob(job); err != nil {
			return fmt.Errorf("registering job %s: %w", job.Name(), err)
		}
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("stopping scheduler", "error", err)
		}
	}()

	// --- reload handling ---
	handler := reload.NewHandler(logger, comps.workspace.Root, comps.layers, comps.assembler.Cache(), comps.hooks)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()

	var watcher *reload.Watcher
	if cfg.Reload.Enabled {
		watcher = reload.NewWatcher(reload.WatcherConfig{
			ConfigPath:   cfgPath,
			LayerDirs:    []string{comps.workspace.LayersDir()},
			PollInterval: cfg.Reload.Interval,
		})
		watcher.Start(watchCtx)
		defer watcher.Stop()
	}
	var watchEvents <-chan reload.Event
	if watcher != nil {
		watchEvents = watcher.Events()
	}

	// --- signal handling ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Info("SIGHUP received, reloading configuration")
				if err := handler.HandleReload(watchCtx, cfgPath); err != nil {
					logger.Error("reload failed", "error", err)
				}
			default:
				logger.Info("shutdown signal received", "signal", sig.String())
				return nil
			}
		case evt := <-watchEvents:
			switch evt.Type {
			case reload.EventLayersChanged:
				logger.Info("layer files changed, refreshing", "path", evt.Path)
				if err := handler.HandleLayersChanged(watchCtx); err != nil {
					logger.Error("layer refresh failed", "error", err)
				}
			default:
				logger.Info("config file changed, reloading", "path", evt.Path)
				if err := handler.HandleReload(watchCtx, cfgPath); err != nil {
					logger.Error("reload failed", "error", err)
				}
			}
		}
	}
}

// RunMCP builds the engine and serves the MCP tools over stdio. Blocks
// until stdin closes. Logs go to stderr so the protocol stream on stdout
// stays clean.
func RunMCP(params RunParams) error {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return err
		}
		cfgPath = resolved
	}

	cfg, version, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if !cfg.MCP.Enabled {
		return fmt.Errorf("mcp is disabled in %s (set mcp.enabled: true)", cfgPath)
	}

	logger := newLogger(cfg, params.LogLevel)

	comps, err := buildComponents(cfg, version, params.Workspace, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.close(); err != nil {
			logger.Error("closing components", "error", err)
		}
	}()

	srv := mcpserver.NewServer(mcpserver.Deps{
		Assembler: comps.assembler,
		Skills:    comps.skills,
		History:   comps.history,
		Logger:    logger,
		MaxTokens: comps.maxTokensFor(),
		Profile:   comps.budgetProfileFor(),
		Version:   params.Version,
	})
	return mcpserver.ServeStdio(srv)
}

// newLogger builds the process logger. Config values are expanded from
// the environment, so the bearer token is registered with the redactor
// to keep it out of every log line.
func newLogger(cfg *config.Config, level slog.Level) *slog.Logger {
	redactor := security.NewRedactor()
	if cfg.Gateway != nil {
		redactor.AddLiteral(cfg.Gateway.AuthToken)
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/ctxweave/ctxweave.yaml → ~/.config/ctxweave/ctxweave.yaml → ./ctxweave.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "ctxweave", "ctxweave.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "ctxweave", "ctxweave.yaml"))
	}

	candidates = append(candidates, "ctxweave.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultWorkspace returns the default workspace root.
// Uses $XDG_DATA_HOME/ctxweave if set, otherwise ~/.local/share/ctxweave per the XDG spec.
func DefaultWorkspace() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "ctxweave")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ctxweave")
}
