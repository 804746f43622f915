package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmertens/ctxweave/internal/config"
	ctxengine "github.com/jmertens/ctxweave/internal/context"
	"github.com/jmertens/ctxweave/internal/hook"
	"github.com/jmertens/ctxweave/internal/layer"
)

// Handler applies a fresh configuration to the running engine: layer caches
// are dropped, workspace overrides re-resolved, the prompt cache emptied,
// and the config.loaded hook fired.
type Handler struct {
	logger    *slog.Logger
	workspace string
	layers    *layer.Store
	cache     *ctxengine.Cache
	hooks     *hook.Registry

	// Apply, when set, receives the validated config and its checksum so
	// the application can swap config-derived components.
	Apply func(ctx context.Context, cfg *config.Config, version string) error
}

// NewHandler creates a reload handler.
func NewHandler(logger *slog.Logger, workspace string, layers *layer.Store, cache *ctxengine.Cache, hooks *hook.Registry) *Handler {
	return &Handler{
		logger:    logger,
		workspace: workspace,
		layers:    layers,
		cache:     cache,
		hooks:     hooks,
	}
}

// HandleReload loads a fresh config from disk, validates it, and applies it.
// A config that fails to load or validate leaves the running state untouched.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	cfg, version, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return h.handleReload(ctx, cfg, version)
}

// HandleLayersChanged refreshes layer state after a workspace layer file
// change: the layer cache is dropped, overrides re-resolved, and the prompt
// cache emptied. The running configuration is untouched.
func (h *Handler) HandleLayersChanged(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before layer refresh: %w", err)
	}

	if h.layers != nil {
		h.layers.Reload()
		if h.workspace != "" {
			if err := h.layers.ResolveOverrides(h.workspace); err != nil {
				return fmt.Errorf("resolving overrides: %w", err)
			}
		}
	}
	if h.cache != nil {
		h.cache.InvalidateAll()
	}

	h.logger.Info("layer overrides refreshed")
	return nil
}

func (h *Handler) handleReload(ctx context.Context, cfg *config.Config, version string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	if h.Apply != nil {
		if err := h.Apply(ctx, cfg, version); err != nil {
			return fmt.Errorf("applying config: %w", err)
		}
	}

	if h.layers != nil {
		h.layers.Reload()
		workspace := cfg.Workspace
		if workspace == "" {
			workspace = h.workspace
		}
		if workspace != "" {
			if err := h.layers.ResolveOverrides(workspace); err != nil {
				return fmt.Errorf("resolving overrides: %w", err)
			}
		}
	}
	if h.cache != nil {
		h.cache.InvalidateAll()
	}
	if h.hooks != nil {
		if err := h.hooks.Trigger(ctx, hook.EventConfigLoaded, hook.Payload{
			"version": version,
		}); err != nil {
			h.logger.Warn("config.loaded hook errors", "error", err)
		}
	}

	h.logger.Info("configuration reloaded", "version", version)
	return nil
}
