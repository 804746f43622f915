package reload

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmertens/ctxweave/internal/config"
	ctxengine "github.com/jmertens/ctxweave/internal/context"
	"github.com/jmertens/ctxweave/internal/hook"
	"github.com/jmertens/ctxweave/internal/layer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeTestConfig(t *testing.T, dir, layerPath string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := "version: \"1\"\nlayers:\n  core: " + layerPath + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestHandler_HandleReload_FileNotFound(t *testing.T) {
	h := NewHandler(testLogger(), "", nil, nil, nil)

	err := h.HandleReload(context.Background(), "/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestHandler_HandleReload_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("layers: {}"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	h := NewHandler(testLogger(), "", nil, nil, nil)
	if err := h.HandleReload(context.Background(), path); err == nil {
		t.Error("expected validation error")
	}
}

func TestHandler_HandleReload_AppliesChanges(t *testing.T) {
	dir := t.TempDir()
	layerPath := filepath.Join(dir, "core.md")
	if err := os.WriteFile(layerPath, []byte("Original rules."), 0o644); err != nil {
		t.Fatalf("writing layer: %v", err)
	}
	configPath := writeTestConfig(t, dir, layerPath)

	logger := testLogger()
	hooks := hook.NewRegistry(logger)
	layers := layer.NewStore(map[string]string{"core": layerPath}, hooks, logger)
	cache := ctxengine.NewCache(hooks, logger)

	var configEvents int
	hooks.Register(hook.EventConfigLoaded, func(_ context.Context, p hook.Payload) error {
		configEvents++
		if p["version"] == "" {
			t.Error("config.loaded payload missing version")
		}
		return nil
	})

	// Warm the layer cache, then change the file on disk. Only a reload
	// should surface the new content.
	first, err := layers.Load(context.Background(), "core")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.WriteFile(layerPath, []byte("Updated rules."), 0o644); err != nil {
		t.Fatalf("rewriting layer: %v", err)
	}
	cached, err := layers.Load(context.Background(), "core")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cached.Content != first.Content {
		t.Fatal("layer cache not effective; test premise broken")
	}

	var applied int
	h := NewHandler(logger, dir, layers, cache, hooks)
	h.Apply = func(_ context.Context, cfg *config.Config, version string) error {
		applied++
		if cfg.Layers["core"] != layerPath {
			t.Errorf("applied config layers = %v", cfg.Layers)
		}
		if version == "" {
			t.Error("empty config version")
		}
		return nil
	}

	if err := h.HandleReload(context.Background(), configPath); err != nil {
		t.Fatalf("HandleReload: %v", err)
	}

	if applied != 1 {
		t.Errorf("Apply calls = %d, want 1", applied)
	}
	if configEvents != 1 {
		t.Errorf("config.loaded events = %d, want 1", configEvents)
	}

	reloaded, err := layers.Load(context.Background(), "core")
	if err != nil {
		t.Fatalf("Load after reload: %v", err)
	}
	if reloaded.Content != "Updated rules." {
		t.Errorf("content after reload = %q", reloaded.Content)
	}
}

func TestHandler_HandleLayersChanged(t *testing.T) {
	dir := t.TempDir()
	layerPath := filepath.Join(dir, "core.md")
	if err := os.WriteFile(layerPath, []byte("Original rules."), 0o644); err != nil {
		t.Fatalf("writing layer: %v", err)
	}

	logger := testLogger()
	hooks := hook.NewRegistry(logger)
	layers := layer.NewStore(map[string]string{"core": layerPath}, hooks, logger)
	cache := ctxengine.NewCache(hooks, logger)

	// Warm the layer cache, then change the file on disk.
	if _, err := layers.Load(context.Background(), "core"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.WriteFile(layerPath, []byte("Updated rules."), 0o644); err != nil {
		t.Fatalf("rewriting layer: %v", err)
	}

	h := NewHandler(logger, dir, layers, cache, hooks)
	if err := h.HandleLayersChanged(context.Background()); err != nil {
		t.Fatalf("HandleLayersChanged: %v", err)
	}

	reloaded, err := layers.Load(context.Background(), "core")
	if err != nil {
		t.Fatalf("Load after refresh: %v", err)
	}
	if reloaded.Content != "Updated rules." {
		t.Errorf("content after refresh = %q", reloaded.Content)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.HandleLayersChanged(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestHandler_HandleReload_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	layerPath := filepath.Join(dir, "core.md")
	if err := os.WriteFile(layerPath, []byte("Rules."), 0o644); err != nil {
		t.Fatalf("writing layer: %v", err)
	}
	configPath := writeTestConfig(t, dir, layerPath)

	h := NewHandler(testLogger(), "", nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.HandleReload(ctx, configPath); err == nil {
		t.Error("expected error for cancelled context")
	}
}
