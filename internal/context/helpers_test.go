package ctxengine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmertens/ctxweave/internal/hook"
	"github.com/jmertens/ctxweave/internal/layer"
	"github.com/jmertens/ctxweave/internal/skill"
)

// testEngine bundles an assembler with its collaborators for tests.
type testEngine struct {
	assembler *Assembler
	layers    *layer.Store
	skills    *skill.Catalog
	hooks     *hook.Registry
	workspace string
}

// engineOptions tunes newTestEngine.
type engineOptions struct {
	config     Config
	summarizer Summarizer
	skills     []skill.StaticSkill
	layers     map[string]string // name -> content; "core" and "memory" by default
}

func newTestEngine(t *testing.T, opts engineOptions) *testEngine {
	t.Helper()

	if opts.layers == nil {
		opts.layers = map[string]string{
			"core":   "Core behavior rules.",
			"memory": "Known facts.",
		}
	}
	if opts.config.SystemLayers == nil {
		opts.config.SystemLayers = []string{"core"}
	}
	if opts.config.MemoryLayer == "" {
		if _, ok := opts.layers["memory"]; ok {
			opts.config.MemoryLayer = "memory"
		}
	}
	if opts.config.CacheTTL == 0 {
		opts.config.CacheTTL = time.Minute
	}

	dir := t.TempDir()
	paths := make(map[string]string, len(opts.layers))
	for name, content := range opts.layers {
		path := filepath.Join(dir, "base", name+".md")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write layer: %v", err)
		}
		paths[name] = path
	}

	logger := slog.Default()
	hooks := hook.NewRegistry(logger)
	layers := layer.NewStore(paths, hooks, logger)

	catalog := skill.NewCatalog(logger)
	if len(opts.skills) > 0 {
		if err := catalog.RegisterSource(skill.NewStaticSource("builtin", opts.skills)); err != nil {
			t.Fatalf("RegisterSource: %v", err)
		}
	}

	estimator := lenEstimator{}
	assembler := NewAssembler(AssemblerDeps{
		Layers:        layers,
		Skills:        catalog,
		Estimator:     estimator,
		Compressor:    NewCompressor(estimator, opts.summarizer, logger),
		Hooks:         hooks,
		Config:        opts.config,
		ConfigVersion: "test-config-v1",
		Logger:        logger,
	})

	return &testEngine{
		assembler: assembler,
		layers:    layers,
		skills:    catalog,
		hooks:     hooks,
		workspace: dir,
	}
}
