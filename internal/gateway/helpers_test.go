package gateway

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	ctxengine "github.com/jmertens/ctxweave/internal/context"
	"github.com/jmertens/ctxweave/internal/hook"
	"github.com/jmertens/ctxweave/internal/layer"
	"github.com/jmertens/ctxweave/internal/session"
	"github.com/jmertens/ctxweave/internal/skill"
)

const testToken = "test-bearer-token"

// newTestGateway builds a gateway over a real engine with temp layer files
// and an in-memory history store.
func newTestGateway(t *testing.T, cfg Config) (*Gateway, http.Handler) {
	t.Helper()

	dir := t.TempDir()
	corePath := filepath.Join(dir, "core.md")
	if err := os.WriteFile(corePath, []byte("Core behavior rules."), 0o644); err != nil {
		t.Fatalf("write layer: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	hooks := hook.NewRegistry(logger)
	layers := layer.NewStore(map[string]string{"core": corePath}, hooks, logger)

	catalog := skill.NewCatalog(logger)
	err := catalog.RegisterSource(skill.NewStaticSource("builtin", []skill.StaticSkill{
		{
			Meta:    skill.Metadata{Name: "review", Description: "reviews code", Trigger: skill.TriggerAlways},
			Content: "# Review\n\nHow to review.",
		},
	}))
	if err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}

	engineCfg := ctxengine.Config{
		SystemFloor:  64,
		SkillsRatio:  0.2,
		MemoryRatio:  0,
		HistoryRatio: 0.8,
		SystemLayers: []string{"core"},
	}
	assembler := ctxengine.NewAssembler(ctxengine.AssemblerDeps{
		Layers:        layers,
		Skills:        catalog,
		Hooks:         hooks,
		Config:        engineCfg,
		ConfigVersion: "gateway-test-v1",
		Logger:        logger,
	})

	g := New(Deps{
		Config:    cfg,
		Logger:    logger,
		Assembler: assembler,
		Skills:    catalog,
		Layers:    layers,
		History:   session.NewInMemoryHistoryStore(),
		Hooks:     hooks,
		MaxTokens: func(string) int { return 4096 },
		// "deep-research" carries a floor no test ceiling satisfies, so
		// tests can prove per-task shapes reach the allocator.
		Profile: func(taskType string) ctxengine.BudgetProfile {
			if taskType == "deep-research" {
				return ctxengine.BudgetProfile{SystemFloor: 100000, HistoryRatio: 1}
			}
			return ctxengine.BudgetProfile{SystemFloor: 64, SkillsRatio: 0.2, HistoryRatio: 0.8}
		},
	})
	return g, g.buildRouter()
}

// doJSON issues a request against the router and decodes nothing; callers
// inspect the recorder.
func doJSON(t *testing.T, handler http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}
