// Package gateway exposes the context engine over HTTP: assembly, skill
// inspection, session history management, health, status, Prometheus
// metrics, and a WebSocket event stream.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	ctxengine "github.com/jmertens/ctxweave/internal/context"
	"github.com/jmertens/ctxweave/internal/hook"
	"github.com/jmertens/ctxweave/internal/layer"
	"github.com/jmertens/ctxweave/internal/session"
	"github.com/jmertens/ctxweave/internal/skill"
)

// Deps bundles the collaborators the gateway serves.
type Deps struct {
	Config    Config
	Logger    *slog.Logger
	Assembler *ctxengine.Assembler
	Skills    *skill.Catalog
	Layers    *layer.Store
	History   session.HistoryStore
	Hooks     *hook.Registry

	// MaxTokens resolves the default token ceiling for a task type,
	// used when a request carries none.
	MaxTokens func(taskType string) int

	// Profile resolves the per-request budget shape (floor and ratios) for
	// a task type. Nil leaves the assembler's configured default shape.
	Profile func(taskType string) ctxengine.BudgetProfile
}

// Gateway is the HTTP API server.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	assembler *ctxengine.Assembler
	skills    *skill.Catalog
	layers    *layer.Store
	history   session.HistoryStore
	hooks     *hook.Registry
	maxTokens func(taskType string) int
	profile   func(taskType string) ctxengine.BudgetProfile

	metrics   *Metrics
	events    *eventStream
	server    *http.Server
	startedAt time.Time
}

// New creates a Gateway. It registers the event stream's hook handlers and
// the Prometheus collectors but does not start listening.
func New(deps Deps) *Gateway {
	deps.Config.defaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxTokens == nil {
		deps.MaxTokens = func(string) int { return 32768 }
	}

	g := &Gateway{
		config:    deps.Config,
		logger:    deps.Logger,
		assembler: deps.Assembler,
		skills:    deps.Skills,
		layers:    deps.Layers,
		history:   deps.History,
		hooks:     deps.Hooks,
		maxTokens: deps.MaxTokens,
		profile:   deps.Profile,
	}
	g.metrics = newMetrics(deps.Assembler)
	g.events = newEventStream(deps.Logger)
	if deps.Hooks != nil {
		g.events.subscribe(deps.Hooks)
	}
	return g
}

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public, no auth required.
	r.Get("/healthz", g.handleHealth())
	r.Handle("/metrics", g.metrics.handler())

	// API endpoints. Auth applies when configured.
	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth))
		}
		r.Get("/v1/status", g.handleStatus())
		r.Post("/v1/assemble", g.handleAssemble())
		r.Get("/v1/skills", g.handleListSkills())
		r.Get("/v1/skills/{name}", g.handleGetSkill())
		r.Get("/v1/sessions/{id}/messages", g.handleListMessages())
		r.Post("/v1/sessions/{id}/messages", g.handleAppendMessage())
		r.Delete("/v1/sessions/{id}", g.handlePurgeSession())
		r.Get("/v1/events", g.events.handleWebSocket)
	})

	return r
}

// Start begins listening on the configured address.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Listen,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Listen)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Listen)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully with the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.events.closeAll()
	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
