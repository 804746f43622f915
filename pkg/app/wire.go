package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmertens/ctxweave/internal/config"
	ctxengine "github.com/jmertens/ctxweave/internal/context"
	"github.com/jmertens/ctxweave/internal/hook"
	"github.com/jmertens/ctxweave/internal/layer"
	"github.com/jmertens/ctxweave/internal/session"
	"github.com/jmertens/ctxweave/internal/skill"
	"github.com/jmertens/ctxweave/internal/workspace"
	historysqlite "github.com/jmertens/ctxweave/modules/history/sqlite"
)

// components holds everything built from a validated configuration. The
// gateway, scheduler, MCP server and reload handler all draw from here.
type components struct {
	cfg     *config.Config
	version string

	workspace *workspace.Workspace
	hooks     *hook.Registry
	layers    *layer.Store
	skills    *skill.Catalog
	assembler *ctxengine.Assembler
	history   session.HistoryStore

	// historyDB is non-nil only for the sqlite backend; closed on shutdown.
	historyDB *sql.DB
}

// buildComponents wires the engine from a validated config. Must be called
// after config.Validate; it assumes structural invariants hold.
func buildComponents(cfg *config.Config, version string, workspaceOverride string, logger *slog.Logger) (*components, error) {
	root := cfg.Workspace
	if workspaceOverride != "" {
		root = workspaceOverride
	}
	if root == "" {
		root = DefaultWorkspace()
	}
	ws := workspace.New(root)
	if err := ws.EnsureStructure(); err != nil {
		return nil, fmt.Errorf("preparing workspace %s: %w", root, err)
	}

	hooks := hook.NewRegistry(logger)

	layers := layer.NewStore(cfg.Layers, hooks, logger)
	if err := layers.ResolveOverrides(ws.Root); err != nil {
		return nil, fmt.Errorf("resolving layer overrides: %w", err)
	}

	catalog := skill.NewCatalog(logger)
	sources := cfg.Skills
	if len(sources) == 0 {
		// No sources configured: scan the workspace skills directory.
		sources = []config.SkillSource{{Name: "workspace", Kind: "workspace"}}
	}
	for _, src := range sources {
		dir := src.Path
		if src.Kind == "workspace" {
			dir = ws.SkillsDir()
		}
		if err := catalog.RegisterSource(skill.NewDirSource(src.Name, dir)); err != nil {
			return nil, fmt.Errorf("registering skill source %s: %w", src.Name, err)
		}
	}

	history, historyDB, err := buildHistory(cfg)
	if err != nil {
		return nil, err
	}

	// The default profile shapes the engine; per-task ceilings are
	// resolved at request time via config.ProfileFor.
	profile := config.ProfileFor(cfg, "")
	assembler := ctxengine.NewAssembler(ctxengine.AssemblerDeps{
		Layers: layers,
		Skills: catalog,
		Hooks:  hooks,
		Config: ctxengine.Config{
			CharsPerToken: cfg.Estimator.CharsPerToken,
			SystemFloor:   profile.SystemFloor,
			SkillsRatio:   profile.SkillsRatio,
			MemoryRatio:   profile.MemoryRatio,
			HistoryRatio:  profile.HistoryRatio,
			CacheTTL:      cfg.Cache.TTL,
			SystemLayers:  cfg.SystemLayers,
			MemoryLayer:   cfg.MemoryLayer,
		},
		ConfigVersion: version,
		Logger:        logger,
	})

	return &components{
		cfg:       cfg,
		version:   version,
		workspace: ws,
		hooks:     hooks,
		layers:    layers,
		skills:    catalog,
		assembler: assembler,
		history:   history,
		historyDB: historyDB,
	}, nil
}

// buildHistory selects the session history backend.
func buildHistory(cfg *config.Config) (session.HistoryStore, *sql.DB, error) {
	switch cfg.History.Backend {
	case "sqlite":
		store, db, err := historysqlite.Open(cfg.History.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening history database: %w", err)
		}
		return store, db, nil
	default:
		return session.NewInMemoryHistoryStore(), nil, nil
	}
}

// maxTokensFor returns the request-time token ceiling resolver for the
// loaded profiles.
func (c *components) maxTokensFor() func(taskType string) int {
	return func(taskType string) int {
		return config.ProfileFor(c.cfg, taskType).DefaultMaxTokens
	}
}

// budgetProfileFor returns the request-time budget shape resolver, so a
// task type's floor and ratios are honored, not just its ceiling.
func (c *components) budgetProfileFor() func(taskType string) ctxengine.BudgetProfile {
	return func(taskType string) ctxengine.BudgetProfile {
		p := config.ProfileFor(c.cfg, taskType)
		return ctxengine.BudgetProfile{
			SystemFloor:  p.SystemFloor,
			SkillsRatio:  p.SkillsRatio,
			MemoryRatio:  p.MemoryRatio,
			HistoryRatio: p.HistoryRatio,
		}
	}
}

// close releases resources owned by the components.
func (c *components) close() error {
	if c.historyDB != nil {
		return c.historyDB.Close()
	}
	return nil
}
