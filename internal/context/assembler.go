package ctxengine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmertens/ctxweave/internal/hook"
	"github.com/jmertens/ctxweave/internal/layer"
	"github.com/jmertens/ctxweave/internal/session"
	"github.com/jmertens/ctxweave/internal/skill"
)

// Assembly stages, reported in error wrapping and trace spans.
type stage string

const (
	stageLoadingLayers      stage = "loading_layers"
	stageLoadingSkills      stage = "loading_skills"
	stageAllocating         stage = "allocating"
	stageCompressingHistory stage = "compressing_history"
	stageEstimating         stage = "estimating"
)

// Section is one typed piece of an assembled context with its own token
// accounting. Budget decisions are made on sections, not on the serialized
// string; text is only joined at the very end.
type Section struct {
	Name   string `json:"name"`
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// StaticSections is the cacheable portion of an assembly: everything that
// does not change turn-to-turn (layers, skills summary, memory layer).
type StaticSections struct {
	System Section
	Skills Section
	Memory Section
}

// tokens returns the combined estimated cost of the static sections.
func (s StaticSections) tokens() int {
	return s.System.Tokens + s.Skills.Tokens + s.Memory.Tokens
}

// AssembledContext is the result of one build: the final text, its token
// count, and the per-section breakdown. Produced fresh each call;
// read-only to callers.
type AssembledContext struct {
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`

	System  Section `json:"system"`
	Skills  Section `json:"skills"`
	Memory  Section `json:"memory"`
	History Section `json:"history"`

	// CacheHit is true when the static portion was served from cache.
	CacheHit bool `json:"cache_hit"`
	// Summarized is true when an omitted history span was summarized.
	Summarized bool `json:"summarized"`
	// Truncated is true when history was hard-truncated (summarizer
	// unavailable, or the final safety net fired).
	Truncated bool `json:"truncated"`
}

// BuildRequest carries the inputs for one context assembly.
type BuildRequest struct {
	// SessionID identifies the session, for hooks and tracing.
	SessionID string

	// TaskType selects task-specific skill activation; part of the static
	// cache fingerprint.
	TaskType string

	// MaxTokens is the hard ceiling for the assembled context.
	MaxTokens int

	// Profile overrides the configured budget shape (floor and ratios) for
	// this request. Nil means the assembler's configured defaults. Shapes
	// never affect the cached static sections, only the history share.
	Profile *BudgetProfile

	// Subagent selects which prompt-built hook fires on completion.
	Subagent bool

	// Messages is the session history to compress. Owned by the session;
	// the assembler never mutates it.
	Messages []session.Message

	// ManualSkills names skills explicitly activated for this turn. Part
	// of the static cache fingerprint, since activation shapes the skills
	// section.
	ManualSkills []string
}

// AssemblerStats is a point-in-time view of assembler counters.
type AssemblerStats struct {
	Assemblies  int64 `json:"assemblies"`
	Failures    int64 `json:"failures"`
	Truncations int64 `json:"truncations"`
}

// Assembler composes prompt layers, skill metadata, memory and compressed
// history into one context per agent turn, within a hard token ceiling.
//
// Safe for concurrent use: shared state is confined to the cache and the
// collaborators' own caches, all of which tolerate racing idempotent
// writes. Hooks fire only on successful completion of each stage.
type Assembler struct {
	layers     *layer.Store
	skills     *skill.Catalog
	estimator  TokenEstimator
	allocator  *Allocator
	compressor *Compressor
	cache      *Cache
	hooks      *hook.Registry
	cfg        Config
	cfgVersion string
	logger     *slog.Logger
	tracer     trace.Tracer

	assemblies  atomic.Int64
	failures    atomic.Int64
	truncations atomic.Int64
}

// AssemblerDeps groups the collaborators for NewAssembler. Uses the
// request struct pattern (>3 fields).
type AssemblerDeps struct {
	Layers     *layer.Store
	Skills     *skill.Catalog
	Estimator  TokenEstimator
	Compressor *Compressor
	Cache      *Cache
	Hooks      *hook.Registry
	Config     Config

	// ConfigVersion fingerprints the loaded configuration; part of the
	// static cache key.
	ConfigVersion string

	Logger *slog.Logger
}

// NewAssembler creates an Assembler from its collaborators. A nil
// Estimator falls back to a CharEstimator built from the config ratio.
func NewAssembler(deps AssemblerDeps) *Assembler {
	cfg := deps.Config.withDefaults()
	estimator := deps.Estimator
	if estimator == nil {
		estimator = NewCharEstimator(cfg.CharsPerToken)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	compressor := deps.Compressor
	if compressor == nil {
		compressor = NewCompressor(estimator, nil, logger)
	}
	cache := deps.Cache
	if cache == nil {
		cache = NewCache(deps.Hooks, logger)
	}
	return &Assembler{
		layers:     deps.Layers,
		skills:     deps.Skills,
		estimator:  estimator,
		allocator:  NewAllocator(cfg),
		compressor: compressor,
		cache:      cache,
		hooks:      deps.Hooks,
		cfg:        cfg,
		cfgVersion: deps.ConfigVersion,
		logger:     logger,
		tracer:     otel.Tracer("ctxweave/ctxengine"),
	}
}

// Cache returns the assembler's prompt cache, for invalidation by reload
// handlers and sweeping by the janitor.
func (a *Assembler) Cache() *Cache { return a.cache }

// Compressor returns the assembler's history compressor.
func (a *Assembler) Compressor() *Compressor { return a.compressor }

// Stats returns a snapshot of the assembler counters.
func (a *Assembler) Stats() AssemblerStats {
	return AssemblerStats{
		Assemblies:  a.assemblies.Load(),
		Failures:    a.failures.Load(),
		Truncations: a.truncations.Load(),
	}
}

// BuildContext assembles the context for one agent turn.
//
// The static portion (layers + skills + memory) is cached by fingerprint;
// history is never cached since it changes every turn. The resulting token
// count is guaranteed <= req.MaxTokens except when the mandatory floor
// sections alone exceed it, in which case allocation fails fast with
// ErrBudgetInfeasible.
func (a *Assembler) BuildContext(ctx context.Context, req BuildRequest) (AssembledContext, error) {
	ctx, span := a.tracer.Start(ctx, "ctxengine.BuildContext",
		trace.WithAttributes(
			attribute.String("session_id", req.SessionID),
			attribute.String("task_type", req.TaskType),
			attribute.Int("max_tokens", req.MaxTokens),
		))
	defer span.End()

	result, err := a.build(ctx, req)
	if err != nil {
		a.failures.Add(1)
		span.RecordError(err)
		return AssembledContext{}, err
	}

	a.assemblies.Add(1)
	if result.Truncated {
		a.truncations.Add(1)
	}
	span.SetAttributes(attribute.Int("tokens", result.TokenCount))
	return result, nil
}

func (a *Assembler) build(ctx context.Context, req BuildRequest) (AssembledContext, error) {
	// Static portion: on a cache hit the layer and skill loads are skipped
	// entirely; history below is always recomputed.
	fp := Fingerprint(
		"static",
		strconv.FormatInt(a.layers.Version(), 10),
		strconv.FormatInt(a.skills.Version(), 10),
		a.cfgVersion,
		req.TaskType,
		strings.Join(req.ManualSkills, ","),
	)

	static, cacheHit, err := a.cache.GetOrCompute(ctx, fp, a.cfg.CacheTTL, func() (StaticSections, error) {
		return a.composeStatic(ctx, req)
	})
	if err != nil {
		return AssembledContext{}, err
	}

	var budget ContextBudget
	if req.Profile != nil {
		budget, err = a.allocator.AllocateProfile(req.MaxTokens, *req.Profile)
	} else {
		budget, err = a.allocator.Allocate(req.MaxTokens)
	}
	if err != nil {
		return AssembledContext{}, fmt.Errorf("%s: %w", stageAllocating, err)
	}

	compressed, err := a.compressor.Compress(ctx, req.Messages, budget.History)
	if err != nil {
		return AssembledContext{}, fmt.Errorf("%s: %w", stageCompressingHistory, err)
	}

	history := Section{
		Name:   "history",
		Text:   renderHistory(compressed.Messages),
		Tokens: 0,
	}
	history.Tokens = a.estimator.Estimate(history.Text)

	result := AssembledContext{
		System:     static.System,
		Skills:     static.Skills,
		Memory:     static.Memory,
		History:    history,
		CacheHit:   cacheHit,
		Summarized: compressed.Summarized,
		Truncated:  compressed.Truncated,
	}

	result.Text = joinSections(static, result.History.Text)
	result.TokenCount = a.estimator.Estimate(result.Text)

	// Safety net for estimator/compressor disagreement: hard truncation of
	// the least-priority section (history) from the end. System and skills
	// sections are never cut.
	if result.TokenCount > req.MaxTokens {
		a.truncateHistory(&result, static, req.MaxTokens)
	}

	event := hook.EventMainPromptBuilt
	if req.Subagent {
		event = hook.EventSubagentPromptBuilt
	}
	if a.hooks != nil {
		if herr := a.hooks.Trigger(ctx, event, hook.Payload{
			"prompt":     result.Text,
			"tokens":     result.TokenCount,
			"session_id": req.SessionID,
		}); herr != nil {
			a.logger.Warn("ctxengine: prompt hook errors", "event", string(event), "error", herr)
		}
	}

	return result, nil
}

// composeStatic loads the system layers, skills summary and memory layer.
// Runs on static cache miss only; layer loads fire the layer.loaded hook.
func (a *Assembler) composeStatic(ctx context.Context, req BuildRequest) (StaticSections, error) {
	var sb strings.Builder
	for i, name := range a.cfg.SystemLayers {
		l, err := a.layers.Load(ctx, name)
		if err != nil {
			return StaticSections{}, fmt.Errorf("%s: %w", stageLoadingLayers, err)
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(l.Content)
	}
	system := Section{Name: "system", Text: sb.String()}
	system.Tokens = a.estimator.Estimate(system.Text)

	skillsText := a.renderSkills(req)
	skills := Section{Name: "skills", Text: skillsText, Tokens: a.estimator.Estimate(skillsText)}

	memory := Section{Name: "memory"}
	if a.cfg.MemoryLayer != "" {
		l, err := a.layers.Load(ctx, a.cfg.MemoryLayer)
		if err != nil {
			return StaticSections{}, fmt.Errorf("%s: %w", stageLoadingLayers, err)
		}
		memory.Text = l.Content
		memory.Tokens = a.estimator.Estimate(memory.Text)
	}

	return StaticSections{System: system, Skills: skills, Memory: memory}, nil
}

// renderSkills formats the activated skills as a summary section. Full
// content stays lazy; only metadata enters the prompt.
func (a *Assembler) renderSkills(req BuildRequest) string {
	if a.skills == nil || a.skills.Len() == 0 {
		return ""
	}

	// Auto-triggered skills match keywords against the task type, keeping
	// activation a pure function of the static fingerprint inputs.
	filter := &skill.Filter{
		UserMessage:    req.TaskType,
		ManuallyActive: req.ManualSkills,
	}
	active := a.skills.List(filter)
	if len(active) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Skills\n\nThe following skills extend your capabilities:\n")
	for _, s := range active {
		b.WriteString("- ")
		b.WriteString(s.Name)
		if s.Description != "" {
			b.WriteString(": ")
			b.WriteString(s.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// truncateHistory binary-searches the largest history prefix whose total
// still fits the ceiling, relying on estimator monotonicity.
func (a *Assembler) truncateHistory(result *AssembledContext, static StaticSections, maxTokens int) {
	text := result.History.Text

	lo, hi := 0, len(text)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		candidate := joinSections(static, text[:mid])
		if a.estimator.Estimate(candidate) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	result.History.Text = text[:lo]
	result.History.Tokens = a.estimator.Estimate(result.History.Text)
	result.Text = joinSections(static, result.History.Text)
	result.TokenCount = a.estimator.Estimate(result.Text)
	result.Truncated = true

	a.logger.Warn("ctxengine: history hard-truncated to fit ceiling",
		"max_tokens", maxTokens,
		"final_tokens", result.TokenCount,
	)
}

// joinSections concatenates the sections in fixed order: system layers,
// skills summary, memory layer, history. Empty sections are skipped so the
// output carries no stray separators.
func joinSections(static StaticSections, historyText string) string {
	parts := make([]string, 0, 4)
	for _, text := range []string{static.System.Text, static.Skills.Text, static.Memory.Text, historyText} {
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// renderHistory serializes compressed messages for the prompt.
func renderHistory(messages []session.Message) string {
	if len(messages) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
