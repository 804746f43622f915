// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for ctxweave.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Workspace is the root directory for user-editable assets: layer
	// overrides, workspace skills, and runtime data.
	Workspace string `yaml:"workspace,omitempty"`

	// Layers maps layer names to the files holding their base content.
	Layers map[string]string `yaml:"layers"`

	// SystemLayers lists the layers composed, in order, into the system
	// section. Defaults to ["core"].
	SystemLayers []string `yaml:"system_layers,omitempty"`

	// MemoryLayer names the layer rendered as the memory section. Empty
	// disables the section.
	MemoryLayer string `yaml:"memory_layer,omitempty"`

	// Skills lists skill sources in registration order. Later sources
	// shadow earlier ones on name collision.
	Skills []SkillSource `yaml:"skills,omitempty"`

	// Profiles maps task types to budget profiles. The "default" profile
	// applies when a task type has no entry of its own.
	Profiles map[string]BudgetProfile `yaml:"profiles,omitempty"`

	// Estimator tunes token estimation.
	Estimator EstimatorConfig `yaml:"estimator,omitempty"`

	// Cache tunes the static prompt cache.
	Cache CacheConfig `yaml:"cache,omitempty"`

	// History selects the session history backend.
	History HistoryConfig `yaml:"history,omitempty"`

	// Gateway configures the HTTP API. Nil disables it.
	Gateway *GatewayConfig `yaml:"gateway,omitempty"`

	// Telemetry configures OTLP trace export. Nil disables it.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`

	// MCP enables the stdio MCP server tools.
	MCP MCPConfig `yaml:"mcp,omitempty"`

	// Jobs holds cron expressions for background maintenance.
	Jobs JobsConfig `yaml:"jobs,omitempty"`

	// Reload configures config file watching.
	Reload ReloadConfig `yaml:"reload,omitempty"`
}

// SkillSource declares where a set of skills comes from.
type SkillSource struct {
	// Name identifies the source in logs and shadowing diagnostics.
	Name string `yaml:"name"`

	// Kind is "dir" or "workspace". A workspace source reads
	// <workspace>/skills and needs no path.
	Kind string `yaml:"kind"`

	// Path is the directory scanned for *.md skill files. Required for
	// kind "dir".
	Path string `yaml:"path,omitempty"`
}

// BudgetProfile is the per-task-type token budget shape.
type BudgetProfile struct {
	// SystemFloor is the token count reserved for the system section
	// before ratios apply.
	SystemFloor int `yaml:"system_floor"`

	// SkillsRatio, MemoryRatio and HistoryRatio split the remaining
	// budget. They are normalized, so they need not sum to 1.
	SkillsRatio  float64 `yaml:"skills_ratio"`
	MemoryRatio  float64 `yaml:"memory_ratio"`
	HistoryRatio float64 `yaml:"history_ratio"`

	// DefaultMaxTokens applies when a request does not carry its own
	// ceiling.
	DefaultMaxTokens int `yaml:"default_max_tokens,omitempty"`
}

// EstimatorConfig tunes the character-ratio token estimator.
type EstimatorConfig struct {
	CharsPerToken float64 `yaml:"chars_per_token,omitempty"`
}

// CacheConfig tunes the static prompt cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// HistoryConfig selects the session history backend.
type HistoryConfig struct {
	// Backend is "memory" (default) or "sqlite".
	Backend string `yaml:"backend,omitempty"`

	// Path is the SQLite database file. Required for the sqlite backend.
	Path string `yaml:"path,omitempty"`
}

// GatewayConfig configures the HTTP API server.
type GatewayConfig struct {
	Listen string `yaml:"listen,omitempty"`

	// AuthToken protects every endpoint except the health check. Empty
	// disables authentication.
	AuthToken string `yaml:"auth_token,omitempty"`

	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// TelemetryConfig configures OTLP trace export over HTTP.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the exporter connection.
	Insecure bool `yaml:"insecure,omitempty"`
}

// MCPConfig enables the MCP stdio server.
type MCPConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// JobsConfig holds cron expressions for background maintenance jobs.
// Empty fields fall back to built-in schedules.
type JobsConfig struct {
	// CacheSweep evicts expired prompt cache entries.
	CacheSweep string `yaml:"cache_sweep,omitempty"`

	// OverrideRescan re-resolves workspace layer overrides.
	OverrideRescan string `yaml:"override_rescan,omitempty"`
}

// ReloadConfig configures config file watching.
type ReloadConfig struct {
	Enabled  bool          `yaml:"enabled,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}
