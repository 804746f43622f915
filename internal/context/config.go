// Package ctxengine implements context assembly for agent turns: layered
// system prompt composition, token budgeting, history compression, and
// fingerprint-keyed caching of the static prompt portion.
package ctxengine

import "time"

// Config holds the tuning knobs for the context engine. Ratios and floors
// are configuration, not constants: different model context windows need
// different proportions.
type Config struct {
	// CharsPerToken is the ratio used by the default estimator. Recalibrate
	// per target model family; ~4 works for English.
	CharsPerToken float64

	// SystemFloor is the minimum token share reserved for system context.
	// Allocation fails outright when the total budget cannot cover it.
	SystemFloor int

	// SkillsRatio, MemoryRatio and HistoryRatio split the budget remaining
	// after the system floor. They are normalized over their sum.
	SkillsRatio  float64
	MemoryRatio  float64
	HistoryRatio float64

	// CacheTTL bounds how long an assembled static portion is reused
	// before recomposition.
	CacheTTL time.Duration

	// SystemLayers names the prompt layers composing the system section,
	// in concatenation order.
	SystemLayers []string

	// MemoryLayer names the layer serving the memory section. Empty
	// disables the section.
	MemoryLayer string
}

// withDefaults returns a copy of cfg with zero-valued fields replaced by
// sensible defaults.
func (cfg Config) withDefaults() Config {
	if cfg.CharsPerToken <= 0 {
		cfg.CharsPerToken = 4.0
	}
	if cfg.SystemFloor == 0 {
		cfg.SystemFloor = 1024
	}
	if cfg.SkillsRatio == 0 && cfg.MemoryRatio == 0 && cfg.HistoryRatio == 0 {
		cfg.SkillsRatio = 0.15
		cfg.MemoryRatio = 0.15
		cfg.HistoryRatio = 0.70
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if len(cfg.SystemLayers) == 0 {
		cfg.SystemLayers = []string{"core"}
	}
	return cfg
}
