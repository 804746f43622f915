package config

// DefaultProfileName is the profile applied when a task type has no entry.
const DefaultProfileName = "default"

// builtinProfile backstops configs that define no profiles at all.
var builtinProfile = BudgetProfile{
	SystemFloor:      1024,
	SkillsRatio:      0.15,
	MemoryRatio:      0.15,
	HistoryRatio:     0.70,
	DefaultMaxTokens: 32768,
}

// ProfileFor resolves the budget profile for a task type. Lookup order is
// the task type itself, then "default", then a built-in profile.
func ProfileFor(cfg *Config, taskType string) BudgetProfile {
	if taskType != "" {
		if p, ok := cfg.Profiles[taskType]; ok {
			return fillProfile(p)
		}
	}
	if p, ok := cfg.Profiles[DefaultProfileName]; ok {
		return fillProfile(p)
	}
	return builtinProfile
}

// fillProfile replaces zero-valued fields with the built-in defaults so a
// profile can override just the knobs it cares about.
func fillProfile(p BudgetProfile) BudgetProfile {
	if p.SystemFloor == 0 {
		p.SystemFloor = builtinProfile.SystemFloor
	}
	if p.SkillsRatio == 0 && p.MemoryRatio == 0 && p.HistoryRatio == 0 {
		p.SkillsRatio = builtinProfile.SkillsRatio
		p.MemoryRatio = builtinProfile.MemoryRatio
		p.HistoryRatio = builtinProfile.HistoryRatio
	}
	if p.DefaultMaxTokens == 0 {
		p.DefaultMaxTokens = builtinProfile.DefaultMaxTokens
	}
	return p
}
