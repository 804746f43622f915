package config

import (
	"errors"
	"fmt"
)

// Validate checks the structural validity of a Config. It verifies the
// version field, the layer table, cross-references from system_layers and
// memory_layer, skill sources, budget profiles, and backend selections.
// All problems are reported at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Layers) == 0 {
		errs = append(errs, errors.New("config: at least one layer must be configured"))
	}
	for name, path := range cfg.Layers {
		if path == "" {
			errs = append(errs, fmt.Errorf("config: layer %q: path is required", name))
		}
	}

	for _, name := range cfg.SystemLayers {
		if _, ok := cfg.Layers[name]; !ok {
			errs = append(errs, fmt.Errorf("config: system_layers references unknown layer %q", name))
		}
	}
	if cfg.MemoryLayer != "" {
		if _, ok := cfg.Layers[cfg.MemoryLayer]; !ok {
			errs = append(errs, fmt.Errorf("config: memory_layer references unknown layer %q", cfg.MemoryLayer))
		}
	}

	errs = append(errs, validateSkills(cfg)...)
	errs = append(errs, validateProfiles(cfg.Profiles)...)

	if cfg.Estimator.CharsPerToken < 0 {
		errs = append(errs, errors.New("config: estimator.chars_per_token must not be negative"))
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, errors.New("config: cache.ttl must not be negative"))
	}

	switch cfg.History.Backend {
	case "", "memory":
	case "sqlite":
		if cfg.History.Path == "" {
			errs = append(errs, errors.New("config: history.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown history backend %q (supported: memory, sqlite)", cfg.History.Backend))
	}

	if cfg.Gateway != nil && cfg.Gateway.Listen == "" {
		errs = append(errs, errors.New("config: gateway.listen is required when the gateway is enabled"))
	}
	if cfg.Telemetry != nil && cfg.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("config: telemetry.endpoint is required when telemetry is enabled"))
	}
	if cfg.Reload.Interval < 0 {
		errs = append(errs, errors.New("config: reload.interval must not be negative"))
	}

	return errors.Join(errs...)
}

func validateSkills(cfg *Config) []error {
	var errs []error
	seen := make(map[string]bool, len(cfg.Skills))
	for i, src := range cfg.Skills {
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("config: skills[%d]: name is required", i))
		} else if seen[src.Name] {
			errs = append(errs, fmt.Errorf("config: skills[%d]: duplicate source name %q", i, src.Name))
		} else {
			seen[src.Name] = true
		}

		switch src.Kind {
		case "dir":
			if src.Path == "" {
				errs = append(errs, fmt.Errorf("config: skills[%d]: path is required for kind \"dir\"", i))
			}
		case "workspace":
			if cfg.Workspace == "" {
				errs = append(errs, fmt.Errorf("config: skills[%d]: kind \"workspace\" requires a workspace directory", i))
			}
		default:
			errs = append(errs, fmt.Errorf("config: skills[%d]: unknown kind %q (supported: dir, workspace)", i, src.Kind))
		}
	}
	return errs
}

func validateProfiles(profiles map[string]BudgetProfile) []error {
	var errs []error
	for name, p := range profiles {
		if p.SystemFloor < 0 {
			errs = append(errs, fmt.Errorf("config: profile %q: system_floor must not be negative", name))
		}
		if p.SkillsRatio < 0 || p.MemoryRatio < 0 || p.HistoryRatio < 0 {
			errs = append(errs, fmt.Errorf("config: profile %q: ratios must not be negative", name))
		}
		if p.DefaultMaxTokens < 0 {
			errs = append(errs, fmt.Errorf("config: profile %q: default_max_tokens must not be negative", name))
		}
	}
	return errs
}
