package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Basic(t *testing.T) {
	path := writeConfig(t, `
version: "1"
layers:
  core: /etc/ctxweave/core.md
system_layers: [core]
profiles:
  default:
    system_floor: 512
    history_ratio: 0.8
`)
	cfg, sum, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != "1" {
		t.Errorf("Version = %q", cfg.Version)
	}
	if cfg.Layers["core"] != "/etc/ctxweave/core.md" {
		t.Errorf("Layers = %v", cfg.Layers)
	}
	if got := cfg.Profiles["default"].SystemFloor; got != 512 {
		t.Errorf("SystemFloor = %d, want 512", got)
	}
	if sum == "" {
		t.Error("checksum is empty")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CTXWEAVE_TEST_WS", "/data/ws")
	path := writeConfig(t, `
version: "1"
workspace: ${CTXWEAVE_TEST_WS}
layers:
  core: ${CTXWEAVE_TEST_CORE:-/etc/core.md}
`)
	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace != "/data/ws" {
		t.Errorf("Workspace = %q, want env value", cfg.Workspace)
	}
	if cfg.Layers["core"] != "/etc/core.md" {
		t.Errorf("Layers[core] = %q, want default value", cfg.Layers["core"])
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
version: "1"
workspace: ${CTXWEAVE_TEST_UNSET_VAR}
layers:
  core: /etc/core.md
`)
	_, _, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "CTXWEAVE_TEST_UNSET_VAR") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_ChecksumTracksEnv(t *testing.T) {
	content := `
version: "1"
layers:
  core: ${CORE_PATH:-/etc/core.md}
`
	path := writeConfig(t, content)

	_, sum1, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	t.Setenv("CORE_PATH", "/srv/core.md")
	_, sum2, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if sum1 == sum2 {
		t.Error("checksum unchanged although the expanded config differs")
	}
}

func TestProfileFor(t *testing.T) {
	cfg := &Config{
		Profiles: map[string]BudgetProfile{
			"default": {SystemFloor: 256, HistoryRatio: 1},
			"coding":  {SystemFloor: 2048, SkillsRatio: 0.3, HistoryRatio: 0.7},
		},
	}

	if got := ProfileFor(cfg, "coding").SystemFloor; got != 2048 {
		t.Errorf("coding floor = %d, want 2048", got)
	}
	if got := ProfileFor(cfg, "chat").SystemFloor; got != 256 {
		t.Errorf("fallback floor = %d, want default profile's 256", got)
	}
	if got := ProfileFor(&Config{}, "chat"); got != builtinProfile {
		t.Errorf("builtin fallback = %+v", got)
	}
	if got := ProfileFor(cfg, "default").DefaultMaxTokens; got != builtinProfile.DefaultMaxTokens {
		t.Errorf("zero max tokens not backfilled: %d", got)
	}
}
