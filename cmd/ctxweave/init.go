package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmertens/ctxweave/internal/config"
	"github.com/jmertens/ctxweave/internal/workspace"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration file and workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			outPath, _ := cmd.Flags().GetString("output")
			return runInit(outPath)
		},
	}
	cmd.Flags().StringP("output", "o", "ctxweave.yaml", "Where to write the configuration")
	return cmd
}

func runInit(outPath string) error {
	if _, err := os.Stat(outPath); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", outPath)
	}

	workspaceRoot := defaultWorkspaceHint()
	listen := "127.0.0.1:8080"
	historyBackend := "memory"
	authToken := ""
	enableGateway := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Workspace directory").
				Description("Holds layer overrides, workspace skills, and runtime data.").
				Value(&workspaceRoot),
			huh.NewConfirm().
				Title("Enable the HTTP gateway?").
				Value(&enableGateway),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Gateway listen address").
				Value(&listen),
			huh.NewInput().
				Title("Bearer token (empty disables auth)").
				EchoMode(huh.EchoModePassword).
				Value(&authToken),
		).WithHideFunc(func() bool { return !enableGateway }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Session history backend").
				Options(
					huh.NewOption("In-memory (lost on restart)", "memory"),
					huh.NewOption("SQLite (persistent)", "sqlite"),
				).
				Value(&historyBackend),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("aborted: %w", err)
	}

	ws := workspace.New(workspaceRoot)
	if err := ws.EnsureStructure(); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}

	corePath := filepath.Join(ws.LayersDir(), "core.md")
	if _, err := os.Stat(corePath); os.IsNotExist(err) {
		if err := os.WriteFile(corePath, []byte(starterCoreLayer), 0o644); err != nil {
			return fmt.Errorf("writing starter layer: %w", err)
		}
	}

	cfg := config.Config{
		Version:   "1",
		Workspace: workspaceRoot,
		Layers:    map[string]string{"core": corePath},
		Skills: []config.SkillSource{
			{Name: "workspace", Kind: "workspace"},
		},
	}
	if enableGateway {
		cfg.Gateway = &config.GatewayConfig{
			Listen:    listen,
			AuthToken: authToken,
		}
	}
	if historyBackend == "sqlite" {
		cfg.History = config.HistoryConfig{
			Backend: "sqlite",
			Path:    filepath.Join(ws.DataDir(), "history.db"),
		}
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	fmt.Printf("Wrote %s\n", outPath)
	fmt.Printf("Workspace ready at %s\n", workspaceRoot)
	fmt.Println("Start with: ctxweave serve -c", outPath)
	return nil
}

// defaultWorkspaceHint suggests a workspace path for the init form.
func defaultWorkspaceHint() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "ctxweave")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./ctxweave-workspace"
	}
	return filepath.Join(home, ".local", "share", "ctxweave")
}

const starterCoreLayer = `# Core Behavior

You are a focused, capable assistant. Follow the user's instructions,
prefer small verifiable steps, and say so when you are unsure.
`
