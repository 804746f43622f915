// Package main is the entry point for the ctxweave CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmertens/ctxweave/internal/config"
	"github.com/jmertens/ctxweave/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ctxweave",
		Short:         "Context assembly and compression engine for agent runtimes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), serveCmd(), checkCmd(), initCmd(), mcpCmd(), serviceCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("ctxweave %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the context engine with the configured gateway and jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(runParams(cmd))
		},
	}
	addRunFlags(cmd)
	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the context engine tools over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.RunMCP(runParams(cmd))
		},
	}
	addRunFlags(cmd)
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, checksum, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			fmt.Printf("Configuration OK (version %s, checksum %s)\n", cfg.Version, checksum)
			fmt.Printf("  layers:   %d\n", len(cfg.Layers))
			fmt.Printf("  skills:   %d sources\n", len(cfg.Skills))
			fmt.Printf("  profiles: %d\n", len(cfg.Profiles))
			if cfg.Gateway != nil {
				fmt.Printf("  gateway:  %s\n", cfg.Gateway.Listen)
			}
			if cfg.History.Backend != "" {
				fmt.Printf("  history:  %s\n", cfg.History.Backend)
			}
			return nil
		},
	}
}

// addRunFlags attaches the flags shared by serve and mcp.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().StringP("workspace", "w", "", "Workspace root override")
	cmd.Flags().Bool("debug", false, "Enable debug logging")
}

func runParams(cmd *cobra.Command) app.RunParams {
	cfgPath, _ := cmd.Flags().GetString("config")
	workspace, _ := cmd.Flags().GetString("workspace")
	debug, _ := cmd.Flags().GetBool("debug")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return app.RunParams{
		ConfigPath: cfgPath,
		Version:    version,
		Commit:     commit,
		Date:       date,
		Workspace:  workspace,
		LogLevel:   level,
	}
}
