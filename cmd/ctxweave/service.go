package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/jmertens/ctxweave/pkg/app"
)

// program adapts app.Run to the service manager lifecycle. Start must not
// block, so the run loop goes to a goroutine; Stop asks the process to
// exit and the manager reaps it.
type program struct {
	params app.RunParams
}

func (p *program) Start(service.Service) error {
	go func() {
		if err := app.Run(p.params); err != nil {
			fmt.Fprintln(os.Stderr, "ctxweave:", err)
		}
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	// app.Run exits on SIGTERM, which the service manager sends before
	// calling Stop. Nothing left to tear down here.
	return nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage ctxweave as a system service",
	}

	var cfgPath string
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")

	newService := func() (service.Service, error) {
		svcConfig := &service.Config{
			Name:        "ctxweave",
			DisplayName: "ctxweave context engine",
			Description: "Assembles and compresses agent context within token budgets.",
		}
		if cfgPath != "" {
			svcConfig.Arguments = []string{"serve", "-c", cfgPath}
		} else {
			svcConfig.Arguments = []string{"serve"}
		}
		prg := &program{params: app.RunParams{
			ConfigPath: cfgPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
			LogLevel:   slog.LevelInfo,
		}}
		return service.New(prg, svcConfig)
	}

	control := func(action string) func(*cobra.Command, []string) error {
		return func(_ *cobra.Command, _ []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("%s failed: %w", action, err)
			}
			fmt.Printf("Service %s: OK\n", action)
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "install", Short: "Install the system service", RunE: control("install")},
		&cobra.Command{Use: "uninstall", Short: "Remove the system service", RunE: control("uninstall")},
		&cobra.Command{Use: "start", Short: "Start the installed service", RunE: control("start")},
		&cobra.Command{Use: "stop", Short: "Stop the installed service", RunE: control("stop")},
		&cobra.Command{Use: "restart", Short: "Restart the installed service", RunE: control("restart")},
		&cobra.Command{
			Use:   "run",
			Short: "Run under the service manager (used by the manager itself)",
			RunE: func(_ *cobra.Command, _ []string) error {
				svc, err := newService()
				if err != nil {
					return err
				}
				return svc.Run()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report the installed service status",
			RunE: func(_ *cobra.Command, _ []string) error {
				svc, err := newService()
				if err != nil {
					return err
				}
				status, err := svc.Status()
				if err != nil {
					return err
				}
				switch status {
				case service.StatusRunning:
					fmt.Println("running")
				case service.StatusStopped:
					fmt.Println("stopped")
				default:
					fmt.Println("unknown")
				}
				return nil
			},
		},
	)
	return cmd
}
