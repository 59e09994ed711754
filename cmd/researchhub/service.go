package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/chris/researchhub/internal/service"
)

var binPath string

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the launchd agent that runs `researchhub serve` (macOS)",
}

func init() {
	serviceCmd.PersistentFlags().StringVar(&binPath, "bin", service.DefaultBinPath, "Where the binary is installed")

	install := func() service.Install {
		return service.Install{BinPath: binPath, ConfigPath: configPath, Out: os.Stdout}
	}
	serviceCmd.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Install the binary and load the agent",
			RunE:  func(*cobra.Command, []string) error { return install().Run() },
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Unload the agent and remove the binary",
			RunE:  func(*cobra.Command, []string) error { return service.Uninstall(binPath, os.Stdout) },
		},
		&cobra.Command{
			Use:   "start",
			Short: "Start the agent",
			RunE:  func(*cobra.Command, []string) error { return service.Start() },
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the agent",
			RunE:  func(*cobra.Command, []string) error { return service.Stop() },
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Stop and start the agent",
			RunE: func(*cobra.Command, []string) error {
				_ = service.Stop()
				return service.Start()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show launchd's view of the agent",
			RunE:  func(*cobra.Command, []string) error { return service.Status(os.Stdout) },
		},
		&cobra.Command{
			Use:   "logs",
			Short: "Follow the agent's logs",
			RunE:  func(*cobra.Command, []string) error { return install().Logs() },
		},
	)
}
