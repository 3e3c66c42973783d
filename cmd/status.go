package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dayuer/nanobus/internal/config"
	"github.com/dayuer/nanobus/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show nanobus status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("🤖 nanobus Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", path)
	fmt.Printf("Workspace: %s\n", utils.GetWorkspacePath(cfg.Agent.Workspace))
	fmt.Printf("Model: %s\n", cfg.Agent.Model)

	fmt.Println("\nBus:")
	fmt.Printf("  Stream timeout: %s\n", cfg.Bus.StreamTimeoutDuration())
	fmt.Printf("  Sweep interval: %s\n", cfg.Bus.SweepIntervalDuration())
	fmt.Printf("  Stream max age: %s\n", cfg.Bus.MaxAgeDuration())

	fmt.Println("\nChannels:")
	if ws := cfg.Channel.WebSocket; ws != nil {
		fmt.Printf("  WebSocket: ✓ %s:%d%s\n", ws.Host, ws.Port, ws.Path)
	} else {
		fmt.Println("  (none)")
	}
	return nil
}
