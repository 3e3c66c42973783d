package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dayuer/nanobus/internal/channels"
	"github.com/dayuer/nanobus/internal/config"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the nanobus gateway (channels + agent)",
	RunE:  runGateway,
}

var gatewayPort int

func init() {
	gatewayCmd.Flags().IntVarP(&gatewayPort, "port", "p", 0, "WebSocket port (overrides config)")
	rootCmd.AddCommand(gatewayCmd)
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	msgBus := makeBus(cfg)
	loop := makeAgent(cfg, msgBus)
	chMgr := channels.NewManager(msgBus)

	if ws := cfg.Channel.WebSocket; ws != nil {
		wsCfg := *ws
		if gatewayPort != 0 {
			wsCfg.Port = gatewayPort
		}
		chMgr.Register(channels.NewWebSocketChannel(wsCfg, msgBus))
	}

	if enabled := chMgr.EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %v\n", enabled)
	} else {
		fmt.Println("⚠ No channels enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startJanitor(ctx, cfg, msgBus)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return chMgr.StartAll(gctx) })

	<-gctx.Done()
	log.Println("[Gateway] Shutting down...")
	chMgr.StopAll()
	msgBus.Close()
	return g.Wait()
}
