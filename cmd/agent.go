package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dayuer/nanobus/internal/bus"
	"github.com/dayuer/nanobus/internal/config"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Interact with the agent directly",
	RunE:  runAgent,
}

var (
	agentMessage string
	agentChatID  string
)

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Message to send to the agent")
	agentCmd.Flags().StringVarP(&agentChatID, "chat", "s", "direct", "Chat ID; the session key is cli:<chat>")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	msgBus := makeBus(cfg)
	loop := makeAgent(cfg, msgBus)

	if agentMessage != "" {
		resp, err := loop.ProcessDirect(ctx, agentMessage, "", "cli", agentChatID)
		if err != nil {
			return err
		}
		fmt.Println(resp)
		return nil
	}

	startJanitor(ctx, cfg, msgBus)

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()
	defer func() {
		msgBus.Close()
		<-loopDone
	}()

	fmt.Println("🤖 nanobus interactive mode (type 'exit' or Ctrl+C to quit)")
	fmt.Println()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	exitCommands := map[string]bool{
		"exit": true, "quit": true, "/exit": true, "/quit": true, ":q": true,
	}

	for {
		fmt.Print("You: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if exitCommands[strings.ToLower(input)] {
			fmt.Println("Goodbye!")
			return nil
		}
		fmt.Println()
		fmt.Println("🤖 nanobus")
		ask(ctx, msgBus, input)
		fmt.Println()
	}
}

// ask publishes one streamed request and prints chunks until it completes.
func ask(ctx context.Context, msgBus *bus.MessageBus, content string) {
	streamID := bus.NewStreamID()
	msgBus.RegisterStreamCallback(streamID, func(chunk string) {
		fmt.Println(chunk)
	})
	msgBus.PublishInbound(bus.InboundMessage{
		Channel:  "cli",
		SenderID: "user",
		ChatID:   agentChatID,
		Content:  content,
		StreamID: streamID,
	})
	if !msgBus.WaitStreamDone(ctx, streamID, 0) && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "no answer within %s\n", msgBus.StreamTimeout())
	}
}
