package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"

	"github.com/calbot/calbot/internal/agent"
	"github.com/calbot/calbot/internal/server"
	"github.com/calbot/calbot/internal/tools"
)

const goodbyeMessage = "👋 Goodbye! Have a great day!"

func newChatCmd() *cobra.Command {
	var (
		modelName string
		showTrace bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the calendar assistant in the terminal",
		Long: `Start an interactive chat session with the Cal.com calendar assistant.

The assistant understands natural language requests to:
  - List your scheduled events
  - Book meetings with other people
  - Cancel existing appointments

Requires OPENAI_API_KEY, CAL_API_KEY and CAL_EVENT_TYPE_ID to be set in
the environment or a .env file.`,
		// The chat session prints its own user-facing errors.
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(modelName, showTrace)
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "Override the chat model (default: gpt-4)")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "Show the tool calls the assistant makes while answering")

	return cmd
}

func runChat(modelName string, showTrace bool) error {
	banner := color.New(color.FgCyan, color.Bold)
	banner.Println("🚀 Cal.com AI Assistant Starting...")
	fmt.Println(strings.Repeat("=", 50))

	cfg, err := loadConfig()
	if err != nil {
		color.Red("❌ Error: %v", err)
		return err
	}
	if modelName != "" {
		cfg.OpenAI.Model = modelName
	}

	// Check for required environment variables
	if cfg.OpenAI.APIKey == "" {
		return reportMissingVar("OPENAI_API_KEY")
	}
	if cfg.CalCom.APIKey == "" {
		return reportMissingVar("CAL_API_KEY")
	}
	if cfg.CalCom.EventTypeID <= 0 {
		return reportMissingVar("CAL_EVENT_TYPE_ID")
	}
	fmt.Println("✅ Environment variables loaded successfully")

	sc, err := server.NewServerContext(context.Background(), cfg)
	if err != nil {
		color.Red("❌ Error with agent: %v", err)
		return err
	}
	defer func() { _ = sc.Shutdown() }()

	registry := tools.NewRegistry()
	if err := registerAllTools(registry, sc); err != nil {
		color.Red("❌ Error with agent: %v", err)
		return err
	}

	ag, err := buildAgent(cfg, registry, nil)
	if err != nil {
		color.Red("❌ Error with agent: %v", err)
		return err
	}
	fmt.Println("✅ Chat agent created successfully")
	fmt.Println("✅ Agent configured with email collection requirement")

	fmt.Println("\n🤖 Cal.com AI Assistant is ready!")
	fmt.Println("💡 Try asking things like:")
	fmt.Println("   - 'What meetings do I have today?'")
	fmt.Println("   - 'Book a meeting for tomorrow at 2 PM'")
	fmt.Println("   - 'Show me my schedule for this week'")
	fmt.Println("   - 'Cancel my 3pm meeting'")
	fmt.Println("   - 'Remove my appointment with John tomorrow'")
	fmt.Println("\nType 'quit' to exit.")
	fmt.Println()

	// Mirror the usual Ctrl-C experience of a chat client: say goodbye
	// instead of dumping a stack trace.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		<-interrupts
		fmt.Println("\n" + goodbyeMessage)
		os.Exit(0)
	}()

	runChatLoop(context.Background(), ag, showTrace)
	return nil
}

// agentRunner is the slice of the agent the loop needs, kept narrow so
// tests can drive the loop with a scripted implementation.
type agentRunner interface {
	HandleTurn(ctx context.Context, history []llms.MessageContent, userMessage string) (*agent.Turn, error)
}

func runChatLoop(ctx context.Context, ag agentRunner, showTrace bool) {
	prompt := color.New(color.Bold)
	trace := color.New(color.Faint)

	var history []llms.MessageContent
	scanner := bufio.NewScanner(os.Stdin)

	for {
		prompt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\n" + goodbyeMessage)
			return
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "quit", "exit", "bye":
			fmt.Println(goodbyeMessage)
			return
		case "":
			continue
		}

		turn, err := ag.HandleTurn(ctx, history, input)
		if err != nil {
			color.Red("❌ Error: %v", err)
			fmt.Println("Please try again or type 'quit' to exit.")
			fmt.Println()
			continue
		}

		if showTrace {
			for _, call := range turn.ToolCalls {
				trace.Printf("  🔧 %s(%s)\n", call.Tool, call.Arguments)
				trace.Printf("     → %s\n", firstLine(call.Result))
			}
		}

		fmt.Printf("Assistant: %s\n\n", turn.Reply)
		history = turn.History
	}
}

func reportMissingVar(name string) error {
	color.Red("❌ Error: %s not found in environment variables", name)
	return fmt.Errorf("%s not found in environment variables", name)
}

// firstLine truncates multi-line tool results for the trace view.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
