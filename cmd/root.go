package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calbot application
var rootCmd = &cobra.Command{
	Use:   "calbot",
	Short: "AI assistant that manages your Cal.com calendar",
	Long: `calbot is a conversational assistant for your Cal.com calendar. It turns
natural language requests into calendar operations: listing scheduled
events, booking meetings, and cancelling appointments.

It can run as:
  - An interactive chat session in the terminal (default)
  - An HTTP server with a built-in web chat client
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// configFile is the optional YAML config path shared by all commands.
// Environment variables still override anything the file says.
var configFile string

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calbot version %s\n" .Version}}`)

	// If no subcommand is provided, start an interactive chat by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (environment variables take precedence)")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
