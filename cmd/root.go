package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/command-deck/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	configPath  string
	serverURL   string
	journalPath string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	// cfg is loaded before every command runs
	cfg = internal.DefaultConfig()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "command-deck",
	Short: "Operator console for the game-studio agent backend",
	Long: `Command Deck is a terminal console for directing a team of department agents
(Project Manager, Art, Writing, Code, QA and Sound directors) running on a
deck backend.

Features:
  • One conversation per department agent, with replies routed to the
    conversation they were asked from
  • Live task board fed by the server's push channel, with automatic reconnect
  • Asset approval and one-key integration & playtest
  • Optional SQLite journal of every message and task update

Quick Start:
  command-deck deck                          # Open the interactive deck
  command-deck chat Code "status report"     # One chat turn
  command-deck watch                         # Stream task updates
  command-deck journal list                  # Browse recorded sessions`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)
		return loadConfig(cmd)
	},
}

// loadConfig applies file, environment and flag settings, in that order
func loadConfig(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		p, err := internal.DefaultConfigPath()
		if err != nil {
			internal.LogDebug("No default config path: %v", err)
		}
		path = p
	}

	loaded, err := internal.LoadConfig(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("server") {
		loaded.Server = serverURL
	}
	if cmd.Flags().Changed("journal") {
		loaded.Journal = journalPath
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	internal.LogDebug("Using server %s", cfg.Server)
	return nil
}

func newAPIClient() *internal.APIClient {
	return internal.NewAPIClient(cfg.Server, cfg.RequestTimeout)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	internal.SyncLogs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/command-deck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", internal.DefaultServer, "Deck server base URL")
	rootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "SQLite journal file recording the session")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
