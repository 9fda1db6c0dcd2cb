package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/command-deck/internal"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the deck server is reachable",
	Long: `Check the health of the deck setup by verifying:
  • Configuration
  • HTTP API reachability
  • Push channel handshake

Use --verbose to print the resolved settings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("Command Deck Health Check"))
		fmt.Fprintln(out)

		failed := 0
		step := func(title string, check func(ctx context.Context) (string, error)) {
			fmt.Fprintln(out, infoStyle.Render(title))
			detail, err := check(cmd.Context())
			if err != nil {
				failed++
				fmt.Fprintln(out, errorStyle.Render("✗ "+internal.UserMessage(err)))
			} else {
				fmt.Fprintln(out, successStyle.Render("✓ "+detail))
			}
			fmt.Fprintln(out)
		}

		step("Step 1: Configuration", func(context.Context) (string, error) {
			if verbose {
				printSettings(out)
			}
			return "Configuration is valid", cfg.Validate()
		})

		step("Step 2: HTTP API", func(ctx context.Context) (string, error) {
			status, err := newAPIClient().Ping(ctx)
			if err != nil {
				return "", err
			}
			if status >= 500 {
				return "", &internal.RemoteError{Op: "ping", StatusCode: status, Message: fmt.Sprintf("server answered HTTP %d", status)}
			}
			return fmt.Sprintf("%s answered HTTP %d", cfg.Server, status), nil
		})

		step("Step 3: Push channel", func(ctx context.Context) (string, error) {
			pushURL, err := cfg.PushURL()
			if err != nil {
				return "", err
			}
			if err := internal.NewTaskChannel(pushURL).Probe(ctx); err != nil {
				return "", err
			}
			return "Handshake with " + pushURL + " succeeded", nil
		})

		fmt.Fprintln(out, sectionStyle.Render("Summary"))
		if failed > 0 {
			fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("✗ %d check(s) failed", failed)))
			return fmt.Errorf("health check failed")
		}
		fmt.Fprintln(out, successStyle.Render("✓ Health check passed!"))
		return nil
	},
}

func printSettings(out io.Writer) {
	pushURL, _ := cfg.PushURL()
	fmt.Fprintf(out, "   Server: %s\n", cfg.Server)
	fmt.Fprintf(out, "   Push channel: %s\n", pushURL)
	fmt.Fprintf(out, "   Reconnect delay: %s\n", cfg.ReconnectDelay)
	fmt.Fprintf(out, "   Request timeout: %s\n", cfg.RequestTimeout)
	if cfg.Journal != "" {
		fmt.Fprintf(out, "   Journal: %s\n", cfg.Journal)
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
