package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/command-deck/internal"
	"github.com/spf13/cobra"
)

// integrateCmd triggers the integration and playtest build
var integrateCmd = &cobra.Command{
	Use:   "integrate",
	Short: "Move approved assets into the project and launch a playtest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()

		var result internal.IntegrationResult
		err := internal.ShowProgress(cmd.Context(), cmd.ErrOrStderr(), "Initiating integration and playtest sequence", func(ctx context.Context) error {
			var runErr error
			result, runErr = client.TriggerIntegration(ctx)
			return runErr
		})
		if err != nil {
			return fmt.Errorf("integration error: %s", internal.UserMessage(err))
		}

		internal.PrintSuccess(cmd.OutOrStdout(),
			fmt.Sprintf("Integration successful! Moved %d assets. Emulator launched.", result.Moved()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(integrateCmd)
}
