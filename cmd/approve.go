package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/command-deck/internal"
	"github.com/spf13/cobra"
)

var approveType string

// approveCmd approves one generated asset
var approveCmd = &cobra.Command{
	Use:   "approve <asset-id>",
	Short: "Approve a generated asset and move it into the project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := internal.AssetID(args[0])
		client := newAPIClient()

		var result internal.ApprovalResult
		err := internal.ShowProgress(cmd.Context(), cmd.ErrOrStderr(), fmt.Sprintf("Approving asset %s", id), func(ctx context.Context) error {
			var approveErr error
			result, approveErr = client.ApproveAsset(ctx, id, approveType)
			return approveErr
		})
		if err != nil {
			return fmt.Errorf("approval failed: %s", internal.UserMessage(err))
		}

		name := result.TaskName
		if name == "" {
			name = string(id)
		}
		internal.PrintSuccess(cmd.OutOrStdout(),
			fmt.Sprintf("Asset %q (ID: %s) has been approved and moved to the project folder.", name, id))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)
	approveCmd.Flags().StringVar(&approveType, "type", internal.DefaultAssetType, "Asset type sent with the approval")
}
