package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/command-deck/internal"
	"github.com/spf13/cobra"
)

var chatRaw bool

// chatCmd sends a single chat turn
var chatCmd = &cobra.Command{
	Use:   "chat <agent> <message...>",
	Short: "Send one message to a department agent",
	Long: `Send one message to a department agent and print the reply.

The turn is sent with an empty history. Agents can be named by id (PM, Art,
Writing, Code, QA, Sound) or by display name, case-insensitively.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := internal.ParseAgentID(args[0])
		if err != nil {
			return err
		}
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		if text == "" {
			return internal.ErrEmptyMessage
		}

		client := newAPIClient()
		var reply internal.ChatReply
		msg := fmt.Sprintf("Waiting for %s", internal.DisplayName(agent))
		err = internal.ShowProgress(cmd.Context(), cmd.ErrOrStderr(), msg, func(ctx context.Context) error {
			var sendErr error
			reply, sendErr = client.SendChatTurn(ctx, agent, text, nil)
			return sendErr
		})
		if err != nil {
			return fmt.Errorf("%s: %s", internal.DisplayName(agent), internal.UserMessage(err))
		}

		out := cmd.OutOrStdout()
		content := reply.Content
		if reply.Kind == internal.ReplyMarkup && !chatRaw {
			content = internal.MarkupToText(content)
		}
		if reply.Kind == internal.ReplyUnrecognized {
			internal.PrintWarning(cmd.ErrOrStderr(), "Reply had no response field; showing the raw body")
		}
		fmt.Fprintln(out, content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatRaw, "raw", false, "Print reply markup without converting it to text")
}
