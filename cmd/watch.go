package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/iksnae/command-deck/internal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCount int

// watchCmd streams task updates without the interactive deck
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream task updates from the push channel",
	Long: `Connect to the push channel and print one line per task update.

The connection is retried with the configured reconnect delay until interrupted.
Updates are folded into the task board, so every line shows the task's current
state. With --journal, every update is also recorded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pushURL, err := cfg.PushURL()
		if err != nil {
			return err
		}

		journal, err := openSessionJournal()
		if err != nil {
			return err
		}
		if journal != nil {
			defer journal.Close()
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		channel := internal.NewTaskChannel(pushURL, internal.WithRetryDelay(cfg.ReconnectDelay))
		tasks := internal.NewTaskReconciler()
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return channel.Run(gctx)
		})
		g.Go(func() error {
			seen := 0
			for ev := range channel.Events() {
				switch ev := ev.(type) {
				case internal.ChannelOpened:
					internal.PrintInfo(errOut, "Connected to "+pushURL)
				case internal.ChannelClosed:
					internal.PrintWarning(errOut, fmt.Sprintf("Connection lost (%v). Retrying in %s", ev.Err, ev.RetryIn))
				case internal.ChannelFault:
					internal.PrintWarning(errOut, "Ignored malformed frame: "+ev.Err.Error())
				case internal.TaskFrame:
					update := tasks.Apply(ev.Event)
					if journal != nil {
						journal.RecordTask(update.Task)
					}
					fmt.Fprintln(out, formatTaskLine(update, cfg.Server, time.Now()))
					seen++
					if watchCount > 0 && seen >= watchCount {
						cancel()
					}
				}
			}
			return nil
		})
		return g.Wait()
	},
}

func formatTaskLine(update internal.TaskViewUpdate, base string, now time.Time) string {
	tag := "UPDATE"
	if update.Created {
		tag = "NEW"
	}
	t := update.Task
	status := t.Status
	if status == "" {
		status = "PENDING"
	}
	line := fmt.Sprintf("%-6s #%s %s: %s", tag, t.AssetID, t.Name, status)
	if t.Message != "" {
		line += " (" + t.Message + ")"
	}
	if update.AwaitingApproval {
		line += " ready for approval: " + t.ImageRef(base, now)
	}
	return line
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "Exit after this many task updates (0 streams until interrupted)")
}
