package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/iksnae/command-deck/internal"
	"github.com/iksnae/command-deck/internal/export"
	"github.com/iksnae/command-deck/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	deckTranscripts string
	deckFormat      string
)

// deckCmd opens the interactive console
var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Open the interactive command deck",
	Long: `Open the interactive deck: one conversation per department agent, the live
task board and the integration control.

Logs go to the configured log_file while the deck owns the terminal. With
--transcripts, every non-empty conversation is exported when the deck closes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if deckTranscripts != "" {
			if _, err := export.NewExporter(deckFormat); err != nil {
				return err
			}
		}
		pushURL, err := cfg.PushURL()
		if err != nil {
			return err
		}

		restoreLogs, err := redirectLogs(cfg.LogFile)
		if err != nil {
			return err
		}
		defer restoreLogs()

		journal, err := openSessionJournal()
		if err != nil {
			return err
		}
		opts := internal.ControllerOptions{IntegrationCooldown: cfg.IntegrationCooldown}
		sessionID := uuid.NewString()
		if journal != nil {
			defer journal.Close()
			opts.Recorder = journal
			sessionID = journal.SessionID()
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		channel := internal.NewTaskChannel(pushURL, internal.WithRetryDelay(cfg.ReconnectDelay))
		controller := internal.NewController(newAPIClient(), opts)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return channel.Run(gctx)
		})
		g.Go(func() error {
			return controller.Run(gctx, channel.Events())
		})
		g.Go(func() error {
			defer cancel()
			return tui.Run(gctx, controller, tui.Options{ServerURL: cfg.Server})
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("deck: %w", err)
		}
		restoreLogs()

		if deckTranscripts != "" {
			transcripts := controller.Transcripts(sessionID)
			for _, t := range transcripts {
				t.Metadata.Server = cfg.Server
			}
			return writeTranscripts(cmd.Context(), cmd.ErrOrStderr(), deckTranscripts, deckFormat, transcripts)
		}
		return nil
	},
}

// redirectLogs sends log output to path, or discards it when path is empty, until
// the returned function is called
func redirectLogs(path string) (func(), error) {
	var w io.Writer = io.Discard
	var f *os.File
	if path != "" {
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
	}
	internal.SetLogOutput(w)

	restored := false
	return func() {
		if restored {
			return
		}
		restored = true
		internal.SyncLogs()
		internal.SetLogOutput(os.Stderr)
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

func init() {
	rootCmd.AddCommand(deckCmd)
	deckCmd.Flags().StringVar(&deckTranscripts, "transcripts", "", "Export every conversation to this directory on exit")
	deckCmd.Flags().StringVarP(&deckFormat, "format", "f", "md", "Transcript format (jsonl, md, yaml, json)")
}
