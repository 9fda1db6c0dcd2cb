package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/command-deck/internal"
	"github.com/iksnae/command-deck/internal/export"
	"github.com/spf13/cobra"
)

var (
	showAgent    string
	exportFormat string
	exportOut    string
	exportAgent  string
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Browse and export recorded sessions",
	Long: `Read the SQLite journal written by deck and watch when --journal (or the
journal config key) is set. Sessions can be referenced by full id or by a unique
prefix, as printed by 'command-deck journal list'.`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournalReadOnly()
		if err != nil {
			return err
		}
		defer j.Close()

		sessions, err := j.Sessions()
		if err != nil {
			return err
		}
		displaySessions(cmd.OutOrStdout(), sessions, time.Now())
		return nil
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show <session>",
	Short: "Show the conversations of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournalReadOnly()
		if err != nil {
			return err
		}
		defer j.Close()

		transcripts, err := loadTranscripts(j, args[0], showAgent)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(transcripts) == 0 {
			fmt.Fprintln(out, headerStyle.Render("No messages recorded"))
			return nil
		}

		var buf bytes.Buffer
		md := &export.MarkdownExporter{}
		for i, t := range transcripts {
			if i > 0 {
				buf.WriteString("\n---\n\n")
			}
			if err := md.Export(t, &buf); err != nil {
				return fmt.Errorf("failed to render %s: %w", t.AgentName, err)
			}
		}
		return renderMarkdown(out, buf.String())
	},
}

var journalTasksCmd = &cobra.Command{
	Use:   "tasks <session>",
	Short: "Show the task updates recorded in a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournalReadOnly()
		if err != nil {
			return err
		}
		defer j.Close()

		session, err := j.FindSession(args[0])
		if err != nil {
			return err
		}
		records, err := j.TaskHistory(session.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, headerStyle.Render("No task updates recorded"))
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TIME\tASSET\tNAME\tSTATUS\tMESSAGE")
		for _, r := range records {
			status := r.Status
			if status == "" {
				status = "PENDING"
			}
			fmt.Fprintf(w, "%s\t#%s\t%s\t%s\t%s\n",
				r.RecordedAt.Local().Format("15:04:05"), r.AssetID, r.Name, status, r.Message)
		}
		return w.Flush()
	},
}

var journalExportCmd = &cobra.Command{
	Use:   "export <session>",
	Short: "Export the conversations of a session to files",
	Long: `Export every agent conversation of a session to --out, one file per agent.

Formats: jsonl, md, yaml, json.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := export.NewExporter(exportFormat); err != nil {
			return err
		}
		j, err := openJournalReadOnly()
		if err != nil {
			return err
		}
		defer j.Close()

		transcripts, err := loadTranscripts(j, args[0], exportAgent)
		if err != nil {
			return err
		}
		if len(transcripts) == 0 {
			internal.PrintWarning(cmd.ErrOrStderr(), "No messages recorded, nothing to export")
			return nil
		}
		return writeTranscripts(cmd.Context(), cmd.ErrOrStderr(), exportOut, exportFormat, transcripts)
	},
}

// openSessionJournal opens the configured journal and starts a new session in it.
// It returns nil when no journal is configured.
func openSessionJournal() (*internal.Journal, error) {
	if cfg.Journal == "" {
		return nil, nil
	}
	j, err := internal.OpenJournal(cfg.Journal)
	if err != nil {
		return nil, err
	}
	id, err := j.BeginSession(cfg.Server)
	if err != nil {
		j.Close()
		return nil, err
	}
	internal.LogInfo("Journal session %s in %s", id, cfg.Journal)
	return j, nil
}

func openJournalReadOnly() (*internal.Journal, error) {
	if cfg.Journal == "" {
		return nil, fmt.Errorf("no journal configured: pass --journal or set journal in the config file")
	}
	return internal.OpenJournalReadOnly(cfg.Journal)
}

func loadTranscripts(j *internal.Journal, ref, agent string) ([]*internal.Transcript, error) {
	session, err := j.FindSession(ref)
	if err != nil {
		return nil, err
	}
	var agentID internal.AgentID
	if agent != "" {
		agentID, err = internal.ParseAgentID(agent)
		if err != nil {
			return nil, err
		}
	}
	transcripts, err := j.Transcripts(session.ID, agentID)
	if err != nil {
		return nil, err
	}
	for _, t := range transcripts {
		t.Metadata.Server = session.Server
	}
	return transcripts, nil
}

// transcriptFileName names an export file after the agent and session
func transcriptFileName(t *internal.Transcript, ext string) string {
	short := t.Metadata.SessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s.%s", strings.ToLower(string(t.Agent)), short, ext)
}

// writeTranscripts exports every transcript to its own file under dir
func writeTranscripts(ctx context.Context, progress io.Writer, dir, format string, transcripts []*internal.Transcript) error {
	exporter, err := export.NewExporter(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	err = internal.ShowProgress(ctx, progress, fmt.Sprintf("Exporting %d transcript(s)", len(transcripts)), func(ctx context.Context) error {
		for _, t := range transcripts {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, transcriptFileName(t, exporter.Extension()))
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", path, err)
			}
			if err := exporter.Export(t, f); err != nil {
				f.Close()
				return fmt.Errorf("failed to export %s: %w", t.AgentName, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close file %s: %w", path, err)
			}
			internal.LogDebug("Exported %s to %s", t.AgentName, path)
			written = append(written, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	internal.PrintSuccess(progress, fmt.Sprintf("Exported %d transcript(s) to %s", len(written), dir))
	return nil
}

func displaySessions(out io.Writer, sessions []internal.JournalSession, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, headerStyle.Render("No sessions recorded"))
		return
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(sessions))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Started")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Tasks")+"\t"+titleStyle.Render("Server"))
	for _, s := range sessions {
		shortID := s.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			idStyle.Render(shortID),
			dateStyle.Render(formatStarted(s.StartedAt, now)),
			countStyle.Render(strconv.Itoa(s.MessageCount)),
			countStyle.Render(strconv.Itoa(s.TaskEvents)),
			s.Server)
	}
	_ = w.Flush()
}

func formatStarted(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

// renderMarkdown styles markdown for a terminal and writes it verbatim otherwise
func renderMarkdown(out io.Writer, markdown string) error {
	if !internal.IsTerminal(out) {
		_, err := io.WriteString(out, markdown)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd, journalShowCmd, journalTasksCmd, journalExportCmd)

	journalShowCmd.Flags().StringVar(&showAgent, "agent", "", "Only show this agent's conversation")
	journalExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	journalExportCmd.Flags().StringVarP(&exportOut, "out", "o", "./exports", "Output directory")
	journalExportCmd.Flags().StringVar(&exportAgent, "agent", "", "Only export this agent's conversation")
}
