package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/command-deck/internal"
)

// MarkdownExporter exports transcripts in Markdown format. Markup content is
// flattened to text first.
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# %s\n\n", transcript.AgentName)

	if transcript.Metadata.SessionID != "" {
		_, _ = fmt.Fprintf(w, "**Session:** %s  \n", transcript.Metadata.SessionID)
	}
	if transcript.Metadata.Server != "" {
		_, _ = fmt.Fprintf(w, "**Server:** %s  \n", transcript.Metadata.Server)
	}
	_, _ = fmt.Fprintf(w, "**Source:** %s  \n", transcript.Source)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(transcript.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range transcript.Messages {
		timestamp := ""
		if msg.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp)
		}

		content := escapeMarkdown(internal.RenderContent(msg))
		actor := internal.SenderName(transcript.Agent, msg.Sender)

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", actor, timestamp, content)

		if i < len(transcript.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes markdown emphasis outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
