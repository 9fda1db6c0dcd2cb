package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/command-deck/internal"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	Actor     string `json:"actor"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Markup    bool   `json:"is_markup,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range transcript.Messages {
		line := jsonlLine{
			Actor:     internal.SenderName(transcript.Agent, msg.Sender),
			Role:      string(msg.Sender),
			Content:   msg.Content,
			Markup:    msg.IsMarkup,
			Timestamp: msg.Timestamp,
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
