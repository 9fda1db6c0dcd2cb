package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/command-deck/internal"
)

// JSONExporter writes the whole transcript as one indented document
type JSONExporter struct{}

// Export writes agent markup verbatim rather than as \u003c escapes
func (e *JSONExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(transcript)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
