package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/command-deck/internal"
)

// Exporter writes one agent transcript in a file format
type Exporter interface {
	Export(transcript *internal.Transcript, w io.Writer) error
	Extension() string
}

// Formats lists the canonical format names, in the order they are offered
var Formats = []string{"jsonl", "md", "yaml", "json"}

var constructors = map[string]func() Exporter{
	"jsonl":    func() Exporter { return &JSONLExporter{} },
	"md":       func() Exporter { return &MarkdownExporter{} },
	"markdown": func() Exporter { return &MarkdownExporter{} },
	"yaml":     func() Exporter { return &YAMLExporter{} },
	"yml":      func() Exporter { return &YAMLExporter{} },
	"json":     func() Exporter { return &JSONExporter{} },
}

// NewExporter returns the exporter for format. Names are case-insensitive.
func NewExporter(format string) (Exporter, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
	return ctor(), nil
}
