package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iksnae/command-deck/internal"
)

func TestJSONExporter_Export(t *testing.T) {
	transcript := internal.CreateTestTranscript("s1")

	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(transcript, &buf); err != nil {
		t.Fatalf("JSONExporter.Export() error = %v", err)
	}

	var got internal.Transcript
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Output is not valid JSON: %v\nOutput: %s", err, buf.String())
	}
	if diff := cmp.Diff(*transcript, got); diff != "" {
		t.Errorf("JSON transcript mismatch (-want +got):\n%s", diff)
	}
	// wire names match the chat history shape
	if !bytes.Contains(buf.Bytes(), []byte(`"isHtml": true`)) {
		t.Errorf("Output should carry isHtml:\n%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`<b>Hero Sprite</b>`)) {
		t.Errorf("Markup should not be escaped:\n%s", buf.String())
	}
}

func TestJSONExporter_Extension(t *testing.T) {
	if got := (&JSONExporter{}).Extension(); got != "json" {
		t.Errorf("JSONExporter.Extension() = %v, want json", got)
	}
}
