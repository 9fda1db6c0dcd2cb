package internal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// AssetID is the server-assigned key of a task. The wire carries it as a JSON number
// or string.
type AssetID string

// UnmarshalJSON accepts numbers and strings; null leaves the id empty
func (id *AssetID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = AssetID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("asset_id must be a number or string: %w", err)
	}
	*id = AssetID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers so they round-trip to the API unchanged
func (id AssetID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// TaskEvent is one push frame describing a server-side task. Nil fields were absent
// from the frame.
type TaskEvent struct {
	Kind      string  `json:"event,omitempty"` // NEW, UPDATE, ERROR
	AssetID   AssetID `json:"asset_id"`
	Name      *string `json:"name,omitempty"`
	Status    *string `json:"status,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	AssetType *string `json:"asset_type,omitempty"`
	Message   *string `json:"message,omitempty"`
}

const maxFrameExcerpt = 120

var errMissingAssetID = errors.New("missing asset_id")

// ErrUntrackedEvent marks a NEW announcement sent before the server assigned an
// asset id. There is nothing to key it on, so it is skipped without a fault.
var ErrUntrackedEvent = errors.New("task announced without asset_id")

// ParseTaskEvent decodes a push frame. Any failure is reported as a *ProtocolError.
func ParseTaskEvent(frame []byte) (TaskEvent, error) {
	var ev TaskEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return TaskEvent{}, &ProtocolError{Frame: excerpt(frame), Err: err}
	}
	if ev.AssetID == "" && ev.Kind == "NEW" {
		return TaskEvent{}, ErrUntrackedEvent
	}
	if ev.AssetID == "" {
		return TaskEvent{}, &ProtocolError{Frame: excerpt(frame), Err: errMissingAssetID}
	}
	return ev, nil
}

func excerpt(frame []byte) string {
	if len(frame) <= maxFrameExcerpt {
		return string(frame)
	}
	return string(frame[:maxFrameExcerpt]) + "..."
}
