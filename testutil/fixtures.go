package testutil

import (
	"encoding/json"
	"testing"
)

// TaskFrame builds a push frame for asset id. fields are merged over the asset id;
// pass nil to send only the id.
func TaskFrame(t *testing.T, id interface{}, fields map[string]interface{}) string {
	t.Helper()
	frame := map[string]interface{}{"asset_id": id}
	for k, v := range fields {
		frame[k] = v
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Failed to marshal frame: %v", err)
	}
	return string(data)
}

// CompletedFrame builds the frame of a finished generation job
func CompletedFrame(t *testing.T, id interface{}, name, imageURL string) string {
	t.Helper()
	return TaskFrame(t, id, map[string]interface{}{
		"event":      "UPDATE",
		"name":       name,
		"status":     "COMPLETED",
		"image_url":  imageURL,
		"asset_type": "sprite",
	})
}
