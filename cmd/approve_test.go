package cmd

import (
	"net/http"
	"testing"

	"github.com/iksnae/command-deck/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprove(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/approve_asset", http.StatusOK, `{"task_name":"Hero Sprite","message":"moved"}`)

	stdout, _, err := runCommand(t, "--server", srv.URL, "approve", "42", "--type", "tileset")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Asset "Hero Sprite" (ID: 42) has been approved`)

	var body map[string]interface{}
	srv.Requests()[0].DecodeBody(t, &body)
	assert.Equal(t, float64(42), body["asset_id"])
	assert.Equal(t, "tileset", body["asset_type"])
}

func TestApprove_Failure(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/approve_asset", http.StatusBadRequest, `{}`)

	_, _, err := runCommand(t, "--server", srv.URL, "approve", "42")
	require.Error(t, err)
	assert.Equal(t, "approval failed: Approval failed on the backend.", err.Error())
}

func TestIntegrate(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/integrate_and_playtest", http.StatusOK, `{"moved_assets":["a.png","b.png","c.png"]}`)

	stdout, _, err := runCommand(t, "--server", srv.URL, "integrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Integration successful! Moved 3 assets. Emulator launched.")
}

func TestIntegrate_Failure(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/integrate_and_playtest", http.StatusInternalServerError, `{"message":"Godot not found"}`)

	_, _, err := runCommand(t, "--server", srv.URL, "integrate")
	require.Error(t, err)
	assert.Equal(t, "integration error: Godot not found", err.Error())
}
