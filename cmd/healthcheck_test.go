package cmd

import (
	"path/filepath"
	"testing"

	"github.com/iksnae/command-deck/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthcheck_Passes(t *testing.T) {
	srv := testutil.NewDeckServer(t)

	stdout, _, err := runCommand(t, "--server", srv.URL, "healthcheck")
	require.NoError(t, err)
	assert.Contains(t, stdout, "answered HTTP 200")
	assert.Contains(t, stdout, "Handshake with "+srv.PushURL()+" succeeded")
	assert.Contains(t, stdout, "Health check passed!")
	assert.Equal(t, 1, srv.Accepts())
}

func TestHealthcheck_PushRejected(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.RejectPush(true)

	stdout, _, err := runCommand(t, "--server", srv.URL, "healthcheck")
	require.Error(t, err)
	assert.Contains(t, stdout, "answered HTTP 200")
	assert.Contains(t, stdout, "1 check(s) failed")
}

func TestHealthcheck_ServerDown(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	url := srv.URL
	srv.Close()

	stdout, _, err := runCommand(t, "--server", url, "healthcheck")
	require.Error(t, err)
	assert.Contains(t, stdout, "request failed")
	assert.Contains(t, stdout, "2 check(s) failed")
}

func TestHealthcheck_VerboseShowsResolvedSettings(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	dir := t.TempDir()
	journal := filepath.Join(dir, "journal.db")
	path := testutil.WriteConfig(t, dir, "server: http://file.example:9000\njournal: "+journal+"\nreconnect_delay: 2s\n")

	stdout, _, err := runCommand(t, "--config", path, "--server", srv.URL, "-v", "healthcheck")
	require.NoError(t, err)
	// flags win over the file, the file wins over defaults
	assert.Contains(t, stdout, "Server: "+srv.URL)
	assert.Contains(t, stdout, "Journal: "+journal)
	assert.Contains(t, stdout, "Reconnect delay: 2s")
}
