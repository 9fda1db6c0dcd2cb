package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/iksnae/command-deck/internal"
	"github.com/iksnae/command-deck/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_PrintsTaskUpdates(t *testing.T) {
	srv := testutil.NewDeckServer(t)

	type result struct {
		stdout, stderr string
		err            error
	}
	done := make(chan result, 1)
	go func() {
		stdout, stderr, err := runCommand(t, "--server", srv.URL, "watch", "--count", "3")
		done <- result{stdout, stderr, err}
	}()

	srv.WaitConnected(t, 5*time.Second)
	srv.Push(t, testutil.TaskFrame(t, 42, map[string]interface{}{"event": "NEW", "name": "Hero Sprite", "status": "GENERATING"}))
	srv.Push(t, `{"broken`)
	srv.Push(t, testutil.TaskFrame(t, "9", nil))
	srv.Push(t, testutil.CompletedFrame(t, 42, "", "/img/42.png"))

	var res result
	select {
	case res = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not exit after three updates")
	}
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "NEW    #42 Hero Sprite: GENERATING", lines[0])
	assert.Equal(t, "NEW    #9 "+internal.DefaultTaskName+": PENDING", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "UPDATE #42 Hero Sprite: COMPLETED ready for approval: "+srv.URL+"/img/42.png?t="), lines[2])

	assert.Contains(t, res.stderr, "Connected to "+srv.PushURL())
	assert.Contains(t, res.stderr, "Ignored malformed frame")
}

func TestWatch_RecordsToJournal(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	path := t.TempDir() + "/deck.db"

	done := make(chan error, 1)
	go func() {
		_, _, err := runCommand(t, "--server", srv.URL, "--journal", path, "watch", "--count", "1")
		done <- err
	}()
	srv.WaitConnected(t, 5*time.Second)
	srv.Push(t, testutil.TaskFrame(t, 7, map[string]interface{}{"name": "Theme Song", "status": "QUEUED"}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not exit")
	}

	j, err := internal.OpenJournalReadOnly(path)
	require.NoError(t, err)
	defer j.Close()
	sessions, err := j.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, srv.URL, sessions[0].Server)

	records, err := j.TaskHistory(sessions[0].ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, internal.AssetID("7"), records[0].AssetID)
	assert.Equal(t, "QUEUED", records[0].Status)
}

func TestFormatTaskLine(t *testing.T) {
	now := time.UnixMilli(5000)
	update := internal.TaskViewUpdate{
		Task: internal.Task{AssetID: "3", Name: "Forest Tiles", Status: internal.StatusFailed, Message: "out of credits"},
	}
	assert.Equal(t, "UPDATE #3 Forest Tiles: FAILED (out of credits)", formatTaskLine(update, "http://deck", now))
}
