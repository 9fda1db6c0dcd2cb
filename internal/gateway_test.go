package internal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iksnae/command-deck/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_SendChatTurn(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/chat/Code", http.StatusOK, testutil.ChatReply("<p>All systems nominal</p>"))

	client := NewAPIClient(srv.URL, 5*time.Second)
	reply, err := client.SendChatTurn(context.Background(), AgentCode, "status report", nil)
	require.NoError(t, err)
	assert.Equal(t, ReplyMarkup, reply.Kind)
	assert.Equal(t, "<p>All systems nominal</p>", reply.Content)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/api/v1/chat/Code", reqs[0].Path)

	var body struct {
		Message string        `json:"message"`
		History []interface{} `json:"history"`
	}
	reqs[0].DecodeBody(t, &body)
	assert.Equal(t, "status report", body.Message)
	assert.NotNil(t, body.History, "history must be sent as an empty list, not null")
	assert.Empty(t, body.History)
}

func TestAPIClient_SendChatTurn_History(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/chat/Art", http.StatusOK, testutil.ChatReply("ok"))

	history := []Message{
		{Sender: RoleUser, Content: "draw a knight", Timestamp: "10:00"},
		{Sender: RoleAgent, Content: "<p>On it</p>", IsMarkup: true, Timestamp: "10:01"},
	}
	_, err := NewAPIClient(srv.URL, 0).SendChatTurn(context.Background(), AgentArt, "bigger sword", history)
	require.NoError(t, err)

	var body struct {
		History []map[string]interface{} `json:"history"`
	}
	srv.Requests()[0].DecodeBody(t, &body)
	require.Len(t, body.History, 2)
	assert.Equal(t, "user", body.History[0]["sender"])
	assert.Equal(t, true, body.History[1]["isHtml"])
	assert.Equal(t, "10:01", body.History[1]["timestamp"])
}

func TestAPIClient_SendChatTurn_Unrecognized(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/chat/PM", http.StatusOK, `{"answer":"hi"}`)

	reply, err := NewAPIClient(srv.URL, 0).SendChatTurn(context.Background(), AgentPM, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, ReplyUnrecognized, reply.Kind)
	assert.Contains(t, reply.Content, `"answer": "hi"`)
}

func TestAPIClient_SendChatTurn_RemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", http.StatusNotFound, `{"detail":"Agent not found"}`, "Agent not found"},
		{"no detail", http.StatusInternalServerError, `{}`, "Server Error: Internal Server Error"},
		{"not json", http.StatusBadGateway, `upstream down`, "Server Error: Bad Gateway"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewDeckServer(t)
			srv.Respond("/api/v1/chat/QA", tt.status, tt.body)

			_, err := NewAPIClient(srv.URL, 0).SendChatTurn(context.Background(), AgentQA, "run tests", nil)
			var remote *RemoteError
			require.True(t, errors.As(err, &remote), "error = %v", err)
			assert.Equal(t, tt.status, remote.StatusCode)
			assert.Equal(t, tt.want, remote.Message)
		})
	}
}

func TestAPIClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewAPIClient(url, time.Second).SendChatTurn(context.Background(), AgentPM, "hello", nil)
	var transport *TransportError
	require.True(t, errors.As(err, &transport), "error = %v", err)
	assert.Equal(t, "chat", transport.Op)
}

func TestAPIClient_ApproveAsset(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/approve_asset", http.StatusOK, `{"task_name":"Hero Sprite","message":"moved"}`)

	result, err := NewAPIClient(srv.URL, 0).ApproveAsset(context.Background(), "42", "sprite")
	require.NoError(t, err)
	assert.Equal(t, "Hero Sprite", result.TaskName)

	var body map[string]interface{}
	srv.Requests()[0].DecodeBody(t, &body)
	assert.Equal(t, float64(42), body["asset_id"], "numeric ids are sent as numbers")
	assert.Equal(t, "sprite", body["asset_type"])
}

func TestAPIClient_ApproveAsset_Failure(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/approve_asset", http.StatusBadRequest, `{}`)

	_, err := NewAPIClient(srv.URL, 0).ApproveAsset(context.Background(), "42", "sprite")
	assert.Equal(t, "Approval failed on the backend.", UserMessage(err))
}

func TestAPIClient_TriggerIntegration(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	srv.Respond("/api/v1/integrate_and_playtest", http.StatusOK, `{"moved_assets":["a.png","b.png"],"message":"ok"}`)

	result, err := NewAPIClient(srv.URL, 0).TriggerIntegration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Moved())

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Body)
}

func TestAPIClient_TriggerIntegration_Failure(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"message":"Godot not found"}`, "Godot not found"},
		{"fallback", `{"detail":"ignored"}`, "Integration failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewDeckServer(t)
			srv.Respond("/api/v1/integrate_and_playtest", http.StatusInternalServerError, tt.body)

			_, err := NewAPIClient(srv.URL, 0).TriggerIntegration(context.Background())
			assert.Equal(t, tt.want, UserMessage(err))
		})
	}
}

func TestAPIClient_Ping(t *testing.T) {
	srv := testutil.NewDeckServer(t)
	status, err := NewAPIClient(srv.URL+"/", time.Second).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}
