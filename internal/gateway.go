package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gateway issues the request/response commands of the deck API
type Gateway interface {
	SendChatTurn(ctx context.Context, agent AgentID, text string, history []Message) (ChatReply, error)
	ApproveAsset(ctx context.Context, assetID AssetID, assetType string) (ApprovalResult, error)
	TriggerIntegration(ctx context.Context) (IntegrationResult, error)
}

// ReplyKind tags the shape of a chat reply
type ReplyKind int

const (
	// ReplyMarkup carries the pre-rendered markup of the response field
	ReplyMarkup ReplyKind = iota
	// ReplyUnrecognized carries a success body without a response field, kept for diagnostics
	ReplyUnrecognized
)

// ChatReply is the successful result of a chat turn
type ChatReply struct {
	Kind    ReplyKind
	Content string
}

// ApprovalResult is the successful result of an asset approval
type ApprovalResult struct {
	TaskName string `json:"task_name"`
	Message  string `json:"message"`
}

// IntegrationResult is the successful result of an integration run
type IntegrationResult struct {
	MovedAssets []json.RawMessage `json:"moved_assets"`
	Message     string            `json:"message"`
}

// Moved returns the number of assets moved into the project
func (r IntegrationResult) Moved() int {
	return len(r.MovedAssets)
}

const (
	chatPath      = "/api/v1/chat/"
	approvePath   = "/api/v1/approve_asset"
	integratePath = "/api/v1/integrate_and_playtest"

	maxResponseBytes = 4 << 20
)

// APIClient is the HTTP Gateway
type APIClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewAPIClient creates a client for the server at baseURL. A zero timeout waits
// indefinitely.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *APIClient) WithHTTPClient(hc *http.Client) *APIClient {
	c.http = hc
	return c
}

// BaseURL returns the server URL the client talks to
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

type chatRequest struct {
	Message string    `json:"message"`
	History []Message `json:"history"`
}

type approveRequest struct {
	AssetID   AssetID `json:"asset_id"`
	AssetType string  `json:"asset_type"`
}

// SendChatTurn sends text plus the agent's prior history
func (c *APIClient) SendChatTurn(ctx context.Context, agent AgentID, text string, history []Message) (ChatReply, error) {
	if history == nil {
		history = []Message{}
	}
	body, status, err := c.post(ctx, "chat", chatPath+url.PathEscape(string(agent)), chatRequest{Message: text, History: history})
	if err != nil {
		return ChatReply{}, err
	}
	if !isSuccess(status) {
		return ChatReply{}, &RemoteError{
			Op:         "chat",
			StatusCode: status,
			Message:    failureMessage(body, "detail", "Server Error: "+http.StatusText(status)),
		}
	}
	return decodeChatReply(body), nil
}

// ApproveAsset approves a generated asset and moves it into the project
func (c *APIClient) ApproveAsset(ctx context.Context, assetID AssetID, assetType string) (ApprovalResult, error) {
	body, status, err := c.post(ctx, "approve", approvePath, approveRequest{AssetID: assetID, AssetType: assetType})
	if err != nil {
		return ApprovalResult{}, err
	}
	if !isSuccess(status) {
		return ApprovalResult{}, &RemoteError{
			Op:         "approve",
			StatusCode: status,
			Message:    failureMessage(body, "detail", "Approval failed on the backend."),
		}
	}
	var result ApprovalResult
	if err := json.Unmarshal(body, &result); err != nil {
		return ApprovalResult{}, &TransportError{Op: "approve", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return result, nil
}

// TriggerIntegration moves approved assets into the project and launches a playtest
func (c *APIClient) TriggerIntegration(ctx context.Context) (IntegrationResult, error) {
	body, status, err := c.post(ctx, "integrate", integratePath, nil)
	if err != nil {
		return IntegrationResult{}, err
	}
	if !isSuccess(status) {
		return IntegrationResult{}, &RemoteError{
			Op:         "integrate",
			StatusCode: status,
			Message:    failureMessage(body, "message", "Integration failed"),
		}
	}
	var result IntegrationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return IntegrationResult{}, &TransportError{Op: "integrate", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return result, nil
}

// Ping checks that the server answers HTTP at all
func (c *APIClient) Ping(ctx context.Context) (int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return 0, &TransportError{Op: "ping", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &TransportError{Op: "ping", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return resp.StatusCode, nil
}

func (c *APIClient) post(ctx context.Context, op, path string, payload interface{}) ([]byte, int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, &TransportError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, &TransportError{Op: op, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	LogDebug("POST %s", req.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	LogDebug("POST %s -> %d (%d bytes)", req.URL, resp.StatusCode, len(body))
	return body, resp.StatusCode, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// decodeChatReply keeps the response field as markup; anything else is surfaced raw
func decodeChatReply(body []byte) ChatReply {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		if raw, ok := fields["response"]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return ChatReply{Kind: ReplyMarkup, Content: s}
			}
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err == nil {
		return ChatReply{Kind: ReplyUnrecognized, Content: pretty.String()}
	}
	return ChatReply{Kind: ReplyUnrecognized, Content: string(body)}
}

// failureMessage extracts a human-readable field from an error body
func failureMessage(body []byte, field, fallback string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return fallback
	}
	raw, ok := fields[field]
	if !ok || string(raw) == "null" {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return fallback
		}
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return fallback
	}
	return compact.String()
}
