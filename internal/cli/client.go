// Package cli provides the terminal client of the tutor service.
package cli

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

	"github.com/gorilla/websocket"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// errorResponse is the error body written by the server.
type errorResponse struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
}

// Client is an HTTP client for one owner and client session.
type Client struct {
	baseURL    string
	ownerID    string
	sessionID  string
	httpClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL, ownerID, sessionID string) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		ownerID:   ownerID,
		sessionID: sessionID,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// SessionID returns the client session id sent with every message.
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) ownerPath(parts ...string) string {
	return c.baseURL + "/v1/owners/" + url.PathEscape(c.ownerID) + strings.Join(parts, "")
}

// do sends a JSON request and decodes a JSON answer into out. A 503 answer
// to a send still carries the pending turns, so out is decoded for it too.
func (c *Client) do(ctx context.Context, method, target string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusServiceUnavailable && out != nil {
			_ = json.Unmarshal(respBody, out)
		}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Send posts a message. threadID is the thread the session should be on;
// empty starts a new conversation.
func (c *Client) Send(ctx context.Context, threadID, text string, topic domain.Topic) (*domain.SendMessageResponse, error) {
	req := domain.SendMessageRequest{
		SessionID: c.sessionID,
		Text:      text,
		Topic:     topic,
	}
	if threadID != "" {
		req.ThreadID = &threadID
	}
	var resp domain.SendMessageResponse
	err := c.do(ctx, http.MethodPost, c.ownerPath("/messages"), req, &resp)
	return &resp, err
}

// NewConversation resets the client session.
func (c *Client) NewConversation(ctx context.Context) (*domain.SendMessageResponse, error) {
	var resp domain.SendMessageResponse
	err := c.do(ctx, http.MethodPost, c.ownerPath("/sessions/", url.PathEscape(c.sessionID), "/new"), nil, &resp)
	return &resp, err
}

// Flush retries the writes of the session's pending turns.
func (c *Client) Flush(ctx context.Context) (*domain.SendMessageResponse, error) {
	var resp domain.SendMessageResponse
	err := c.do(ctx, http.MethodPost, c.ownerPath("/sessions/", url.PathEscape(c.sessionID), "/flush"), nil, &resp)
	return &resp, err
}

// Threads lists the owner's threads, newest first.
func (c *Client) Threads(ctx context.Context, limit int) ([]domain.Thread, error) {
	var resp domain.ListThreadsResponse
	if err := c.do(ctx, http.MethodGet, c.ownerPath(fmt.Sprintf("/threads?limit=%d", limit)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Threads, nil
}

// Turns lists the stored turns of a thread.
func (c *Client) Turns(ctx context.Context, threadID string) ([]domain.Turn, error) {
	var resp domain.ListTurnsResponse
	if err := c.do(ctx, http.MethodGet, c.ownerPath("/threads/", url.PathEscape(threadID), "/turns"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Turns, nil
}

// Quiz generates a quiz from the session's conversation.
func (c *Client) Quiz(ctx context.Context, threadID string, topic domain.Topic) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := c.do(ctx, http.MethodPost, c.ownerPath("/quiz"), domain.QuizRequest{
		SessionID: c.sessionID,
		ThreadID:  threadID,
		Topic:     topic,
	}, &quiz)
	return quiz, err
}

// StudyPlan generates a seven day plan.
func (c *Client) StudyPlan(ctx context.Context, topic domain.Topic) (domain.StudyPlan, error) {
	var plan domain.StudyPlan
	err := c.do(ctx, http.MethodPost, c.ownerPath("/study-plan"), domain.StudyPlanRequest{Topic: topic}, &plan)
	return plan, err
}

// SaveArtifact stores a quiz or study plan.
func (c *Client) SaveArtifact(ctx context.Context, req domain.SaveArtifactRequest) (*domain.Artifact, error) {
	var a domain.Artifact
	if err := c.do(ctx, http.MethodPost, c.ownerPath("/artifacts"), req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Artifacts lists saved artifacts.
func (c *Client) Artifacts(ctx context.Context) ([]domain.Artifact, error) {
	var resp domain.ListArtifactsResponse
	if err := c.do(ctx, http.MethodGet, c.ownerPath("/artifacts"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Artifacts, nil
}

// Watch streams the owner's change events to fn until ctx ends or the
// connection drops. It returns once the websocket is connected.
func (c *Client) Watch(ctx context.Context, threadID string, fn func(domain.ChangeEvent)) (<-chan error, error) {
	wsURL := "ws" + strings.TrimPrefix(c.ownerPath("/watch"), "http")
	q := url.Values{}
	q.Set("session_id", c.sessionID)
	if threadID != "" {
		q.Set("thread_id", threadID)
	}
	wsURL += "?" + q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()
	go func() {
		defer close(done)
		for {
			var ev domain.ChangeEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					done <- err
				}
				return
			}
			fn(ev)
		}
	}()
	return done, nil
}
