// Package client is a typed HTTP client for the modelfork API, including a
// consumer for the streaming endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/modelfork/modelfork/pkg/catalog"
	"github.com/modelfork/modelfork/pkg/completion"
	"github.com/modelfork/modelfork/pkg/models"
	"github.com/modelfork/modelfork/pkg/version"
)

// Client calls the modelfork HTTP API. SessionID is sent with every request
// to partition the caller's chats.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

// New creates a client for the API at baseURL (e.g. "http://localhost:8080").
func New(baseURL, sessionID string) *Client {
	return &Client{
		baseURL:    baseURL,
		sessionID:  sessionID,
		httpClient: &http.Client{},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

// ListModels returns the model catalog.
func (c *Client) ListModels(ctx context.Context) ([]catalog.ModelDescriptor, error) {
	var out struct {
		Models []catalog.ModelDescriptor `json:"models"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// CreateChat creates a chat owned by the client's session.
func (c *Client) CreateChat(ctx context.Context, title string) (*models.Chat, error) {
	req := models.CreateChatRequest{OwnerKey: c.sessionID, Title: title}
	var chat models.Chat
	if err := c.call(ctx, http.MethodPost, "/api/v1/chats", req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats returns the session's chats, most recently active first.
func (c *Client) ListChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := c.call(ctx, http.MethodGet, "/api/v1/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChat returns a chat and its full message history.
func (c *Client) GetChat(ctx context.Context, chatID string) (*models.Chat, []models.Message, error) {
	var out struct {
		Chat     *models.Chat     `json:"chat"`
		Messages []models.Message `json:"messages"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/chats/"+chatID, nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Chat, out.Messages, nil
}

// DeleteChat removes a chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/chats/"+chatID, nil, nil)
}

// Complete runs a synchronous completion.
func (c *Client) Complete(ctx context.Context, req completion.Request) (*completion.Result, error) {
	var result completion.Result
	if err := c.call(ctx, http.MethodPost, "/api/v1/complete", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Compare runs both models synchronously and returns both outcomes.
func (c *Client) Compare(ctx context.Context, req completion.CompareRequest) (*completion.CompareResult, error) {
	var result completion.CompareResult
	if err := c.call(ctx, http.MethodPost, "/api/v1/complete/compare", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CompleteStream streams a completion into session, invoking onEvent per
// decoded event. Callers set session.OnFinish before the call to react to
// the stream reaching a terminal state.
func (c *Client) CompleteStream(ctx context.Context, req completion.Request, session *StreamSession, onEvent func(StreamEvent)) error {
	return c.stream(ctx, "/api/v1/complete/stream", req, session, onEvent)
}

// CompareStream streams a two-model comparison into session.
func (c *Client) CompareStream(ctx context.Context, req completion.CompareRequest, session *StreamSession, onEvent func(StreamEvent)) error {
	return c.stream(ctx, "/api/v1/complete/compare/stream", req, session, onEvent)
}

func (c *Client) stream(ctx context.Context, path string, payload any, session *StreamSession, onEvent func(StreamEvent)) error {
	resp, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	scanner := newEventScanner(resp.Body)
	for {
		event, err := scanner.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		session.Apply(event)
		if onEvent != nil {
			onEvent(event)
		}
	}
}

func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	resp, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.Header.Set("X-Session-ID", c.sessionID)
	}
	req.Header.Set("User-Agent", version.Full())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	message := string(data)
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
