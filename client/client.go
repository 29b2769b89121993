// Package client is a Go client for the session service plus a local
// reconciler mirroring the session list with optimistic updates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Message is one entry of a session's message log.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session mirrors the server's wire shape. Messages are chronological.
type Session struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	WeekStart string     `json:"weekStart"`
	UpdatedAt string     `json:"updatedAt"`
	Messages  []*Message `json:"messages"`
}

type turnRequest struct {
	SessionID  string     `json:"sessionId"`
	Transcript []*Message `json:"transcript"`
}

type turnResponse struct {
	Response *Message `json:"response"`
}

type renameRequest struct {
	Title string `json:"title"`
}

type renameResponse struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

// Client talks to the session service over HTTP with bearer auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL authenticating with
// the given access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// ListSessions fetches the caller's sessions, most recently active first.
func (c *Client) ListSessions(ctx context.Context) ([]*Session, error) {
	sessions := []*Session{}
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SubmitTurn sends the transcript for one turn and returns the assistant
// reply.
func (c *Client) SubmitTurn(ctx context.Context, sessionID string, transcript []*Message) (*Message, error) {
	response := &turnResponse{}
	err := c.do(ctx, http.MethodPost, "/turn", &turnRequest{
		SessionID:  sessionID,
		Transcript: transcript,
	}, response)
	if err != nil {
		return nil, err
	}
	if response.Response == nil {
		return nil, errors.New("empty turn response")
	}
	return response.Response, nil
}

// RenameSession sets a new title and returns the title the server persisted.
func (c *Client) RenameSession(ctx context.Context, sessionID, title string) (string, error) {
	response := &renameResponse{}
	err := c.do(ctx, http.MethodPatch, "/sessions/"+sessionID, &renameRequest{Title: title}, response)
	if err != nil {
		return "", err
	}
	return response.Title, nil
}

// DeleteSession removes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+sessionID, nil, &deleteResponse{})
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	request.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return errors.Errorf("%s %s: unexpected status %s", method, path, response.Status)
	}
	if out != nil {
		if err := json.NewDecoder(response.Body).Decode(out); err != nil {
			return errors.Wrap(err, "failed to decode response")
		}
	}
	return nil
}
