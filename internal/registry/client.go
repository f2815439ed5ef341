// Package registry is the HTTP client for the session registry, the
// lifecycle collaborator that owns the authoritative session list.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/multi-agent/chatstream/pkg/errors"
)

// SessionInfo is one registry entry.
type SessionInfo struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	LastAccess time.Time `json:"lastAccess"`
}

// Client talks to the registry's REST endpoints.
type Client struct {
	baseURL string
	httpCli *http.Client
}

// NewClient creates a registry client. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpCli: &http.Client{Timeout: timeout},
	}
}

// Status fetches the authoritative session list.
func (c *Client) Status(ctx context.Context) ([]SessionInfo, error) {
	const op = "registry.Status"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return nil, errors.Wrap(err, op, "build request")
	}
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, op, "request registry")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf(op, "registry returned %d: %s", resp.StatusCode, body)
	}

	var sessions []SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, errors.Wrap(err, op, "decode status response")
	}
	return sessions, nil
}

// DeleteSession asks the registry to discard one session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	const op = "registry.DeleteSession"

	if sessionID == "" {
		return errors.Wrap(errors.ErrInvalidInput, op, "empty session id")
	}
	url := fmt.Sprintf("%s/sessions/%s", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return errors.Wrap(err, op, "build request")
	}
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return errors.Wrap(err, op, "request registry")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Newf(op, "delete %s returned %d: %s", sessionID, resp.StatusCode, body)
	}
	return nil
}

// UploadSnapshot posts an engine diagnostics snapshot.
func (c *Client) UploadSnapshot(ctx context.Context, snapshot map[string]any) error {
	const op = "registry.UploadSnapshot"

	data, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, op, "marshal snapshot")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/snapshot", bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, op, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return errors.Wrap(err, op, "request registry")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Newf(op, "snapshot upload returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
