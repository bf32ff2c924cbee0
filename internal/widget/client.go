package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"safedrive/internal/types"
)

// Client posts messages to the chat endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send posts message as-is and returns the reply text. Every failure wraps
// ErrChatFailed.
func (c *Client) Send(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(types.ChatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrChatFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrChatFailed, resp.StatusCode)
	}

	var out struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: invalid JSON: %v", ErrChatFailed, err)
	}
	if out.Response == nil {
		return "", fmt.Errorf("%w: missing response field", ErrChatFailed)
	}
	return *out.Response, nil
}
