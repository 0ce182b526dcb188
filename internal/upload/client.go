// Package upload sends workout exports to a running tracker over HTTP.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result mirrors the server's import response.
type Result struct {
	Inserted   int    `json:"inserted"`
	Duplicated int    `json:"duplicated"`
	Rejected   int    `json:"rejected"`
	Error      string `json:"error,omitempty"`
}

// Client sends exports to the tracker's import endpoint.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a client for the tracker at serverURL. apiKey may be
// empty when the server does not require one.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// SendExport POSTs an export to the import endpoint. Transport failures
// and 5xx responses are retried up to 3 times with exponential backoff;
// other failures are returned at once.
func (c *Client) SendExport(ctx context.Context, data []byte) (*Result, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}

		res, retry, err := c.send(ctx, data)
		if err == nil {
			return res, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (c *Client) send(ctx context.Context, data []byte) (*Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/workouts/import", bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("import failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
		return nil, resp.StatusCode >= http.StatusInternalServerError, err
	}

	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, false, fmt.Errorf("decoding import response: %w", err)
	}
	return &res, false, nil
}
