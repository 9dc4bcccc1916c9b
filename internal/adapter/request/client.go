// Package request supplies a default implementation of the opaque request
// function for deployments where the engine talks to the backend directly
// instead of through an embedding application.
package request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/strogmv/unread/internal/port"
)

// Client is a minimal JSON GET client over one backend base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func New(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// Func adapts the client to the engine's RequestFunc port.
func (c *Client) Func() port.RequestFunc {
	return c.do
}

func (c *Client) do(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request %s: status %d, body %s", path, resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
