// Package tileclient is a small client SDK for the vtbridge tile server.
package tileclient

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"net/http"
)

// SourceInfo mirrors the server's source inspection payload.
type SourceInfo struct {
	Ready        bool      `json:"ready"`
	Projection   string    `json:"projection"`
	Rectangle    []float64 `json:"rectangle"`
	TileWidth    int       `json:"tileWidth"`
	TileHeight   int       `json:"tileHeight"`
	MinimumLevel int       `json:"minimumLevel"`
	MaximumLevel int       `json:"maximumLevel"`
	Alpha        bool      `json:"alpha"`
	Credits      []string  `json:"credits"`
}

// Client talks to one vtbridge server.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8087".
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpc: http.DefaultClient}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(httpc *http.Client) *Client {
	c.httpc = httpc
	return c
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/health", &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", body.Status)
	}
	return nil
}

// Source fetches the server's source description.
func (c *Client) Source(ctx context.Context) (SourceInfo, error) {
	var info SourceInfo
	err := c.getJSON(ctx, "/api/v1/source", &info)
	return info, err
}

// Tile fetches one rendered tile.
func (c *Client) Tile(ctx context.Context, z, x, y int) (image.Image, error) {
	url := fmt.Sprintf("%s/tiles/%d/%d/%d.png", c.baseURL, z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tile %d/%d/%d: %w", z, x, y, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching tile %d/%d/%d: status %d", z, x, y, resp.StatusCode)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding tile %d/%d/%d: %w", z, x, y, err)
	}
	return img, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("requesting %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
