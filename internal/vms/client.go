// Package vms is the HTTP client for the external detection/streaming
// service. The service is a black box: the dashboard only consumes its REST
// contract and never looks inside the video pipeline.
package vms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/spignelon/roadvision-assignment/internal/models"
)

const defaultTimeout = 5 * time.Second

// Client talks to the upstream VMS API. Snapshot and detection endpoints are
// idempotent GETs safe to call repeatedly and rapidly.
type Client struct {
	baseURL string
	http    *http.Client

	// cache-busting counter, уникальный параметр на каждую попытку
	bust atomic.Uint64
}

// NewClient creates a client for the service at baseURL. The timeout bounds
// every request so a hung fetch cannot occupy a scheduler slot indefinitely.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bad status: %s, error: %s", resp.Status, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Streams fetches the full roster.
func (c *Client) Streams(ctx context.Context) ([]models.StreamDescriptor, error) {
	var streams []models.StreamDescriptor
	if err := c.getJSON(ctx, "/api/streams", &streams); err != nil {
		return nil, err
	}
	return streams, nil
}

// Detections fetches the latest detection record for a stream.
func (c *Client) Detections(ctx context.Context, streamID string) (models.DetectionRecord, error) {
	var rec models.DetectionRecord
	err := c.getJSON(ctx, "/api/streams/"+url.PathEscape(streamID)+"/detections", &rec)
	return rec, err
}

// Snapshot fetches the freshest annotated preview frame for a stream. Each
// attempt carries a unique query parameter and a no-store directive so no
// intermediary cache can shortcut the newest-frame requirement.
func (c *Client) Snapshot(ctx context.Context, streamID string) ([]byte, error) {
	u := fmt.Sprintf("%s/api/streams/%s/snapshot?t=%d-%d",
		c.baseURL, url.PathEscape(streamID), time.Now().UnixNano(), c.bust.Add(1))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty snapshot body")
	}
	return data, nil
}

// VideoFeed opens the continuous multipart JPEG feed for a stream. The caller
// owns the returned body and must close it. Feed requests are not subject to
// the client timeout: the connection lives as long as the focused view.
func (c *Client) VideoFeed(ctx context.Context, streamID string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/streams/"+url.PathEscape(streamID)+"/video_feed", nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	// Отдельный транспорт без таймаута, фид живёт пока открыт focused view
	feedClient := &http.Client{Transport: c.http.Transport}
	resp, err := feedClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("bad status: %s", resp.Status)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// AddStream registers a new stream with the service and returns its id.
func (c *Client) AddStream(ctx context.Context, streamURL, id string) (string, error) {
	payload := map[string]string{"url": streamURL}
	if id != "" {
		payload["id"] = id
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/streams", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("bad status: %s, error: %s", resp.Status, respBody)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return created.ID, nil
}

// DeleteStream removes a stream from the service.
func (c *Client) DeleteStream(ctx context.Context, streamID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/streams/"+url.PathEscape(streamID), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	return nil
}

// Stats fetches the aggregate system statistics.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := c.getJSON(ctx, "/api/stats", &stats)
	return stats, err
}

// Config fetches the service's detection/motion tuning.
func (c *Client) Config(ctx context.Context) (models.UpstreamConfig, error) {
	var cfg models.UpstreamConfig
	err := c.getJSON(ctx, "/api/config", &cfg)
	return cfg, err
}

// UpdateConfig posts a partial tuning update. Only the sections present in
// patch are merged upstream; the service returns the resulting config.
func (c *Client) UpdateConfig(ctx context.Context, patch map[string]any) (models.UpstreamConfig, error) {
	var updated models.UpstreamConfig

	body, err := json.Marshal(patch)
	if err != nil {
		return updated, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/config", bytes.NewReader(body))
	if err != nil {
		return updated, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return updated, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return updated, fmt.Errorf("bad status: %s, error: %s", resp.Status, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return updated, fmt.Errorf("decode response: %w", err)
	}
	return updated, nil
}

// StreamStatus fetches the descriptor for a single stream.
func (c *Client) StreamStatus(ctx context.Context, streamID string) (models.StreamDescriptor, error) {
	var d models.StreamDescriptor
	err := c.getJSON(ctx, "/api/streams/"+url.PathEscape(streamID)+"/status", &d)
	return d, err
}
