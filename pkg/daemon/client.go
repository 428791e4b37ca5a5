// Package daemon provides a client for the framefill daemon's HTTP API and
// the config watcher the daemon runs.
package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/geometry"
	"github.com/grovetools/framefill/pkg/placement"
)

// StateUpdate represents an update pushed from the daemon to subscribers.
type StateUpdate struct {
	UpdateType string            `json:"update_type"` // "initial", "collections", "released", "refreshed", "placement", "alert", "config_reload"
	Source     string            `json:"source,omitempty"`
	Scanned    int               `json:"scanned,omitempty"`
	Snapshot   *store.Snapshot   `json:"snapshot,omitempty"`
	Report     *placement.Report `json:"report,omitempty"`
	Alert      *alert.Alert      `json:"alert,omitempty"`
	ConfigFile string            `json:"config_file,omitempty"`
}

// RunningConfig mirrors the daemon's /api/config payload.
type RunningConfig struct {
	Version          string        `json:"version"`
	Listen           string        `json:"listen"`
	FitPolicy        string        `json:"fit_policy"`
	Mismatch         string        `json:"mismatch"`
	MaxOpen          int           `json:"max_open"`
	DocumentInterval time.Duration `json:"document_interval"`
	FolderInterval   time.Duration `json:"folder_interval"`
	Watch            bool          `json:"watch"`
	Collectors       []string      `json:"collectors"`
	StartedAt        time.Time     `json:"started_at"`
}

// Client calls the daemon's HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the daemon listening on addr, either
// host:port or a full http URL.
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(base, "/"),
	}
}

// IsRunning returns true if the daemon is available and responding.
func (c *Client) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// State returns the daemon's current state.
func (c *Client) State(ctx context.Context) (store.State, error) {
	var state store.State
	err := c.getJSON(ctx, "/api/state", &state)
	return state, err
}

// Config returns the configuration the daemon is running with.
func (c *Client) Config(ctx context.Context) (RunningConfig, error) {
	var cfg RunningConfig
	err := c.getJSON(ctx, "/api/config", &cfg)
	return cfg, err
}

// Logs returns up to n recent log lines from the daemon's ring.
func (c *Client) Logs(ctx context.Context, n int) ([]string, error) {
	var out struct {
		Lines []string `json:"lines"`
	}
	err := c.getJSON(ctx, "/api/logs?n="+strconv.Itoa(n), &out)
	return out.Lines, err
}

// Detect uploads an image and returns the frame boxes found in it.
func (c *Client) Detect(ctx context.Context, data []byte) ([]geometry.Rect, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/detect", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		Frames []geometry.Rect `json:"frames"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Frames, nil
}

// StreamState subscribes to real-time state updates via Server-Sent Events.
// The channel is closed when ctx is cancelled or the connection is lost.
func (c *Client) StreamState(ctx context.Context) (<-chan StateUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// No timeout for streaming
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "failed to connect to stream")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	ch := make(chan StateUpdate, 10)
	go func() {
		defer resp.Body.Close()
		defer close(ch)

		scanner := bufio.NewScanner(resp.Body)
		// Snapshots carry every resource of every open collection.
		scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, ":") || line == "" {
				continue
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var update StateUpdate
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
				continue
			}
			select {
			case ch <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "daemon is not reachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var fe errors.FrameError
		if json.NewDecoder(resp.Body).Decode(&fe) == nil && fe.Code != "" {
			return &fe
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", req.URL.Path, err)
	}
	return nil
}
