package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUnauthorized is returned when the honeypot rejects the API key.
var ErrUnauthorized = errors.New("unauthorized: API key rejected")

// maxBody bounds how much of a response is read. /admin/logs can be large.
const maxBody = 32 << 20

// ValidateResult is the data block returned by POST /api/validate.
type ValidateResult struct {
	RiskScore        int      `json:"risk_score"`
	RiskLevel        string   `json:"risk_level"`
	DetectedTriggers []string `json:"detected_triggers"`
	AgentReplySent   string   `json:"agent_reply_sent"`
}

// Record is one engagement as returned by GET /admin/logs.
type Record struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	IP               string    `json:"ip"`
	Message          string    `json:"message"`
	RiskScore        int       `json:"risk_score"`
	RiskLevel        string    `json:"risk_level"`
	DetectedTriggers []string  `json:"detected_triggers"`
	AgentReplySent   string    `json:"agent_reply_sent"`
}

// Keyword is one entry of the scoring table.
type Keyword struct {
	Term   string `json:"term"`
	Weight int    `json:"weight"`
}

// ReplyCategory is a named list of canned replies.
type ReplyCategory struct {
	Name    string   `json:"name"`
	Replies []string `json:"replies"`
}

// ServerConfig is the payload of GET /admin/config.
type ServerConfig struct {
	Keywords        []Keyword       `json:"keywords"`
	Thresholds      map[string]int  `json:"thresholds"`
	ReplyCategories []ReplyCategory `json:"reply_categories"`
}

// Client talks to a honeypot server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithAPIKey sets the shared secret sent as x-api-key.
func WithAPIKey(key string) Option {
	return func(c *Client) error {
		c.apiKey = key
		return nil
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// New creates a Client for the honeypot at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		dialer:     websocket.DefaultDialer,
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Health calls GET / and returns the liveness string.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Validate submits text to POST /api/validate.
func (c *Client) Validate(ctx context.Context, text string) (*ValidateResult, error) {
	payload, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/validate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status string         `json:"status"`
		Data   ValidateResult `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("unexpected status %q", resp.Status)
	}
	return &resp.Data, nil
}

// Logs fetches the full engagement log from GET /admin/logs.
func (c *Client) Logs(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/logs", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Logs []Record `json:"logs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp.Logs, nil
}

// Config fetches the scoring table and reply lists from GET /admin/config.
func (c *Client) Config(ctx context.Context) (*ServerConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/config", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &cfg, nil
}

// Stream connects to /admin/stream and calls fn for every record until ctx
// is cancelled or the connection drops. minLevel may be empty.
func (c *Client) Stream(ctx context.Context, minLevel string, fn func(Record)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/admin/stream"

	hdr := http.Header{}
	hdr.Set("x-api-key", c.apiKey)
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, hdr)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	if minLevel != "" {
		sub, _ := json.Marshal(map[string]string{"min_level": minLevel})
		if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
			return fmt.Errorf("send subscription: %w", err)
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		var ev struct {
			Data Record `json:"data"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		fn(ev.Data)
	}
}

// do performs an HTTP request and returns the body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
