package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultURL     = "http://localhost:11434"
	defaultTimeout = 300 * time.Second
	contentType    = "application/json"
	userAgent      = "spigell/resume-agent"
)

// Client talks to the Ollama HTTP API.
type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

// New creates a client. The timeout bounds a whole exchange, streamed body included.
func New(logger *zap.Logger, baseURL string, timeout time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = defaultURL
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		logger:  logger,
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.UserAgent)

	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	return c.HTTPClient.Do(req)
}

// statusError reads what is left of a failed response for the error message.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	if msg == "" {
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	return fmt.Errorf("bad status: %s: %s", resp.Status, msg)
}
