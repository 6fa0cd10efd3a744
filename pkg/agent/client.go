package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/voiceloop/voiceloop/internal/httpc"
)

// Client is the HTTP agent submitter.
type Client struct {
	cfg    *Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates an agent client for the configured endpoint.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.URL == "" {
		return nil, ErrNoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &Client{
		cfg:    cfg,
		http:   client,
		logger: cfg.Logger.With("component", "agent.client"),
	}, nil
}

// submitRequest is the wire format the agent endpoint accepts.
type submitRequest struct {
	Messages []Message      `json:"messages"`
	Context  SessionContext `json:"context"`
}

// errorResponse is the body the endpoint sends with non-2xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// Submit sends the message history and session context to the agent and
// returns its reply with the updated context.
func (c *Client) Submit(ctx context.Context, messages []Message, sctx SessionContext) (*Reply, error) {
	if len(messages) == 0 {
		return nil, ErrEmptySubmission
	}

	start := time.Now()

	payload, err := json.Marshal(submitRequest{Messages: messages, Context: sctx})
	if err != nil {
		return nil, fmt.Errorf("agent: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.parseError(resp)
	}

	var reply Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("agent: decode response: %w", err)
	}

	c.logger.Info("submission completed",
		"messages", len(messages),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &reply, nil
}

// parseError converts a non-2xx response into an APIError.
func (c *Client) parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}

	c.logger.Warn("submission failed", "status", resp.StatusCode, "message", apiErr.Message)
	return apiErr
}
