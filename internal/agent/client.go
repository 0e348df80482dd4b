// Package agent calls the remote conversational agent over its invoke endpoint.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vibecoder.app/console/common/logger"
	"vibecoder.app/console/internal/model"
)

const (
	invokePath = "/agent/invoke"
	healthPath = "/health"

	// Bodies of failed responses are kept for logs only.
	maxErrorBody = 2048
)

type Config struct {
	BaseURL    string       // Required: e.g. http://localhost:8000
	HTTPClient *http.Client // Optional: defaults to an otelhttp-instrumented client
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("agent base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parsing agent base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
	}, nil
}

// Invoke sends one human turn for thread and returns the content of the last
// message in the agent's output.
func (c *Client) Invoke(ctx context.Context, thread model.ThreadID, text string) (string, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "console.agent.client"})

	body, err := json.Marshal(newInvokeRequest(thread.String(), text))
	if err != nil {
		return "", fmt.Errorf("encoding invoke request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+invokePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
		}
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	reply, err := lastReply(decoded)
	if err != nil {
		return "", err
	}

	slog.DebugContext(ctx, "agent invoke completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"reply_chars", len(reply))

	return reply, nil
}

// Health checks the agent service's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func lastReply(resp invokeResponse) (string, error) {
	if resp.Output == nil {
		return "", fmt.Errorf("%w: missing output", ErrMalformedResponse)
	}
	msgs := resp.Output.Messages
	if len(msgs) == 0 {
		return "", fmt.Errorf("%w: no messages in output", ErrMalformedResponse)
	}
	reply, ok := msgs[len(msgs)-1].text()
	if !ok {
		return "", fmt.Errorf("%w: last message has no content", ErrMalformedResponse)
	}
	return reply, nil
}
