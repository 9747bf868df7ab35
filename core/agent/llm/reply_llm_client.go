// Package llm is the chat-completion adapter behind the reply pipeline.
package llm

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"reply_server/core/port/out"
	"reply_server/pkg/apperr"
	"reply_server/pkg/httputil"
	"reply_server/pkg/logger"
	"reply_server/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 60 * time.Second
)

// ClientConfig configures the completion client. The API key is not part of
// the config: each call carries the credential of the user it serves.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client sends chat completions through a shared circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	usage      *UsageTracker
	latency    *metrics.LatencyTracker
}

var _ out.CompletionClient = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = httputil.NewClient(httputil.CompletionClientConfig(timeout))
	}

	cbSettings := gobreaker.Settings{
		Name:        "completion-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		// a rejected key or a bad request says nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		cb:         gobreaker.NewCircuitBreaker(cbSettings),
		usage:      NewUsageTracker(),
		latency:    metrics.NewLatencyTracker(500),
	}
}

// Complete performs exactly one chat completion and returns the first
// choice's text. Provider errors map to UPSTREAM_ERROR, transport failures
// and an open breaker to NETWORK_ERROR.
func (c *Client) Complete(ctx context.Context, credential string, req out.CompletionRequest) (string, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		start := time.Now()
		resp, err := c.newOpenAIClient(credential).CreateChatCompletion(ctx, toChatRequest(req))
		c.latency.Record(time.Since(start))
		return resp, err
	})
	if err != nil {
		return "", mapError(err)
	}

	resp := result.(openai.ChatCompletionResponse)
	c.usage.Track(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", apperr.Upstream("", http.StatusOK)
	}
	return resp.Choices[0].Message.Content, nil
}

// Usage returns the token counters collected so far.
func (c *Client) Usage() UsageStats {
	return c.usage.Stats()
}

// Latency summarizes recent round-trip times to the provider.
func (c *Client) Latency() metrics.LatencyStats {
	return c.latency.Stats()
}

// BreakerState reports the circuit breaker state ("closed", "open", "half-open").
func (c *Client) BreakerState() string {
	return c.cb.State().String()
}

func (c *Client) newOpenAIClient(credential string) *openai.Client {
	config := openai.DefaultConfig(credential)
	config.BaseURL = c.baseURL
	config.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(config)
}

func toChatRequest(req out.CompletionRequest) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.UserPrompt,
			},
		},
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	}
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.Upstream(apiErr.Message, apiErr.HTTPStatusCode).WithError(err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.Upstream("", reqErr.HTTPStatusCode).WithError(err)
	}
	if isDecodeError(err) {
		return apperr.Upstream("", http.StatusOK).WithError(err)
	}
	return apperr.Network(err)
}

// isDecodeError reports a success response whose body was not a completion.
func isDecodeError(err error) bool {
	var syntaxErr *stdjson.SyntaxError
	var typeErr *stdjson.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// countsAsFailure decides what trips the shared breaker. 4xx answers,
// 429 quota exhaustion included, belong to the caller's key and never count.
func countsAsFailure(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	if isDecodeError(err) {
		return false
	}
	// the caller gave up; the provider did nothing wrong
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
