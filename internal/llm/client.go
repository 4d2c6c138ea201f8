// Package llm is the inference client of the audit pipeline. It sends a
// single prompt to the Anthropic Messages API, returns the model's text and
// turns that text into a validated domain.AuditResult.
//
// No retries are performed: a failed call terminates the audit and the
// caller records the error.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/simpleit/sitepilot/internal/domain"
)

const (
	// DefaultModel is the model the audit rubric was tuned against.
	DefaultModel = string(anthropic.ModelClaudeSonnet4_20250514)

	// DefaultMaxTokens bounds the completion; the expected JSON is small.
	DefaultMaxTokens = 2048

	defaultTimeout = 60 * time.Second
)

// Config holds the provider settings.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string // optional, e.g. a proxy or a test server
	MaxTokens int64
	Timeout   time.Duration
}

// Client calls the Messages API.
type Client struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
	keySet    bool
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
}

// WithHTTPClient replaces the HTTP client used by the SDK.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// New returns a Client. A missing API key is not an error here; calls fail
// with ErrNotConfigured so the failure is recorded on the audit.
func New(cfg Config, opts ...Option) *Client {
	co := clientOptions{}
	for _, opt := range opts {
		opt(&co)
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if co.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(co.httpClient))
	}

	return &Client{
		api:       anthropic.NewClient(reqOpts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		keySet:    strings.TrimSpace(cfg.APIKey) != "",
	}
}

// Complete sends prompt as a single user message at temperature 0 and
// returns the concatenated text blocks of the reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	tr := otel.Tracer("llm")
	ctx, span := tr.Start(ctx, "Complete",
		trace.WithAttributes(
			attribute.String("llm.model", string(c.model)),
			attribute.Int("llm.prompt_bytes", len(prompt)),
		),
	)
	defer span.End()

	if !c.keySet {
		span.SetStatus(codes.Error, ErrNotConfigured.Error())
		return "", ErrNotConfigured
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		err = providerError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return "", err
	}

	parts := make([]string, 0, len(msg.Content))
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return "", ErrEmptyResponse
	}
	span.SetAttributes(attribute.Int("llm.response_bytes", len(text)))
	return text, nil
}

// Infer runs Complete and ParseResult.
func (c *Client) Infer(ctx context.Context, prompt string) (*domain.AuditResult, error) {
	text, err := c.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseResult(text)
}

// providerError converts SDK API errors into *ProviderError carrying the
// upstream message. Transport errors (timeouts, refused connections) are
// returned unchanged.
func providerError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	pe := &ProviderError{Status: apiErr.StatusCode}
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if raw := apiErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &body) == nil {
		pe.Type = body.Error.Type
		pe.Message = body.Error.Message
	}
	return pe
}
