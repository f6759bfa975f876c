// Package openai implements the reasoning gateway against an OpenAI-compatible
// chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sashabaranov/go-openai"

	"nurture/internal/analysis/models"
	"nurture/pkg/sentinel"
)

var (
	callDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nurture_reasoning_call_duration_seconds",
		Help:    "Latency of reasoning service calls, per attempt",
		Buckets: prometheus.DefBuckets,
	})
	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nurture_reasoning_fallbacks_total",
		Help: "Responses that failed parsing and were replaced by the fallback recommendation",
	})
)

// Config carries the reasoning service call parameters.
type Config struct {
	Model         string
	MaxTokens     int
	Temperature   float32
	Timeout       time.Duration
	RetryAttempts int
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		Model:         openai.GPT4o,
		MaxTokens:     4096,
		Temperature:   0.7,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
	}
}

// completionClient is the slice of the OpenAI client the gateway uses.
// *openai.Client satisfies it; tests substitute a double.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Gateway wraps the external reasoning service: it builds the analysis
// prompt, issues the call under a timeout with bounded retries, and parses
// the response into a Recommendation.
//
// Analyze has exactly two hard failure modes, ErrGatewayTimeout and
// ErrGatewayFailure, both raised only after every attempt is exhausted. A
// response that comes back but cannot be parsed is never an error; it is
// downgraded to the fixed fallback recommendation so the caller still gets
// something usable.
type Gateway struct {
	client completionClient
	cfg    Config
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithSleeper overrides the backoff delay. Test hook.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gateway) {
		g.sleep = sleep
	}
}

// New constructs a gateway over an existing completion client.
func New(client completionClient, cfg Config, opts ...Option) (*Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	g := &Gateway{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
		sleep:  sleepCtx,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// NewFromAPIKey constructs a gateway with a real OpenAI client.
func NewFromAPIKey(apiKey string, cfg Config, opts ...Option) (*Gateway, error) {
	return New(openai.NewClient(apiKey), cfg, opts...)
}

// Analyze sends the situation to the reasoning service and returns the
// structured recommendation.
func (g *Gateway) Analyze(ctx context.Context, situation string, childAge int, childGender, extraContext string) (*models.Recommendation, error) {
	prompt := buildPrompt(situation, childAge, childGender, extraContext)

	req := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var lastErr error
	var timedOut bool
	for attempt := 0; attempt < g.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			// 2^attempt seconds between attempts, without blocking the
			// scheduler; an expired parent context aborts the wait.
			if err := g.sleep(ctx, time.Duration(1<<attempt)*time.Second); err != nil {
				return nil, fmt.Errorf("%w: %v", sentinel.ErrGatewayFailure, err)
			}
		}

		raw, err := g.call(ctx, req)
		if err == nil {
			return g.parse(raw), nil
		}

		lastErr = err
		timedOut = errors.Is(err, context.DeadlineExceeded)
		g.logger.WarnContext(ctx, "reasoning service call failed",
			"attempt", attempt+1,
			"max_attempts", g.cfg.RetryAttempts,
			"timeout", timedOut,
			"error", err,
		)
	}

	if timedOut {
		return nil, fmt.Errorf("%w after %d attempts: %v", sentinel.ErrGatewayTimeout, g.cfg.RetryAttempts, lastErr)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", sentinel.ErrGatewayFailure, g.cfg.RetryAttempts, lastErr)
}

// call issues one attempt under the configured timeout.
func (g *Gateway) call(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(attemptCtx, req)
	callDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
