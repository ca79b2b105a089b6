// Package anthropic implements chat generation against the Anthropic
// Messages API with a raw HTTP client.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/metrics"
)

const (
	messagesURL = "https://api.anthropic.com/v1/messages"
	apiVersion  = "2023-06-01"
)

// shared HTTP client for Anthropic API calls
var httpClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// rate limiter for Anthropic API calls (50 requests/second with burst capacity of 10)
var apiRateLimiter = rate.NewLimiter(50, 10)

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GeneratorConfig holds Messages API settings.
type GeneratorConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Generator produces completions via the Anthropic Messages API.
type Generator struct {
	cfg    GeneratorConfig
	client *http.Client
}

// NewGenerator creates an Anthropic chat client.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}

	client := httpClient
	if cfg.Timeout > 0 && cfg.Timeout != client.Timeout {
		c := *httpClient
		c.Timeout = cfg.Timeout
		client = &c
	}

	return &Generator{cfg: cfg, client: client}
}

// Generate sends the prompt as a single user message and returns the
// first text block of the response.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	reqBody := messagesRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("marshal request: %v: %w", err, domain.ErrGenerationFailure)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messagesURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return domain.Generation{}, fmt.Errorf("create request: %v: %w", err, domain.ErrGenerationFailure)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	// rate limiting
	if err := apiRateLimiter.Wait(ctx); err != nil {
		return domain.Generation{}, fmt.Errorf("rate limiter: %v: %w", err, domain.ErrGenerationFailure)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		g.record("error", duration)
		return domain.Generation{}, fmt.Errorf("anthropic request: %v: %w", err, domain.ErrGenerationFailure)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck
		g.record("error", duration)
		return domain.Generation{}, fmt.Errorf("anthropic API status %d: %s: %w",
			resp.StatusCode, string(body), domain.ErrGenerationFailure)
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		g.record("error", duration)
		return domain.Generation{}, fmt.Errorf("decode response: %v: %w", err, domain.ErrGenerationFailure)
	}

	if len(parsed.Content) == 0 {
		g.record("error", duration)
		return domain.Generation{}, fmt.Errorf("no content in response: %w", domain.ErrGenerationFailure)
	}

	g.record("success", duration)
	metrics.LLMTokensTotal.WithLabelValues("anthropic", g.cfg.Model, "input").Add(float64(parsed.Usage.InputTokens))
	metrics.LLMTokensTotal.WithLabelValues("anthropic", g.cfg.Model, "output").Add(float64(parsed.Usage.OutputTokens))

	return domain.Generation{
		Content:      strings.TrimSpace(parsed.Content[0].Text),
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		Cost:         domain.EstimateLLMCost(g.cfg.Model, parsed.Usage.InputTokens, parsed.Usage.OutputTokens),
	}, nil
}

func (g *Generator) record(status string, duration time.Duration) {
	metrics.LLMRequestsTotal.WithLabelValues("anthropic", g.cfg.Model, status).Inc()
	if status == "success" {
		metrics.LLMRequestDuration.WithLabelValues("anthropic", g.cfg.Model).Observe(duration.Seconds())
	}
}
