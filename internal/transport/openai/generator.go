package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/newsrag/internal/domain"
	"github.com/kailas-cloud/newsrag/internal/metrics"
)

// GeneratorConfig holds chat completion settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Generator produces completions via the OpenAI chat completions API.
type Generator struct {
	client *openai.Client
	cfg    GeneratorConfig
}

// NewGenerator creates an OpenAI-compatible chat client.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}
}

// Generate sends the prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("openai", g.cfg.Model, "error").Inc()
		return domain.Generation{}, fmt.Errorf("openai request: %v: %w", err, domain.ErrGenerationFailure)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues("openai", g.cfg.Model, "error").Inc()
		return domain.Generation{}, fmt.Errorf("no choices in response: %w", domain.ErrGenerationFailure)
	}

	metrics.LLMRequestsTotal.WithLabelValues("openai", g.cfg.Model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues("openai", g.cfg.Model).Observe(duration.Seconds())
	metrics.LLMTokensTotal.WithLabelValues("openai", g.cfg.Model, "input").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues("openai", g.cfg.Model, "output").Add(float64(resp.Usage.CompletionTokens))

	return domain.Generation{
		Content:      strings.TrimSpace(resp.Choices[0].Message.Content),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Cost:         domain.EstimateLLMCost(g.cfg.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}, nil
}
