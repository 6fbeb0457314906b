package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"brokeometer/internal/core"
	"brokeometer/internal/log"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

// GeminiGenerator asks a Gemini model through the Gemini Developer API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *log.Logger
}

var _ Generator = (*GeminiGenerator)(nil)

type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at another API host.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(cc *genai.ClientConfig) { cc.HTTPOptions.BaseURL = url }
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration, logger *log.Logger, opts ...GeminiOption) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.FromContext(ctx)
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentInsight),
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, expenses []core.Expense, b core.UserBudget, period string) string {
	prompt, err := BuildPrompt(expenses, b, period)
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to build insight prompt", log.FieldError, err)
		return FallbackText
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.complete(ctx, prompt)
	if err != nil {
		g.logger.ErrorContext(ctx, "Error generating insights",
			log.NewFields().
				WithOperation(log.OpGenerate).
				WithError(err).
				ToSlice()...)
		return FallbackText
	}

	g.logger.InfoContext(ctx, "Insight generated",
		log.FieldOperation, log.OpGenerate,
		log.FieldPeriod, period,
		"model", g.model,
		log.FieldDuration, time.Since(start).Milliseconds(),
		"chars", len(text))

	if strings.TrimSpace(text) == "" {
		return EmptyText
	}
	return text
}

func (g *GeminiGenerator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	return resp.Text(), nil
}
