package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/google/uuid"

	"github.com/paes-prep/backend/internal/models"
)

// LLMClient is the interface every provider implementation satisfies.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Provider modes accepted by NewLLMClient.
const (
	ModeAPI    = "api"
	ModeOpenAI = "openai"
	ModeGemini = "gemini"
	ModeCLI    = "cli"
	ModeMock   = "mock"
)

// Config selects and configures the provider behind a Generator.
type Config struct {
	Mode          string
	Model         string
	APIKey        string
	BaseURL       string
	CLIPath       string
	MaxAttempts   int
	RetryBaseWait time.Duration
}

var defaultModels = map[string]string{
	ModeAPI:    "claude-sonnet-4-5",
	ModeOpenAI: "gpt-4o-mini",
	ModeGemini: "gemini-2.0-flash",
	ModeCLI:    "claude-cli",
	ModeMock:   "mock",
}

// NewLLMClient builds the provider named by cfg.Mode and returns it with the
// resolved model name.
func NewLLMClient(ctx context.Context, cfg Config, log *slog.Logger) (LLMClient, string, error) {
	if log == nil {
		log = slog.Default()
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeMock
	}
	model := cfg.Model
	if model == "" {
		model = defaultModels[mode]
	}

	var llm LLMClient
	switch mode {
	case ModeAPI:
		llm = NewAPIClient(model, cfg.APIKey, cfg.MaxAttempts, cfg.RetryBaseWait, log)
	case ModeOpenAI:
		c, err := NewOpenAIClient(model, cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, "", err
		}
		llm = c
	case ModeGemini:
		c, err := NewGeminiClient(ctx, model, cfg.APIKey)
		if err != nil {
			return nil, "", err
		}
		llm = c
	case ModeCLI:
		path := cfg.CLIPath
		if path == "" {
			path = "claude"
		}
		llm = NewCLIClient(path)
	case ModeMock:
		llm = NewMockClient()
	default:
		return nil, "", fmt.Errorf("unknown generator mode %q", cfg.Mode)
	}

	log.Info("question generator configured", "mode", mode, "model", model)
	return llm, model, nil
}

// Generator turns single-slot generation requests into validated questions.
type Generator struct {
	llm   LLMClient
	model string
	log   *slog.Logger
}

func NewGenerator(llm LLMClient, model string, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{llm: llm, model: model, log: log}
}

func (g *Generator) ModelName() string {
	return g.model
}

// GenerateQuestion asks the provider for one question. Any provider, parse
// or validation failure is returned so the caller can substitute a template.
func (g *Generator) GenerateQuestion(ctx context.Context, subject models.Subject, skill models.Skill, difficulty models.Difficulty, userCtx *models.UserContext) (models.Question, error) {
	resp, err := g.llm.Generate(ctx, SystemPrompt(subject), BuildQuestionPrompt(subject, skill, difficulty, userCtx))
	if err != nil {
		return models.Question{}, fmt.Errorf("generate %s question: %w", subject, err)
	}

	gq, err := ParseQuestion(resp.Content)
	if err != nil {
		return models.Question{}, fmt.Errorf("parse %s question: %w", subject, err)
	}

	quality := ComputeStructuralScore(*gq)
	switch ClassifyQuality(quality.Score()) {
	case QualityReject:
		return models.Question{}, &ValidationError{Errors: quality.Failures()}
	case QualityFlagged:
		g.log.Warn("generated question flagged", "subject", subject, "skill", skill, "issues", quality.Failures())
	}

	q := models.Question{
		ID:            uuid.NewString(),
		Prompt:        strings.TrimSpace(gq.Prompt),
		Options:       gq.Options,
		CorrectAnswer: gq.CorrectAnswer,
		Explanation:   strings.TrimSpace(gq.Explanation),
		Difficulty:    difficulty,
		Skill:         skill,
		Subject:       subject,
		Provenance: models.Provenance{
			Source:       models.SourceGenerated,
			CostEstimate: EstimateCostCents(g.model, resp.PromptTokens, resp.OutputTokens),
		},
	}
	if err := q.Validate(); err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// ── APIClient: Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client      *anthropic.Client
	model       string
	maxAttempts int
	baseWait    time.Duration
	log         *slog.Logger
}

func NewAPIClient(model, apiKey string, maxAttempts int, baseWait time.Duration, log *slog.Logger) *APIClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	if baseWait <= 0 {
		baseWait = time.Second
	}
	return &APIClient{client: &client, model: model, maxAttempts: maxAttempts, baseWait: baseWait, log: log}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   2048,
		Temperature: param.NewOpt(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.baseWait * time.Duration(1<<uint(attempt))
			c.log.Info("retrying anthropic call", "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.log.Warn("anthropic call failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient: Local Development ─────────────────────────

// MockClient returns a well-formed question for every call.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &LLMResponse{
		Content:      mockQuestionJSON,
		PromptTokens: 600,
		OutputTokens: 400,
	}, nil
}

const mockQuestionJSON = `{
  "prompt": "[Mock] Un estudiante resuelve 12 ejercicios en 3 días manteniendo el mismo ritmo diario. ¿Cuántos ejercicios resolverá en 5 días?",
  "options": ["15", "18", "20", "24"],
  "correct_answer": "20",
  "explanation": "[Mock] El ritmo es 12 / 3 = 4 ejercicios por día, por lo que en 5 días resuelve 4 · 5 = 20."
}`
