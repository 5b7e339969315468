package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ItsOuaail/ai-chatbot-project/internal/metrics"
)

const (
	DefaultModelName       = "gemini-1.5-flash"
	DefaultProviderTimeout = 10 * time.Second

	roleUser  = "user"
	roleModel = "model"
)

// ErrMissingCredential is returned when live mode is configured without an API key.
var ErrMissingCredential = errors.New("GEMINI_API_KEY is required when demo mode is off")

// Provider generates a reply for message given the prior turns, oldest first.
type Provider interface {
	Generate(ctx context.Context, message string, history []Turn) (string, error)
}

// ProviderError is a failed generation attempt with its classified category.
type ProviderError struct {
	Category FailureCategory
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failure: %v", e.Category, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// GenerationParams are the sampling settings sent with every chat request.
type GenerationParams struct {
	Temperature     float32
	MaxOutputTokens int32
	TopP            float32
	TopK            int32
}

var DefaultGenerationParams = GenerationParams{
	Temperature:     0.7,
	MaxOutputTokens: 1500,
	TopP:            0.8,
	TopK:            40,
}

// generateFunc sends one request: history as prior contents and message as
// the final user turn.
type generateFunc func(ctx context.Context, history []*genai.Content, message string) (*genai.GenerateContentResponse, error)

// GeminiProvider makes exactly one request per Generate call under a fixed
// timeout. There is no retry.
type GeminiProvider struct {
	client   *genai.Client
	generate generateFunc
	timeout  time.Duration
}

// NewGeminiProvider creates the SDK client. An empty apiKey is rejected here so
// live mode fails at startup rather than on the first chat message.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, timeout time.Duration, params GenerationParams) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if modelName == "" {
		modelName = DefaultModelName
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      &params.Temperature,
		MaxOutputTokens:  &params.MaxOutputTokens,
		TopP:             &params.TopP,
		TopK:             &params.TopK,
		ResponseMIMEType: "text/plain",
	}

	generate := func(ctx context.Context, history []*genai.Content, message string) (*genai.GenerateContentResponse, error) {
		session := model.StartChat()
		session.History = history
		return session.SendMessage(ctx, genai.Text(message))
	}

	return newGeminiProvider(generate, timeout, client), nil
}

func newGeminiProvider(generate generateFunc, timeout time.Duration, client *genai.Client) *GeminiProvider {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &GeminiProvider{client: client, generate: generate, timeout: timeout}
}

func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, message string, history []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.generate(ctx, buildContents(history), message)
	metrics.ProviderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", classifyProviderError(ctx, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", &ProviderError{Category: FailureUnknown, Err: err}
	}
	return text, nil
}

func buildContents(history []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		role := roleModel
		if turn.IsHuman {
			role = roleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}
	return contents
}

// responseText returns the text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content in response candidate")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", errors.New("empty text in response candidate")
	}
	return text.String(), nil
}

func classifyProviderError(ctx context.Context, err error) *ProviderError {
	var blocked *genai.BlockedError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ProviderError{Category: FailureTimeout, Err: err}
	case errors.As(err, &blocked):
		return &ProviderError{Category: FailureSafety, Err: err}
	default:
		return &ProviderError{Category: ClassifyFailure(err.Error()), Err: err}
	}
}
