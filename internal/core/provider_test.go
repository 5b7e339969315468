package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: roleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeminiProvider_Generate(t *testing.T) {
	var gotHistory []*genai.Content
	var gotMessage string
	p := newGeminiProvider(func(_ context.Context, history []*genai.Content, message string) (*genai.GenerateContentResponse, error) {
		gotHistory, gotMessage = history, message
		return textResponse("Go is ", "a language."), nil
	}, time.Second, nil)

	reply, err := p.Generate(context.Background(), "What is Go?", []Turn{
		{Text: "hi", IsHuman: true},
		{Text: "hello", IsHuman: false},
		{Text: "quick question", IsHuman: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", reply)
	assert.Equal(t, "What is Go?", gotMessage)

	require.Len(t, gotHistory, 3)
	assert.Equal(t, "user", gotHistory[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("hi")}, gotHistory[0].Parts)
	assert.Equal(t, "model", gotHistory[1].Role)
	assert.Equal(t, "user", gotHistory[2].Role)
	assert.Equal(t, []genai.Part{genai.Text("quick question")}, gotHistory[2].Parts)
}

func TestGeminiProvider_Timeout(t *testing.T) {
	p := newGeminiProvider(func(ctx context.Context, _ []*genai.Content, _ string) (*genai.GenerateContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := p.Generate(context.Background(), "slow", nil)
	assert.Less(t, time.Since(start), time.Second)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, FailureTimeout, perr.Category)
}

func TestGeminiProvider_Failures(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		err  error
		want FailureCategory
	}{
		{"blocked", nil, fmt.Errorf("send: %w", &genai.BlockedError{}), FailureSafety},
		{"auth", nil, errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key."), FailureAuth},
		{"quota", nil, errors.New("googleapi: Error 429: Quota exceeded"), FailureQuota},
		{"other", nil, errors.New("connection refused"), FailureUnknown},
		{"no candidates", &genai.GenerateContentResponse{}, nil, FailureUnknown},
		{"empty text", textResponse("  "), nil, FailureUnknown},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, nil, FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newGeminiProvider(func(context.Context, []*genai.Content, string) (*genai.GenerateContentResponse, error) {
				return tt.resp, tt.err
			}, time.Second, nil)

			reply, err := p.Generate(context.Background(), "msg", nil)
			assert.Empty(t, reply)

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.want, perr.Category)
		})
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "", time.Second, DefaultGenerationParams)
	assert.ErrorIs(t, err, ErrMissingCredential)
}
