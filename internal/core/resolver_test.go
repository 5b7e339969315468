package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_DemoMode(t *testing.T) {
	provider := replyWith("live")
	cache := NewMemoryCache(time.Minute, 0)
	r := NewResponseResolver(true, cache, nil, provider)

	ctx := context.Background()
	assert.Equal(t, "Hello! How can I help you today? (Demo Mode)", r.Resolve(ctx, "hello", nil))
	assert.Equal(t, r.Resolve(ctx, "anything", nil), r.Resolve(ctx, "anything", nil))
	assert.Zero(t, provider.calls())
	assert.Zero(t, cache.Len())
}

func TestResolver_CachesProviderReply(t *testing.T) {
	provider := replyWith("Go is a programming language.")
	r := NewResponseResolver(false, NewMemoryCache(time.Minute, 0), nil, provider)

	ctx := context.Background()
	first := r.Resolve(ctx, "What is Go?", nil)
	second := r.Resolve(ctx, "What is Go?", nil)

	assert.Equal(t, "Go is a programming language.", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls())

	r.Resolve(ctx, "What is Rust?", nil)
	assert.Equal(t, 2, provider.calls())
}

func TestResolver_CacheExpiry(t *testing.T) {
	provider := replyWith("reply")
	r := NewResponseResolver(false, NewMemoryCache(30*time.Millisecond, 0), nil, provider)

	ctx := context.Background()
	r.Resolve(ctx, "hi", nil)
	time.Sleep(60 * time.Millisecond)
	r.Resolve(ctx, "hi", nil)

	assert.Equal(t, 2, provider.calls())
}

func TestResolver_CacheKeyIncludesHistory(t *testing.T) {
	provider := replyWith("reply")
	history := &recentMessages{owner: 1, messages: messagesFrom("earlier")}
	r := NewResponseResolver(false, NewMemoryCache(time.Minute, 0), NewContextAssembler(history), provider)

	ctx := context.Background()
	r.Resolve(ctx, "same", nil)
	r.Resolve(ctx, "same", &ConversationRef{ID: "c1", OwnerID: 1})
	r.Resolve(ctx, "same", &ConversationRef{ID: "c1", OwnerID: 1})

	assert.Equal(t, 2, provider.calls())
}

func TestResolver_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureCategory
	}{
		{"auth", &ProviderError{Category: FailureAuth, Err: errors.New("x")}, FailureAuth},
		{"quota", &ProviderError{Category: FailureQuota, Err: errors.New("x")}, FailureQuota},
		{"safety", &ProviderError{Category: FailureSafety, Err: errors.New("x")}, FailureSafety},
		{"timeout", &ProviderError{Category: FailureTimeout, Err: errors.New("x")}, FailureTimeout},
		{"unknown", &ProviderError{Category: FailureUnknown, Err: errors.New("x")}, FailureUnknown},
		{"unwrapped text", errors.New("rate limit hit"), FailureQuota},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewMemoryCache(time.Minute, 0)
			r := NewResponseResolver(false, cache, nil, failWith(tt.err))

			reply := r.Resolve(context.Background(), "question", nil)
			assert.Equal(t, FallbackReply(tt.want), reply)
			assert.NotEmpty(t, reply)
			assert.Zero(t, cache.Len(), "fallbacks are never cached")
		})
	}
}

func TestResolver_TimeoutNotCached(t *testing.T) {
	calls := 0
	p := newGeminiProvider(func(ctx context.Context, _ []*genai.Content, _ string) (*genai.GenerateContentResponse, error) {
		calls++
		<-ctx.Done()
		return nil, ctx.Err()
	}, 10*time.Millisecond, nil)
	cache := NewMemoryCache(time.Minute, 0)
	r := NewResponseResolver(false, cache, nil, p)

	reply := r.Resolve(context.Background(), "slow question", nil)
	assert.Equal(t, "I'm taking longer than usual to respond. Please try again.", reply)
	assert.Zero(t, cache.Len())

	r.Resolve(context.Background(), "slow question", nil)
	assert.Equal(t, 2, calls)
}

func TestResolver_MissingProvider(t *testing.T) {
	r := NewResponseResolver(false, nil, nil, nil)

	reply, err := r.resolve(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, FallbackReply(FailureUnknown), reply)
}

func TestResolver_CacheFailureIsMiss(t *testing.T) {
	provider := replyWith("fresh")
	r := NewResponseResolver(false, brokenCache{}, nil, provider)

	assert.Equal(t, "fresh", r.Resolve(context.Background(), "hi", nil))
	assert.Equal(t, "fresh", r.Resolve(context.Background(), "hi", nil))
	assert.Equal(t, 2, provider.calls())
}

func TestResolver_CachesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{respond: func(string, []Turn) (string, error) {
		cancel()
		return "late reply", nil
	}}
	cache := NewMemoryCache(time.Minute, 0)
	r := NewResponseResolver(false, cache, nil, provider)

	require.Equal(t, "late reply", r.Resolve(ctx, "hi", nil))
	assert.Equal(t, 1, cache.Len())
}
