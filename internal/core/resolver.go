package core

import (
	"context"
	"errors"

	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
	"github.com/ItsOuaail/ai-chatbot-project/internal/metrics"
)

// ResponseResolver turns a user message into reply text. It picks demo or live
// mode, consults the response cache, and substitutes a fixed fallback sentence
// for any provider failure.
type ResponseResolver struct {
	demoMode bool
	cache    ResponseCache
	history  *ContextAssembler
	provider Provider
}

// NewResponseResolver wires the pipeline. provider may be nil in demo mode.
func NewResponseResolver(demoMode bool, cache ResponseCache, history *ContextAssembler, provider Provider) *ResponseResolver {
	if cache == nil {
		cache = NewMemoryCache(DefaultCacheTTL, 0)
	}
	if history == nil {
		history = NewContextAssembler(nil)
	}
	return &ResponseResolver{
		demoMode: demoMode,
		cache:    cache,
		history:  history,
		provider: provider,
	}
}

func (r *ResponseResolver) DemoMode() bool {
	return r.demoMode
}

// Resolve never fails: the caller always gets a generated, cached, canned or
// fallback reply. ref may be nil for a standalone turn.
func (r *ResponseResolver) Resolve(ctx context.Context, message string, ref *ConversationRef) string {
	reply, _ := r.resolve(ctx, message, ref)
	return reply
}

// resolve also reports the provider failure behind a fallback reply, for
// callers that must not persist fallback text as if it were generated.
func (r *ResponseResolver) resolve(ctx context.Context, message string, ref *ConversationRef) (string, error) {
	logger := logging.FromCtx(ctx)

	if r.demoMode {
		metrics.Resolutions.WithLabelValues("demo").Inc()
		return DemoReply(message), nil
	}

	history := r.history.Fetch(ctx, ref)
	key := Fingerprint(message, history)

	cached, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("response cache lookup failed, treating as miss")
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		metrics.Resolutions.WithLabelValues("cache").Inc()
		logger.Info().Str("key", key).Msg("returning cached response")
		return cached, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	if r.provider == nil {
		return r.fallback(ctx, &ProviderError{Category: FailureUnknown, Err: ErrMissingCredential})
	}

	reply, err := r.provider.Generate(ctx, message, history)
	if err != nil {
		return r.fallback(ctx, err)
	}

	// Cache the reply even if the caller has gone away.
	if err := r.cache.Set(context.WithoutCancel(ctx), key, reply); err != nil {
		logger.Warn().Err(err).Msg("failed to cache response")
	}

	metrics.Resolutions.WithLabelValues("provider").Inc()
	logger.Info().Int("context_turns", len(history)).Msg("generated provider response")
	return reply, nil
}

func (r *ResponseResolver) fallback(ctx context.Context, err error) (string, error) {
	category := failureCategory(err)
	metrics.Fallbacks.WithLabelValues(string(category)).Inc()
	metrics.Resolutions.WithLabelValues("fallback").Inc()
	logging.FromCtx(ctx).Error().Err(err).Str("category", string(category)).Msg("provider call failed, serving fallback reply")
	return FallbackReply(category), err
}

func failureCategory(err error) FailureCategory {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Category != "" {
		return perr.Category
	}
	return ClassifyFailure(err.Error())
}
