package main

import (
	"context"
	"fmt"

	"github.com/ItsOuaail/ai-chatbot-project/internal/config"
	"github.com/ItsOuaail/ai-chatbot-project/internal/core"
	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
	"github.com/ItsOuaail/ai-chatbot-project/internal/store"
)

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		return store.NewSQLiteStore(ctx, cfg.DatabaseURL)
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
}

// pipeline is the resolution stack plus whatever needs closing on shutdown.
type pipeline struct {
	resolver *core.ResponseResolver
	redis    *core.RedisCache
	provider *core.GeminiProvider
}

func (p *pipeline) Close() {
	if p.provider != nil {
		p.provider.Close()
	}
	if p.redis != nil {
		p.redis.Close()
	}
}

// newPipeline builds the response resolver. history may be nil for one-shot use.
func newPipeline(ctx context.Context, cfg *config.Config, history core.RecentMessageReader) (*pipeline, error) {
	logger := logging.FromCtx(ctx)
	p := &pipeline{}

	var cache core.ResponseCache
	if cfg.RedisURL != "" {
		redisCache, err := core.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		p.redis = redisCache
		cache = redisCache
		logger.Info().Dur("ttl", cfg.CacheTTL).Msg("using redis response cache")
	} else {
		cache = core.NewMemoryCache(cfg.CacheTTL, cfg.CacheMaxEntries)
		logger.Info().Dur("ttl", cfg.CacheTTL).Int("max_entries", cfg.CacheMaxEntries).Msg("using in-memory response cache")
	}

	var provider core.Provider
	if cfg.DemoMode {
		logger.Warn().Msg("demo mode enabled, replies are canned and the provider is never called")
	} else {
		gemini, err := core.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ProviderTimeout, core.DefaultGenerationParams)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to initialize provider: %w", err)
		}
		p.provider = gemini
		provider = gemini
		logger.Info().Str("model", cfg.GeminiModel).Dur("timeout", cfg.ProviderTimeout).Msg("gemini provider ready")
	}

	var assembler *core.ContextAssembler
	if history != nil {
		assembler = core.NewContextAssembler(history)
	}
	p.resolver = core.NewResponseResolver(cfg.DemoMode, cache, assembler, provider)
	return p, nil
}
