package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ItsOuaail/ai-chatbot-project/internal/config"
	"github.com/ItsOuaail/ai-chatbot-project/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "chatbot",
	Short:         "AI chatbot backend",
	Long:          `Conversational chat backend answering through Gemini, with demo mode, response caching and conversation history.`,
	SilenceUsage:  true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and returns a context carrying the process logger.
func setup(ctx context.Context) (context.Context, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, nil, zerolog.Nop(), err
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	return logging.WithLogger(ctx, logger), cfg, logger, nil
}
