package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ItsOuaail/ai-chatbot-project/internal/api"
	"github.com/ItsOuaail/ai-chatbot-project/internal/auth"
	"github.com/ItsOuaail/ai-chatbot-project/internal/core"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ctx, cfg, logger, err := setup(ctx)
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}

		db, err := openStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		p, err := newPipeline(ctx, cfg, db)
		if err != nil {
			return err
		}
		defer p.Close()

		chat := core.NewChatService(db, p.resolver, core.NewConversationTitler(db, p.resolver))
		defer chat.Close()

		checks := map[string]api.Pinger{"database": db}
		if p.redis != nil {
			checks["cache"] = p.redis
		}
		handler := api.NewHandler(chat, core.NewAccountService(db), auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), checks)

		srv := &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      api.NewRouter(logger, handler, cfg.CORSOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", srv.Addr).Bool("demo_mode", cfg.DemoMode).Msg("starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
			}
		case <-ctx.Done():
		}
		logger.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info().Msg("server exited gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
