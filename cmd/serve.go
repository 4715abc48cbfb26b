package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/api"
)

var servePort int

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the planning and review HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := newServer(env)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("serve: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("serve: shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("serve: starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("bundle_version", env.Bundle.Version()),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newServer(env *engineEnv) *http.Server {
	handler := api.NewHandler(env.Service, api.Config{
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
