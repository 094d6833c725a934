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

	"github.com/sells-group/rumoo/internal/api"
	"github.com/sells-group/rumoo/internal/maintenance"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the maintenance sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		sweeper := maintenance.NewSweeper(env.Store, cfg.Maintenance)
		stopSweeper, err := sweeper.Schedule(ctx, cfg.Maintenance.Schedule)
		if err != nil {
			return err
		}
		defer stopSweeper()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", resolvePort()),
			Handler:           api.NewRouter(api.NewHandler(apiDeps(env)), api.RouterConfig{CORSOrigins: cfg.Server.CORSOrigins, Gatherer: env.Registry}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func resolvePort() int {
	if servePort != 0 {
		return servePort
	}
	return cfg.Server.Port
}

func apiDeps(env *appEnv) api.Deps {
	checks := []api.HealthCheck{{Name: "store", Check: env.Store.Ping}}
	if env.Redis != nil {
		checks = append(checks, api.HealthCheck{Name: "redis", Check: env.Redis.Health})
	}
	return api.Deps{
		Ingestor:     env.Router,
		Confirmer:    env.Confirmer,
		Responder:    env.Responder,
		Spaces:       env.Spaces,
		Certifier:    env.Pipeline,
		Certificates: env.Store,
		Checks:       checks,
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
