package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RWTH-IAEW/cimpyorm/internal/application/cimorm"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored dataset over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := a.reportCache(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			ds, err := a.open(ctx, cimorm.WithReportCache(c, a.cfg.Cache.TTL))
			if err != nil {
				return err
			}
			defer ds.Close()

			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			engine, cleanup := router.NewEngine(ds, router.Options{
				HTTP:        a.cfg.HTTP,
				Export:      a.cfg.Export,
				Logger:      a.log,
				Metrics:     a.metrics,
				Tracing:     a.tracing,
				ServiceName: a.cfg.Tracing.ServiceName,
				Swagger:     a.cfg.HTTP.Swagger,
				Version:     Version,
			})
			defer cleanup()

			srv := &http.Server{
				Addr:           a.cfg.HTTP.Addr,
				Handler:        engine,
				ReadTimeout:    a.cfg.HTTP.ReadTimeout,
				WriteTimeout:   a.cfg.HTTP.WriteTimeout,
				IdleTimeout:    a.cfg.HTTP.IdleTimeout,
				MaxHeaderBytes: a.cfg.HTTP.MaxHeaderBytes,
			}
			return run(ctx, srv, a.log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// run serves srv until ctx is done, then shuts it down gracefully.
func run(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info("Server exited")
		return nil
	})
	return g.Wait()
}
