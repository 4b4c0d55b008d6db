package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"plotpact/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	var metricsAddr string
	var purgeEvery time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(metricsAddr, purgeEvery)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")
	cmd.Flags().DurationVar(&purgeEvery, "purge-interval", time.Hour, "How often expired sessions are purged (0 disables)")
	return cmd
}

func runServe(metricsAddr string, purgeEvery time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: a.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("serving metrics", slog.String("addr", metricsAddr))
	}

	if purgeEvery > 0 {
		go purgeLoop(ctx, a, purgeEvery)
	}

	server := mcp.NewServer(a.stories, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}

func purgeLoop(ctx context.Context, a *app, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.stories.Purge(ctx); err != nil {
				a.logger.Warn("purging expired sessions", slog.String("error", err.Error()))
			}
		}
	}
}
