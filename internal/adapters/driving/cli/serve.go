package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/federa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/federa/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/federa/internal/logger"
)

// DefaultAddr is the HTTP API listen address when none is configured.
const DefaultAddr = ":8080"

var (
	serveAddr    string
	serveWatch   bool
	serveTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the federation over a JSON HTTP API.

Endpoints:
  POST /v1/query        query with {"filter": {...}, "cursor": "..."}
  GET  /v1/items/{id}   look up one item by canonical id
  GET  /v1/sources      list configured sources
  GET  /healthz         liveness
  GET  /metrics         Prometheus metrics

With --watch the configuration file is reloaded when it changes. A reload
that fails to build keeps the previous sources active.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config or "+DefaultAddr+")")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the configuration file when it changes")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 60*time.Second, "per-request timeout (0 = none)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	svc, err := federationService(cmd)
	if err != nil {
		return err
	}

	opts := []httpapi.Option{httpapi.WithTimeout(serveTimeout)}
	addr := serveAddr
	if application != nil {
		opts = append(opts, httpapi.WithMetrics(promhttp.HandlerFor(application.Registry, promhttp.HandlerOpts{})))
		if addr == "" {
			addr, err = configuredAddr()
			if err != nil {
				return err
			}
		}
	}
	if addr == "" {
		addr = DefaultAddr
	}

	handler, err := httpapi.NewHandler(svc, opts...)
	if err != nil {
		return err
	}

	if !serveWatch {
		cmd.Printf("HTTP API listening on %s\n", addr)
		return httpapi.Serve(ctx, addr, handler.Routes())
	}

	if application == nil {
		return errNoApplication
	}
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	watcher := file.NewWatcher(path, application.ApplyFunc(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := watcher.Watch(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		cmd.Printf("HTTP API listening on %s\n", addr)
		return httpapi.Serve(gctx, addr, handler.Routes())
	})
	return g.Wait()
}

// configuredAddr reads server.addr from the config file.
func configuredAddr() (string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return "", err
	}
	cfg, err := file.Load(path)
	if err != nil {
		return "", fmt.Errorf("reading server address: %w", err)
	}
	if cfg.Server.Addr != "" {
		logger.Debug("Using configured address %s", cfg.Server.Addr)
	}
	return cfg.Server.Addr, nil
}
