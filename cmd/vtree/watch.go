package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	verrors "github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/telemetry"
	"github.com/vango-dev/vtree/pkg/watch"
)

func watchCmd(g *globals) *cobra.Command {
	var (
		listen   string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Serve a tree file and stream its patches over WebSocket",
		Long: `Mount FILE as a live tree and re-diff it every time it is saved.

Followers connect to /ws and receive a snapshot followed by patch
frames. The server also exposes:

  /tree       the current tree as an HTML page
  /tree.json  the current tree as JSON
  /metrics    Prometheus metrics (unless disabled in vtree.json)
  /healthz    liveness check

Examples:
  vtree watch tree.html
  vtree watch --listen=0.0.0.0:8080 tree.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				g.cfg.Watch.Listen = listen
			}
			if debounce > 0 {
				g.cfg.Watch.Debounce = debounce.String()
			}
			if err := g.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", g.cfg.Watch.Listen)
			if err != nil {
				return verrors.New(verrors.ECodeWatchFailed).Wrap(err)
			}
			return runWatch(ctx, cmd, g, args[0], ln)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (default from vtree.json)")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before reloading (default from vtree.json)")

	return cmd
}

// runWatch serves path on ln until ctx is done.
func runWatch(ctx context.Context, cmd *cobra.Command, g *globals, path string, ln net.Listener) error {
	var (
		metrics  *telemetry.Metrics
		gatherer prometheus.Gatherer
	)
	if g.cfg.MetricsEnabled() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = telemetry.NewMetrics(telemetry.WithRegistry(reg))
		gatherer = reg
	}

	hub := watch.NewHub(g.cfg.WatchHubConfig(g.logger, metrics))
	src, err := watch.Open(ctx, path, hub, watch.SourceConfig{
		Debounce: g.cfg.Debounce(),
		Logger:   g.logger,
		Options:  g.cfg.DOMOptions(nil, metrics),
	})
	if err != nil {
		ln.Close()
		return verrors.ForFile(path, err)
	}

	srv := &http.Server{
		Handler:           watch.NewServer(hub, gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	out := cmd.OutOrStdout()
	printBanner(out)
	fmt.Fprintln(out, "  watch")
	fmt.Fprintln(out)
	base := "http://" + ln.Addr().String()
	success(out, "Serving %s", path)
	info(out, "Tree:      %s/tree", base)
	info(out, "WebSocket: ws://%s/ws", ln.Addr())
	if gatherer != nil {
		info(out, "Metrics:   %s/metrics", base)
	}
	fmt.Fprintln(out)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return verrors.New(verrors.ECodeWatchFailed).Wrap(err)
		}
		return nil
	})
	eg.Go(func() error {
		err := src.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		<-ctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = eg.Wait()
	fmt.Fprintln(out, "\n  Shutting down...")
	return err
}
