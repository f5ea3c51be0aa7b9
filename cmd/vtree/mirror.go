package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	verrors "github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/watch"
)

func mirrorCmd(g *globals) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "mirror URL",
		Short: "Follow a watch server into a local live tree",
		Long: `Connect to the /ws endpoint of a vtree watch server and apply every
frame it sends to an in-memory live tree. When the stream ends the
live tree is printed as HTML.

Examples:
  vtree mirror ws://localhost:7070/ws
  vtree mirror --for=30s ws://localhost:7070/ws`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			m, err := watch.Dial(ctx, args[0], g.logger, g.cfg.DOMOptions(nil, nil)...)
			if err != nil {
				return verrors.New(verrors.ECodeMirrorFailed).Wrap(err)
			}
			defer m.Close()

			err = m.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return verrors.New(verrors.ECodeMirrorFailed).Wrap(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, m.HTML())
			success(out, "Mirrored up to seq %d", m.Seq())
			info(out, "%d snapshots, %d resyncs", m.Snapshots(), m.Resyncs())
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (default: until the server closes)")

	return cmd
}
