package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/dom/memdom"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func applyCmd(g *globals) *cobra.Command {
	var (
		asHTML bool
		quiet  bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "apply OLD NEW",
		Short: "Apply the diff of two trees to an in-memory live tree",
		Long: `Mount OLD as a live tree, diff it against NEW and apply the patches.

The result is checked against a tree built directly from NEW, then
printed with its listener count and timings. The command fails if the
live tree did not converge or the listener registry went out of step.

Examples:
  vtree apply old.html new.html
  vtree apply --html old.yaml new.yaml
  vtree apply --strict old.json new.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("strict") {
				g.cfg.Apply.StrictRegistry = strict
			}
			old, err := loadTree(args[0])
			if err != nil {
				return err
			}
			next, err := loadTree(args[1])
			if err != nil {
				return err
			}
			res, err := applyTrees(cmd, g, old, next)
			if err != nil {
				return err
			}
			if !quiet {
				res.print(cmd.OutOrStdout(), asHTML)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "Print the live tree as HTML instead of a tree dump")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report failures")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on listener registry inconsistencies (default from vtree.json)")

	return cmd
}

// applyResult is the live tree left by applyTrees.
type applyResult struct {
	doc       *memdom.Document
	updater   *dom.Updater
	patches   int
	listeners int
}

func (r *applyResult) print(w io.Writer, asHTML bool) {
	root := r.updater.Root()
	if asHTML {
		fmt.Fprintln(w, r.doc.HTML(root))
	} else {
		fmt.Fprint(w, r.doc.Dump(root))
	}
	m := r.updater.Measurements()
	success(w, "Applied %d patches in %s (diff %s, apply %s)", r.patches, m.Total, m.DiffDuration, m.ApplyDuration)
	info(w, "%d nodes, %d listeners", m.NodeCount, r.listeners)
	if f := r.doc.Focused(); f != nil {
		info(w, "focus: <%s>", f.Tag())
	}
}

// applyTrees mounts old in a fresh memdom document, updates it to next and
// checks the live tree against a direct build of next.
func applyTrees(cmd *cobra.Command, g *globals, old, next *vdom.Node) (*applyResult, error) {
	ctx := cmd.Context()
	doc := memdom.New()
	updater := dom.NewUpdater(doc, old, g.cfg.DOMOptions(g.logger, nil)...)
	if err := updater.Mount(ctx, doc.Body(), false); err != nil {
		return nil, errors.Classify(err)
	}

	n, err := updater.Update(ctx, next)
	if err != nil {
		return nil, errors.Classify(err)
	}

	expected := memdom.New()
	want, _, err := expected.Materialize(next)
	if err != nil {
		return nil, errors.Classify(err)
	}
	got := updater.Root()
	if doc.HTML(got) != expected.HTML(want) {
		return nil, errors.New(errors.ECodeNotConverged).
			WithDetail(fmt.Sprintf("live tree:\n%s\nexpected:\n%s", doc.HTML(got), expected.HTML(want)))
	}

	stats := doc.Stats(got)
	if stats.Listeners != updater.ListenerCount() {
		warn(cmd.ErrOrStderr(), "registry holds %d listeners, live tree has %d", updater.ListenerCount(), stats.Listeners)
		if g.cfg.Apply.StrictRegistry {
			return nil, errors.New(errors.ECodeRegistryInconsistency).
				WithDetail(fmt.Sprintf("registry holds %d listeners, live tree has %d", updater.ListenerCount(), stats.Listeners))
		}
	}

	return &applyResult{doc: doc, updater: updater, patches: n, listeners: stats.Listeners}, nil
}
