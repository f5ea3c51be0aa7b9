package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/render"
	"github.com/vango-dev/vtree/pkg/treejson"
	"github.com/vango-dev/vtree/pkg/vdom"
)

type diffOptions struct {
	format string
	where  string
	text   bool
	verify bool
}

func diffCmd(g *globals) *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "diff OLD NEW [OLD NEW...]",
		Short: "Print the patches that turn one tree into another",
		Long: `Print the patch list that turns OLD into NEW.

Several pairs may be given; they are diffed in parallel and printed
in order. Paths are positions in the old tree, starting at the root
wrapper index [0].

Formats:
  text       one patch per line (default from vtree.json)
  json       the patch list as JSON
  jsonpatch  an RFC 6902 document against the JSON form of OLD
  binary     the wire frame (hex dump on a terminal)

Examples:
  vtree diff old.html new.html
  vtree diff --format=jsonpatch old.yaml new.yaml
  vtree diff --where 'op == "RemoveNode"' a.json b.json
  vtree diff --text old.html new.html`,
		Args: pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				opts.format = g.cfg.Diff.Format
			}
			return runDiff(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, jsonpatch or binary")
	cmd.Flags().StringVarP(&opts.where, "where", "w", "", "Only print patches matching this expression")
	cmd.Flags().BoolVarP(&opts.text, "text", "t", false, "Print a line diff of the rendered HTML instead of patches")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "With --format=jsonpatch, check the document turns OLD into NEW")

	return cmd
}

// pairArgs accepts one or more OLD NEW pairs.
func pairArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return errors.New(errors.ECodeBadArgs).
			WithDetail(fmt.Sprintf("%s takes OLD NEW file pairs, got %d arguments", cmd.Name(), len(args)))
	}
	return nil
}

// pairResult is the diff of one OLD NEW pair.
type pairResult struct {
	oldPath, newPath string
	old, new         *vdom.Node
	patches          []vdom.Patch
}

func runDiff(ctx context.Context, w io.Writer, args []string, opts diffOptions) error {
	filter, err := compileFilter(opts.where)
	if err != nil {
		return err
	}

	results := make([]pairResult, len(args)/2)
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := range results {
		i := i
		eg.Go(func() error {
			r := &results[i]
			r.oldPath, r.newPath = args[2*i], args[2*i+1]
			var err error
			if r.old, err = loadTree(r.oldPath); err != nil {
				return err
			}
			if r.new, err = loadTree(r.newPath); err != nil {
				return err
			}
			r.patches = vdom.Diff(r.old, r.new)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s %s → %s\n", color.New(color.Bold).Sprint("=="), r.oldPath, r.newPath)
		}
		if opts.text {
			if err := writeTextDiff(w, r.old, r.new); err != nil {
				return err
			}
			continue
		}
		patches, err := filter.apply(r.patches)
		if err != nil {
			return err
		}
		if err := writePatches(w, opts, r, patches); err != nil {
			return err
		}
	}
	return nil
}

// loadTree reads a tree file and turns failures into coded errors.
func loadTree(path string) (*vdom.Node, error) {
	n, err := treejson.Load(path)
	if err != nil {
		return nil, errors.ForFile(path, err)
	}
	return n, nil
}

func writePatches(w io.Writer, opts diffOptions, r pairResult, patches []vdom.Patch) error {
	switch opts.format {
	case "text":
		writePatchText(w, r, patches)
		return nil

	case "json":
		data, err := treejson.EncodePatches(patches)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case "jsonpatch":
		ops, err := treejson.JSONPatch(r.old, patches)
		if err != nil {
			return errors.New(errors.ECodeJSONPatch).Wrap(err)
		}
		if opts.verify {
			if err := treejson.VerifyJSONPatch(r.old, r.new, patches); err != nil {
				return errors.New(errors.ECodeNotConverged).Wrap(err)
			}
		}
		data, err := json.MarshalIndent(ops, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case "binary":
		frame := protocol.PatchesFrameOf(&protocol.PatchesFrame{Seq: 1, Patches: patches}).Encode()
		if isTerminal(w) {
			_, err := io.WriteString(w, hex.Dump(frame))
			return err
		}
		_, err := w.Write(frame)
		return err

	default:
		return errors.New(errors.ECodeBadArgs).
			WithDetail(fmt.Sprintf("unknown format %q, want text, json, jsonpatch or binary", opts.format))
	}
}

var opColors = map[vdom.PatchOp]*color.Color{
	vdom.PatchAddAttributes:    color.New(color.FgGreen),
	vdom.PatchAppendChildren:   color.New(color.FgGreen),
	vdom.PatchRemoveAttributes: color.New(color.FgRed),
	vdom.PatchRemoveNode:       color.New(color.FgRed),
	vdom.PatchReplaceNode:      color.New(color.FgYellow),
	vdom.PatchChangeText:       color.New(color.FgCyan),
}

func writePatchText(w io.Writer, r pairResult, patches []vdom.Patch) {
	for _, p := range patches {
		c, ok := opColors[p.Op]
		if !ok {
			c = color.New(color.Reset)
		}
		fmt.Fprintln(w, c.Sprint(p.String()))
	}
	summary := fmt.Sprintf("%d patches (%d → %d nodes)", len(patches), r.old.Count(), r.new.Count())
	if len(patches) == 0 {
		summary = "trees are equal"
	}
	fmt.Fprintln(w, color.New(color.FgHiBlack).Sprint(summary))
}

// writeTextDiff prints a line diff of the canonical HTML of both trees.
func writeTextDiff(w io.Writer, old, new *vdom.Node) error {
	renderer := render.NewRenderer(render.RendererConfig{Pretty: true, Canonical: true, Listeners: true, Keys: true})
	a, err := renderer.RenderToString(old)
	if err != nil {
		return err
	}
	b, err := renderer.RenderToString(new)
	if err != nil {
		return err
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				fmt.Fprintln(w, added.Sprint("+ "+line))
			case diffmatchpatch.DiffDelete:
				fmt.Fprintln(w, removed.Sprint("- "+line))
			default:
				fmt.Fprintln(w, "  "+line)
			}
		}
	}
	return nil
}
