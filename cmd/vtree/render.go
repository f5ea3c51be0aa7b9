package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/dom/memdom"
	"github.com/vango-dev/vtree/pkg/render"
	"github.com/vango-dev/vtree/pkg/treejson"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func renderCmd(g *globals) *cobra.Command {
	var (
		format  string
		page    bool
		compact bool
		title   string
	)

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Print a tree as HTML, JSON, YAML or a tree dump",
		Long: `Read a tree file and print it in another form.

Formats:
  html  pretty HTML with data-on-<event> markers (default)
  json  the JSON tree document
  yaml  the YAML tree document
  tree  an indented dump of the materialized tree

Examples:
  vtree render tree.yaml
  vtree render --page --title=Demo tree.json > demo.html
  vtree render --format=yaml page.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := loadTree(args[0])
			if err != nil {
				return err
			}
			return writeTree(cmd.OutOrStdout(), n, format, renderOptions{page: page, compact: compact, title: title})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "html", "Output format: html, json, yaml or tree")
	cmd.Flags().BoolVar(&page, "page", false, "Wrap HTML output in a complete document")
	cmd.Flags().BoolVar(&compact, "compact", false, "Print HTML on one line")
	cmd.Flags().StringVar(&title, "title", "vtree", "Document title with --page")

	return cmd
}

type renderOptions struct {
	page    bool
	compact bool
	title   string
}

func writeTree(w io.Writer, n *vdom.Node, format string, opts renderOptions) error {
	switch format {
	case "html":
		r := render.NewRenderer(render.RendererConfig{Pretty: !opts.compact, Listeners: true})
		if opts.page {
			return r.RenderPage(w, render.PageData{Title: opts.title, Body: n})
		}
		if err := r.RenderToWriter(w, n); err != nil {
			return err
		}
		if opts.compact {
			_, err := fmt.Fprintln(w)
			return err
		}
		return nil

	case "json":
		data, err := treejson.EncodeJSON(n)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case "yaml":
		data, err := treejson.EncodeYAML(n)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case "tree":
		doc := memdom.New()
		h, _, err := doc.Materialize(n)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, doc.Dump(h))
		return err

	default:
		return errors.New(errors.ECodeBadArgs).
			WithDetail(fmt.Sprintf("unknown format %q, want html, json, yaml or tree", format))
	}
}
