package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬  ┬┌┬┐┬─┐┌─┐┌─┐
  └┐┌┘ │ ├┬┘├┤ ├┤
   └┘  ┴ ┴└─└─┘└─┘
`

// globals holds the persistent flags shared by every command.
type globals struct {
	configDir string
	logLevel  string
	color     string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "vtree",
		Short: "Diff and apply virtual DOM trees",
		Long: `vtree reconciles virtual DOM trees.

It computes the patch list that turns one tree into another and
applies it to a live tree, keeping event listeners and focus in
step. Trees are read from .html, .json and .yaml files.

  • diff: print the patches between trees
  • apply: apply them to an in-memory live tree and check the result
  • render: print a tree as HTML
  • watch: serve a tree file and stream its patches over WebSocket
  • mirror: follow a watch server into a local live tree`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configDir, "config", ".", "Directory holding vtree.json")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from vtree.json)")
	rootCmd.PersistentFlags().StringVar(&g.color, "color", "", "Color output: auto, always or never (default from vtree.json)")

	rootCmd.AddCommand(
		diffCmd(g),
		applyCmd(g),
		renderCmd(g),
		watchCmd(g),
		mirrorCmd(g),
		configCmd(g),
		versionCmd(),
	)

	return rootCmd
}

// setup loads vtree.json, applies flag overrides and builds the logger.
func (g *globals) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOrDefault(g.configDir)
	if err != nil {
		return err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.color != "" {
		cfg.Diff.Color = g.color
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg

	useColor := colorWanted(cfg.Diff.Color, cmd.OutOrStdout())
	color.NoColor = !useColor
	if !useColor {
		errors.DisableColors()
	}

	g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	return nil
}

// colorWanted resolves a color mode against the output stream.
func colorWanted(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printBanner prints the vtree ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

var (
	successMark = color.New(color.FgGreen).SprintFunc()
	warnMark    = color.New(color.FgYellow).SprintFunc()
)

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", successMark("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warnMark("⚠"), fmt.Sprintf(format, args...))
}
