package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vtree/internal/config"
	"github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/protocol"
)

const (
	oldHTML = `<ul id="list"><li>a</li><li>b</li></ul>`
	newHTML = `<ul id="list" class="x"><li>a</li></ul>`
)

// writeFiles writes name → content pairs into a temp dir and returns it.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// run executes the CLI with args, using dir for vtree.json.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", dir, "--color", "never"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func code(t *testing.T, err error) string {
	t.Helper()
	var ve *errors.VTreeError
	require.True(t, stderrors.As(err, &ve), "error %v is not coded", err)
	return ve.Code
}

func TestDiffText(t *testing.T) {
	dir := writeFiles(t, map[string]string{"old.html": oldHTML, "new.html": newHTML})

	out, _, err := run(t, dir, "diff", filepath.Join(dir, "old.html"), filepath.Join(dir, "new.html"))
	require.NoError(t, err)
	require.Contains(t, out, `AddAttributes [0] <ul> class="x"`)
	require.Contains(t, out, "RemoveNode [0,1] <li>")
	require.Contains(t, out, "2 patches (5 → 3 nodes)")
	require.NotContains(t, out, "\x1b[")
}

func TestDiffEqual(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.html": oldHTML})
	a := filepath.Join(dir, "a.html")

	out, _, err := run(t, dir, "diff", a, a)
	require.NoError(t, err)
	require.Contains(t, out, "trees are equal")
}

func TestDiffFormats(t *testing.T) {
	dir := writeFiles(t, map[string]string{"old.html": oldHTML, "new.html": newHTML})
	oldPath, newPath := filepath.Join(dir, "old.html"), filepath.Join(dir, "new.html")

	t.Run("json", func(t *testing.T) {
		out, _, err := run(t, dir, "diff", "--format", "json", oldPath, newPath)
		require.NoError(t, err)
		var patches []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &patches))
		require.Len(t, patches, 2)
	})

	t.Run("jsonpatch", func(t *testing.T) {
		out, _, err := run(t, dir, "diff", "--format", "jsonpatch", "--verify", oldPath, newPath)
		require.NoError(t, err)
		var ops []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &ops))
		require.NotEmpty(t, ops)
		require.Contains(t, out, `"/root/children/1"`)
	})

	t.Run("binary", func(t *testing.T) {
		out, _, err := run(t, dir, "diff", "--format", "binary", oldPath, newPath)
		require.NoError(t, err)
		frame, err := protocol.DecodeFrame([]byte(out))
		require.NoError(t, err)
		require.Equal(t, protocol.FramePatches, frame.Type)
		pf, err := protocol.DecodePatches(frame.Payload)
		require.NoError(t, err)
		require.Len(t, pf.Patches, 2)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := run(t, dir, "diff", "--format", "xml", oldPath, newPath)
		require.Error(t, err)
		require.Equal(t, errors.ECodeBadArgs, code(t, err))
	})

	t.Run("from config", func(t *testing.T) {
		cfgDir := writeFiles(t, map[string]string{config.ConfigFileName: `{"diff": {"format": "json"}}`})
		out, _, err := run(t, cfgDir, "diff", oldPath, newPath)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(strings.TrimSpace(out), "["))
	})
}

func TestDiffWhere(t *testing.T) {
	dir := writeFiles(t, map[string]string{"old.html": oldHTML, "new.html": newHTML})
	oldPath, newPath := filepath.Join(dir, "old.html"), filepath.Join(dir, "new.html")

	out, _, err := run(t, dir, "diff", "--where", `op == "RemoveNode" && depth == 1`, oldPath, newPath)
	require.NoError(t, err)
	require.Contains(t, out, "RemoveNode [0,1]")
	require.NotContains(t, out, "AddAttributes")
	require.Contains(t, out, "1 patches")

	out, _, err = run(t, dir, "diff", "--where", `"class" in attrs`, oldPath, newPath)
	require.NoError(t, err)
	require.Contains(t, out, "AddAttributes")
	require.NotContains(t, out, "RemoveNode")

	_, _, err = run(t, dir, "diff", "--where", `op +`, oldPath, newPath)
	require.Error(t, err)
	require.Equal(t, errors.ECodeBadFilter, code(t, err))

	_, _, err = run(t, dir, "diff", "--where", `depth`, oldPath, newPath)
	require.Error(t, err)
	require.Equal(t, errors.ECodeBadFilter, code(t, err))
}

func TestDiffTextMode(t *testing.T) {
	dir := writeFiles(t, map[string]string{"old.html": oldHTML, "new.html": newHTML})

	out, _, err := run(t, dir, "diff", "--text", filepath.Join(dir, "old.html"), filepath.Join(dir, "new.html"))
	require.NoError(t, err)
	require.Contains(t, out, `+ <ul class="x" id="list">`)
	require.Contains(t, out, `- <ul id="list">`)
	require.Contains(t, out, "- ")
	require.Contains(t, out, "  <li>a</li>")
}

func TestDiffPairs(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.html": oldHTML,
		"b.html": newHTML,
		"c.yaml": "root:\n  tag: p\n  children:\n    - text: one\n",
		"d.json": `{"tag": "p", "children": [{"text": "two"}]}`,
	})
	p := func(name string) string { return filepath.Join(dir, name) }

	out, _, err := run(t, dir, "diff", p("a.html"), p("b.html"), p("c.yaml"), p("d.json"))
	require.NoError(t, err)
	first := strings.Index(out, "== "+p("a.html"))
	second := strings.Index(out, "== "+p("c.yaml"))
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	require.Contains(t, out[second:], `ChangeText [0,0] "two"`)

	_, _, err = run(t, dir, "diff", p("a.html"))
	require.Error(t, err)
	require.Equal(t, errors.ECodeBadArgs, code(t, err))
}

func TestDiffLoadErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"ok.html":  oldHTML,
		"two.html": `<p>a</p><p>b</p>`,
		"bad.json": "{\n  \"tag\": \n}",
		"tree.txt": "plain",
	})
	p := func(name string) string { return filepath.Join(dir, name) }

	tests := []struct {
		file string
		want string
	}{
		{"two.html", errors.ECodeRootCount},
		{"bad.json", errors.ECodeTreeParse},
		{"tree.txt", errors.ECodeUnsupportedFormat},
		{"missing.html", errors.ECodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, _, err := run(t, dir, "diff", p("ok.html"), p(tt.file))
			require.Error(t, err)
			require.Equal(t, tt.want, code(t, err))
		})
	}
}

func TestApply(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"old.html": `<form><input autofocus data-on-input="true"><button data-on-click="true">go</button></form>`,
		"new.html": `<form class="done"><input autofocus data-on-input="true"><p>sent</p></form>`,
	})

	out, _, err := run(t, dir, "apply", filepath.Join(dir, "old.html"), filepath.Join(dir, "new.html"))
	require.NoError(t, err)
	require.Contains(t, out, `<form class="done">`)
	require.Contains(t, out, "Applied ")
	require.Contains(t, out, "1 listeners")
	require.Contains(t, out, "focus: <input>")

	out, _, err = run(t, dir, "apply", "--html", filepath.Join(dir, "old.html"), filepath.Join(dir, "new.html"))
	require.NoError(t, err)
	require.Contains(t, out, `<form class="done"><input autofocus="" @input><p>sent</p></form>`)

	out, _, err = run(t, dir, "apply", "--quiet", "--strict", filepath.Join(dir, "old.html"), filepath.Join(dir, "new.html"))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRender(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"tree.yaml": "root:\n  tag: div\n  attrs:\n    id: app\n  on: [click]\n  children:\n    - text: hi\n",
	})
	file := filepath.Join(dir, "tree.yaml")

	out, _, err := run(t, dir, "render", file)
	require.NoError(t, err)
	require.Equal(t, "<div id=\"app\" data-on-click=\"true\">hi</div>\n", out)

	out, _, err = run(t, dir, "render", "--page", "--title", "Demo", file)
	require.NoError(t, err)
	require.Contains(t, out, "<title>Demo</title>")

	out, _, err = run(t, dir, "render", "--format", "json", file)
	require.NoError(t, err)
	require.Contains(t, out, `"root"`)

	out, _, err = run(t, dir, "render", "--format", "yaml", file)
	require.NoError(t, err)
	require.Contains(t, out, "tag: div")

	out, _, err = run(t, dir, "render", "--format", "tree", file)
	require.NoError(t, err)
	require.Contains(t, out, `<div id="app" @click>`)
	require.Contains(t, out, `"hi"`)

	_, _, err = run(t, dir, "render", "--format", "pdf", file)
	require.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	out, _, err := run(t, dir, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, config.ConfigFileName)

	_, _, err = run(t, dir, "config", "init")
	require.Error(t, err)

	_, _, err = run(t, dir, "config", "init", "--force")
	require.NoError(t, err)

	out, _, err = run(t, dir, "--log-level", "debug", "config", "show")
	require.NoError(t, err)
	var shown config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Equal(t, "debug", shown.Log.Level)
	require.Equal(t, config.DefaultListen, shown.Watch.Listen)

	_, _, err = run(t, dir, "--log-level", "loud", "config", "show")
	require.Error(t, err)
	require.Equal(t, errors.ECodeConfigInvalid, code(t, err))
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "version", "--short")
	require.NoError(t, err)
	require.Equal(t, version+"\n", out)

	out, _, err = run(t, t.TempDir(), "version")
	require.NoError(t, err)
	require.Contains(t, out, "Go version:")
}

func TestRunWatch(t *testing.T) {
	dir := writeFiles(t, map[string]string{"tree.html": oldHTML})

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	g := &globals{
		cfg:    config.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, cmd, g, filepath.Join(dir, "tree.html"), ln) }()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(base + "/tree")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), `<ul id="list">`)

	resp, err = client.Get(base + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("runWatch did not stop")
	}
	require.Contains(t, out.String(), "Serving")
	require.Contains(t, out.String(), "/metrics")
}

func TestRunWatchMissingFile(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	g := &globals{cfg: config.New(), logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	err = runWatch(context.Background(), &cobra.Command{}, g, filepath.Join(t.TempDir(), "none.html"), ln)
	require.Error(t, err)
	require.Equal(t, errors.ECodeFileNotFound, code(t, err))
}
