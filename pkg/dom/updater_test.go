package dom_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/dom/memdom"
	"github.com/vango-dev/vtree/pkg/telemetry"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func counter(n int, inc func()) *vdom.Node {
	return vdom.Div(vdom.Class("counter"),
		vdom.Button(vdom.OnClick(inc), vdom.Text("+")),
		vdom.Span(vdom.Textf("%d", n)),
	)
}

func TestUpdaterCounter(t *testing.T) {
	ctx := context.Background()
	doc := memdom.New()
	count := 0
	inc := func() { count++ }

	u := dom.NewUpdater(doc, counter(0, inc), dom.WithLogger(quiet), dom.WithStrictRegistry(true))
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	if u.ListenerCount() != 1 {
		t.Fatalf("ListenerCount() = %d, want 1", u.ListenerCount())
	}

	button, _ := doc.Resolve(u.Root(), vdom.NewPath(0, 0))
	for i := 1; i <= 3; i++ {
		doc.Dispatch(button, "click")
		n, err := u.Update(ctx, counter(count, inc))
		if err != nil {
			t.Fatalf("Update() error: %v", err)
		}
		if n != 1 {
			t.Errorf("update %d produced %d patches, want 1", i, n)
		}
	}

	want := `<body><div class="counter"><button @click>+</button><span>3</span></div></body>`
	if got := doc.HTML(doc.Body()); got != want {
		t.Errorf("html = %s\nwant %s", got, want)
	}
	if u.ListenerCount() != 1 || doc.Attached() != 1 {
		t.Errorf("listeners leaked: registry=%d attached=%d", u.ListenerCount(), doc.Attached())
	}

	m := u.Measurements()
	if m.NodeCount != 5 || m.PatchCount != 1 || m.Total < m.ApplyDuration {
		t.Errorf("Measurements() = %+v", m)
	}
	if u.ID() == "" {
		t.Error("ID() is empty")
	}
}

func TestUpdaterNotMounted(t *testing.T) {
	u := dom.NewUpdater(memdom.New(), vdom.Div(), dom.WithLogger(quiet))
	if _, err := u.Update(context.Background(), vdom.P()); !errors.Is(err, dom.ErrNotMounted) {
		t.Errorf("Update() err = %v, want ErrNotMounted", err)
	}
	if _, err := u.Patch(context.Background(), nil); !errors.Is(err, dom.ErrNotMounted) {
		t.Errorf("Patch() err = %v, want ErrNotMounted", err)
	}
	if err := u.Unmount(context.Background()); !errors.Is(err, dom.ErrNotMounted) {
		t.Errorf("Unmount() err = %v, want ErrNotMounted", err)
	}
}

func TestUpdaterMountReplace(t *testing.T) {
	doc := memdom.New()
	placeholder, _, _ := doc.Materialize(vdom.Div(vdom.ID("app")))
	if err := doc.AppendChild(doc.Body(), placeholder); err != nil {
		t.Fatal(err)
	}

	u := dom.NewUpdater(doc, vdom.Main(vdom.Text("hi")), dom.WithLogger(quiet))
	if err := u.Mount(context.Background(), placeholder, true); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	if got := doc.HTML(doc.Body()); got != "<body><main>hi</main></body>" {
		t.Errorf("html = %s", got)
	}
}

func TestUpdaterReplaceRootTracksHandle(t *testing.T) {
	ctx := context.Background()
	doc := memdom.New()
	u := dom.NewUpdater(doc, vdom.Div(), dom.WithLogger(quiet))
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatal(err)
	}

	if _, err := u.Update(ctx, vdom.Section(vdom.Text("a"))); err != nil {
		t.Fatal(err)
	}
	if _, err := u.Update(ctx, vdom.Section(vdom.Text("b"))); err != nil {
		t.Fatal(err)
	}
	if got := doc.HTML(u.Root()); got != "<section>b</section>" {
		t.Errorf("root html = %s", got)
	}
}

func TestUpdaterFailureKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	doc := memdom.New()
	first := vdom.P(vdom.Text("a"))
	u := dom.NewUpdater(doc, first, dom.WithLogger(quiet))
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatal(err)
	}

	doc.FailOn(memdom.OpSetText, errors.New("boom"))
	if _, err := u.Update(ctx, vdom.P(vdom.Text("b"))); !errors.Is(err, dom.ErrBackendMutation) {
		t.Fatalf("Update() err = %v, want ErrBackendMutation", err)
	}
	if u.Current() != first {
		t.Error("Current() changed after a failed update")
	}
}

func TestUpdaterMountFailureReleasesListeners(t *testing.T) {
	ctx := context.Background()
	doc := memdom.New()
	u := dom.NewUpdater(doc, vdom.Div(vdom.Button(vdom.OnClick(func() {}))),
		dom.WithLogger(quiet), dom.WithStrictRegistry(true))

	doc.FailOn(memdom.OpAppendChild, errors.New("boom"))
	if err := u.Mount(ctx, doc.Body(), false); !errors.Is(err, dom.ErrBackendMutation) {
		t.Fatalf("Mount() err = %v, want ErrBackendMutation", err)
	}
	if u.ListenerCount() != 0 || doc.Attached() != 0 {
		t.Fatalf("failed mount kept listeners: registry=%d attached=%d", u.ListenerCount(), doc.Attached())
	}

	doc.ClearFailures()
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatalf("Mount() retry error: %v", err)
	}
	if u.ListenerCount() != 1 || doc.Attached() != 1 {
		t.Errorf("after retry: registry=%d attached=%d, want 1 and 1", u.ListenerCount(), doc.Attached())
	}
}

func TestUpdaterPatchKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	doc := memdom.New()
	first := vdom.P(vdom.Text("a"))
	u := dom.NewUpdater(doc, first, dom.WithLogger(quiet))
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatal(err)
	}

	n, err := u.Patch(ctx, []vdom.Patch{vdom.ChangeText(vdom.NewPath(0, 0), "patched")})
	if err != nil || n != 1 {
		t.Fatalf("Patch() = %d, %v", n, err)
	}
	if u.Current() != first {
		t.Error("Patch must not change Current()")
	}
	if got := doc.HTML(u.Root()); got != "<p>patched</p>" {
		t.Errorf("html = %s", got)
	}
}

func TestUpdaterUnmount(t *testing.T) {
	ctx := context.Background()
	doc := memdom.New()
	u := dom.NewUpdater(doc, counter(0, func() {}), dom.WithLogger(quiet))
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatal(err)
	}
	if err := u.Unmount(ctx); err != nil {
		t.Fatalf("Unmount() error: %v", err)
	}
	if u.ListenerCount() != 0 || doc.Attached() != 0 {
		t.Errorf("listeners leaked: registry=%d attached=%d", u.ListenerCount(), doc.Attached())
	}
	if u.Root() != nil {
		t.Error("Root() should be nil after Unmount")
	}
	if got := doc.HTML(doc.Body()); got != "<body></body>" {
		t.Errorf("body = %s", got)
	}
}

// reentrantBackend calls back into the updater while a text change is applied.
type reentrantBackend struct {
	*memdom.Document
	u   *dom.Updater
	err error
}

func (b *reentrantBackend) SetText(node dom.Handle, content string) error {
	_, b.err = b.u.Update(context.Background(), vdom.P(vdom.Text("nested")))
	return b.Document.SetText(node, content)
}

func TestUpdaterRejectsReentrantUpdate(t *testing.T) {
	ctx := context.Background()
	b := &reentrantBackend{Document: memdom.New()}
	b.u = dom.NewUpdater(b, vdom.P(vdom.Text("a")), dom.WithLogger(quiet))
	if err := b.u.Mount(ctx, b.Body(), false); err != nil {
		t.Fatal(err)
	}

	if _, err := b.u.Update(ctx, vdom.P(vdom.Text("b"))); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if !errors.Is(b.err, dom.ErrApplyInFlight) {
		t.Errorf("nested Update() err = %v, want ErrApplyInFlight", b.err)
	}
	if got := b.HTML(b.u.Root()); got != "<p>b</p>" {
		t.Errorf("html = %s", got)
	}

	// The guard is released once the outer update returns
	if _, err := b.u.Update(ctx, vdom.P(vdom.Text("c"))); err != nil {
		t.Errorf("second Update() error: %v", err)
	}
}

func TestUpdaterRestoresFocus(t *testing.T) {
	ctx := context.Background()
	doc := memdom.New()
	view := func(label string) *vdom.Node {
		return vdom.Form(vdom.Input(vdom.Autofocus()), vdom.Span(vdom.Text(label)))
	}

	u := dom.NewUpdater(doc, view("a"), dom.WithLogger(quiet))
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatal(err)
	}
	input, _ := doc.Resolve(u.Root(), vdom.NewPath(0, 0))
	if !u.Focus().Holds(input) || !doc.IsFocused(input) {
		t.Fatal("autofocus input should hold focus after Mount")
	}

	doc.Blur()
	if _, err := u.Update(ctx, view("b")); err != nil {
		t.Fatal(err)
	}
	if !doc.IsFocused(input) {
		t.Error("focus was not restored after update")
	}
}

func TestUpdaterSlowUpdateMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(reg))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	doc := memdom.New()
	// A negative threshold makes every update slow
	u := dom.NewUpdater(doc, vdom.P(vdom.Text("a")),
		dom.WithLogger(logger),
		dom.WithMetrics(metrics),
		dom.WithSlowUpdate(-1),
	)
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := u.Update(ctx, vdom.P(vdom.Text("b"))); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(logs.String(), "slow update") {
		t.Errorf("expected slow update warning, got:\n%s", logs.String())
	}
	if !strings.Contains(logs.String(), "tree_id="+u.ID()) {
		t.Errorf("log records should carry the tree id:\n%s", logs.String())
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	if values["vtree_slow_updates_total"] != 1 {
		t.Errorf("slow updates = %v, want 1", values["vtree_slow_updates_total"])
	}
	if values["vtree_updates_total"] != 1 {
		t.Errorf("updates = %v, want 1", values["vtree_updates_total"])
	}
	if values["vtree_live_nodes"] != 2 {
		t.Errorf("live nodes = %v, want 2", values["vtree_live_nodes"])
	}
}

func TestUpdaterOnUpdate(t *testing.T) {
	ctx := context.Background()
	doc := memdom.New()

	var gotTree *vdom.Node
	var gotPatches []vdom.Patch
	calls := 0
	u := dom.NewUpdater(doc, vdom.P(vdom.Text("a")), dom.WithLogger(quiet),
		dom.WithOnUpdate(func(next *vdom.Node, patches []vdom.Patch) {
			calls++
			gotTree, gotPatches = next, patches
		}))
	if err := u.Mount(ctx, doc.Body(), false); err != nil {
		t.Fatal(err)
	}

	next := vdom.P(vdom.Text("b"))
	if _, err := u.Update(ctx, next); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || gotTree != next || len(gotPatches) != 1 || gotPatches[0].Op != vdom.PatchChangeText {
		t.Fatalf("hook got calls=%d tree=%v patches=%v", calls, gotTree, gotPatches)
	}

	doc.FailOn(memdom.OpSetText, errors.New("boom"))
	if _, err := u.Update(ctx, vdom.P(vdom.Text("c"))); err == nil {
		t.Fatal("expected update failure")
	}
	if calls != 1 {
		t.Errorf("hook ran after a failed update")
	}
}
