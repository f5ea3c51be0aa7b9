package dom_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/dom/memdom"
	"github.com/vango-dev/vtree/pkg/vdom"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	doc   *memdom.Document
	root  dom.Handle
	reg   *dom.Registry
	focus *dom.FocusSlot
}

// mount materializes tree into a fresh document body.
func mount(t *testing.T, tree *vdom.Node) *fixture {
	t.Helper()
	f := &fixture{
		doc:   memdom.New(),
		reg:   dom.NewRegistry(dom.WithStrictRegistry(true), dom.WithLogger(quiet)),
		focus: dom.NewFocusSlot(),
	}
	h, atts, err := f.doc.Materialize(tree)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	for _, a := range atts {
		if err := f.reg.Register(a.Node, a.Event, a.Handle); err != nil {
			t.Fatalf("Register() error: %v", err)
		}
	}
	if err := f.doc.AppendChild(f.doc.Body(), h); err != nil {
		t.Fatalf("AppendChild() error: %v", err)
	}
	f.root = h
	return f
}

func (f *fixture) apply(t *testing.T, patches []vdom.Patch) dom.Result {
	t.Helper()
	res, err := dom.Apply(context.Background(), f.doc, f.root, f.reg, f.focus, patches,
		dom.WithStrictRegistry(true), dom.WithLogger(quiet))
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if res.Applied != len(patches) {
		t.Errorf("Applied = %d, want %d", res.Applied, len(patches))
	}
	f.root = res.Root
	return res
}

// materialized renders tree through a fresh document for comparison.
func materialized(t *testing.T, tree *vdom.Node) string {
	t.Helper()
	d := memdom.New()
	h, _, err := d.Materialize(tree)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}
	return d.HTML(h)
}

// checkBalance verifies the registry holds exactly the live listeners.
func (f *fixture) checkBalance(t *testing.T) {
	t.Helper()
	stats := f.doc.Stats(f.root)
	if got := f.reg.Count(); got != stats.Listeners {
		t.Errorf("registry Count() = %d, live listeners = %d", got, stats.Listeners)
	}
	if got := f.reg.Nodes(); got != stats.ListenerNodes {
		t.Errorf("registry Nodes() = %d, listener-bearing nodes = %d", got, stats.ListenerNodes)
	}
	if got := f.doc.Attached(); got != stats.Listeners {
		t.Errorf("attached listeners = %d, live listeners = %d (leak)", got, stats.Listeners)
	}
}

func TestApplyConverges(t *testing.T) {
	click := func() {}
	item := func(k int, text string) *vdom.Node {
		return vdom.Li(vdom.Key(k), vdom.OnClick(click), vdom.Text(text))
	}

	tests := []struct {
		name string
		old  *vdom.Node
		new  *vdom.Node
	}{
		{
			name: "replace root",
			old:  vdom.Div(vdom.OnClick(click)),
			new:  vdom.Span(vdom.OnClick(click)),
		},
		{
			name: "class merge",
			old:  vdom.Div(vdom.Class("class1"), vdom.ID("elm1")),
			new:  vdom.Div(vdom.Class("class1"), vdom.Class("difference_class"), vdom.ID("elm1")),
		},
		{
			name: "truncate children",
			old: vdom.Div(
				vdom.Div(vdom.Class("class1")), vdom.Div(vdom.Class("class2")), vdom.Div(vdom.Class("class3")),
				vdom.Div(vdom.Class("class4")), vdom.Div(vdom.Class("class5")), vdom.Div(vdom.Class("class6")),
				vdom.Div(vdom.Class("class7")),
			),
			new: vdom.Div(vdom.Div(vdom.Class("class5")), vdom.Div(vdom.Class("class6")), vdom.Div(vdom.Class("class7"))),
		},
		{
			name: "keyed text change and removal",
			old: vdom.Main(vdom.Class("test4"), vdom.Section(vdom.Class("todo"),
				vdom.Article(vdom.Key(1), vdom.Text("item1")),
				vdom.Article(vdom.Key(2), vdom.Text("item2")),
				vdom.Article(vdom.Key(3), vdom.Text("item3")),
			)),
			new: vdom.Main(vdom.Class("test4"), vdom.Section(vdom.Class("todo"),
				vdom.Article(vdom.Key(2), vdom.Text("item2")),
				vdom.Article(vdom.Key(3), vdom.Text("item3 with changes")),
			)),
		},
		{
			name: "keyed removal and append with listeners",
			old:  vdom.Ul(item(1, "a"), item(2, "b"), item(3, "c")),
			new:  vdom.Ul(item(1, "a"), item(3, "C"), item(4, "d"), item(5, "e")),
		},
		{
			name: "keyed reorder",
			old:  vdom.Ul(item(1, "a"), item(2, "b"), item(3, "c")),
			new:  vdom.Ul(item(3, "c"), item(1, "a"), item(2, "b")),
		},
		{
			name: "nested removals",
			old:  vdom.Div(vdom.B(vdom.I(), vdom.I()), vdom.B()),
			new:  vdom.Div(vdom.B(vdom.I()), vdom.I()),
		},
		{
			name: "listener removed deep",
			old:  vdom.Div(vdom.P(vdom.Button(vdom.OnClick(click), vdom.Text("x")))),
			new:  vdom.Div(vdom.P(vdom.Button(vdom.Text("x")))),
		},
		{
			name: "attributes and styles",
			old:  vdom.Div(vdom.Name("test"), vdom.Styles("display", "flex"), vdom.Text("a")),
			new:  vdom.Div(vdom.ID("x"), vdom.Styles("display", "block"), vdom.Text("b")),
		},
		{
			name: "text to element",
			old:  vdom.Div(vdom.Text("a"), vdom.Span()),
			new:  vdom.Div(vdom.Span(vdom.Text("a"))),
		},
		{
			name: "append mixed children",
			old:  vdom.Div(),
			new:  vdom.Div(vdom.Text("x"), vdom.Button(vdom.OnClick(click)), vdom.Input()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mount(t, tt.old)
			f.apply(t, vdom.Diff(tt.old, tt.new))

			if got, want := f.doc.HTML(f.root), materialized(t, tt.new); got != want {
				t.Errorf("live tree did not converge\n got: %s\nwant: %s", got, want)
			}
			f.checkBalance(t)

			// A second diff against the new tree must be empty
			if patches := vdom.Diff(tt.new, tt.new); len(patches) != 0 {
				t.Errorf("Diff(new, new) = %v", patches)
			}
		})
	}
}

func TestApplyReplaceRootUpdatesResult(t *testing.T) {
	old := vdom.Div()
	f := mount(t, old)
	before := f.root

	res := f.apply(t, vdom.Diff(old, vdom.Span()))
	if res.Root == before {
		t.Fatal("expected a new root handle")
	}
	if got := f.doc.HTML(f.doc.Body()); got != "<body><span></span></body>" {
		t.Errorf("body = %s", got)
	}
}

func TestApplyRemoveRoot(t *testing.T) {
	old := vdom.Div(vdom.Button(vdom.OnClick(func() {})))
	f := mount(t, old)

	res := f.apply(t, vdom.Diff(old, nil))
	if res.Root != nil {
		t.Errorf("Root = %v, want nil", res.Root)
	}
	if f.reg.Count() != 0 || f.doc.Attached() != 0 {
		t.Errorf("listeners leaked: registry=%d attached=%d", f.reg.Count(), f.doc.Attached())
	}
}

func TestApplyNoPatches(t *testing.T) {
	f := mount(t, vdom.Div())
	res, err := dom.Apply(context.Background(), f.doc, f.root, f.reg, f.focus, nil)
	if err != nil || res.Root != f.root || res.Applied != 0 {
		t.Errorf("Apply(nil) = %+v, %v", res, err)
	}
	if f.doc.Calls(memdom.OpResolve) != 0 {
		t.Error("no backend calls expected")
	}
}

func TestApplyPathResolutionFailure(t *testing.T) {
	old := vdom.Div(vdom.P(vdom.Text("a")))
	f := mount(t, old)
	before := f.doc.HTML(f.root)

	patches := []vdom.Patch{
		vdom.ChangeText(vdom.NewPath(0, 0, 0), "b"),
		vdom.RemoveNode("p", vdom.NewPath(0, 7)),
	}
	res, err := dom.Apply(context.Background(), f.doc, f.root, f.reg, f.focus, patches, dom.WithLogger(quiet))
	if !errors.Is(err, dom.ErrPathResolution) || !errors.Is(err, dom.ErrNotFound) {
		t.Fatalf("err = %v, want ErrPathResolution wrapping ErrNotFound", err)
	}
	var applyErr *dom.ApplyError
	if !errors.As(err, &applyErr) || applyErr.Index != 1 || applyErr.Op != vdom.PatchRemoveNode {
		t.Errorf("ApplyError = %+v", applyErr)
	}
	if res.Applied != 0 {
		t.Errorf("Applied = %d, want 0", res.Applied)
	}
	if got := f.doc.HTML(f.root); got != before {
		t.Errorf("tree mutated before resolution finished: %s", got)
	}
	if f.doc.Calls(memdom.OpSetText) != 0 {
		t.Error("SetText called despite resolution failure")
	}
}

func TestApplyBackendFailure(t *testing.T) {
	old := vdom.Div(vdom.ID("a"), vdom.P(vdom.Text("a")))
	new := vdom.Div(vdom.ID("b"), vdom.P(vdom.Text("b")))
	f := mount(t, old)

	boom := errors.New("boom")
	f.doc.FailOn(memdom.OpSetText, boom)

	res, err := dom.Apply(context.Background(), f.doc, f.root, f.reg, f.focus, vdom.Diff(old, new), dom.WithLogger(quiet))
	if !errors.Is(err, dom.ErrBackendMutation) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrBackendMutation wrapping boom", err)
	}
	if res.Applied != 1 {
		t.Errorf("Applied = %d, want 1", res.Applied)
	}
	if dom.KindName(err) != "backend_mutation" {
		t.Errorf("KindName = %q", dom.KindName(err))
	}
}

func TestApplyInsertFailureReleasesListeners(t *testing.T) {
	tests := []struct {
		name     string
		old, new *vdom.Node
		op       string
	}{
		{"append", vdom.Div(), vdom.Div(vdom.Button(vdom.OnClick(func() {}))), memdom.OpAppendChild},
		{"replace", vdom.Div(vdom.P()), vdom.Div(vdom.Span(vdom.OnClick(func() {}), vdom.OnInput(func() {}))), memdom.OpReplace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mount(t, tt.old)
			patches := vdom.Diff(tt.old, tt.new)

			boom := errors.New("boom")
			f.doc.FailOn(tt.op, boom)
			_, err := dom.Apply(context.Background(), f.doc, f.root, f.reg, f.focus, patches,
				dom.WithStrictRegistry(true), dom.WithLogger(quiet))
			if !errors.Is(err, dom.ErrBackendMutation) || !errors.Is(err, boom) {
				t.Fatalf("err = %v, want ErrBackendMutation wrapping boom", err)
			}
			if f.reg.Count() != 0 || f.doc.Attached() != 0 {
				t.Errorf("orphaned subtree kept listeners: registry=%d attached=%d", f.reg.Count(), f.doc.Attached())
			}

			f.doc.ClearFailures()
			f.apply(t, patches)
			if got := f.doc.Stats(f.root).Listeners; f.reg.Count() != got || f.doc.Attached() != got {
				t.Errorf("after retry: registry=%d attached=%d live=%d", f.reg.Count(), f.doc.Attached(), got)
			}
		})
	}
}

func TestApplyListenerAttributes(t *testing.T) {
	f := mount(t, vdom.Button())
	calls := 0
	handler := func() { calls++ }

	f.apply(t, []vdom.Patch{vdom.AddAttributes("button", vdom.RootPath(), vdom.OnClick(handler), vdom.ID("b"))})
	if f.reg.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", f.reg.Count())
	}
	if f.doc.Dispatch(f.root, "click") != 1 || calls != 1 {
		t.Error("listener not attached")
	}

	f.apply(t, []vdom.Patch{vdom.RemoveAttributes("button", vdom.RootPath(), vdom.OnClick(handler), vdom.ID("b"))})
	if f.reg.Count() != 0 || f.doc.Attached() != 0 {
		t.Errorf("listener not released: registry=%d attached=%d", f.reg.Count(), f.doc.Attached())
	}
	if got := f.doc.HTML(f.root); got != "<button></button>" {
		t.Errorf("html = %s", got)
	}
}

func TestApplyKeepsOldListenerForSameEvent(t *testing.T) {
	var got []string
	old := vdom.Button(vdom.OnClick(func() { got = append(got, "old") }))
	new := vdom.Button(vdom.OnClick(func() { got = append(got, "new") }))
	f := mount(t, old)

	f.apply(t, vdom.Diff(old, new))
	f.doc.Dispatch(f.root, "click")
	if len(got) != 1 || got[0] != "old" {
		t.Errorf("dispatched %v, want [old]", got)
	}
}

func TestApplyFocusReplace(t *testing.T) {
	click := func() {}

	t.Run("equivalent element keeps focus", func(t *testing.T) {
		old := vdom.Div(vdom.Section(vdom.OnClick(click), vdom.Input(vdom.ID("q"))))
		new := vdom.Div(vdom.Section(vdom.Input(vdom.ID("q")), vdom.P()))
		f := mount(t, old)

		input, _ := f.doc.Resolve(f.root, vdom.NewPath(0, 0, 0))
		f.focus.Set(input)

		f.apply(t, vdom.Diff(old, new))

		focused, ok := f.focus.Get()
		if !ok {
			t.Fatal("focus slot cleared")
		}
		want, _ := f.doc.Resolve(f.root, vdom.NewPath(0, 0, 0))
		if focused != want || focused == input {
			t.Errorf("focus = %v, want new input %v", focused, want)
		}
		if !f.doc.IsFocused(want) {
			t.Error("host focus not moved")
		}
	})

	t.Run("no equivalent clears", func(t *testing.T) {
		old := vdom.Div(vdom.Section(vdom.OnClick(click), vdom.Input()))
		new := vdom.Div(vdom.Section(vdom.Text("gone")))
		f := mount(t, old)

		input, _ := f.doc.Resolve(f.root, vdom.NewPath(0, 0, 0))
		f.focus.Set(input)

		f.apply(t, vdom.Diff(old, new))
		if _, ok := f.focus.Get(); ok {
			t.Error("expected focus slot to be cleared")
		}
	})

	t.Run("focus outside untouched", func(t *testing.T) {
		old := vdom.Div(vdom.Input(), vdom.Section(vdom.OnClick(click)))
		new := vdom.Div(vdom.Input(), vdom.Section())
		f := mount(t, old)

		input, _ := f.doc.Resolve(f.root, vdom.NewPath(0, 0))
		f.focus.Set(input)

		f.apply(t, vdom.Diff(old, new))
		if !f.focus.Holds(input) {
			t.Error("focus outside the replaced node must be kept")
		}
	})
}

func TestApplyFocusRemove(t *testing.T) {
	old := vdom.Div(vdom.P(), vdom.Form(vdom.Input()))
	new := vdom.Div(vdom.P())
	f := mount(t, old)

	input, _ := f.doc.Resolve(f.root, vdom.NewPath(0, 1, 0))
	f.focus.Set(input)

	f.apply(t, vdom.Diff(old, new))
	if _, ok := f.focus.Get(); ok {
		t.Error("expected focus slot to be cleared")
	}
}

func TestApplyAutofocus(t *testing.T) {
	old := vdom.Div(vdom.Input())
	new := vdom.Div(vdom.Input(), vdom.Form(vdom.Input(vdom.Autofocus()), vdom.Input(vdom.Autofocus())))
	f := mount(t, old)

	f.apply(t, vdom.Diff(old, new))

	want, _ := f.doc.Resolve(f.root, vdom.NewPath(0, 1, 0))
	if !f.focus.Holds(want) || !f.doc.IsFocused(want) {
		t.Error("first autofocus element should claim focus")
	}
}

func TestApplyStrictRegistryFailure(t *testing.T) {
	f := mount(t, vdom.Button())
	l := &vdom.Listener{Event: "click"}
	attr := vdom.Attribute{Name: "click", Values: []vdom.AttrValue{vdom.ListenerValue(l)}}

	// A backend that hands out the same listener handle twice
	b := &sameHandleBackend{Document: f.doc}
	_, err := dom.Apply(context.Background(), b, f.root, f.reg, f.focus,
		[]vdom.Patch{vdom.AddAttributes("button", vdom.RootPath(), attr, attr)},
		dom.WithLogger(quiet))
	if !errors.Is(err, dom.ErrRegistryInconsistency) {
		t.Fatalf("err = %v, want ErrRegistryInconsistency", err)
	}
}

type sameHandleBackend struct {
	*memdom.Document
}

func (b *sameHandleBackend) AttachListener(node dom.Handle, event string, l *vdom.Listener) (dom.ListenerHandle, error) {
	return "fixed", nil
}
