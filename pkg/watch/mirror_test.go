package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vtree/pkg/vdom"
)

func startMirror(t *testing.T, base string) (*Mirror, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m, err := Dial(ctx, wsURL(base), quiet)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	t.Cleanup(func() { m.Close() })
	return m, done
}

func list(keys ...string) *vdom.Node {
	items := make([]*vdom.Node, len(keys))
	for i, k := range keys {
		items[i] = vdom.Li(vdom.Key(k), vdom.OnClick(func() {}), vdom.Text(k))
	}
	return vdom.Ul(vdom.Class("list"), items)
}

func TestMirrorFollowsHub(t *testing.T) {
	hub := NewHub(testConfig())
	first := list("a", "b", "c")
	require.NoError(t, hub.Reset(first))
	m, _ := startMirror(t, startServer(t, hub, nil))

	want := materialized(t, first)
	require.Eventually(t, func() bool { return m.HTML() == want }, 2*time.Second, 5*time.Millisecond)

	steps := []*vdom.Node{
		list("a", "c"),
		list("a", "c", "d", "e"),
		vdom.Section(vdom.P(vdom.Text("replaced"))),
		vdom.Section(vdom.ID("s"), vdom.P(vdom.Text("edited")), vdom.Footer()),
	}
	prev := first
	for _, next := range steps {
		require.NoError(t, hub.Publish(next, vdom.Diff(prev, next)))
		prev = next

		want := materialized(t, next)
		require.Eventually(t, func() bool { return m.HTML() == want }, 2*time.Second, 5*time.Millisecond,
			"mirror did not converge on %s", want)
	}
	require.Equal(t, hub.Seq(), m.Seq())
	require.Equal(t, 1, m.Snapshots())
	require.Zero(t, m.Resyncs())
}

func TestMirrorResyncsOnGap(t *testing.T) {
	hub := NewHub(testConfig())
	prev := vdom.P(vdom.Text("0"))
	require.NoError(t, hub.Reset(prev))
	m, _ := startMirror(t, startServer(t, hub, nil))
	require.Eventually(t, func() bool { return m.Seq() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Lose a frame.
	hub.mu.Lock()
	hub.seq++
	hub.mu.Unlock()

	next := vdom.P(vdom.Text("1"))
	require.NoError(t, hub.Publish(next, vdom.Diff(prev, next)))

	want := materialized(t, next)
	require.Eventually(t, func() bool { return m.HTML() == want }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, m.Resyncs())
	require.Equal(t, 2, m.Snapshots())
	require.Equal(t, uint64(3), m.Seq())
}

func TestMirrorEndsOnHubClose(t *testing.T) {
	hub := NewHub(testConfig())
	require.NoError(t, hub.Reset(vdom.Div()))
	m, done := startMirror(t, startServer(t, hub, nil))
	require.Eventually(t, func() bool { return m.Seq() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the hub closed")
	}
}
