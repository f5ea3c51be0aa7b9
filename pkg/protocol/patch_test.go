package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func TestPatchesRoundTrip(t *testing.T) {
	click := func() {}
	old := vdom.Main(vdom.Class("app"), vdom.ID("root"),
		vdom.Ul(
			vdom.Li(vdom.Key(1), vdom.Text("a")),
			vdom.Li(vdom.Key(2), vdom.Text("b")),
			vdom.Li(vdom.Key(3), vdom.Text("c")),
		),
		vdom.Button(vdom.OnClick(click), vdom.Text("save")),
		vdom.P(vdom.Text("old")),
	)
	new := vdom.Main(vdom.Class("app", "dark"),
		vdom.Ul(
			vdom.Li(vdom.Key(1), vdom.Text("a")),
			vdom.Li(vdom.Key(3), vdom.Text("C")),
			vdom.Li(vdom.Key(4), vdom.Styles("color", "red"), vdom.Text("d")),
		),
		vdom.Button(vdom.Text("save")),
		vdom.P(vdom.Text("new")),
		vdom.Footer(vdom.Text("end")),
	)

	patches := vdom.Diff(old, new)
	if len(patches) == 0 {
		t.Fatal("fixture produced no patches")
	}

	pf := &PatchesFrame{Seq: 7, TreeID: "tree-1", Patches: patches}
	got, err := DecodePatches(EncodePatches(pf))
	if err != nil {
		t.Fatalf("DecodePatches() error: %v", err)
	}
	if diff := cmp.Diff(pf, got, listenerEvents); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchesEmptyFrame(t *testing.T) {
	got, err := DecodePatches(EncodePatches(&PatchesFrame{Seq: 1}))
	if err != nil {
		t.Fatal(err)
	}
	if got.Seq != 1 || len(got.Patches) != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestPatchesListenerByName(t *testing.T) {
	pf := &PatchesFrame{Patches: []vdom.Patch{
		vdom.AddAttributes("button", vdom.RootPath(), vdom.OnInput(func(string) {})),
	}}
	got, err := DecodePatches(EncodePatches(pf))
	if err != nil {
		t.Fatal(err)
	}
	ls := got.Patches[0].Attrs[0].Listeners()
	if len(ls) != 1 || ls[0].Event != "input" || ls[0].Handler != nil {
		t.Errorf("listeners = %+v", ls)
	}
}

func TestPatchesDecodeErrors(t *testing.T) {
	valid := EncodePatches(&PatchesFrame{Seq: 1, Patches: []vdom.Patch{
		vdom.ChangeText(vdom.NewPath(0, 1), "x"),
	}})

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"truncated", valid[:len(valid)-1], "unexpected EOF"},
		{"unknown op", func() []byte {
			e := NewEncoder()
			e.WriteUvarint(1)
			e.WriteString("")
			e.WriteUvarint(1)
			e.WriteByte(0x7F)
			e.WriteString("div")
			encodePath(e, vdom.RootPath())
			return e.Bytes()
		}(), "unknown patch op"},
		{"empty path", func() []byte {
			e := NewEncoder()
			e.WriteUvarint(1)
			e.WriteString("")
			e.WriteUvarint(1)
			e.WriteByte(byte(vdom.PatchRemoveNode))
			e.WriteString("div")
			e.WriteUvarint(0)
			return e.Bytes()
		}(), "empty path"},
		{"replace without node", func() []byte {
			e := NewEncoder()
			e.WriteUvarint(1)
			e.WriteString("")
			e.WriteUvarint(1)
			e.WriteByte(byte(vdom.PatchReplaceNode))
			e.WriteString("div")
			encodePath(e, vdom.RootPath())
			EncodeNode(e, nil)
			return e.Bytes()
		}(), "without node"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePatches(tt.data)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := &Snapshot{Seq: 3, TreeID: "t", Root: vdom.Div(vdom.ID("app"), vdom.Text("hi"))}
	got, err := DecodeSnapshot(EncodeSnapshot(s))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePathLimits(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxPathLength + 1)
	for i := 0; i < MaxPathLength+1; i++ {
		e.WriteUvarint(0)
	}
	if _, err := decodePath(NewDecoder(e.Bytes())); !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("err = %v, want ErrMaxDepthExceeded", err)
	}

	e.Reset()
	e.WriteUvarint(2)
	e.WriteUvarint(0)
	e.WriteUvarint(MaxCollectionCount + 1)
	if _, err := decodePath(NewDecoder(e.Bytes())); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("err = %v, want ErrCollectionTooLarge", err)
	}
}
