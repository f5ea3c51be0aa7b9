package protocol

import (
	"testing"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// FuzzDecodeFrame checks that arbitrary bytes never panic the frame decoder.
func FuzzDecodeFrame(f *testing.F) {
	f.Add(NewFrame(FramePatches, []byte{0x01, 0x02}).Encode())
	f.Add((&Frame{Type: FrameError, Flags: FlagFinal, Payload: []byte("test")}).Encode())

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeFrame(data)
	})
}

// FuzzDecodePatches checks that arbitrary bytes never panic the patch decoder
// and that whatever decodes re-encodes to the same bytes.
func FuzzDecodePatches(f *testing.F) {
	f.Add(EncodePatches(&PatchesFrame{Seq: 1, Patches: vdom.Diff(
		vdom.Div(vdom.P(vdom.Text("a")), vdom.Span()),
		vdom.Div(vdom.Class("x"), vdom.P(vdom.Text("b")), vdom.Em(), vdom.B()),
	)}))
	f.Add([]byte{0x00, 0x00, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		pf, err := DecodePatches(data)
		if err != nil {
			return
		}
		again, err := DecodePatches(EncodePatches(pf))
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if len(again.Patches) != len(pf.Patches) {
			t.Fatalf("patch count changed: %d != %d", len(again.Patches), len(pf.Patches))
		}
	})
}

// FuzzDecodeNode checks that arbitrary bytes never panic the tree decoder.
func FuzzDecodeNode(f *testing.F) {
	e := NewEncoder()
	EncodeNode(e, vdom.Ul(vdom.Li(vdom.Key(1), vdom.Styles("a", "b"))))
	f.Add(e.Bytes())

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeNode(NewDecoder(data))
	})
}
