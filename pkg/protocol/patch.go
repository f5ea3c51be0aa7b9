package protocol

import (
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// PatchesFrame is a batch of patches produced by one diff.
type PatchesFrame struct {
	Seq     uint64       // Increments by one per frame of a tree
	TreeID  string       // Tree the patches belong to
	Patches []vdom.Patch // In apply order
}

// Snapshot carries a whole tree. It is sent on connect and on resync.
type Snapshot struct {
	Seq    uint64 // Seq of the last frame folded into Root
	TreeID string
	Root   *vdom.Node
}

// EncodePatches encodes a patches frame to bytes.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame using the provided encoder.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteString(pf.TreeID)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

// encodePatch encodes a single patch.
func encodePatch(e *Encoder, p *vdom.Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteString(p.Tag)
	encodePath(e, p.Path)

	switch p.Op {
	case vdom.PatchAddAttributes, vdom.PatchRemoveAttributes:
		encodeAttrs(e, p.Attrs)

	case vdom.PatchReplaceNode:
		EncodeNode(e, p.Node)

	case vdom.PatchAppendChildren:
		e.WriteUvarint(uint64(len(p.Children)))
		for _, c := range p.Children {
			EncodeNode(e, c)
		}

	case vdom.PatchRemoveNode:
		// Path is sufficient

	case vdom.PatchChangeText:
		e.WriteString(p.Text)
	}
}

func encodePath(e *Encoder, path vdom.TreePath) {
	e.WriteUvarint(uint64(len(path)))
	for _, idx := range path {
		e.WriteUvarint(uint64(idx))
	}
}

// DecodePatches decodes a patches frame from bytes.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	return DecodePatchesFrom(NewDecoder(data))
}

// DecodePatchesFrom decodes a patches frame from a decoder.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	treeID, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	patches := make([]vdom.Patch, count)
	for i := range patches {
		if err := decodePatch(d, &patches[i]); err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}

	return &PatchesFrame{
		Seq:     seq,
		TreeID:  treeID,
		Patches: patches,
	}, nil
}

// decodePatch decodes a single patch. Unknown ops are an error since their
// payload length is unknown.
func decodePatch(d *Decoder, p *vdom.Patch) error {
	opByte, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = vdom.PatchOp(opByte)

	if p.Tag, err = d.ReadString(); err != nil {
		return err
	}
	if p.Path, err = decodePath(d); err != nil {
		return err
	}

	switch p.Op {
	case vdom.PatchAddAttributes, vdom.PatchRemoveAttributes:
		p.Attrs, err = decodeAttrs(d)

	case vdom.PatchReplaceNode:
		p.Node, err = DecodeNode(d)
		if err == nil && p.Node == nil {
			err = fmt.Errorf("protocol: ReplaceNode without node")
		}

	case vdom.PatchAppendChildren:
		var count int
		count, err = d.ReadCollectionCount()
		if err != nil {
			return err
		}
		p.Children = make([]*vdom.Node, 0, count)
		for i := 0; i < count; i++ {
			var c *vdom.Node
			if c, err = DecodeNode(d); err != nil {
				return err
			}
			p.Children = append(p.Children, c)
		}

	case vdom.PatchRemoveNode:
		// No additional data

	case vdom.PatchChangeText:
		p.Text, err = d.ReadString()

	default:
		err = fmt.Errorf("protocol: unknown patch op 0x%02x", opByte)
	}
	return err
}

func decodePath(d *Decoder) (vdom.TreePath, error) {
	n, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("protocol: empty path")
	}
	if n > MaxPathLength {
		return nil, ErrMaxDepthExceeded
	}
	path := make(vdom.TreePath, n)
	for i := range path {
		v, err := d.ReadUvarint()
		if err != nil {
			return nil, err
		}
		if v > uint64(MaxCollectionCount) {
			return nil, ErrCollectionTooLarge
		}
		path[i] = int(v)
	}
	return path, nil
}

// EncodeSnapshot encodes a snapshot to bytes.
func EncodeSnapshot(s *Snapshot) []byte {
	e := NewEncoder()
	e.WriteUvarint(s.Seq)
	e.WriteString(s.TreeID)
	EncodeNode(e, s.Root)
	return e.Bytes()
}

// DecodeSnapshot decodes a snapshot from bytes.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	treeID, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	root, err := DecodeNode(d)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Seq: seq, TreeID: treeID, Root: root}, nil
}
