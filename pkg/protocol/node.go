package protocol

import (
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// nullNode marks a nil node.
const nullNode = 0xFF

// Plain value type tags.
const (
	plainNil    = 0x00
	plainString = 0x01
	plainBool   = 0x02
	plainInt    = 0x03
	plainInt64  = 0x04
	plainFloat  = 0x05
	plainOther  = 0x06 // Sent in markup form, decoded as a string
)

// EncodeNode encodes a tree. Listener values are sent by event name and
// function values are dropped; attributes left without values are omitted.
func EncodeNode(e *Encoder, n *vdom.Node) {
	if n == nil {
		e.WriteByte(nullNode)
		return
	}
	e.WriteByte(byte(n.Kind))

	switch n.Kind {
	case vdom.KindText:
		e.WriteString(n.Text)

	case vdom.KindElement:
		e.WriteString(n.Namespace)
		e.WriteString(n.Tag)
		e.WriteBool(n.SelfClosing)
		encodeAttrs(e, n.Attrs)

		count := 0
		for _, c := range n.Children {
			if c != nil {
				count++
			}
		}
		e.WriteUvarint(uint64(count))
		for _, c := range n.Children {
			if c != nil {
				EncodeNode(e, c)
			}
		}
	}
}

// DecodeNode decodes a tree encoded by EncodeNode. Decoded listeners carry
// the event name and a nil handler.
func DecodeNode(d *Decoder) (*vdom.Node, error) {
	return decodeNode(d, 0)
}

func decodeNode(d *Decoder, depth int) (*vdom.Node, error) {
	if err := checkDepth(depth, d.limits.MaxDepth); err != nil {
		return nil, err
	}

	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if kind == nullNode {
		return nil, nil
	}

	n := &vdom.Node{Kind: vdom.Kind(kind)}
	switch n.Kind {
	case vdom.KindText:
		n.Text, err = d.ReadString()
		return n, err

	case vdom.KindElement:
		if n.Namespace, err = d.ReadString(); err != nil {
			return nil, err
		}
		if n.Tag, err = d.ReadString(); err != nil {
			return nil, err
		}
		if n.SelfClosing, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if n.Attrs, err = decodeAttrs(d); err != nil {
			return nil, err
		}

		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			n.Children = make([]*vdom.Node, 0, count)
		}
		for i := 0; i < count; i++ {
			child, err := decodeNode(d, depth+1)
			if err != nil {
				return nil, err
			}
			if child != nil {
				n.Children = append(n.Children, child)
			}
		}
		return n, nil

	default:
		return nil, fmt.Errorf("protocol: unknown node kind 0x%02x", kind)
	}
}

// wireValues returns the values of attr that can be sent.
func wireValues(attr vdom.Attribute) []vdom.AttrValue {
	if !attr.HasFunc() {
		return attr.Values
	}
	out := make([]vdom.AttrValue, 0, len(attr.Values))
	for _, v := range attr.Values {
		if v.Kind != vdom.ValueFunc {
			out = append(out, v)
		}
	}
	return out
}

func encodeAttrs(e *Encoder, attrs []vdom.Attribute) {
	count := 0
	for _, a := range attrs {
		if len(wireValues(a)) > 0 {
			count++
		}
	}
	e.WriteUvarint(uint64(count))

	for _, a := range attrs {
		values := wireValues(a)
		if len(values) == 0 {
			continue
		}
		e.WriteString(a.Namespace)
		e.WriteString(a.Name)
		e.WriteUvarint(uint64(len(values)))
		for _, v := range values {
			encodeValue(e, v)
		}
	}
}

func encodeValue(e *Encoder, v vdom.AttrValue) {
	e.WriteByte(byte(v.Kind))
	switch v.Kind {
	case vdom.ValuePlain:
		encodePlain(e, v)
	case vdom.ValueStyle:
		e.WriteUvarint(uint64(len(v.Styles)))
		for _, s := range v.Styles {
			e.WriteString(s.Property)
			e.WriteString(s.Value)
		}
	case vdom.ValueListener:
		event := ""
		if v.Listener != nil {
			event = v.Listener.Event
		}
		e.WriteString(event)
	}
}

func encodePlain(e *Encoder, v vdom.AttrValue) {
	switch p := v.Plain.(type) {
	case nil:
		e.WriteByte(plainNil)
	case string:
		e.WriteByte(plainString)
		e.WriteString(p)
	case bool:
		e.WriteByte(plainBool)
		e.WriteBool(p)
	case int:
		e.WriteByte(plainInt)
		e.WriteSvarint(int64(p))
	case int64:
		e.WriteByte(plainInt64)
		e.WriteSvarint(p)
	case float64:
		e.WriteByte(plainFloat)
		e.WriteFloat64(p)
	default:
		e.WriteByte(plainOther)
		e.WriteString(v.String())
	}
}

func decodeAttrs(d *Decoder) ([]vdom.Attribute, error) {
	count, err := d.ReadCollectionCount()
	if err != nil || count == 0 {
		return nil, err
	}
	attrs := make([]vdom.Attribute, count)
	for i := range attrs {
		a := &attrs[i]
		if a.Namespace, err = d.ReadString(); err != nil {
			return nil, err
		}
		if a.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
		n, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		a.Values = make([]vdom.AttrValue, n)
		for j := range a.Values {
			if a.Values[j], err = decodeValue(d); err != nil {
				return nil, err
			}
		}
	}
	return attrs, nil
}

func decodeValue(d *Decoder) (vdom.AttrValue, error) {
	kind, err := d.ReadByte()
	if err != nil {
		return vdom.AttrValue{}, err
	}

	switch vdom.ValueKind(kind) {
	case vdom.ValuePlain:
		p, err := decodePlain(d)
		return vdom.PlainValue(p), err

	case vdom.ValueStyle:
		n, err := d.ReadCollectionCount()
		if err != nil {
			return vdom.AttrValue{}, err
		}
		styles := make([]vdom.Style, n)
		for i := range styles {
			if styles[i].Property, err = d.ReadString(); err != nil {
				return vdom.AttrValue{}, err
			}
			if styles[i].Value, err = d.ReadString(); err != nil {
				return vdom.AttrValue{}, err
			}
		}
		return vdom.StyleValue(styles...), nil

	case vdom.ValueListener:
		event, err := d.ReadString()
		if err != nil {
			return vdom.AttrValue{}, err
		}
		return vdom.ListenerValue(&vdom.Listener{Event: event}), nil

	default:
		return vdom.AttrValue{}, fmt.Errorf("protocol: unknown value kind 0x%02x", kind)
	}
}

func decodePlain(d *Decoder) (any, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case plainNil:
		return nil, nil
	case plainString, plainOther:
		return d.ReadString()
	case plainBool:
		return d.ReadBool()
	case plainInt:
		v, err := d.ReadSvarint()
		return int(v), err
	case plainInt64:
		return d.ReadSvarint()
	case plainFloat:
		return d.ReadFloat64()
	default:
		return nil, fmt.Errorf("protocol: unknown plain value tag 0x%02x", tag)
	}
}
