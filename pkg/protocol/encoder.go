package protocol

import (
	"encoding/binary"
	"math"
)

// Encoder builds a message in memory. Writes cannot fail; size limits are
// checked on the reading side and by WriteFrame.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Reset empties the encoder and keeps its buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the message so far. It aliases the encoder's buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len is the size of the message so far.
func (e *Encoder) Len() int { return len(e.buf) }

// WriteByte appends b. It deliberately does not satisfy io.ByteWriter.
func (e *Encoder) WriteByte(b byte) { e.buf = append(e.buf, b) }

// WriteBytes appends b without a length prefix.
func (e *Encoder) WriteBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteUvarint appends v as a LEB128 varint.
func (e *Encoder) WriteUvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }

// WriteSvarint appends v zigzag encoded, so small negatives stay short.
func (e *Encoder) WriteSvarint(v int64) { e.buf = binary.AppendVarint(e.buf, v) }

// WriteString appends s behind its byte length.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteBool appends 1 for true and 0 for false.
func (e *Encoder) WriteBool(b bool) {
	var v byte
	if b {
		v = 1
	}
	e.buf = append(e.buf, v)
}

// WriteUint32 appends v big-endian. Frame headers use it for the length.
func (e *Encoder) WriteUint32(v uint32) { e.buf = binary.BigEndian.AppendUint32(e.buf, v) }

// WriteUint64 appends v big-endian.
func (e *Encoder) WriteUint64(v uint64) { e.buf = binary.BigEndian.AppendUint64(e.buf, v) }

// WriteFloat64 appends the IEEE 754 bits of v.
func (e *Encoder) WriteFloat64(v float64) { e.WriteUint64(math.Float64bits(v)) }
