package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	// DefaultMaxAllocation caps a single decoded string at 4MB.
	DefaultMaxAllocation = 4 << 20

	// MaxCollectionCount caps the patches, attributes, children or path
	// indices of one collection.
	MaxCollectionCount = 100_000
)

var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrInvalidBool        = errors.New("protocol: invalid boolean value")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Decoder reads a message produced by Encoder. Every read checks the
// remaining input first; truncated input yields io.ErrUnexpectedEOF.
type Decoder struct {
	buf    []byte
	pos    int
	limits Limits
}

// NewDecoder reads buf with DefaultLimits.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf, limits: DefaultLimits()}
}

// NewDecoderWithLimits reads buf with limits; zero fields use the defaults.
func NewDecoderWithLimits(buf []byte, limits Limits) *Decoder {
	return &Decoder{buf: buf, limits: limits.normalize()}
}

// Remaining is the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// EOF reports whether the input is consumed.
func (d *Decoder) EOF() bool { return d.Remaining() <= 0 }

// take consumes the next n bytes.
func (d *Decoder) take(n int) ([]byte, error) {
	if n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

func (d *Decoder) ReadSvarint() (int64, error) {
	v, n := binary.Varint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadString reads a length-prefixed string. A prefix beyond the input or
// the allocation limit fails before anything is copied.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if n > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	if n > uint64(d.limits.MaxAllocation) {
		return "", ErrAllocationTooLarge
	}
	b, err := d.take(int(n))
	return string(b), err
}

// ReadBool accepts only 0 and 1.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	if b > 1 {
		return false, ErrInvalidBool
	}
	return b == 1, nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *Decoder) ReadFloat64() (float64, error) {
	bits, err := d.ReadUint64()
	return math.Float64frombits(bits), err
}

// ReadCollectionCount reads an item count. Items take at least a byte each,
// so a count above the remaining input is truncation, not a large list.
func (d *Decoder) ReadCollectionCount() (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(d.limits.MaxCollection) {
		return 0, ErrCollectionTooLarge
	}
	if n > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(n), nil
}
