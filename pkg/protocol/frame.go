package protocol

import (
	"errors"
	"fmt"
	"io"
)

const (
	// FrameHeaderSize is type, flags and a big-endian uint32 payload length.
	FrameHeaderSize = 6

	MaxPayloadSize = DefaultMaxAllocation
)

// FrameType says how to decode a frame's payload.
type FrameType uint8

const (
	FrameSnapshot FrameType = 0x01 // Hub to follower: Snapshot
	FramePatches  FrameType = 0x02 // Hub to follower: PatchesFrame
	FrameControl  FrameType = 0x03 // Either way: Control
	FrameAck      FrameType = 0x04 // Follower to hub: Ack
	FrameError    FrameType = 0x05 // Either way: ErrorMessage
)

var frameNames = [...]string{
	FrameSnapshot: "Snapshot",
	FramePatches:  "Patches",
	FrameControl:  "Control",
	FrameAck:      "Ack",
	FrameError:    "Error",
}

func (ft FrameType) String() string {
	if validType(ft) {
		return frameNames[ft]
	}
	return "Unknown"
}

func validType(ft FrameType) bool {
	return ft >= FrameSnapshot && ft <= FrameError
}

// FrameFlags is a bit set carried in the header.
type FrameFlags uint8

const (
	FlagFinal  FrameFlags = 1 << iota // Sender closes after this frame
	FlagResync                        // Snapshot answering a resync or lag
)

func (ff FrameFlags) Has(flag FrameFlags) bool { return ff&flag == flag }

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a protocol frame with header and payload.
//
// Wire format (6 bytes header + variable payload):
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// NewFrame creates a new frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	e := NewEncoder()
	f.EncodeTo(e)
	return e.Bytes()
}

// EncodeTo encodes the frame using the provided encoder.
func (f *Frame) EncodeTo(e *Encoder) {
	e.WriteByte(byte(f.Type))
	e.WriteByte(byte(f.Flags))
	e.WriteUint32(uint32(len(f.Payload)))
	e.WriteBytes(f.Payload)
}

// DecodeFrame decodes a frame from bytes. data must hold exactly one frame.
func DecodeFrame(data []byte) (*Frame, error) {
	d := NewDecoder(data)
	ft, flags, length, err := decodeHeader(d)
	if err != nil {
		return nil, err
	}
	if d.Remaining() != length {
		if d.Remaining() < length {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("protocol: %d trailing bytes after frame", d.Remaining()-length)
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:])
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

func decodeHeader(d *Decoder) (FrameType, FrameFlags, int, error) {
	t, err := d.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	f, err := d.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	length, err := d.ReadUint32()
	if err != nil {
		return 0, 0, 0, err
	}
	ft := FrameType(t)
	if !validType(ft) {
		return 0, 0, 0, fmt.Errorf("%w: 0x%02x", ErrInvalidFrameType, t)
	}
	if length > MaxPayloadSize {
		return 0, 0, 0, ErrFrameTooLarge
	}
	return ft, FrameFlags(f), int(length), nil
}

// ReadFrame reads a complete frame from an io.Reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	ft, flags, length, err := decodeHeader(NewDecoder(header))
	if err != nil {
		return nil, err
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return &Frame{Type: ft, Flags: flags, Payload: payload}, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// PatchesFrameOf wraps an encoded patches frame.
func PatchesFrameOf(pf *PatchesFrame) *Frame {
	return NewFrame(FramePatches, EncodePatches(pf))
}

// SnapshotFrameOf wraps an encoded snapshot.
func SnapshotFrameOf(s *Snapshot) *Frame {
	return NewFrame(FrameSnapshot, EncodeSnapshot(s))
}
