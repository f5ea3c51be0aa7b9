// Package protocol implements the binary wire format used to stream trees
// and patch lists to watch clients.
//
// # Wire Format
//
// All messages are framed with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameSnapshot (0x01): whole tree, sent on connect and on resync
//   - FramePatches (0x02): one diff's patch list
//   - FrameControl (0x03): ping, pong, resync request, close
//   - FrameAck (0x04): last frame a client applied
//   - FrameError (0x05): error message
//
// # Encoding
//
//   - Varint: compact encoding for counts, indices and sequence numbers
//   - ZigZag: signed integers encoded as unsigned varints
//   - Length-prefixed: strings prefixed with their varint length
//   - Big-endian: fixed-width integers and float64 bits
//
// # Patches
//
// A patch is encoded as
//
//	[Op: 1 byte][Tag: string][Path: count + varints][op data]
//
// where op data is an attribute list (AddAttributes, RemoveAttributes), a
// node (ReplaceNode), a node list (AppendChildren), a string (ChangeText) or
// nothing (RemoveNode). Paths address the old tree, as produced by vdom.Diff.
//
// Listener values cross the wire by event name only; decoded listeners have
// a nil handler. Function values are dropped. Decoders bound string sizes,
// collection counts and nesting depth (see Limits).
//
// # Usage Example
//
//	pf := &PatchesFrame{Seq: 1, TreeID: id, Patches: vdom.Diff(old, new)}
//	frame := PatchesFrameOf(pf)
//	err := WriteFrame(conn, frame)
//
//	decoded, err := DecodePatches(frame.Payload)
package protocol
