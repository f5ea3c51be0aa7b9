package protocol

import "fmt"

// ControlType selects the body of a Control message.
type ControlType uint8

const (
	ControlPing          ControlType = 0x01
	ControlPong          ControlType = 0x02
	ControlResyncRequest ControlType = 0x10 // Follower lost track and wants a snapshot
	ControlClose         ControlType = 0x20
)

var controlNames = map[ControlType]string{
	ControlPing:          "Ping",
	ControlPong:          "Pong",
	ControlResyncRequest: "ResyncRequest",
	ControlClose:         "Close",
}

func (ct ControlType) String() string {
	if name, ok := controlNames[ct]; ok {
		return name
	}
	return "Unknown"
}

// CloseReason travels in a Close message.
type CloseReason uint8

const (
	CloseNormal         CloseReason = 0x00
	CloseGoingAway      CloseReason = 0x01
	CloseServerShutdown CloseReason = 0x03 // Hub closed; followers should not redial at once
	CloseError          CloseReason = 0x04
)

var closeNames = map[CloseReason]string{
	CloseNormal:         "Normal",
	CloseGoingAway:      "GoingAway",
	CloseServerShutdown: "ServerShutdown",
	CloseError:          "Error",
}

func (cr CloseReason) String() string {
	if name, ok := closeNames[cr]; ok {
		return name
	}
	return "Unknown"
}

// Control is a keepalive or session message. Only the fields used by Type
// are carried on the wire:
//
//	Ping, Pong      Timestamp (Unix ms, 8 bytes)
//	ResyncRequest   LastSeq (varint)
//	Close           Reason (1 byte), Message
type Control struct {
	Type      ControlType
	Timestamp uint64
	LastSeq   uint64
	Reason    CloseReason
	Message   string
}

func NewPing(timestamp uint64) *Control {
	return &Control{Type: ControlPing, Timestamp: timestamp}
}

// NewPong answers ping with its own timestamp so the pinger can measure
// the round trip.
func NewPong(ping *Control) *Control {
	return &Control{Type: ControlPong, Timestamp: ping.Timestamp}
}

func NewResyncRequest(lastSeq uint64) *Control {
	return &Control{Type: ControlResyncRequest, LastSeq: lastSeq}
}

func NewClose(reason CloseReason, message string) *Control {
	return &Control{Type: ControlClose, Reason: reason, Message: message}
}

func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(c.Type))
	switch c.Type {
	case ControlPing, ControlPong:
		e.WriteUint64(c.Timestamp)
	case ControlResyncRequest:
		e.WriteUvarint(c.LastSeq)
	case ControlClose:
		e.WriteByte(byte(c.Reason))
		e.WriteString(c.Message)
	}
	return e.Bytes()
}

func DecodeControl(data []byte) (*Control, error) {
	d := NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := &Control{Type: ControlType(t)}
	if err := c.decodeBody(d); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Control) decodeBody(d *Decoder) (err error) {
	switch c.Type {
	case ControlPing, ControlPong:
		c.Timestamp, err = d.ReadUint64()
	case ControlResyncRequest:
		c.LastSeq, err = d.ReadUvarint()
	case ControlClose:
		var reason byte
		if reason, err = d.ReadByte(); err != nil {
			return err
		}
		c.Reason = CloseReason(reason)
		c.Message, err = d.ReadString()
	default:
		err = fmt.Errorf("protocol: unknown control type 0x%02x", byte(c.Type))
	}
	return err
}
