package watch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vtree/pkg/protocol"
)

// client is one follower connection. Only writeLoop writes to conn, apart
// from the final close.
type client struct {
	hub  *Hub
	conn *websocket.Conn

	queue chan []byte
	final chan []byte
	kick  chan struct{}
	done  chan struct{}
	once  sync.Once

	stale atomic.Bool
	acked atomic.Uint64
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:   h,
		conn:  conn,
		queue: make(chan []byte, h.cfg.SendBuffer),
		final: make(chan []byte, 1),
		kick:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// enqueue queues a frame. On overflow the queued frames are worthless and
// the follower is resynced instead.
func (c *client) enqueue(frame []byte) {
	if c.stale.Load() {
		return
	}
	select {
	case c.queue <- frame:
	default:
		c.hub.cfg.Logger.Warn("follower queue full, resyncing")
		c.resync()
	}
}

// resync replaces everything queued with a snapshot of the current tree.
func (c *client) resync() {
	c.stale.Store(true)
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *client) write(frame []byte) error {
	c.conn.SetWriteDeadline(c.hub.writeDeadline())
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(c.hub.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.queue:
			if c.stale.Load() {
				continue
			}
			if err := c.write(frame); err != nil {
				c.hub.cfg.Logger.Debug("write failed", "error", err)
				c.close()
				return
			}

		case <-c.kick:
			frame, ok := c.hub.resyncFrame(c)
			if !ok {
				continue
			}
			if err := c.write(frame); err != nil {
				c.close()
				return
			}
			c.hub.cfg.Metrics.RecordFrames(1)

		case <-ticker.C:
			ping := protocol.NewPing(uint64(time.Now().UnixMilli()))
			frame := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ping))
			if err := c.write(frame.Encode()); err != nil {
				c.close()
				return
			}

		case frame := <-c.final:
			c.write(frame)
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				c.hub.writeDeadline(),
			)
			c.close()
			return

		case <-c.done:
			return
		}
	}
}

func (c *client) drain() {
	for {
		select {
		case <-c.queue:
		default:
			return
		}
	}
}

func (c *client) readLoop() {
	for {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.ReadTimeout))

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.hub.cfg.Logger.Error("read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			c.hub.cfg.Logger.Warn("frame decode error", "error", err)
			c.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			continue
		}

		switch frame.Type {
		case protocol.FrameAck:
			c.handleAck(frame.Payload)

		case protocol.FrameControl:
			if !c.handleControl(frame.Payload) {
				return
			}

		default:
			c.hub.cfg.Logger.Warn("unexpected frame type", "type", frame.Type)
			c.sendError(protocol.NewError(protocol.ErrInvalidFrame, "unexpected "+frame.Type.String()+" frame"))
		}
	}
}

func (c *client) handleAck(payload []byte) {
	ack, err := protocol.DecodeAck(payload)
	if err != nil {
		c.hub.cfg.Logger.Warn("ack decode error", "error", err)
		return
	}
	c.acked.Store(ack.LastSeq)

	if lag := ack.Lag(c.hub.Seq()); lag > c.hub.cfg.MaxLag {
		c.hub.cfg.Logger.Info("follower lagging, resyncing", "lag", lag)
		c.resync()
	}
}

// handleControl returns false when the follower asked to close.
func (c *client) handleControl(payload []byte) bool {
	ctl, err := protocol.DecodeControl(payload)
	if err != nil {
		c.hub.cfg.Logger.Warn("control decode error", "error", err)
		return true
	}

	switch ctl.Type {
	case protocol.ControlPing:
		pong := protocol.NewPong(ctl)
		c.enqueue(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(pong)).Encode())

	case protocol.ControlPong:
		c.hub.cfg.Logger.Debug("received pong")

	case protocol.ControlResyncRequest:
		c.hub.cfg.Logger.Info("resync requested", "last_seq", ctl.LastSeq)
		c.resync()

	case protocol.ControlClose:
		c.hub.cfg.Logger.Info("follower closing", "reason", ctl.Reason, "message", ctl.Message)
		return false
	}
	return true
}

func (c *client) sendError(em *protocol.ErrorMessage) {
	c.enqueue(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)).Encode())
}

func closeFrame(reason protocol.CloseReason, message string) []byte {
	frame := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(protocol.NewClose(reason, message)))
	frame.Flags = protocol.FlagFinal
	return frame.Encode()
}

// closeWith hands a final Close frame to writeLoop, which closes the
// connection once it is written. The connection is closed regardless after
// WriteTimeout.
func (c *client) closeWith(reason protocol.CloseReason, message string) {
	select {
	case c.final <- closeFrame(reason, message):
	default:
	}
	time.AfterFunc(c.hub.cfg.WriteTimeout, c.close)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
