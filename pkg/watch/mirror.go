package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vtree/pkg/dom"
	"github.com/vango-dev/vtree/pkg/dom/memdom"
	"github.com/vango-dev/vtree/pkg/protocol"
)

// Mirror follows a Hub and replays its frames onto an in-memory live tree.
// Patches frames are applied when they carry the next sequence number,
// ignored when a snapshot already covers them, and answered with a resync
// request otherwise.
type Mirror struct {
	conn   *websocket.Conn
	logger *slog.Logger
	opts   []dom.Option

	mu        sync.Mutex
	doc       *memdom.Document
	updater   *dom.Updater
	treeID    string
	seq       uint64
	snapshots int
	resyncs   int
}

// Dial connects a Mirror to the hub at url (ws:// or wss://). opts configure
// the Updater built for every snapshot.
func Dial(ctx context.Context, url string, logger *slog.Logger, opts ...dom.Option) (*Mirror, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("watch: dial %s: %w", url, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		conn:   conn,
		logger: logger,
		opts:   append([]dom.Option{dom.WithLogger(logger)}, opts...),
		doc:    memdom.New(),
	}, nil
}

// Run reads frames until the hub closes the stream, the connection fails or
// ctx is done. A Close control frame ends Run with a nil error.
func (m *Mirror) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { m.conn.Close() })
	defer stop()

	for {
		_, msg, err := m.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			m.logger.Warn("frame decode error", "error", err)
			continue
		}

		switch frame.Type {
		case protocol.FrameSnapshot:
			err = m.handleSnapshot(ctx, frame.Payload)
		case protocol.FramePatches:
			err = m.handlePatches(ctx, frame.Payload)
		case protocol.FrameControl:
			var done bool
			done, err = m.handleControl(frame.Payload)
			if done {
				return err
			}
		case protocol.FrameError:
			if em, derr := protocol.DecodeErrorMessage(frame.Payload); derr == nil {
				m.logger.Warn("hub reported error", "code", em.Code, "message", em.Message)
			}
		}
		if err != nil {
			return err
		}
	}
}

func (m *Mirror) handleSnapshot(ctx context.Context, payload []byte) error {
	snap, err := protocol.DecodeSnapshot(payload)
	if err != nil {
		m.logger.Warn("snapshot decode error", "error", err)
		return m.requestResync()
	}

	m.mu.Lock()
	if m.updater != nil && m.updater.Root() != nil {
		if err := m.updater.Unmount(ctx); err != nil {
			m.logger.Warn("unmount failed, starting a fresh document", "error", err)
			m.doc = memdom.New()
		}
	}
	m.updater = nil
	if snap.Root != nil {
		u := dom.NewUpdater(m.doc, snap.Root, m.opts...)
		if err := u.Mount(ctx, m.doc.Body(), false); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("watch: mount snapshot: %w", err)
		}
		m.updater = u
	}
	m.treeID, m.seq = snap.TreeID, snap.Seq
	m.snapshots++
	m.mu.Unlock()

	m.logger.Debug("snapshot applied", "seq", snap.Seq)
	return m.ack(snap.Seq)
}

func (m *Mirror) handlePatches(ctx context.Context, payload []byte) error {
	pf, err := protocol.DecodePatches(payload)
	if err != nil {
		m.logger.Warn("patches decode error", "error", err)
		return m.requestResync()
	}

	m.mu.Lock()
	switch {
	case pf.Seq <= m.seq:
		m.mu.Unlock()
		return nil
	case pf.Seq != m.seq+1 || pf.TreeID != m.treeID:
		m.mu.Unlock()
		m.logger.Info("sequence gap", "have", m.Seq(), "got", pf.Seq)
		return m.requestResync()
	}

	if m.updater == nil {
		m.mu.Unlock()
		return m.requestResync()
	}
	_, err = m.updater.Patch(ctx, pf.Patches)
	if err == nil {
		m.seq = pf.Seq
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("patches failed, resyncing", "seq", pf.Seq, "error", err)
		return m.requestResync()
	}
	return m.ack(pf.Seq)
}

func (m *Mirror) handleControl(payload []byte) (bool, error) {
	ctl, err := protocol.DecodeControl(payload)
	if err != nil {
		m.logger.Warn("control decode error", "error", err)
		return false, nil
	}
	switch ctl.Type {
	case protocol.ControlPing:
		return false, m.send(protocol.FrameControl, protocol.EncodeControl(protocol.NewPong(ctl)))
	case protocol.ControlClose:
		m.logger.Info("hub closed the stream", "reason", ctl.Reason, "message", ctl.Message)
		return true, nil
	}
	return false, nil
}

func (m *Mirror) ack(seq uint64) error {
	return m.send(protocol.FrameAck, protocol.EncodeAck(&protocol.Ack{LastSeq: seq}))
}

func (m *Mirror) requestResync() error {
	m.mu.Lock()
	seq := m.seq
	m.resyncs++
	m.mu.Unlock()
	return m.send(protocol.FrameControl, protocol.EncodeControl(protocol.NewResyncRequest(seq)))
}

func (m *Mirror) send(ft protocol.FrameType, payload []byte) error {
	return m.conn.WriteMessage(websocket.BinaryMessage, protocol.NewFrame(ft, payload).Encode())
}

// Close sends a Close frame and closes the connection.
func (m *Mirror) Close() error {
	m.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := m.conn.Close()
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

// HTML returns the markup of the mirrored live tree.
func (m *Mirror) HTML() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updater == nil || m.updater.Root() == nil {
		return ""
	}
	return m.doc.HTML(m.updater.Root())
}

// Seq returns the sequence number of the last applied frame.
func (m *Mirror) Seq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// Snapshots returns how many snapshots were applied.
func (m *Mirror) Snapshots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots
}

// Resyncs returns how many resync requests were sent.
func (m *Mirror) Resyncs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resyncs
}
