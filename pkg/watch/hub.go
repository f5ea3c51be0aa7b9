package watch

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// ErrHubClosed is returned by Publish and Reset after Close.
var ErrHubClosed = errors.New("watch: hub closed")

// Hub broadcasts a tree and its patches to websocket followers.
type Hub struct {
	cfg      *Config
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	treeID  string
	seq     uint64
	tree    *vdom.Node
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub with an empty tree.
func NewHub(cfg *Config) *Hub {
	cfg = cfg.withDefaults()
	h := &Hub{
		cfg:     cfg,
		treeID:  uuid.NewString(),
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.CheckOrigin == nil {
				return true
			}
			return cfg.CheckOrigin(r.Header.Get("Origin"))
		},
	}
	return h
}

// TreeID returns the id sent with every frame.
func (h *Hub) TreeID() string { return h.treeID }

// Seq returns the sequence number of the last frame.
func (h *Hub) Seq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Tree returns the latest tree.
func (h *Hub) Tree() *vdom.Node {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tree
}

// Clients returns the number of connected followers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Snapshot returns the latest tree as a snapshot.
func (h *Hub) Snapshot() *protocol.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() *protocol.Snapshot {
	return &protocol.Snapshot{Seq: h.seq, TreeID: h.treeID, Root: h.tree}
}

// resyncFrame clears c's queue and returns a snapshot frame for it. Holding
// the read lock keeps Publish from queueing a frame the snapshot already
// covers.
func (h *Hub) resyncFrame(c *client) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !c.stale.Swap(false) {
		return nil, false
	}
	c.drain()
	f := protocol.SnapshotFrameOf(h.snapshotLocked())
	f.Flags = protocol.FlagResync
	return f.Encode(), true
}

// Publish makes tree current and sends patches, which must turn the
// previous tree into tree, to every follower.
func (h *Hub) Publish(tree *vdom.Node, patches []vdom.Patch) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}

	h.seq++
	h.tree = tree
	if len(h.clients) == 0 {
		return nil
	}

	pf := &protocol.PatchesFrame{Seq: h.seq, TreeID: h.treeID, Patches: patches}
	data := protocol.PatchesFrameOf(pf).Encode()
	for c := range h.clients {
		c.enqueue(data)
	}
	h.cfg.Metrics.RecordFrames(len(h.clients))
	h.cfg.Logger.Debug("patches broadcast",
		"seq", h.seq,
		"patches", len(patches),
		"bytes", len(data),
		"clients", len(h.clients))
	return nil
}

// Reset replaces the tree without patches. Every follower gets a snapshot.
func (h *Hub) Reset(tree *vdom.Node) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.seq++
	h.tree = tree
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.resync()
	}
	h.cfg.Logger.Debug("tree reset", "seq", h.Seq(), "clients", len(clients))
	return nil
}

// ReportError sends em to every follower.
func (h *Hub) ReportError(em *protocol.ErrorMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)).Encode()
	for c := range h.clients {
		c.enqueue(data)
	}
}

// ServeHTTP upgrades the request and follows the tree until the follower
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(h.cfg.MaxMessageSize)

	c := newClient(h, conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.write(closeFrame(protocol.CloseServerShutdown, "hub closed"))
		c.close()
		return
	}
	h.clients[c] = struct{}{}
	// Queued under the lock so no patches frame can overtake it.
	c.enqueue(protocol.SnapshotFrameOf(h.snapshotLocked()).Encode())
	h.mu.Unlock()

	h.cfg.Metrics.RecordClientConnect()
	h.cfg.Logger.Info("follower connected", "remote", r.RemoteAddr)

	go c.writeLoop()
	c.readLoop()

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()

	h.cfg.Metrics.RecordClientDisconnect()
	h.cfg.Logger.Info("follower disconnected", "remote", r.RemoteAddr, "acked", c.acked.Load())
}

// Close disconnects every follower. Publish and Reset fail afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeWith(protocol.CloseServerShutdown, "server shutting down")
	}
}

func (h *Hub) writeDeadline() time.Time {
	return time.Now().Add(h.cfg.WriteTimeout)
}
