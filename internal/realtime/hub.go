package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Metrics receives realtime instrumentation. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ClientConnected()
	ClientDisconnected()
	EventPublished(source string)
	EventDropped()
	DuplicateSuppressed()
	WatcherFailed(collection string)
}

type nopMetrics struct{}

func (nopMetrics) ClientConnected()      {}
func (nopMetrics) ClientDisconnected()   {}
func (nopMetrics) EventPublished(string) {}
func (nopMetrics) EventDropped()         {}
func (nopMetrics) DuplicateSuppressed()  {}
func (nopMetrics) WatcherFailed(string)  {}

// HubOptions configures a Hub.
type HubOptions struct {
	// Dedup suppresses repeated entity changes with the same version. Enable
	// it when hooks and change streams run together.
	Dedup       bool
	DedupWindow int
	Logger      *zap.Logger
	Metrics     Metrics
}

// Hub fans events out to connected clients. Room membership is process local
// and lost on restart; delivery is at most once.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	dedup   *versionWindow
	forward atomic.Value // func(Event)
	logger  *zap.Logger
	metrics Metrics

	published  atomic.Uint64
	dropped    atomic.Uint64
	duplicates atomic.Uint64
}

func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	h := &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if opts.Dedup {
		h.dedup = newVersionWindow(opts.DedupWindow)
	}
	return h
}

// SetForwarder installs fn to receive every locally originated event, e.g. a
// cross-instance relay.
func (h *Hub) SetForwarder(fn func(Event)) {
	h.forward.Store(fn)
}

// Publish delivers a locally originated event and forwards it.
func (h *Hub) Publish(evt Event) {
	if !h.deliver(evt) {
		return
	}
	if fn, ok := h.forward.Load().(func(Event)); ok && fn != nil {
		fn(evt)
	}
}

// Deliver hands an event received from another instance to local clients only.
func (h *Hub) Deliver(evt Event) {
	h.deliver(evt)
}

func (h *Hub) deliver(evt Event) bool {
	if h.dedup != nil {
		if key, ok := evt.dedupKey(); ok && !h.dedup.add(key) {
			h.duplicates.Add(1)
			h.metrics.DuplicateSuppressed()
			return false
		}
	}

	frame, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("marshal realtime event", zap.String("event", evt.Name), zap.Error(err))
		return false
	}

	h.published.Add(1)
	h.metrics.EventPublished(string(evt.Source))

	for _, c := range h.recipients(evt) {
		if !c.enqueue(frame) {
			h.dropped.Add(1)
			h.metrics.EventDropped()
			h.logger.Debug("client buffer full, dropping event", zap.String("event", evt.Name), zap.String("user_id", c.userID))
		}
	}
	return true
}

// recipients returns the distinct clients addressed by evt.
func (h *Hub) recipients(evt Event) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	if len(evt.Rooms) == 0 {
		out = make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			if c.userID != evt.ExcludeUser || evt.ExcludeUser == "" {
				out = append(out, c)
			}
		}
		return out
	}

	seen := make(map[*Client]struct{})
	for _, room := range evt.Rooms {
		for c := range h.rooms[room] {
			if _, dup := seen[c]; dup {
				continue
			}
			if evt.ExcludeUser != "" && c.userID == evt.ExcludeUser {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// Register adds c and joins its private user room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.joinLocked(c, UserRoom(c.userID))
	h.mu.Unlock()
	h.metrics.ClientConnected()
}

// Unregister removes c from every room and closes its send buffer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	c.closeSend()
	h.mu.Unlock()
	h.metrics.ClientDisconnected()
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.joinLocked(c, room)
	}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

// InRoom reports whether c currently belongs to room.
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c]
	return ok
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubStats is a snapshot of hub counters.
type HubStats struct {
	Clients    int
	Published  uint64
	Dropped    uint64
	Duplicates uint64
}

func (h *Hub) Stats() HubStats {
	return HubStats{
		Clients:    h.ClientCount(),
		Published:  h.published.Load(),
		Dropped:    h.dropped.Load(),
		Duplicates: h.duplicates.Load(),
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.Unregister(c)
	}
}

// versionWindow remembers the most recent keys in insertion order.
type versionWindow struct {
	mu   sync.Mutex
	seen map[string]struct{}
	ring []string
	next int
}

func newVersionWindow(size int) *versionWindow {
	if size <= 0 {
		size = 4096
	}
	return &versionWindow{seen: make(map[string]struct{}, size), ring: make([]string, size)}
}

// add records key and reports whether it was new.
func (w *versionWindow) add(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[key]; ok {
		return false
	}
	if old := w.ring[w.next]; old != "" {
		delete(w.seen, old)
	}
	w.ring[w.next] = key
	w.seen[key] = struct{}{}
	w.next = (w.next + 1) % len(w.ring)
	return true
}
