// Package live keeps a WebSocket open to every booking page and lets server
// code draw pop-ups on it.
//
// The page script receives "show", "fire" and "emit" frames and answers
// modals with "will_open", "did_open" and "result" frames. Buttons on the
// page raise "event" frames which are dispatched to handlers registered with
// Hub.Handle.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prayagsingh/bookings/internal/prompt"
)

// HandlerFunc handles an event raised by a page. ctx is cancelled when the
// page disconnects, so a handler may wait on dialogs.
type HandlerFunc func(ctx context.Context, c *Conn, ev Event)

// Hub tracks the connected pages.
type Hub struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	promptOpts []prompt.Option
	active     prometheus.Gauge

	nextID atomic.Uint64

	mu       sync.RWMutex
	conns    map[uint64]*Conn
	handlers map[string]HandlerFunc
	staged   map[string]staged

	// StageTTL bounds how long a staged action waits for its page to connect.
	StageTTL time.Duration
}

type staged struct {
	at  time.Time
	fns []func(*Conn)
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the hub's logger.
func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithPromptOptions configures the prompt.Prompt each connection gets.
func WithPromptOptions(opts ...prompt.Option) HubOption {
	return func(h *Hub) { h.promptOpts = append(h.promptOpts, opts...) }
}

// WithRegisterer registers the connected-pages gauge on reg.
func WithRegisterer(reg prometheus.Registerer) HubOption {
	return func(h *Hub) {
		h.active = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "bookings",
			Subsystem: "live",
			Name:      "connections",
			Help:      "Booking pages holding a live connection",
		})
	}
}

// WithCheckOrigin overrides the same-origin check on upgrade.
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// NewHub returns an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns:    make(map[uint64]*Conn),
		handlers: make(map[string]HandlerFunc),
		staged:   make(map[string]staged),
		StageTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle registers fn for events named name.
func (h *Hub) Handle(name string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[name] = fn
}

// Stage queues fn to run once the page rendered with pageID connects.
func (h *Hub) Stage(pageID string, fn func(*Conn)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.staged[pageID]
	if s.at.IsZero() {
		s.at = time.Now()
	}
	s.fns = append(s.fns, fn)
	h.staged[pageID] = s
}

// Sweep drops staged actions whose page never connected.
func (h *Hub) Sweep(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, s := range h.staged {
		if now.Sub(s.at) > h.StageTTL {
			delete(h.staged, id)
			n++
		}
	}
	return n
}

// Run sweeps stale staged actions every interval until ctx is done.
func (h *Hub) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case now := <-t.C:
			if n := h.Sweep(now); n > 0 {
				h.logger.Debug("live: swept staged actions", "count", n)
			}
		}
	}
}

// Len reports the number of connected pages.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ServeHTTP upgrades the request and serves the page until it disconnects.
// The "page" query parameter names actions queued with Stage.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("live: upgrade failed", "error", err)
		return
	}

	c := newConn(h, h.nextID.Add(1), ws)
	h.register(c)
	defer h.unregister(c)

	go c.writePump()

	pageID := r.URL.Query().Get("page")
	for _, fn := range h.takeStaged(pageID) {
		fn(c)
	}

	c.readPump()
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	if h.active != nil {
		h.active.Inc()
	}
	h.logger.Debug("live: page connected", "conn", c.id)
}

func (h *Hub) unregister(c *Conn) {
	c.cancel()
	h.mu.Lock()
	delete(h.conns, c.id)
	h.mu.Unlock()
	if h.active != nil {
		h.active.Dec()
	}
	h.logger.Debug("live: page disconnected", "conn", c.id)
}

func (h *Hub) takeStaged(pageID string) []func(*Conn) {
	if pageID == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.staged[pageID]
	if !ok {
		return nil
	}
	delete(h.staged, pageID)
	return s.fns
}

func (h *Hub) dispatch(c *Conn, ev Event) {
	h.mu.RLock()
	fn, ok := h.handlers[ev.Name]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("live: no handler", "event", ev.Name)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("live: handler panicked", "event", ev.Name, "panic", rec)
		}
	}()
	fn(c.ctx, c, ev)
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		c.Close()
	}
}
