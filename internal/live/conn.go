package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prayagsingh/bookings/internal/prompt"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 * 1024
	sendBuffer = 64
)

var (
	// ErrClosed is returned once the browser connection is gone.
	ErrClosed = errors.New("live: connection closed")

	// ErrSlowClient is returned when a browser cannot keep up with its
	// frames; the connection is dropped.
	ErrSlowClient = errors.New("live: client too slow")
)

// Conn is one browser page. It is the prompt.Renderer for that page.
type Conn struct {
	id     uint64
	hub    *Hub
	ws     *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	prompt *prompt.Prompt

	mu         sync.Mutex
	nextDialog uint64
	dialogs    map[uint64]*dialog
}

type dialog struct {
	hooks prompt.Hooks
	reply chan *prompt.Reply
}

var _ prompt.Renderer = (*Conn)(nil)

func newConn(h *Hub, id uint64, ws *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		id:      id,
		hub:     h,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		ctx:     ctx,
		cancel:  cancel,
		dialogs: make(map[uint64]*dialog),
	}
	c.prompt = prompt.New(c, append([]prompt.Option{prompt.WithLogger(h.logger)}, h.promptOpts...)...)
	return c
}

// ID identifies the connection within its hub.
func (c *Conn) ID() uint64 { return c.id }

// Context is cancelled when the page disconnects.
func (c *Conn) Context() context.Context { return c.ctx }

// Prompt returns the dialog facade drawing on this page.
func (c *Conn) Prompt() *prompt.Prompt { return c.prompt }

// Show implements prompt.Renderer.
func (c *Conn) Show(opts prompt.Options) error {
	return c.enqueue(serverFrame{Type: frameShow, Options: &opts})
}

// Fire implements prompt.Renderer. Hooks run on the connection's read loop.
func (c *Conn) Fire(ctx context.Context, opts prompt.Options, hooks prompt.Hooks) (*prompt.Reply, error) {
	d := &dialog{hooks: hooks, reply: make(chan *prompt.Reply, 1)}

	c.mu.Lock()
	c.nextDialog++
	id := c.nextDialog
	c.dialogs[id] = d
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.dialogs, id)
		c.mu.Unlock()
	}()

	if err := c.enqueue(serverFrame{Type: frameFire, ID: id, Options: &opts}); err != nil {
		return nil, err
	}

	select {
	case r := <-d.reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}
}

// Emit pushes a named command to the page script.
func (c *Conn) Emit(name string, data any) error {
	return c.enqueue(serverFrame{Type: frameEmit, Name: name, Data: data})
}

// Navigate sends the page to url.
func (c *Conn) Navigate(url string) error {
	return c.Emit("navigate", map[string]string{"url": url})
}

// Close drops the connection.
func (c *Conn) Close() {
	c.cancel()
}

func (c *Conn) enqueue(f serverFrame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("live: encode %s frame: %w", f.Type, err)
	}
	if c.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case c.send <- b:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	default:
		c.hub.logger.Warn("live: dropping slow client", "conn", c.id)
		c.cancel()
		return ErrSlowClient
	}
}

func (c *Conn) lookup(id uint64) *dialog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialogs[id]
}

func (c *Conn) readPump() {
	defer c.cancel()

	c.ws.SetReadLimit(maxMsgSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("live: read failed", "conn", c.id, "error", err)
			}
			return
		}

		var f clientFrame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.hub.logger.Debug("live: bad frame", "conn", c.id, "error", err)
			continue
		}

		switch f.Type {
		case frameEvent:
			go c.hub.dispatch(c, Event{Name: f.Name, Data: f.Data})
		case frameWillOpen:
			if d := c.lookup(f.ID); d != nil && d.hooks.WillOpen != nil {
				d.hooks.WillOpen()
			}
		case frameDidOpen:
			if d := c.lookup(f.ID); d != nil && d.hooks.DidOpen != nil {
				d.hooks.DidOpen()
			}
		case frameResult:
			if d := c.lookup(f.ID); d != nil {
				select {
				case d.reply <- f.Result:
				default:
				}
			}
		default:
			c.hub.logger.Debug("live: unknown frame", "conn", c.id, "type", f.Type)
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.cancel()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		case <-c.ctx.Done():
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
