package web

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

const writeTimeout = 10 * time.Second

// Hub streams the device list to WebSocket clients. Every interval it takes
// a snapshot and sends it to all clients when it differs from the previous
// one. A client that joins gets the current snapshot at once. Clients whose
// queue is full are dropped.
type Hub struct {
	snapshot func() ([]byte, error)
	every    time.Duration
	logger   *slog.Logger

	join     chan *wsClient
	leave    chan *wsClient
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	// Owned by Run.
	clients map[*wsClient]struct{}
	last    []byte

	n atomic.Int64
}

type wsClient struct {
	send chan []byte
}

// NewHub creates a hub polling snapshot every interval. Call Run to start it.
func NewHub(snapshot func() ([]byte, error), every time.Duration, logger *slog.Logger) *Hub {
	return &Hub{
		snapshot: snapshot,
		every:    every,
		logger:   logger,
		join:     make(chan *wsClient),
		leave:    make(chan *wsClient),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		clients:  make(map[*wsClient]struct{}),
	}
}

// Run polls and serves joins and leaves until Stop. Client queues are
// closed on return.
func (h *Hub) Run() {
	defer close(h.stopped)

	ticker := time.NewTicker(h.every)
	defer ticker.Stop()
	for {
		select {
		case <-h.quit:
			for c := range h.clients {
				h.drop(c)
			}
			return
		case <-ticker.C:
			h.refresh()
		case c := <-h.join:
			h.refresh()
			h.clients[c] = struct{}{}
			h.n.Add(1)
			if h.last != nil {
				h.deliver(c, h.last)
			}
			h.logger.Debug("ws client connected", "total", h.n.Load())
		case c := <-h.leave:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
			h.logger.Debug("ws client disconnected", "total", h.n.Load())
		}
	}
}

// Stop ends Run and waits for it. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.stopped
}

// Len returns the number of connected clients.
func (h *Hub) Len() int { return int(h.n.Load()) }

// refresh takes a snapshot and fans it out if it changed.
func (h *Hub) refresh() {
	msg, err := h.snapshot()
	if err != nil {
		h.logger.Error("ws snapshot", "err", err)
		return
	}
	if bytes.Equal(msg, h.last) {
		return
	}
	h.last = msg
	for c := range h.clients {
		h.deliver(c, msg)
	}
}

func (h *Hub) deliver(c *wsClient, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.drop(c)
		h.logger.Warn("ws client dropped (too slow)")
	}
}

func (h *Hub) drop(c *wsClient) {
	delete(h.clients, c)
	close(c.send)
	h.n.Add(-1)
}

// register adds c. It returns false once the hub has stopped.
func (h *Hub) register(c *wsClient) bool {
	select {
	case h.join <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) unregister(c *wsClient) {
	select {
	case h.leave <- c:
	case <-h.stopped:
	}
}

// handleWS streams device lists to one client until either side goes away.
// Client messages are ignored.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.allowedOrigins) > 0 {
		opts.OriginPatterns = s.allowedOrigins
	}

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Error("ws accept", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := &wsClient{send: make(chan []byte, 16)}
	if !s.hub.register(c) {
		return
	}
	defer s.hub.unregister(c)

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				s.logger.Debug("ws write", "err", err)
				return
			}
		}
	}
}
