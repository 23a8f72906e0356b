package realtime

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtroode/chatdata-server/internal/logger"
)

// SocketOptions tune a websocket session.
type SocketOptions struct {
	AllowedOrigins  []string
	SendBuffer      int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

// SocketHandler upgrades requests to websocket sessions subscribed to a Hub.
// The channel is push-only: inbound frames are read and discarded so that
// control frames keep flowing.
type SocketHandler struct {
	hub      *Hub
	opts     SocketOptions
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewSocketHandler(hub *Hub, opts SocketOptions, logger *logger.Logger) *SocketHandler {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	h := &SocketHandler{hub: hub, opts: opts, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *SocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.opts.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, origin)
}

func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub, err := h.hub.Subscribe(h.opts.SendBuffer)
	if err != nil {
		http.Error(w, "realtime channel is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.Unsubscribe(sub)
		h.logger.Warn("Realtime socket: failed to upgrade", "error", err.Error())
		return
	}

	h.logger.Info("Realtime socket: client connected",
		"session_id", sub.ID(),
		"remote_addr", r.RemoteAddr)

	wg := new(sync.WaitGroup)
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		h.readLoop(conn)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer conn.Close()
		h.writeLoop(conn, sub, done)
	}()

	wg.Wait()
	h.hub.Unsubscribe(sub)

	h.logger.Info("Realtime socket: client disconnected",
		"session_id", sub.ID(),
		"lagging", sub.Lagging())
}

func (h *SocketHandler) readLoop(conn *websocket.Conn) {
	if h.opts.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.opts.MaxMessageBytes)
	}
	pongWait := h.opts.PingInterval * 2
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *SocketHandler) writeLoop(conn *websocket.Conn, sub *Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sub.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if !ok {
				reason := "server shutting down"
				if sub.Lagging() {
					reason = "client too slow"
				}
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, reason))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Debug("Realtime socket: write failed",
					"session_id", sub.ID(),
					"error", err.Error())
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
