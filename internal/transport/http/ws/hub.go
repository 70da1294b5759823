// Package ws раздаёт изменения локального списка комментариев по websocket.
//
// Источник событий — хуки движка синхронизации. Broadcast не блокируется:
// клиент, не успевающий вычитывать очередь, отключается.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pribylovaa/go-feed-comments/internal/engine"
	"github.com/pribylovaa/go-feed-comments/internal/metrics"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/internal/transport/http/dto"
	logctx "github.com/pribylovaa/go-feed-comments/pkg/log"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10
)

// Hub — множество подключённых websocket-клиентов.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub создаёт хаб. Проверка Origin отключена: API слушает локальный адрес виджета.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Hooks возвращает хуки движка, транслирующие события в Broadcast.
func (h *Hub) Hooks() engine.Hooks {
	return engine.Hooks{
		OnRead: func(ev engine.ReadEvent) {
			h.Broadcast(dto.Event{
				Type:      "read",
				Source:    string(ev.Source),
				Entries:   dto.FromEntries(ev.Entries),
				NextIndex: ev.NextIndex,
			})
		},
		OnWrite: func(ev engine.WriteEvent) {
			h.Broadcast(dto.Event{
				Type:    "write",
				Entries: dto.FromEntries([]models.Entry{ev.Entry}),
				Resend:  ev.Resend,
			})
		},
		OnFailure: func(ev engine.FailureEvent) {
			msg := ""
			if ev.Err != nil {
				msg = ev.Err.Error()
			}

			h.Broadcast(dto.Event{
				Type:    "failure",
				Entries: dto.FromEntries([]models.Entry{ev.Entry}),
				Error:   msg,
			})
		},
	}
}

// Clients — число подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Broadcast ставит событие в очередь каждому клиенту.
func (h *Hub) Broadcast(ev dto.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		slog.Default().Error("ws_marshal_failed", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropLocked(c)
		}
	}
}

// Close отключает всех клиентов и запрещает новые подключения.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	c.close()
	metrics.WSClients.Dec()
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropLocked(c)
}

// ServeHTTP поднимает websocket и обслуживает клиента до разрыва соединения.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lg := logctx.From(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		lg.Warn("ws_upgrade_failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeTimeout))
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	metrics.WSClients.Inc()
	h.mu.Unlock()

	lg.Info("ws_connected", "remote", r.RemoteAddr)

	go h.readPump(c)
	h.writePump(c)

	lg.Info("ws_disconnected", "remote", r.RemoteAddr)
}

// writePump пишет события и пинги; выходит, когда очередь клиента закрыта или запись не удалась.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.drop(c)
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump вычитывает входящие кадры (клиент ничего не шлёт, кроме pong/close)
// и отключает клиента при ошибке чтения.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
