// Package ws serves the live analytics feed: clients subscribe to games
// and receive fresh analytics whenever new draws are imported for them.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	"lottery-insight-server/insight"
)

// AnalyticsSource computes the analytics pushed to subscribers.
type AnalyticsSource interface {
	Analytics(ctx context.Context, gameID string, window int) (*insight.AnalyticsView, error)
}

// ConnObserver is told about connects and disconnects. Optional.
type ConnObserver interface {
	ClientConnected()
	ClientDisconnected()
}

type subscription struct {
	client *Client
	gameID string
	on     bool
}

type update struct {
	gameID string
	data   []byte
}

// Hub owns the set of clients and their subscriptions. All of that state
// is only touched by the Run goroutine.
type Hub struct {
	clients    map[*Client]map[string]bool
	register   chan *Client
	unregister chan *Client
	subs       chan subscription
	broadcast  chan update
	done       chan struct{}

	source   AnalyticsSource
	observer ConnObserver
	upgrader websocket.Upgrader
}

// NewHub creates a Hub. allowedOrigins follows the CORS list; "*" allows any.
func NewHub(source AnalyticsSource, observer ConnObserver, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*Client]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subs:       make(chan subscription),
		broadcast:  make(chan update, 16),
		done:       make(chan struct{}),
		source:     source,
		observer:   observer,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled, Run closes every client and returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "ws", "clients", len(h.clients))
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = make(map[string]bool)
			if h.observer != nil {
				h.observer.ClientConnected()
			}
			slog.Debug("client connected", "tag", "ws", "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				slog.Debug("client disconnected", "tag", "ws", "clients", len(h.clients))
			}

		case s := <-h.subs:
			games, ok := h.clients[s.client]
			if !ok {
				continue
			}
			msgType := TypeUnsubscribed
			if s.on {
				games[s.gameID] = true
				msgType = TypeSubscribed
			} else {
				delete(games, s.gameID)
			}
			data, _ := json.Marshal(SubscribedMsg{Type: msgType, GameID: s.gameID})
			safeSend(s.client.send, data)

		case u := <-h.broadcast:
			n := 0
			for c, games := range h.clients {
				if games[u.gameID] {
					safeSend(c.send, u.data)
					n++
				}
			}
			slog.Debug("analytics pushed", "tag", "ws", "game_id", u.gameID, "clients", n)
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	if h.observer != nil {
		h.observer.ClientDisconnected()
	}
}

// DrawsImported recomputes analytics for gameID and pushes them to its
// subscribers. It satisfies importer.Observer.
func (h *Hub) DrawsImported(ctx context.Context, gameID string, n int) {
	if n == 0 {
		return
	}
	view, err := h.source.Analytics(ctx, gameID, 0)
	if err != nil {
		slog.Warn("analytics for push failed", "tag", "ws", "game_id", gameID, "err", err)
		return
	}
	h.Publish(gameID, view)
}

// Publish sends an analytics_updated message to subscribers of gameID.
func (h *Hub) Publish(gameID string, analytics any) {
	data, err := json.Marshal(AnalyticsUpdatedMsg{Type: TypeAnalyticsUpdated, GameID: gameID, Analytics: analytics})
	if err != nil {
		slog.Error("marshal analytics update", "tag", "ws", "err", err)
		return
	}
	select {
	case h.broadcast <- update{gameID: gameID, data: data}:
	case <-h.done:
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("upgrade failed", "tag", "ws", "err", err)
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, 64)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// safeSend sends data to a channel without panicking if the channel is
// closed. If the channel is full or closed, the send is skipped.
func safeSend(ch chan []byte, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("send on closed client", "tag", "ws", "panic", r)
		}
	}()
	select {
	case ch <- data:
	default:
	}
}
