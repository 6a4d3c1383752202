/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package gateway carries game traffic between browsers and the game
// coordinator over plain WebSockets and Socket.IO.
package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/simon/internal/game"
)

const (
	sendBuffer     = 16
	maxMessageSize = 64 << 10
)

type Logf func(format string, args ...any)

func nopLogf(string, ...any) {}

// inbound is the envelope of a WebSocket frame; the rest of the frame is
// the event's payload.
type inbound struct {
	Type string `json:"type"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan game.Message
}

// WebSocket serves the JSON-over-WebSocket transport. Frames in are flat
// objects carrying a "type" field; frames out are game.Message values.
type WebSocket struct {
	mu       sync.RWMutex
	clients  map[string]*client
	upgrader websocket.Upgrader
	logf     Logf
}

func NewWebSocket(logf Logf) *WebSocket {
	if logf == nil {
		logf = nopLogf
	}

	return &WebSocket{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logf: logf,
	}
}

// Emit queues m for connID. A client whose queue is full is dropped.
func (ws *WebSocket) Emit(connID string, m game.Message) {
	ws.mu.RLock()
	c, ok := ws.clients[connID]
	if !ok {
		ws.mu.RUnlock()
		return
	}

	select {
	case c.send <- m:
		ws.mu.RUnlock()
	default:
		ws.mu.RUnlock()
		ws.logf("WS: Dropping lagging client %s", connID)
		ws.drop(connID)
	}
}

func (ws *WebSocket) drop(connID string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	c, ok := ws.clients[connID]
	if !ok {
		return
	}

	delete(ws.clients, connID)
	close(c.send)
}

func (ws *WebSocket) Len() int {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	return len(ws.clients)
}

// Close disconnects every client.
func (ws *WebSocket) Close() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	for id, c := range ws.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(ws.clients, id)
	}
}

// Handle upgrades the request and pumps frames to and from h until the
// connection closes.
func (ws *WebSocket) Handle(h game.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := ws.upgrader.Upgrade(w, r, nil)
		if err != nil {
			ws.logf("WS: Upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}

		c := &client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan game.Message, sendBuffer),
		}

		ws.mu.Lock()
		ws.clients[c.id] = c
		ws.mu.Unlock()

		ws.logf("WS: Client %s connected from %s", c.id, r.RemoteAddr)

		go c.writePump()
		ws.readPump(c, h)
	}
}

func (ws *WebSocket) readPump(c *client, h game.Handler) {
	defer func() {
		ws.drop(c.id)
		_ = c.conn.Close()
		h.Disconnect(c.id)

		ws.logf("WS: Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var in inbound
		if err := json.Unmarshal(raw, &in); err != nil || in.Type == "" {
			ws.Emit(c.id, game.Message{
				Event: game.EventError,
				Data:  game.NoticePayload{Message: "malformed frame"},
			})

			continue
		}

		_ = h.Dispatch(c.id, in.Type, raw)
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
