package gateway

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pixil98/go-testutil"

	"github.com/Seednode/simon/internal/game"
)

type dispatched struct {
	conn    string
	event   string
	payload string
}

// echoHandler records inbound events and answers each with an
// update_players frame addressed to the sender.
type echoHandler struct {
	gw game.Gateway

	mu           sync.Mutex
	events       []dispatched
	disconnected []string
}

func (h *echoHandler) Dispatch(connID, event string, payload []byte) error {
	h.mu.Lock()
	h.events = append(h.events, dispatched{connID, event, string(payload)})
	h.mu.Unlock()

	h.gw.Emit(connID, game.Message{
		Event: game.EventUpdatePlayers,
		Data:  game.PlayersPayload{Host: "alice"},
	})

	return nil
}

func (h *echoHandler) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.disconnected = append(h.disconnected, connID)
}

func (h *echoHandler) snapshot() ([]dispatched, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]dispatched(nil), h.events...), append([]string(nil), h.disconnected...)
}

func serveWebSocket(t *testing.T) (*WebSocket, *echoHandler, string) {
	t.Helper()

	ws := NewWebSocket(nil)
	h := &echoHandler{gw: ws}

	router := httprouter.New()
	router.GET("/ws", ws.Handle(h))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return ws, h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestWebSocket_RoundTrip(t *testing.T) {
	_, h, url := serveWebSocket(t)
	conn := dial(t, url)

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_room","username":"alice","room":"r1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var out struct {
		Type string `json:"type"`
		Data struct {
			Host string `json:"host"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "type", out.Type, game.EventUpdatePlayers)
	testutil.AssertEqual(t, "host", out.Data.Host, "alice")

	events, _ := h.snapshot()
	testutil.AssertEqual(t, "dispatched", len(events), 1)
	testutil.AssertEqual(t, "event", events[0].event, game.EventJoinRoom)
	if !strings.Contains(events[0].payload, `"username":"alice"`) {
		t.Errorf("payload %q lost the username", events[0].payload)
	}
}

func TestWebSocket_MalformedFrame(t *testing.T) {
	_, h, url := serveWebSocket(t)
	conn := dial(t, url)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var out game.Message
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "type", out.Event, game.EventError)

	events, _ := h.snapshot()
	testutil.AssertEqual(t, "dispatched", len(events), 0)
}

func TestWebSocket_DisconnectNotifiesHandler(t *testing.T) {
	ws, h, url := serveWebSocket(t)
	conn := dial(t, url)

	deadline := time.Now().Add(5 * time.Second)
	for ws.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	testutil.AssertEqual(t, "clients", ws.Len(), 1)

	_ = conn.Close()

	for time.Now().Before(deadline) {
		if _, gone := h.snapshot(); len(gone) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, gone := h.snapshot()
	testutil.AssertEqual(t, "disconnects", len(gone), 1)
	testutil.AssertEqual(t, "clients", ws.Len(), 0)
}

func TestWebSocket_EmitUnknownConnIsNoop(t *testing.T) {
	ws := NewWebSocket(nil)
	ws.Emit("nobody", game.Message{Event: game.EventError})
	testutil.AssertEqual(t, "clients", ws.Len(), 0)
}

func TestWebSocket_DropsLaggingClient(t *testing.T) {
	ws := NewWebSocket(nil)

	c := &client{id: "c1", send: make(chan game.Message, 1)}
	ws.clients[c.id] = c

	ws.Emit("c1", game.Message{Event: game.EventError})
	ws.Emit("c1", game.Message{Event: game.EventError})

	testutil.AssertEqual(t, "clients", ws.Len(), 0)

	_, open := <-c.send
	testutil.AssertEqual(t, "buffered message kept", open, true)
	_, open = <-c.send
	testutil.AssertEqual(t, "channel closed", open, false)
}

func TestPayload(t *testing.T) {
	tests := map[string]struct {
		args []any
		exp  string
	}{
		"none":   {nil, ""},
		"string": {[]any{`{"username":"bob"}`}, `{"username":"bob"}`},
		"object": {[]any{map[string]any{"room": "r1"}}, `{"room":"r1"}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "payload", string(payload(tt.args)), tt.exp)
		})
	}
}

func TestGateways_FanOut(t *testing.T) {
	ws := NewWebSocket(nil)
	sio := NewSocketIO(nil)
	defer sio.Close()

	c := &client{id: "c1", send: make(chan game.Message, 1)}
	ws.clients[c.id] = c

	game.Gateways{ws, sio}.Emit("c1", game.Message{Event: game.EventGameOver})

	msg := <-c.send
	testutil.AssertEqual(t, "event", msg.Event, game.EventGameOver)
	testutil.AssertEqual(t, "sio sockets", sio.Len(), 0)
}
