/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"

	"github.com/Seednode/simon/internal/game"
)

var inboundEvents = []string{
	game.EventRegisterUser,
	game.EventJoinRoom,
	game.EventSetReady,
	game.EventStartGame,
	game.EventSubmitAnswer,
}

// SocketIO serves the Socket.IO transport used by the exhibit's browser
// clients. Every socket sits in a room named after its own id, which is
// how messages are addressed to it.
type SocketIO struct {
	io   *socket.Server
	opts *socket.ServerOptions

	mu    sync.RWMutex
	owned map[string]struct{}

	logf Logf
}

func NewSocketIO(logf Logf) *SocketIO {
	if logf == nil {
		logf = nopLogf
	}

	opts := socket.DefaultServerOptions()
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	opts.SetAllowEIO3(true)

	return &SocketIO{
		io:    socket.NewServer(nil, opts),
		opts:  opts,
		owned: make(map[string]struct{}),
		logf:  logf,
	}
}

// Attach routes every socket's events to h.
func (s *SocketIO) Attach(h game.Handler) {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		id := string(client.Id())

		s.mu.Lock()
		s.owned[id] = struct{}{}
		s.mu.Unlock()

		s.logf("SIO: Client %s connected", id)

		for _, ev := range inboundEvents {
			client.On(ev, func(args ...any) {
				_ = h.Dispatch(id, ev, payload(args))
			})
		}

		client.On("disconnect", func(args ...any) {
			s.mu.Lock()
			delete(s.owned, id)
			s.mu.Unlock()

			h.Disconnect(id)

			s.logf("SIO: Client %s disconnected", id)
		})
	})
}

func (s *SocketIO) Handler() http.Handler {
	return s.io.ServeHandler(s.opts)
}

// Emit sends m to connID if it is one of this server's sockets.
func (s *SocketIO) Emit(connID string, m game.Message) {
	s.mu.RLock()
	_, ok := s.owned[connID]
	s.mu.RUnlock()

	if !ok {
		return
	}

	s.io.To(socket.Room(connID)).Emit(m.Event, m.Data)
}

func (s *SocketIO) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.owned)
}

func (s *SocketIO) Close() {
	s.io.Close(nil)
}

// payload turns a Socket.IO argument list back into JSON. Clients send
// either an object or a pre-encoded string.
func payload(args []any) []byte {
	if len(args) == 0 {
		return nil
	}

	switch v := args[0].(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}

		return b
	}
}
