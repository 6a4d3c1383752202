/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/simon/internal/game"
	"github.com/Seednode/simon/internal/gateway"
)

// newRoomID returns a random eight character id not used by a live room.
func newRoomID(rooms *game.Registry) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		out := make([]byte, len(buf))
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}

		id := string(out)
		if _, exists := rooms.Get(id); !exists {
			return id
		}
	}
}

func redirectNewRoom(cfg *Config, rooms *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := newRoomID(rooms)

		logf(cfg, "GAMES: Sending %s to new room %s", realIP(r), id)

		http.Redirect(w, r, cfg.prefix+"/multi/"+id, http.StatusTemporaryRedirect)
	}
}

// serveRoomPage shows how to reach a room: its QR code and the transport
// endpoints a client connects to.
func serveRoomPage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		room := p.ByName("room")
		escaped := url.PathEscape(room)

		var body strings.Builder

		body.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
		body.WriteString(getFavicon())
		body.WriteString(fmt.Sprintf(`<title>Simon: %s</title></head><body>`, html.EscapeString(room)))
		body.WriteString(fmt.Sprintf(`<h1>Room %s</h1>`, html.EscapeString(room)))
		body.WriteString(fmt.Sprintf(`<img src="%s/multi/%s/qr" alt="Scan to join" width="%d" height="%d">`, cfg.prefix, escaped, qrSize, qrSize))
		body.WriteString(`<p>Join with <code>join_room</code> over `)
		body.WriteString(fmt.Sprintf(`<code>%s/ws</code> or Socket.IO at <code>%s/socket.io/</code>.</p>`, cfg.prefix, cfg.prefix))
		body.WriteString(`</body></html>`)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(body.String()))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Room page for %q (%s) to %s in %s",
			room,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveRooms(cfg *Config, rooms *game.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		live := rooms.Rooms()
		out := make([]game.Snapshot, 0, len(live))
		for _, room := range live {
			out = append(out, room.Snapshot())
		}

		if err := writeJSON(cfg, w, r, http.StatusOK, out, "Room list", startTime); err != nil {
			errs <- err
		}
	}
}

func serveRoom(cfg *Config, rooms *game.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		room, ok := rooms.Get(p.ByName("room"))
		if !ok {
			if err := writeError(cfg, w, r, http.StatusNotFound, "no such room", startTime); err != nil {
				errs <- err
			}

			return
		}

		if err := writeJSON(cfg, w, r, http.StatusOK, room.Snapshot(), "Room state", startTime); err != nil {
			errs <- err
		}
	}
}

func registerMultiplayer(cfg *Config, mux *httprouter.Router, coord *game.Coordinator, ws *gateway.WebSocket, sio *gateway.SocketIO, errs chan<- error) {
	sio.Attach(coord)

	mux.GET(cfg.prefix+"/ws", ws.Handle(coord))

	socketIO := http.StripPrefix(cfg.prefix, sio.Handler())
	mux.Handler(http.MethodGet, cfg.prefix+"/socket.io/*any", socketIO)
	mux.Handler(http.MethodPost, cfg.prefix+"/socket.io/*any", socketIO)

	mux.GET(cfg.prefix+"/multi", redirectNewRoom(cfg, coord.Rooms()))
	mux.GET(cfg.prefix+"/multi/:room", serveRoomPage(cfg, errs))
	mux.GET(cfg.prefix+"/multi/:room/qr", serveQR(cfg, errs))

	mux.GET(cfg.prefix+"/api/rooms", serveRooms(cfg, coord.Rooms(), errs))
	mux.GET(cfg.prefix+"/api/rooms/:room", serveRoom(cfg, coord.Rooms(), errs))
}
