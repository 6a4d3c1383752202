/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/simon/internal/game"
)

func serveHomePage(cfg *Config, rooms *game.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var body strings.Builder

		body.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
		body.WriteString(getFavicon())
		body.WriteString(`<title>Simon</title></head><body>`)
		body.WriteString(`<h1>Simon</h1><p>Watch the dome light up, then repeat the colors in order.</p><ul>`)
		body.WriteString(fmt.Sprintf(`<li><a href="%s/single">Single player</a></li>`, cfg.prefix))
		body.WriteString(fmt.Sprintf(`<li><a href="%s/multi/%s">Multiplayer</a></li>`, cfg.prefix, url.PathEscape(cfg.defaultRoom)))
		body.WriteString(fmt.Sprintf(`<li><a href="%s/multi">New private room</a></li>`, cfg.prefix))
		body.WriteString(`</ul>`)

		if live := rooms.Rooms(); len(live) > 0 {
			body.WriteString(`<h2>Rooms</h2><ul>`)
			for _, room := range live {
				snap := room.Snapshot()
				body.WriteString(fmt.Sprintf(`<li><a href="%s/multi/%s">%s</a> (%d players, %s)</li>`,
					cfg.prefix,
					url.PathEscape(snap.ID),
					html.EscapeString(snap.ID),
					len(snap.Players),
					snap.Phase,
				))
			}
			body.WriteString(`</ul>`)
		}

		body.WriteString(`</body></html>`)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(body.String()))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Home page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
