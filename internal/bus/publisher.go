/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bus

import (
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
)

// Publisher mirrors room events onto NATS so that other exhibit hosts, such
// as a scoreboard screen, can follow games without holding a socket.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logf   func(string, ...any)
}

func NewPublisher(conn *nats.Conn, prefix string, logf func(string, ...any)) *Publisher {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Publisher{conn: conn, prefix: prefix, logf: logf}
}

var tokenReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// Subject returns the subject events for room with the given name are
// published on: <prefix>.rooms.<room>.<event>.
func (p *Publisher) Subject(room, event string) string {
	if room == "" {
		room = "_"
	}
	return p.prefix + ".rooms." + tokenReplacer.Replace(room) + "." + tokenReplacer.Replace(event)
}

// Publish encodes data as JSON. Failures are logged, never returned.
func (p *Publisher) Publish(room, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		p.logf("BUS: Encoding %s for %q: %v", event, room, err)
		return
	}

	if err := p.conn.Publish(p.Subject(room, event), payload); err != nil {
		p.logf("BUS: Publishing %s for %q: %v", event, room, err)
	}
}
