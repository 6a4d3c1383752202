/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Seednode/simon/internal/sequence"
)

// PlaySubject is appended to the configured subject prefix.
const PlaySubject = "display.play"

type playRequest struct {
	Sequence []string `json:"sequence"`
	OnMS     int64    `json:"on_ms"`
	OffMS    int64    `json:"off_ms"`
}

type playReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Remote plays sequences on a fixture attached to another host, reached
// through NATS request/reply. The fixture host runs a Responder.
type Remote struct {
	conn    *nats.Conn
	subject string
	slack   time.Duration
}

// NewRemote sends play requests on prefix + "." + PlaySubject. Each request
// may take the expected playback time plus slack before it is abandoned.
func NewRemote(conn *nats.Conn, prefix string, slack time.Duration) *Remote {
	return &Remote{
		conn:    conn,
		subject: prefix + "." + PlaySubject,
		slack:   slack,
	}
}

func (r *Remote) Play(ctx context.Context, seq sequence.Sequence, on, off time.Duration) error {
	data, err := json.Marshal(playRequest{
		Sequence: seq.Strings(),
		OnMS:     on.Milliseconds(),
		OffMS:    off.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("encoding play request: %w", err)
	}

	budget := sequence.Difficulty{On: on, Off: off}.Duration(seq) + r.slack
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	msg, err := r.conn.RequestWithContext(ctx, r.subject, data)
	if err != nil {
		return fmt.Errorf("requesting playback on %s: %w", r.subject, err)
	}

	var reply playReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("decoding play reply: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("remote display: %s", reply.Error)
	}

	return nil
}

// Responder serves play requests from Remote on a locally attached Device.
type Responder struct {
	conn    *nats.Conn
	subject string
	d       Device
	logf    Logf
}

func NewResponder(conn *nats.Conn, prefix string, d Device, logf Logf) *Responder {
	if logf == nil {
		logf = nopLogf
	}
	return &Responder{
		conn:    conn,
		subject: prefix + "." + PlaySubject,
		d:       d,
		logf:    logf,
	}
}

// Start serves requests until ctx is cancelled.
func (r *Responder) Start(ctx context.Context) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		r.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.subject, err)
	}

	r.logf("DEVICE: Serving playback requests on %s", r.subject)

	<-ctx.Done()

	return sub.Unsubscribe()
}

func (r *Responder) handle(ctx context.Context, msg *nats.Msg) {
	var req playRequest
	reply := playReply{OK: true}

	err := json.Unmarshal(msg.Data, &req)
	if err == nil {
		err = r.d.Play(ctx, sequence.Parse(req.Sequence),
			time.Duration(req.OnMS)*time.Millisecond,
			time.Duration(req.OffMS)*time.Millisecond)
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logf("DEVICE: Playback request failed: %v", err)
		}
		reply = playReply{Error: err.Error()}
	}

	data, _ := json.Marshal(reply)
	if err := msg.Respond(data); err != nil {
		r.logf("DEVICE: Replying to playback request: %v", err)
	}
}
