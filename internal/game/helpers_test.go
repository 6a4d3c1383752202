package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Seednode/simon/internal/device"
	"github.com/Seednode/simon/internal/sequence"
)

type sent struct {
	conn string
	msg  Message
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []sent
}

func (g *fakeGateway) Emit(connID string, m Message) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sent = append(g.sent, sent{connID, m})
}

// to returns every message delivered to conn with the given event.
func (g *fakeGateway) to(conn, event string) []Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Message
	for _, s := range g.sent {
		if s.conn == conn && s.msg.Event == event {
			out = append(out, s.msg)
		}
	}

	return out
}

func (g *fakeGateway) count(event string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, s := range g.sent {
		if s.msg.Event == event {
			n++
		}
	}

	return n
}

func (g *fakeGateway) waitFor(t *testing.T, conn, event string, n int) []Message {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if msgs := g.to(conn, event); len(msgs) >= n {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d %q on %s", n, event, conn)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// call is one Play request held until the test releases it.
type call struct {
	seq  sequence.Sequence
	done chan error
}

type manualDevice struct {
	calls chan *call
}

func newManualDevice() *manualDevice {
	return &manualDevice{calls: make(chan *call, 16)}
}

func (d *manualDevice) Play(ctx context.Context, seq sequence.Sequence, _, _ time.Duration) error {
	c := &call{seq: seq, done: make(chan error, 1)}
	d.calls <- c

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.done:
		return err
	}
}

func (d *manualDevice) next(t *testing.T) *call {
	t.Helper()

	select {
	case c := <-d.calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for playback")
		return nil
	}
}

type instantDevice struct{}

func (instantDevice) Play(ctx context.Context, _ sequence.Sequence, _, _ time.Duration) error {
	return ctx.Err()
}

func newTestCoordinator(dev device.Device, opts ...Option) (*Coordinator, *fakeGateway) {
	gw := &fakeGateway{}

	opts = append([]Option{
		WithStartDelay(0),
		WithRoundDelay(0),
		WithGenerator(sequence.NewSeededGenerator(1)),
	}, opts...)

	return NewCoordinator(NewRegistry(), NewSessions(), gw, dev, opts...), gw
}
