package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/Seednode/simon/internal/sequence"
)

func TestCoordinator_TwoPlayerRound(t *testing.T) {
	dev := newManualDevice()
	c, gw := newTestCoordinator(dev)
	defer c.Close()

	if err := c.JoinRoom("c1", "alice", "r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.JoinRoom("c2", "bob", "r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	roster := gw.to("c1", EventUpdatePlayers)
	last := roster[len(roster)-1].Data.(PlayersPayload)
	testutil.AssertEqual(t, "host", last.Host, "alice")
	testutil.AssertEqual(t, "players", len(last.Players), 2)

	if err := c.StartGame("c1", "alice", "r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	started := gw.waitFor(t, "c2", EventGameStarted, 1)[0].Data.(RoundPayload)
	testutil.AssertEqual(t, "level", started.Level, 1)
	testutil.AssertEqual(t, "length", len(started.Sequence), 3)

	play := dev.next(t)
	testutil.AssertEqual(t, "played", play.seq.Equal(sequence.Parse(started.Sequence)), true)

	// Answers before the display finishes are ignored.
	err := c.SubmitAnswer("c1", "alice", "r1", started.Sequence)
	if !errors.Is(err, ErrStaleReference) {
		t.Fatalf("expected ErrStaleReference, got %v", err)
	}

	play.done <- nil

	ready := gw.waitFor(t, "c1", EventGameUpdate, 1)[0].Data.(GameUpdatePayload)
	testutil.AssertEqual(t, "status", ready.Status, StatusReadyForInput)
	gw.waitFor(t, "c2", EventGameUpdate, 1)

	if err := c.SubmitAnswer("c1", "alice", "r1", started.Sequence); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waiting := gw.to("c1", EventMessageBox)
	testutil.AssertEqual(t, "waiting", waiting[0].Data.(NoticePayload).Message, noticeWaiting)
	testutil.AssertEqual(t, "bob not told to wait", len(gw.to("c2", EventMessageBox)), 0)

	if err := c.SubmitAnswer("c2", "bob", "r1", started.Sequence); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scores := gw.to("c1", EventUpdateScore)
	testutil.AssertEqual(t, "score updates", len(scores), 2)
	testutil.AssertEqual(t, "alice", scores[0].Data.(ScorePayload), ScorePayload{Username: "alice", Score: 20})
	testutil.AssertEqual(t, "bob", scores[1].Data.(ScorePayload), ScorePayload{Username: "bob", Score: 20})

	next := dev.next(t)
	testutil.AssertEqual(t, "level 2 length", len(next.seq), 4)

	r, _ := c.Rooms().Get("r1")
	testutil.AssertEqual(t, "level", r.Snapshot().Level, 2)
}

func TestCoordinator_GameOverDeletesRoom(t *testing.T) {
	c, gw := newTestCoordinator(instantDevice{}, WithMaxLevel(2))
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.StartGame("c1", "alice", "r1")

	for level := 1; level <= 2; level++ {
		msg := gw.waitFor(t, "c1", EventGameUpdate, level)[level-1]
		seq := msg.Data.(GameUpdatePayload).Sequence

		if err := c.SubmitAnswer("c1", "alice", "r1", seq); err != nil {
			t.Fatalf("level %d: unexpected error: %v", level, err)
		}
	}

	over := gw.waitFor(t, "c1", EventGameOver, 1)[0].Data.(GameOverPayload)
	testutil.AssertEqual(t, "final score", over.Scores["alice"], 20+30)

	_, ok := c.Rooms().Get("r1")
	testutil.AssertEqual(t, "room deleted", ok, false)

	// The same id can be reused afterwards.
	if err := c.JoinRoom("c1", "alice", "r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := c.Rooms().Get("r1")
	testutil.AssertEqual(t, "fresh phase", r.Snapshot().Phase, Lobby)
}

func TestCoordinator_JoinDeniedWhileRunning(t *testing.T) {
	dev := newManualDevice()
	c, gw := newTestCoordinator(dev)
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.StartGame("c1", "alice", "r1")

	err := c.JoinRoom("c3", "carol", "r1")
	if !errors.Is(err, ErrRoomUnavailable) {
		t.Fatalf("expected ErrRoomUnavailable, got %v", err)
	}

	denied := gw.to("c3", EventJoinDenied)
	testutil.AssertEqual(t, "denied", len(denied), 1)

	r, _ := c.Rooms().Get("r1")
	testutil.AssertEqual(t, "players", len(r.Snapshot().Players), 1)
}

func TestCoordinator_NonHostCannotStart(t *testing.T) {
	c, gw := newTestCoordinator(newManualDevice())
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.JoinRoom("c2", "bob", "r1")

	err := c.Dispatch("c2", EventStartGame, []byte(`{"username":"bob","room":"r1"}`))
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	testutil.AssertEqual(t, "error sent", len(gw.to("c2", EventError)), 1)
	testutil.AssertEqual(t, "game started", gw.count(EventGameStarted), 0)
}

func TestCoordinator_DisconnectDuringDisplay(t *testing.T) {
	dev := newManualDevice()
	c, gw := newTestCoordinator(dev)
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.JoinRoom("c2", "bob", "r1")
	_ = c.StartGame("c1", "alice", "r1")

	play := dev.next(t)

	c.Disconnect("c1")

	roster := gw.to("c2", EventUpdatePlayers)
	last := roster[len(roster)-1].Data.(PlayersPayload)
	testutil.AssertEqual(t, "new host", last.Host, "bob")
	testutil.AssertEqual(t, "players", len(last.Players), 1)

	play.done <- nil
	ready := gw.waitFor(t, "c2", EventGameUpdate, 1)[0].Data.(GameUpdatePayload)

	if err := c.SubmitAnswer("c2", "bob", "r1", ready.Sequence); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "bob scored", len(gw.to("c2", EventUpdateScore)), 1)
	testutil.AssertEqual(t, "alice gets nothing", len(gw.to("c1", EventGameUpdate)), 0)
}

func TestCoordinator_LastDisconnectAbortsPlayback(t *testing.T) {
	dev := newManualDevice()
	c, gw := newTestCoordinator(dev)

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.StartGame("c1", "alice", "r1")

	dev.next(t)
	c.Disconnect("c1")

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("playback still running after its room was deleted")
	}

	_, ok := c.Rooms().Get("r1")
	testutil.AssertEqual(t, "room deleted", ok, false)
	testutil.AssertEqual(t, "no answer window", gw.count(EventGameUpdate), 0)
}

func TestCoordinator_StaleCompletionIgnoredAfterRecreate(t *testing.T) {
	dev := newManualDevice()
	c, gw := newTestCoordinator(dev)
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.StartGame("c1", "alice", "r1")
	old := dev.next(t)

	c.Disconnect("c1")
	_ = c.JoinRoom("c2", "bob", "r1")

	// The aborted playback may race the release; either way nothing
	// reaches the new room.
	select {
	case old.done <- nil:
	default:
	}
	c.Wait()

	r, _ := c.Rooms().Get("r1")
	snap := r.Snapshot()
	testutil.AssertEqual(t, "host", snap.Host, "bob")
	testutil.AssertEqual(t, "phase", snap.Phase, Lobby)
	testutil.AssertEqual(t, "no answer window", gw.count(EventGameUpdate), 0)
}

func TestCoordinator_DeviceFailureStillOpensAnswers(t *testing.T) {
	dev := newManualDevice()
	c, gw := newTestCoordinator(dev)
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.StartGame("c1", "alice", "r1")

	dev.next(t).done <- errors.New("strip unplugged")

	gw.waitFor(t, "c1", EventGameUpdate, 1)
}

func TestCoordinator_DefaultRoom(t *testing.T) {
	c, _ := newTestCoordinator(instantDevice{})
	defer c.Close()

	_ = c.Dispatch("c1", EventJoinRoom, []byte(`{"username":"alice"}`))

	_, ok := c.Rooms().Get(DefaultRoom)
	testutil.AssertEqual(t, "default room", ok, true)
}

func TestCoordinator_DispatchRejectsBadInput(t *testing.T) {
	c, gw := newTestCoordinator(instantDevice{})
	defer c.Close()

	tests := map[string]struct {
		event   string
		payload string
	}{
		"malformed json": {EventJoinRoom, `{"username":`},
		"no username":    {EventJoinRoom, `{"room":"r1"}`},
		"unknown event":  {"dance", `{}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := c.Dispatch("c1", tt.event, []byte(tt.payload))
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	testutil.AssertEqual(t, "errors sent", len(gw.to("c1", EventError)), 3)
	testutil.AssertEqual(t, "rooms", c.Rooms().Len(), 0)
}

func TestCoordinator_StaleEventsAreSilent(t *testing.T) {
	c, gw := newTestCoordinator(instantDevice{})
	defer c.Close()

	err := c.Dispatch("c1", EventSubmitAnswer, []byte(`{"username":"alice","room":"nowhere","answer":["red"]}`))
	if !errors.Is(err, ErrStaleReference) {
		t.Fatalf("expected ErrStaleReference, got %v", err)
	}

	testutil.AssertEqual(t, "errors sent", gw.count(EventError), 0)
}

func TestCoordinator_ReconnectMovesDelivery(t *testing.T) {
	c, gw := newTestCoordinator(instantDevice{})
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.RegisterUser("c9", "alice")
	_ = c.SetReady("c9", "alice", "r1")

	testutil.AssertEqual(t, "old conn", len(gw.to("c1", EventUpdatePlayers)), 1)
	testutil.AssertEqual(t, "new conn", len(gw.to("c9", EventUpdatePlayers)), 1)

	// The old connection closing no longer affects alice.
	c.Disconnect("c1")
	r, _ := c.Rooms().Get("r1")
	testutil.AssertEqual(t, "still seated", len(r.Snapshot().Players), 1)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) Publish(_, event string, _ any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = append(o.events, event)
}

func TestCoordinator_ObserverSeesBroadcastsOnly(t *testing.T) {
	obs := &recordingObserver{}
	c, gw := newTestCoordinator(instantDevice{}, WithObserver(obs), WithGenerator(sequence.NewSeededGenerator(7)))
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.JoinRoom("c2", "bob", "r1")
	_ = c.StartGame("c1", "alice", "r1")

	seq := gw.waitFor(t, "c1", EventGameUpdate, 1)[0].Data.(GameUpdatePayload).Sequence
	c.Wait()
	_ = c.SubmitAnswer("c1", "alice", "r1", seq)

	obs.mu.Lock()
	defer obs.mu.Unlock()

	for _, ev := range obs.events {
		if ev == EventMessageBox {
			t.Fatal("private notice was published")
		}
	}
	testutil.AssertEqual(t, "published", obs.events[len(obs.events)-1], EventGameUpdate)
}

func TestCoordinator_ReapIdleRooms(t *testing.T) {
	c, gw := newTestCoordinator(instantDevice{})
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "stale")
	time.Sleep(20 * time.Millisecond)
	_ = c.JoinRoom("c2", "bob", "fresh")

	testutil.AssertEqual(t, "reaped", c.Reap(10*time.Millisecond), 1)

	_, ok := c.Rooms().Get("stale")
	testutil.AssertEqual(t, "stale gone", ok, false)
	_, ok = c.Rooms().Get("fresh")
	testutil.AssertEqual(t, "fresh kept", ok, true)

	notices := gw.to("c1", EventMessageBox)
	testutil.AssertEqual(t, "notified", len(notices), 1)
	testutil.AssertEqual(t, "notice", notices[0].Data.(NoticePayload).Message, noticeIdle)
}

func TestCoordinator_DeniedJoinKeepsExistingConnection(t *testing.T) {
	dev := newManualDevice()
	c, gw := newTestCoordinator(dev)
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")
	_ = c.StartGame("c1", "alice", "r1")

	_ = c.JoinRoom("c3", "carol", "r2")
	_ = c.JoinRoom("c5", "dave", "r2")

	err := c.JoinRoom("c4", "carol", "r1")
	if !errors.Is(err, ErrRoomUnavailable) {
		t.Fatalf("expected ErrRoomUnavailable, got %v", err)
	}
	testutil.AssertEqual(t, "denied", len(gw.to("c4", EventJoinDenied)), 1)

	conn, ok := c.sessions.Connection("carol")
	testutil.AssertEqual(t, "still bound", ok, true)
	testutil.AssertEqual(t, "connection", conn, "c3")

	c.Disconnect("c4")

	r2, ok := c.Rooms().Get("r2")
	testutil.AssertEqual(t, "r2 kept", ok, true)

	snap := r2.Snapshot()
	_, seated := snap.Players["carol"]
	testutil.AssertEqual(t, "carol seated", seated, true)
	testutil.AssertEqual(t, "host", snap.Host, "carol")
}

func TestCoordinator_SubmitWithoutAnswerIsInvalid(t *testing.T) {
	c, gw := newTestCoordinator(instantDevice{})
	defer c.Close()

	_ = c.JoinRoom("a1", "alice", "r1")
	_ = c.JoinRoom("b1", "bob", "r1")
	_ = c.StartGame("a1", "alice", "r1")

	gw.waitFor(t, "b1", EventGameUpdate, 1)

	err := c.Dispatch("b1", EventSubmitAnswer, []byte(`{"username":"bob","room":"r1"}`))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	testutil.AssertEqual(t, "error sent", len(gw.to("b1", EventError)), 1)
	testutil.AssertEqual(t, "no waiting notice", len(gw.to("b1", EventMessageBox)), 0)

	r, _ := c.Rooms().Get("r1")
	r.mu.Lock()
	answers := len(r.answers)
	r.mu.Unlock()
	testutil.AssertEqual(t, "answers recorded", answers, 0)
}

func TestCoordinator_StartWithoutUsernameIsInvalid(t *testing.T) {
	c, gw := newTestCoordinator(newManualDevice())
	defer c.Close()

	_ = c.JoinRoom("c1", "alice", "r1")

	err := c.Dispatch("c1", EventStartGame, []byte(`{"room":"r1"}`))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	testutil.AssertEqual(t, "error sent", len(gw.to("c1", EventError)), 1)
	testutil.AssertEqual(t, "game started", gw.count(EventGameStarted), 0)
}
