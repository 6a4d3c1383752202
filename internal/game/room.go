/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Seednode/simon/internal/sequence"
)

type Phase int

const (
	Lobby Phase = iota
	Displaying
	AwaitingAnswers
	Evaluating
	Ended
)

func (p Phase) String() string {
	switch p {
	case Lobby:
		return "lobby"
	case Displaying:
		return "displaying"
	case AwaitingAnswers:
		return "awaiting_answers"
	case Evaluating:
		return "evaluating"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Room is one multiplayer game. All fields are guarded by mu; the room
// context is cancelled when the room is torn down, which aborts any
// playback still running for it.
type Room struct {
	ID string

	mu         sync.Mutex
	host       string
	players    map[string]*PlayerState
	phase      Phase
	level      int
	target     sequence.Sequence
	answers    map[string]sequence.Sequence
	generation uint64
	closed     bool
	lastActive time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// newRoom builds a room with its creator already seated as host.
func newRoom(id, host string) *Room {
	ctx, cancel := context.WithCancel(context.Background())

	return &Room{
		ID:         id,
		host:       host,
		players:    map[string]*PlayerState{host: {}},
		answers:    make(map[string]sequence.Sequence),
		lastActive: time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (r *Room) touch() {
	r.lastActive = time.Now()
}

// Snapshot is a point-in-time copy of a room's public state.
type Snapshot struct {
	ID      string                 `json:"id"`
	Host    string                 `json:"host"`
	Phase   Phase                  `json:"phase"`
	Level   int                    `json:"level"`
	Players map[string]PlayerState `json:"players"`
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		ID:      r.ID,
		Host:    r.host,
		Phase:   r.phase,
		Level:   r.level,
		Players: r.playerStates(),
	}
}

// Context is done once the room has been torn down.
func (r *Room) Context() context.Context {
	return r.ctx
}

func (r *Room) playerStates() map[string]PlayerState {
	out := make(map[string]PlayerState, len(r.players))
	for name, p := range r.players {
		out[name] = *p
	}

	return out
}

func (r *Room) names() []string {
	return slices.Sorted(maps.Keys(r.players))
}

func (r *Room) broadcast(m Message) envelope {
	return envelope{players: r.names(), msg: m}
}

func (r *Room) rosterLocked() envelope {
	return r.broadcast(Message{
		Event: EventUpdatePlayers,
		Data: PlayersPayload{
			Players: r.playerStates(),
			Host:    r.host,
		},
	})
}

// close marks the room dead and aborts its playback. Callers hold mu.
func (r *Room) closeLocked() {
	r.closed = true
	r.phase = Ended
	r.generation++
	r.cancel()
}

func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		r.closeLocked()
	}
}

func (r *Room) roster() []envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	return []envelope{r.rosterLocked()}
}

// join seats player. Joining a room you are already in is a no-op.
func (r *Room) join(player string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRoomClosed
	}

	if _, ok := r.players[player]; ok {
		return nil
	}

	if r.phase != Lobby {
		return fmt.Errorf("%w: game in %q already started", ErrRoomUnavailable, r.ID)
	}

	r.players[player] = &PlayerState{}
	r.touch()

	return nil
}

func (r *Room) setReady(player string) ([]envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[player]
	if r.closed || !ok {
		return nil, fmt.Errorf("%w: %q is not in room %q", ErrStaleReference, player, r.ID)
	}

	p.Ready = true
	r.touch()

	return []envelope{r.rosterLocked()}, nil
}

// playback describes one display of the target sequence.
type playback struct {
	room       *Room
	generation uint64
	level      int
	sequence   sequence.Sequence
	delay      time.Duration
}

func (r *Room) start(player string, generate func(int) sequence.Sequence, delay time.Duration) ([]envelope, *playback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, fmt.Errorf("%w: room %q is gone", ErrStaleReference, r.ID)
	}

	if player != r.host {
		return nil, nil, fmt.Errorf("%w: only the host can start %q", ErrPermissionDenied, r.ID)
	}

	if r.phase != Lobby {
		return nil, nil, fmt.Errorf("%w: game in %q already started", ErrRoomUnavailable, r.ID)
	}

	r.level = 1
	clear(r.answers)

	pb := r.nextRoundLocked(generate, delay)

	return []envelope{r.broadcast(Message{
		Event: EventGameStarted,
		Data: RoundPayload{
			Level:    r.level,
			Sequence: r.target.Strings(),
		},
	})}, pb, nil
}

func (r *Room) nextRoundLocked(generate func(int) sequence.Sequence, delay time.Duration) *playback {
	r.target = generate(r.level)
	r.phase = Displaying
	r.generation++
	r.touch()

	return &playback{
		room:       r,
		generation: r.generation,
		level:      r.level,
		sequence:   r.target.Clone(),
		delay:      delay,
	}
}

// displayDone opens the answer window. Completions for a round that has
// since been superseded or a room that has been torn down are dropped.
func (r *Room) displayDone(generation uint64) []envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || generation != r.generation || r.phase != Displaying {
		return nil
	}

	r.phase = AwaitingAnswers
	r.touch()

	return []envelope{r.broadcast(ReadyForInput(r.level, r.target.Strings()))}
}

type submission struct {
	envelopes []envelope
	next      *playback
	ended     bool
}

func (r *Room) submit(player, connID string, answer sequence.Sequence, maxLevel int, generate func(int) sequence.Sequence, delay time.Duration) (submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase != AwaitingAnswers {
		return submission{}, fmt.Errorf("%w: room %q is not accepting answers", ErrStaleReference, r.ID)
	}

	if _, ok := r.players[player]; !ok {
		return submission{}, fmt.Errorf("%w: %q is not in room %q", ErrStaleReference, player, r.ID)
	}

	r.answers[player] = answer.Clone()
	r.touch()

	if len(r.answers) < len(r.players) {
		return submission{envelopes: []envelope{{
			conn: connID,
			msg:  notice(EventMessageBox, noticeWaiting),
		}}}, nil
	}

	return r.evaluateLocked(maxLevel, generate, delay), nil
}

func (r *Room) evaluateLocked(maxLevel int, generate func(int) sequence.Sequence, delay time.Duration) submission {
	r.phase = Evaluating

	out := submission{envelopes: []envelope{r.broadcast(notice(EventMessageBox, noticeObserve))}}

	points := sequence.Points(r.level)
	for _, name := range r.names() {
		answer, ok := r.answers[name]
		if !ok || !answer.Equal(r.target) {
			continue
		}

		p := r.players[name]
		p.Score += points

		out.envelopes = append(out.envelopes, r.broadcast(Message{
			Event: EventUpdateScore,
			Data:  ScorePayload{Username: name, Score: p.Score},
		}))
	}

	clear(r.answers)
	r.level++

	if r.level > maxLevel {
		scores := make(map[string]int, len(r.players))
		for name, p := range r.players {
			scores[name] = p.Score
		}

		out.envelopes = append(out.envelopes, r.broadcast(Message{
			Event: EventGameOver,
			Data:  GameOverPayload{Scores: scores},
		}))
		out.ended = true

		r.closeLocked()

		return out
	}

	out.next = r.nextRoundLocked(generate, delay)

	return out
}

// leave removes player and their pending answer. It never evaluates the
// round: the remaining players' next submission does.
func (r *Room) leave(player string) (envs []envelope, empty, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, false
	}

	if _, ok := r.players[player]; !ok {
		return nil, false, false
	}

	delete(r.players, player)
	delete(r.answers, player)
	r.touch()

	if len(r.players) == 0 {
		r.closeLocked()

		return nil, true, true
	}

	if r.host == player {
		r.host = r.names()[0]
	}

	return []envelope{r.rosterLocked()}, false, true
}

// reapIfIdle tears the room down when nothing has happened in it since
// cutoff, telling whoever is still seated.
func (r *Room) reapIfIdle(cutoff time.Time) ([]envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.lastActive.Before(cutoff) {
		return nil, false
	}

	envs := []envelope{r.broadcast(notice(EventMessageBox, noticeIdle))}

	r.closeLocked()

	return envs, true
}
