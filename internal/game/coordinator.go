/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game runs multiplayer rounds: rooms, their players, and the
// display/answer/score cycle driven by the light fixture.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Seednode/simon/internal/device"
	"github.com/Seednode/simon/internal/sequence"
)

const (
	DefaultRoom       = "default_room"
	DefaultStartDelay = time.Second
	DefaultRoundDelay = time.Second
)

type Logf func(format string, args ...any)

func nopLogf(string, ...any) {}

type Coordinator struct {
	rooms    *Registry
	sessions *Sessions
	gateway  Gateway
	device   device.Device
	gen      *sequence.Generator

	profile     sequence.Profile
	startDelay  time.Duration
	roundDelay  time.Duration
	defaultRoom string

	observer Observer
	logf     Logf

	wg sync.WaitGroup
}

type Option func(*Coordinator)

func WithProfile(p sequence.Profile) Option {
	return func(c *Coordinator) {
		c.profile = p
	}
}

func WithMaxLevel(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.profile.MaxLevel = n
		}
	}
}

func WithStartDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		c.startDelay = d
	}
}

func WithRoundDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		c.roundDelay = d
	}
}

func WithDefaultRoom(id string) Option {
	return func(c *Coordinator) {
		if id != "" {
			c.defaultRoom = id
		}
	}
}

func WithGenerator(g *sequence.Generator) Option {
	return func(c *Coordinator) {
		c.gen = g
	}
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

func WithLogf(l Logf) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logf = l
		}
	}
}

func NewCoordinator(rooms *Registry, sessions *Sessions, gw Gateway, dev device.Device, opts ...Option) *Coordinator {
	c := &Coordinator{
		rooms:       rooms,
		sessions:    sessions,
		gateway:     gw,
		device:      dev,
		gen:         sequence.NewGenerator(),
		profile:     sequence.Exhibition,
		startDelay:  DefaultStartDelay,
		roundDelay:  DefaultRoundDelay,
		defaultRoom: DefaultRoom,
		logf:        nopLogf,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Coordinator) Rooms() *Registry {
	return c.rooms
}

func (c *Coordinator) roomID(id string) string {
	if id == "" {
		return c.defaultRoom
	}

	return id
}

func (c *Coordinator) generate(level int) sequence.Sequence {
	return c.gen.Generate(level)
}

// RegisterUser binds connID to username without joining a room.
func (c *Coordinator) RegisterUser(connID, username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	c.sessions.Register(connID, username)

	c.logf("GAMES: Registered %q on %s", username, connID)

	return nil
}

// JoinRoom seats username in room, creating it with username as host when
// it does not exist. Joining a running game is refused with join_denied and
// leaves the connection's existing binding alone.
func (c *Coordinator) JoinRoom(connID, username, room string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	id := c.roomID(room)

	r, created, err := c.rooms.Join(id, username)
	if err != nil {
		c.gateway.Emit(connID, notice(EventJoinDenied, noticeGameStart))

		return err
	}

	c.sessions.Register(connID, username)

	if created {
		c.logf("GAMES: Created room %q for host %q", id, username)
	}
	c.logf("GAMES: Player %q joined %q", username, id)

	c.deliver(id, r.roster())

	return nil
}

func (c *Coordinator) SetReady(connID, username, room string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	id := c.roomID(room)

	r, ok := c.rooms.Get(id)
	if !ok {
		return fmt.Errorf("%w: room %q does not exist", ErrStaleReference, id)
	}

	envs, err := r.setReady(username)
	if err != nil {
		return err
	}

	c.deliver(id, envs)

	return nil
}

// StartGame begins level 1 when called by the room's host. The sequence is
// shown on the fixture after the start delay.
func (c *Coordinator) StartGame(connID, username, room string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	id := c.roomID(room)

	r, ok := c.rooms.Get(id)
	if !ok {
		return fmt.Errorf("%w: room %q does not exist", ErrStaleReference, id)
	}

	envs, pb, err := r.start(username, c.generate, c.startDelay)
	if err != nil {
		return err
	}

	c.logf("GAMES: %q started %q", username, id)

	c.deliver(id, envs)
	c.schedule(pb)

	return nil
}

// SubmitAnswer records username's answer for the current level. The last
// outstanding answer triggers scoring and either the next level or the
// end of the game.
func (c *Coordinator) SubmitAnswer(connID, username, room string, answer []string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if answer == nil {
		return fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}

	id := c.roomID(room)

	r, ok := c.rooms.Get(id)
	if !ok {
		return fmt.Errorf("%w: room %q does not exist", ErrStaleReference, id)
	}

	res, err := r.submit(username, connID, sequence.Parse(answer), c.profile.MaxLevel, c.generate, c.roundDelay)
	if err != nil {
		return err
	}

	c.deliver(id, res.envelopes)

	switch {
	case res.ended:
		c.rooms.remove(r)
		c.logf("GAMES: Game in %q is over", id)
	case res.next != nil:
		c.logf("GAMES: %q advanced to level %d", id, res.next.level)
		c.schedule(res.next)
	}

	return nil
}

// Disconnect forgets connID and removes its player from every room they
// were in. Hosts are reassigned and empty rooms are deleted. A departure
// never completes a round on its own.
func (c *Coordinator) Disconnect(connID string) {
	player, ok := c.sessions.Unregister(connID)
	if !ok {
		return
	}

	c.logf("GAMES: %q disconnected from %s", player, connID)

	for _, r := range c.rooms.Rooms() {
		envs, empty, present := r.leave(player)
		if !present {
			continue
		}

		if empty {
			c.rooms.remove(r)
			c.logf("GAMES: Deleted empty room %q", r.ID)

			continue
		}

		c.deliver(r.ID, envs)
	}
}

// Notify sends m to player's live connection, if any.
func (c *Coordinator) Notify(player string, m Message) bool {
	conn, ok := c.sessions.Connection(player)
	if !ok {
		return false
	}

	c.gateway.Emit(conn, m)

	return true
}

// Reap deletes rooms with no activity for longer than idle and returns how
// many were removed.
func (c *Coordinator) Reap(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	reaped := 0

	for _, r := range c.rooms.Rooms() {
		envs, ok := r.reapIfIdle(cutoff)
		if !ok {
			continue
		}

		c.rooms.remove(r)
		c.deliver(r.ID, envs)
		reaped++

		c.logf("GAMES: Reaped idle room %q", r.ID)
	}

	return reaped
}

// RunReaper calls Reap every idle/2 until ctx is done. A non-positive idle
// disables reaping.
func (c *Coordinator) RunReaper(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Reap(idle)
		}
	}
}

// Close tears down every room and waits for their playback to stop.
func (c *Coordinator) Close() {
	for _, r := range c.rooms.Rooms() {
		c.rooms.Delete(r.ID)
	}

	c.wg.Wait()
}

// Wait blocks until no playback is in flight.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) deliver(room string, envs []envelope) {
	for _, e := range envs {
		if e.conn != "" {
			c.gateway.Emit(e.conn, e.msg)

			continue
		}

		for _, p := range e.players {
			if conn, ok := c.sessions.Connection(p); ok {
				c.gateway.Emit(conn, e.msg)
			}
		}

		if c.observer != nil {
			c.observer.Publish(room, e.msg.Event, e.msg.Data)
		}
	}
}

// schedule plays pb on the fixture in the background, then opens the
// answer window if the round is still current.
func (c *Coordinator) schedule(pb *playback) {
	if pb == nil {
		return
	}

	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		ctx := pb.room.Context()

		if err := device.Wait(ctx, pb.delay); err != nil {
			return
		}

		timing := c.profile.Table.At(pb.level)

		err := c.device.Play(ctx, pb.sequence, timing.On, timing.Off)
		switch {
		case ctx.Err() != nil:
			c.logf("GAMES: Playback for %q level %d abandoned", pb.room.ID, pb.level)

			return
		case err != nil:
			c.logf("GAMES: Playback for %q level %d failed, opening answers anyway: %v", pb.room.ID, pb.level, err)
		}

		c.deliver(pb.room.ID, pb.room.displayDone(pb.generation))
	}()
}

// surfaced reports whether err should be echoed back to the sender as an
// error event. Stale events and denied joins are dropped quietly.
func surfaced(err error) bool {
	return !errors.Is(err, ErrStaleReference) && !errors.Is(err, ErrRoomUnavailable)
}
