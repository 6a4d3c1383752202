/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package solo keeps single-player games, one per visitor.
package solo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Seednode/simon/internal/device"
	"github.com/Seednode/simon/internal/game"
	"github.com/Seednode/simon/internal/sequence"
)

var ErrNotActive = errors.New("game not active")

type Logf func(format string, args ...any)

func nopLogf(string, ...any) {}

// Notifier reaches a player's live connection.
type Notifier interface {
	Notify(player string, m game.Message) bool
}

// Round is what a visitor is shown when a sequence is dealt.
type Round struct {
	Level    int
	Sequence sequence.Sequence
	Score    int
}

// Result is the outcome of checking an answer. A wrong answer ends the game.
type Result struct {
	Correct   bool
	Score     int
	NextLevel int
	MaxLevel  int
}

type visitor struct {
	username string
	level    int
	score    int
	active   bool
	target   sequence.Sequence
	cancel   context.CancelFunc
	seen     time.Time
}

func (v *visitor) stopPlayback() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

type Store struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	gen    *sequence.Generator
	dev    device.Device
	notify Notifier
	table  sequence.Table
	delay  time.Duration
	logf   Logf

	ctx context.Context
	wg  sync.WaitGroup
}

type Option func(*Store)

func WithGenerator(g *sequence.Generator) Option {
	return func(s *Store) {
		s.gen = g
	}
}

func WithTable(t sequence.Table) Option {
	return func(s *Store) {
		s.table = t
	}
}

func WithDelay(d time.Duration) Option {
	return func(s *Store) {
		s.delay = d
	}
}

func WithLogf(l Logf) Option {
	return func(s *Store) {
		if l != nil {
			s.logf = l
		}
	}
}

// NewStore returns an empty store. Playback stops when ctx is done.
func NewStore(ctx context.Context, dev device.Device, notify Notifier, opts ...Option) *Store {
	s := &Store{
		visitors: make(map[string]*visitor),
		gen:      sequence.NewGenerator(),
		dev:      dev,
		notify:   notify,
		table:    sequence.Exhibition.Table,
		delay:    game.DefaultStartDelay,
		logf:     nopLogf,
		ctx:      ctx,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) get(id string) *visitor {
	v, ok := s.visitors[id]
	if !ok {
		v = &visitor{level: 1}
		s.visitors[id] = v
	}
	v.seen = time.Now()

	return v
}

// SetUsername records the name the visitor's notifications go to.
func (s *Store) SetUsername(id, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.get(id)
	v.username = username
	v.level = 1
	v.score = 0
}

func (s *Store) Username(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.visitors[id]; ok {
		return v.username
	}

	return ""
}

// Start resets the visitor's game and deals level 1.
func (s *Store) Start(id string) Round {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.get(id)
	v.stopPlayback()
	v.level = 1
	v.score = 0
	v.active = true
	v.target = s.gen.Generate(v.level)

	s.playLocked(v, v.level, v.target)

	return Round{Level: v.level, Sequence: v.target.Clone(), Score: v.score}
}

// Deal generates a fresh sequence for level, or the current level when
// level is below one, and plays it.
func (s *Store) Deal(id string, level int) Round {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.get(id)
	if level < 1 {
		level = v.level
	}

	v.stopPlayback()
	v.target = s.gen.Generate(level)

	s.playLocked(v, level, v.target)

	return Round{Level: level, Sequence: v.target.Clone(), Score: v.score}
}

// Check scores answer against the current target.
func (s *Store) Check(id string, answer sequence.Sequence) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[id]
	if !ok || !v.active {
		return Result{}, ErrNotActive
	}
	v.seen = time.Now()

	if !answer.Equal(v.target) {
		v.active = false
		v.stopPlayback()

		return Result{Score: v.score, MaxLevel: v.level - 1}, nil
	}

	v.score += sequence.Points(v.level)
	v.level++

	return Result{Correct: true, Score: v.score, NextLevel: v.level}, nil
}

func (s *Store) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.get(id)
	v.stopPlayback()
	v.level = 1
	v.score = 0
	v.active = false
	v.target = nil
}

// Forget drops a visitor entirely.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.visitors[id]; ok {
		v.stopPlayback()
		delete(s.visitors, id)
	}
}

// Reap forgets visitors not seen for longer than idle and returns how many
// were dropped.
func (s *Store) Reap(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	reaped := 0

	for id, v := range s.visitors {
		if !v.seen.Before(cutoff) {
			continue
		}

		v.stopPlayback()
		delete(s.visitors, id)
		reaped++
	}

	if reaped > 0 {
		s.logf("SOLO: Reaped %d idle visitors", reaped)
	}

	return reaped
}

// RunReaper calls Reap every idle/2 until ctx is done. A non-positive idle
// disables reaping.
func (s *Store) RunReaper(ctx context.Context, idle time.Duration) {
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
			s.Reap(idle)
		}
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.visitors)
}

// Wait blocks until no playback is in flight.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) playLocked(v *visitor, level int, seq sequence.Sequence) {
	ctx, cancel := context.WithCancel(s.ctx)
	v.cancel = cancel

	username := v.username
	seq = seq.Clone()
	timing := s.table.At(level)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer cancel()

		if err := device.Wait(ctx, s.delay); err != nil {
			return
		}

		err := s.dev.Play(ctx, seq, timing.On, timing.Off)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			s.logf("SOLO: Playback for %q failed, opening answers anyway: %v", username, err)
		}

		if username == "" || s.notify == nil {
			return
		}

		s.notify.Notify(username, game.ReadyForInput(level, seq.Strings()))
	}()
}
