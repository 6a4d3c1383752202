/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package device renders color sequences on the exhibit's light fixture.
package device

import (
	"context"
	"time"

	"github.com/Seednode/simon/internal/sequence"
)

// Device plays a sequence and blocks until it has finished or ctx is done.
// Implementations must leave the fixture dark when they return, whether or
// not playback completed.
type Device interface {
	Play(ctx context.Context, seq sequence.Sequence, on, off time.Duration) error
}

// Logf is the logging hook devices report through.
type Logf func(format string, args ...any)

func nopLogf(string, ...any) {}

// Wait sleeps for d, returning early with ctx.Err() on cancellation.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Simulated stands in for the fixture when no hardware is attached. It keeps
// the same timing as the real thing so rounds pace identically.
type Simulated struct {
	logf Logf
}

func NewSimulated(logf Logf) *Simulated {
	if logf == nil {
		logf = nopLogf
	}
	return &Simulated{logf: logf}
}

func (s *Simulated) Play(ctx context.Context, seq sequence.Sequence, on, off time.Duration) error {
	s.logf("DEVICE: Playing %d colors (on %s, off %s)", len(seq), on, off)
	defer s.logf("DEVICE: All zones off")

	for _, c := range seq {
		s.logf("DEVICE: Lit %s", c)
		if err := Wait(ctx, on); err != nil {
			return err
		}
		if err := Wait(ctx, off); err != nil {
			return err
		}
	}

	return nil
}

// Serialized queues playbacks so that only one sequence is on the fixture at
// a time. Waiting callers give up when their context ends.
type Serialized struct {
	d    Device
	slot chan struct{}
}

func NewSerialized(d Device) *Serialized {
	return &Serialized{
		d:    d,
		slot: make(chan struct{}, 1),
	}
}

func (s *Serialized) Play(ctx context.Context, seq sequence.Sequence, on, off time.Duration) error {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.slot }()

	return s.d.Play(ctx, seq, on, off)
}
