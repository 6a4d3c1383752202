/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package sequence generates and scores the color sequences players have to
// memorize.
package sequence

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
)

// Palette is the fixed alphabet sequences are drawn from.
var Palette = [...]Color{Red, Blue, Green, Yellow}

const MaxLength = 10

// Sequence is an ordered list of colors.
type Sequence []Color

// Parse converts raw color names into a Sequence. Unknown names are kept
// as-is; they simply never match a generated sequence.
func Parse(raw []string) Sequence {
	seq := make(Sequence, len(raw))
	for i, r := range raw {
		seq[i] = Color(r)
	}
	return seq
}

func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

// Equal reports an exact, ordered, same-length match.
func (s Sequence) Equal(other Sequence) bool {
	return slices.Equal(s, other)
}

func (s Sequence) Clone() Sequence {
	return slices.Clone(s)
}

// Length returns the sequence length used for level.
func Length(level int) int {
	if level < 1 {
		level = 1
	}
	return min(level+2, MaxLength)
}

// Points returns the score awarded for a correct answer at level.
func Points(level int) int {
	return 10 + level*10
}

// Generator produces random sequences. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator returns a Generator with a non-deterministic source.
func NewGenerator() *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededGenerator returns a Generator whose output is fully determined by
// seed.
func NewSeededGenerator(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns a fresh sequence for level.
func (g *Generator) Generate(level int) Sequence {
	n := Length(level)
	seq := make(Sequence, n)

	g.mu.Lock()
	for i := range seq {
		seq[i] = Palette[g.rnd.IntN(len(Palette))]
	}
	g.mu.Unlock()

	return seq
}

func (c Color) Valid() bool {
	return slices.Contains(Palette[:], c)
}

func (c Color) String() string {
	return string(c)
}

// Validate reports the first color in s that is not in the palette.
func (s Sequence) Validate() error {
	for i, c := range s {
		if !c.Valid() {
			return fmt.Errorf("position %d: unknown color %q", i, c)
		}
	}
	return nil
}
