/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package device

import (
	"context"
	"fmt"
	"time"

	"github.com/Seednode/simon/internal/sequence"
)

// RGB is a single pixel value.
type RGB struct {
	R, G, B uint8
}

var Off = RGB{}

// Palette maps each game color onto the value its zone is lit with.
var Palette = map[sequence.Color]RGB{
	sequence.Red:    {255, 0, 0},
	sequence.Yellow: {255, 200, 0},
	sequence.Blue:   {0, 0, 255},
	sequence.Green:  {0, 255, 0},
}

// Strip is an addressable LED strip. Writes are buffered until Show.
type Strip interface {
	Len() int
	SetPixel(i int, c RGB)
	Show() error
}

// Zone is a half-open pixel range [Start, End).
type Zone struct {
	Start, End int
}

// Layout assigns a contiguous zone of the strip to every color.
type Layout map[sequence.Color]Zone

// DefaultLayout splits count pixels into four equal zones, in the order the
// dome is wired: red, yellow, blue, green.
func DefaultLayout(zoneSize int) Layout {
	order := []sequence.Color{sequence.Red, sequence.Yellow, sequence.Blue, sequence.Green}
	l := make(Layout, len(order))
	for i, c := range order {
		l[c] = Zone{Start: i * zoneSize, End: (i + 1) * zoneSize}
	}
	return l
}

// Validate checks that every zone fits on a strip of n pixels.
func (l Layout) Validate(n int) error {
	for c, z := range l {
		if z.Start < 0 || z.End > n || z.Start >= z.End {
			return fmt.Errorf("zone %s [%d,%d) does not fit a %d pixel strip", c, z.Start, z.End, n)
		}
	}
	return nil
}

// LED drives a physical strip zone by zone.
type LED struct {
	strip  Strip
	layout Layout
	logf   Logf
}

func NewLED(strip Strip, layout Layout, logf Logf) (*LED, error) {
	if err := layout.Validate(strip.Len()); err != nil {
		return nil, err
	}
	if logf == nil {
		logf = nopLogf
	}
	return &LED{strip: strip, layout: layout, logf: logf}, nil
}

func (l *LED) fill(z Zone, c RGB) error {
	for i := z.Start; i < z.End; i++ {
		l.strip.SetPixel(i, c)
	}
	return l.strip.Show()
}

// AllOff darkens every pixel on the strip.
func (l *LED) AllOff() error {
	return l.fill(Zone{0, l.strip.Len()}, Off)
}

func (l *LED) Play(ctx context.Context, seq sequence.Sequence, on, off time.Duration) (err error) {
	defer func() {
		if offErr := l.AllOff(); offErr != nil && err == nil {
			err = fmt.Errorf("turning off strip: %w", offErr)
		}
	}()

	for _, c := range seq {
		zone, ok := l.layout[c]
		if !ok {
			l.logf("DEVICE: No zone for color %q, skipping", c)
			continue
		}

		if err := l.fill(zone, Palette[c]); err != nil {
			return fmt.Errorf("lighting %s: %w", c, err)
		}
		if err := Wait(ctx, on); err != nil {
			return err
		}
		if err := l.fill(zone, Off); err != nil {
			return fmt.Errorf("clearing %s: %w", c, err)
		}
		if err := Wait(ctx, off); err != nil {
			return err
		}
	}

	return nil
}

// MemoryStrip is a Strip that only records pixel state. It backs the LED
// driver when no hardware is attached.
type MemoryStrip struct {
	pixels []RGB
	shown  []RGB
	shows  int
}

func NewMemoryStrip(n int) *MemoryStrip {
	return &MemoryStrip{
		pixels: make([]RGB, n),
		shown:  make([]RGB, n),
	}
}

func (m *MemoryStrip) Len() int { return len(m.pixels) }

func (m *MemoryStrip) SetPixel(i int, c RGB) {
	if i < 0 || i >= len(m.pixels) {
		return
	}
	m.pixels[i] = c
}

func (m *MemoryStrip) Show() error {
	copy(m.shown, m.pixels)
	m.shows++
	return nil
}

// Pixel returns the last shown value of pixel i.
func (m *MemoryStrip) Pixel(i int) RGB {
	return m.shown[i]
}

// Shows counts Show calls.
func (m *MemoryStrip) Shows() int {
	return m.shows
}
