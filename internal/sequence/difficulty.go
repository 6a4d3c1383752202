/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package sequence

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is how long each color stays lit, and the gap before the next.
type Difficulty struct {
	On  time.Duration
	Off time.Duration
}

// Table is indexed by level, starting at level 1.
type Table []Difficulty

// At returns the timing for level. Levels past the end of the table reuse
// the last entry.
func (t Table) At(level int) Difficulty {
	if len(t) == 0 {
		return Difficulty{On: time.Second, Off: 500 * time.Millisecond}
	}
	if level < 1 {
		level = 1
	}
	if level > len(t) {
		level = len(t)
	}
	return t[level-1]
}

// Profile bundles a difficulty table with the last playable level.
type Profile struct {
	Name     string
	Table    Table
	MaxLevel int
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

var (
	Exhibition = Profile{
		Name:     "exhibition",
		MaxLevel: 5,
		Table: Table{
			{ms(1000), ms(500)},
			{ms(1000), ms(490)},
			{ms(900), ms(480)},
			{ms(900), ms(470)},
			{ms(800), ms(460)},
			{ms(800), ms(450)},
			{ms(700), ms(440)},
			{ms(700), ms(430)},
			{ms(600), ms(420)},
			{ms(600), ms(410)},
			{ms(500), ms(400)},
		},
	}

	Classic = Profile{
		Name:     "classic",
		MaxLevel: 10,
		Table: Table{
			{ms(1000), ms(500)},
			{ms(1000), ms(500)},
			{ms(1000), ms(500)},
			{ms(1000), ms(500)},
			{ms(1000), ms(500)},
			{ms(800), ms(400)},
			{ms(800), ms(400)},
			{ms(800), ms(400)},
			{ms(600), ms(300)},
			{ms(600), ms(300)},
		},
	}
)

// LookupProfile finds a built-in profile by name.
func LookupProfile(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Exhibition.Name, "":
		return Exhibition, nil
	case Classic.Name:
		return Classic, nil
	default:
		return Profile{}, fmt.Errorf("unknown difficulty profile %q (want %q or %q)", name, Exhibition.Name, Classic.Name)
	}
}

// Duration estimates how long seq takes to display at d.
func (d Difficulty) Duration(seq Sequence) time.Duration {
	return time.Duration(len(seq)) * (d.On + d.Off)
}
