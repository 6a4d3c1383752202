package sequence

import (
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestGenerate_LengthAndPalette(t *testing.T) {
	g := NewGenerator()

	for level := 1; level <= 15; level++ {
		seq := g.Generate(level)

		want := level + 2
		if want > MaxLength {
			want = MaxLength
		}
		testutil.AssertEqual(t, "length", len(seq), want)

		if err := seq.Validate(); err != nil {
			t.Errorf("level %d: %v", level, err)
		}
	}
}

func TestGenerate_LevelBelowOne(t *testing.T) {
	g := NewSeededGenerator(1)
	testutil.AssertEqual(t, "length", len(g.Generate(0)), 3)
	testutil.AssertEqual(t, "length", len(g.Generate(-4)), 3)
}

func TestGenerate_SeededIsDeterministic(t *testing.T) {
	a := NewSeededGenerator(42)
	b := NewSeededGenerator(42)

	for level := 1; level <= 10; level++ {
		sa, sb := a.Generate(level), b.Generate(level)
		if !sa.Equal(sb) {
			t.Fatalf("level %d: %v != %v", level, sa, sb)
		}
	}
}

func TestGenerate_UsesWholePalette(t *testing.T) {
	g := NewSeededGenerator(7)
	seen := map[Color]int{}
	for range 200 {
		for _, c := range g.Generate(8) {
			seen[c]++
		}
	}
	testutil.AssertEqual(t, "distinct colors", len(seen), len(Palette))
}

func TestSequence_Equal(t *testing.T) {
	tests := map[string]struct {
		a, b Sequence
		exp  bool
	}{
		"identical":      {Sequence{Red, Blue, Green}, Sequence{Red, Blue, Green}, true},
		"reordered":      {Sequence{Red, Blue, Green}, Sequence{Blue, Red, Green}, false},
		"shorter":        {Sequence{Red, Blue, Green}, Sequence{Red, Blue}, false},
		"longer":         {Sequence{Red, Blue}, Sequence{Red, Blue, Blue}, false},
		"empty vs empty": {Sequence{}, nil, true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "equal", tt.a.Equal(tt.b), tt.exp)
		})
	}
}

func TestParse(t *testing.T) {
	seq := Parse([]string{"red", "yellow", "purple"})
	testutil.AssertEqual(t, "length", len(seq), 3)
	testutil.AssertEqual(t, "first", seq[0], Red)
	testutil.AssertErrorContains(t, seq.Validate(), "purple")
}

func TestPoints(t *testing.T) {
	testutil.AssertEqual(t, "level 1", Points(1), 20)
	testutil.AssertEqual(t, "level 5", Points(5), 60)
}

func TestTable_At(t *testing.T) {
	p := Exhibition
	testutil.AssertEqual(t, "level 1 on", p.Table.At(1).On, time.Second)
	testutil.AssertEqual(t, "level 3 off", p.Table.At(3).Off, 480*time.Millisecond)
	testutil.AssertEqual(t, "past end", p.Table.At(99), p.Table[len(p.Table)-1])
	testutil.AssertEqual(t, "below one", p.Table.At(0), p.Table[0])

	var empty Table
	testutil.AssertEqual(t, "empty on", empty.At(3).On, time.Second)
}

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile("Classic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "max level", p.MaxLevel, 10)

	p, err = LookupProfile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "default", p.Name, Exhibition.Name)

	_, err = LookupProfile("nightmare")
	testutil.AssertErrorContains(t, err, "unknown difficulty profile")
}

func TestDifficulty_Duration(t *testing.T) {
	d := Difficulty{On: 100 * time.Millisecond, Off: 50 * time.Millisecond}
	testutil.AssertEqual(t, "duration", d.Duration(Sequence{Red, Red, Red}), 450*time.Millisecond)
}
