package sync

import "testing"

func TestWatermark_CompareOrdersByWallClockThenSequence(t *testing.T) {
	a := Watermark{WallClockMs: 100, Sequence: 5}
	b := Watermark{WallClockMs: 100, Sequence: 6}
	c := Watermark{WallClockMs: 101, Sequence: 1}

	if !a.Before(b) {
		t.Fatalf("expected %v before %v", a, b)
	}
	if !b.Before(c) {
		t.Fatalf("expected %v before %v", b, c)
	}
	if a.Compare(a) != 0 {
		t.Fatalf("expected equal watermark to compare 0")
	}
	if !c.AtOrAfter(a) {
		t.Fatalf("expected %v at or after %v", c, a)
	}
}

func TestWatermark_StringRoundTrip(t *testing.T) {
	w := Watermark{WallClockMs: 1718000000123, Sequence: 42}
	parsed, err := ParseWatermark(w.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != w {
		t.Fatalf("round trip mismatch: got %v want %v", parsed, w)
	}
}

func TestParseWatermark_EmptyStringIsZeroValue(t *testing.T) {
	w, err := ParseWatermark("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if w != (Watermark{}) {
		t.Fatalf("expected zero watermark, got %v", w)
	}
	if !w.Before(Watermark{WallClockMs: 1, Sequence: 0}) {
		t.Fatalf("expected zero watermark to order before any non-zero watermark")
	}
}

func TestParseWatermark_MalformedStringErrors(t *testing.T) {
	for _, s := range []string{"not-a-watermark", "100", "abc.def", "100."} {
		if _, err := ParseWatermark(s); err == nil {
			t.Fatalf("expected parse error for %q", s)
		}
	}
}

func TestClock_NextIsStrictlyIncreasingEvenWithoutWallClockAdvance(t *testing.T) {
	var c Clock
	first := c.Next(1000)
	second := c.Next(1000)
	third := c.Next(999) // wall clock moving backward must not break ordering guarantee within this clock

	if !first.Before(second) {
		t.Fatalf("expected %v before %v", first, second)
	}
	if third.Sequence <= second.Sequence {
		t.Fatalf("expected sequence to keep increasing regardless of wall clock")
	}
}
