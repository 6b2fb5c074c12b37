package player

import (
	"testing"

	"parlo/segment"
)

type MockTransport struct {
	Started   int
	Stopped   int
	Closed    int
	Positions []float64
	RatesSet  []float64
}

func (m *MockTransport) Start() error { m.Started++; return nil }
func (m *MockTransport) Stop() error  { m.Stopped++; return nil }
func (m *MockTransport) SetPosition(s float64) error {
	m.Positions = append(m.Positions, s)
	return nil
}
func (m *MockTransport) SetRate(r float64) error {
	m.RatesSet = append(m.RatesSet, r)
	return nil
}
func (m *MockTransport) Close() error { m.Closed++; return nil }

func testSegments() []segment.Segment {
	return []segment.Segment{
		{ID: 1, Start: 0, End: 3.4},
		{ID: 2, Start: 3.5, End: 7.1},
		{ID: 3, Start: 7.2, End: 10.0},
	}
}

func TestPlayWithoutSourceIsNoop(t *testing.T) {
	c := New()
	c.Play()
	if c.IsPlaying() {
		t.Fatal("controller claims to be playing with no source bound")
	}
}

func TestLoadResetsState(t *testing.T) {
	c := New()
	mt := &MockTransport{}
	c.Load(mt, testSegments(), 0)
	c.DurationKnown(10)
	c.Tick(5)
	c.Play()

	mt2 := &MockTransport{}
	c.Load(mt2, nil, 0)
	if c.Position() != 0 || c.Duration() != 0 || c.IsPlaying() {
		t.Fatalf("state not reset: pos=%v dur=%v playing=%v",
			c.Position(), c.Duration(), c.IsPlaying())
	}
	if mt.Closed != 1 {
		t.Fatal("previous transport not closed on rebind")
	}
}

func TestSeekClamps(t *testing.T) {
	c := New()
	mt := &MockTransport{}
	c.Load(mt, testSegments(), 0)
	c.DurationKnown(10)

	c.Seek(25)
	if got := c.Position(); got != 10 {
		t.Fatalf("seek past end: position = %v, want 10", got)
	}
	c.Seek(-4)
	if got := c.Position(); got != 0 {
		t.Fatalf("seek below zero: position = %v, want 0", got)
	}
	if len(mt.Positions) != 2 || mt.Positions[0] != 10 || mt.Positions[1] != 0 {
		t.Fatalf("transport got positions %v, want [10 0]", mt.Positions)
	}
}

func TestSkipMatchesSeek(t *testing.T) {
	c := New()
	c.Load(&MockTransport{}, testSegments(), 0)
	c.DurationKnown(10)

	c.Seek(1)
	c.Skip(-5)
	if got := c.Position(); got != 0 {
		t.Fatalf("skip below zero: position = %v, want 0", got)
	}
	c.Skip(7)
	if got := c.Position(); got != 7 {
		t.Fatalf("position = %v, want 7", got)
	}
	c.Skip(5)
	if got := c.Position(); got != 10 {
		t.Fatalf("skip past end: position = %v, want 10", got)
	}
}

func TestRateCycleReturnsToStart(t *testing.T) {
	c := New()
	mt := &MockTransport{}
	c.Load(mt, nil, 0)

	start := c.Rate()
	for i := 0; i < len(Rates); i++ {
		c.CycleRate()
	}
	if c.Rate() != start {
		t.Fatalf("rate after full cycle = %v, want %v", c.Rate(), start)
	}
	if len(mt.RatesSet) != len(Rates) {
		t.Fatalf("transport saw %d rate changes, want %d", len(mt.RatesSet), len(Rates))
	}
}

func TestSetRateRejectsUnknownRate(t *testing.T) {
	c := New()
	c.SetRate(2.0)
	if c.Rate() != 1 {
		t.Fatalf("rate = %v after setting unknown value, want 1", c.Rate())
	}
	c.SetRate(1.5)
	if c.Rate() != 1.5 {
		t.Fatalf("rate = %v, want 1.5", c.Rate())
	}
}

func TestProgressMaxPlaceholder(t *testing.T) {
	c := New()
	c.Load(&MockTransport{}, nil, 0)
	if got := c.ProgressMax(); got != DefaultProgressMax {
		t.Fatalf("ProgressMax with unknown duration = %v, want %v", got, DefaultProgressMax)
	}

	c.Load(&MockTransport{}, nil, 42)
	if got := c.ProgressMax(); got != 42 {
		t.Fatalf("ProgressMax with metadata fallback = %v, want 42", got)
	}

	c.DurationKnown(9.5)
	if got := c.ProgressMax(); got != 9.5 {
		t.Fatalf("ProgressMax with known duration = %v, want 9.5", got)
	}
}

func TestActiveSegmentAtPosition(t *testing.T) {
	c := New()
	c.Load(&MockTransport{}, testSegments(), 0)
	c.DurationKnown(10)

	c.Tick(5.0)
	s, ok := c.ActiveSegment()
	if !ok || s.ID != 2 {
		t.Fatalf("active at 5.0 = (%v, %v), want segment 2", s.ID, ok)
	}
}

func TestSegmentListenerFiresOnTransitions(t *testing.T) {
	c := New()
	c.Load(&MockTransport{}, testSegments(), 0)
	c.DurationKnown(10)

	type event struct {
		id     int
		active bool
	}
	var events []event
	c.SetSegmentListener(func(s segment.Segment, active bool) {
		events = append(events, event{s.ID, active})
	})

	c.Tick(1.0) // enter segment 1
	c.Tick(2.0) // still segment 1, no event
	c.Tick(4.0) // enter segment 2
	c.Tick(7.15) // gap between 2 and 3

	want := []event{{1, true}, {2, true}, {0, false}}
	if len(events) != len(want) {
		t.Fatalf("got %d events %v, want %v", len(events), events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestTickAfterSeekReflectsTarget(t *testing.T) {
	c := New()
	c.Load(&MockTransport{}, testSegments(), 0)
	c.DurationKnown(10)

	c.Tick(6)
	c.Seek(1)
	if got := c.Position(); got != 1 {
		t.Fatalf("position right after seek = %v, want 1", got)
	}
}

func TestResetReleasesTransport(t *testing.T) {
	c := New()
	mt := &MockTransport{}
	c.Load(mt, testSegments(), 0)
	c.Play()
	c.Reset()

	if mt.Stopped == 0 || mt.Closed == 0 {
		t.Fatal("reset did not stop and close the transport")
	}
	if c.Loaded() || c.Position() != 0 || c.Duration() != 0 {
		t.Fatal("reset left controller state behind")
	}
}
