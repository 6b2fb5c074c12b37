package player

import (
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu    sync.Mutex
	ticks []float64
	dur   float64
	ended bool
}

func (r *recordingSink) Tick(p float64) {
	r.mu.Lock()
	r.ticks = append(r.ticks, p)
	r.mu.Unlock()
}

func (r *recordingSink) DurationKnown(d float64) {
	r.mu.Lock()
	r.dur = d
	r.mu.Unlock()
}

func (r *recordingSink) Ended() {
	r.mu.Lock()
	r.ended = true
	r.mu.Unlock()
}

func TestClockTransportRunsToEnd(t *testing.T) {
	ct := NewClockTransport(0.02, time.Millisecond)
	sink := &recordingSink{}
	ct.SetSink(sink)

	if err := ct.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		sink.mu.Lock()
		ended := sink.ended
		sink.mu.Unlock()
		if ended {
			break
		}
		select {
		case <-deadline:
			t.Fatal("clock never reported end of playback")
		case <-time.After(5 * time.Millisecond):
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.dur != 0.02 {
		t.Fatalf("reported duration = %v, want 0.02", sink.dur)
	}
	if n := len(sink.ticks); n == 0 {
		t.Fatal("no position ticks delivered")
	}
	if last := sink.ticks[len(sink.ticks)-1]; last != 0.02 {
		t.Fatalf("final tick = %v, want clamped to duration 0.02", last)
	}
	for i := 1; i < len(sink.ticks); i++ {
		if sink.ticks[i] < sink.ticks[i-1] {
			t.Fatalf("ticks out of order at %d: %v", i, sink.ticks)
		}
	}
}

func TestClockTransportStopHaltsTicks(t *testing.T) {
	ct := NewClockTransport(3600, time.Millisecond)
	sink := &recordingSink{}
	ct.SetSink(sink)
	ct.Start()
	time.Sleep(10 * time.Millisecond)
	ct.Stop()

	sink.mu.Lock()
	n := len(sink.ticks)
	sink.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	sink.mu.Lock()
	after := len(sink.ticks)
	sink.mu.Unlock()

	if after > n+1 {
		t.Fatalf("ticks kept arriving after stop: %d then %d", n, after)
	}
}
