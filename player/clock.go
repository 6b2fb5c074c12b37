package player

import (
	"sync"
	"time"
)

// ClockTransport advances a playback position in wall-clock time. It is
// the follow-along transport used by the TUI and the web hub: the audio
// itself plays elsewhere while this clock keeps the transcript in sync.
// Duration is reported to the sink asynchronously after Start, matching
// how real sources resolve their metadata.
type ClockTransport struct {
	mu       sync.Mutex
	sink     EventSink
	duration float64
	position float64
	rate     float64
	interval time.Duration
	stop     chan struct{}
	running  bool
}

func NewClockTransport(duration float64, interval time.Duration) *ClockTransport {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &ClockTransport{
		duration: duration,
		rate:     1,
		interval: interval,
	}
}

// SetSink implements SinkBinder.
func (t *ClockTransport) SetSink(sink EventSink) {
	t.mu.Lock()
	t.sink = sink
	t.mu.Unlock()
}

func (t *ClockTransport) Start() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = true
	t.stop = make(chan struct{})
	stop := t.stop
	sink := t.sink
	dur := t.duration
	t.mu.Unlock()

	if sink != nil {
		sink.DurationKnown(dur)
	}
	go t.run(stop)
	return nil
}

func (t *ClockTransport) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			t.position += t.interval.Seconds() * t.rate
			ended := t.duration > 0 && t.position >= t.duration
			if ended {
				t.position = t.duration
				t.running = false
			}
			pos := t.position
			sink := t.sink
			t.mu.Unlock()

			if sink != nil {
				sink.Tick(pos)
				if ended {
					sink.Ended()
				}
			}
			if ended {
				return
			}
		}
	}
}

func (t *ClockTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	return nil
}

func (t *ClockTransport) stopLocked() {
	if t.running {
		close(t.stop)
		t.running = false
	}
}

// SetDuration replaces the reported length, for sources whose duration
// is only known after inspection.
func (t *ClockTransport) SetDuration(seconds float64) {
	t.mu.Lock()
	t.duration = seconds
	t.mu.Unlock()
}

func (t *ClockTransport) SetPosition(seconds float64) error {
	t.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	if t.duration > 0 && seconds > t.duration {
		seconds = t.duration
	}
	t.position = seconds
	t.mu.Unlock()
	return nil
}

func (t *ClockTransport) SetRate(rate float64) error {
	t.mu.Lock()
	t.rate = rate
	t.mu.Unlock()
	return nil
}

func (t *ClockTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	return nil
}
