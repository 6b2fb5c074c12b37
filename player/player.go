// Package player owns the transport clock for one loaded audio source
// and derives the active transcript segment from it.
package player

import (
	"sync"

	"parlo/segment"
)

// Rates is the fixed playback-rate cycle. CycleRate walks it in order.
var Rates = []float64{0.75, 1, 1.25, 1.5}

// DefaultProgressMax is substituted for the progress-bar maximum while
// the source duration is still unknown, so consumers never divide by
// zero.
const DefaultProgressMax = 100

// Transport is the audio-element-like output the controller drives. A
// transport reports its clock back through the EventSink it is bound to.
type Transport interface {
	Start() error
	Stop() error
	SetPosition(seconds float64) error
	SetRate(rate float64) error
	Close() error
}

// EventSink receives transport events. Ticks for a bound source arrive
// in time order; a position set through SetPosition is reflected by the
// next tick before natural advancement resumes.
type EventSink interface {
	Tick(position float64)
	DurationKnown(seconds float64)
	Ended()
}

// SinkBinder is implemented by transports that generate their own clock
// and need somewhere to deliver it.
type SinkBinder interface {
	SetSink(EventSink)
}

// SegmentListener observes entry into a segment (active true) and exit
// into silence between segments (active false).
type SegmentListener func(seg segment.Segment, active bool)

// Controller tracks position, duration, play state and rate for exactly
// one bound transport at a time.
type Controller struct {
	mu        sync.Mutex
	transport Transport
	segments  []segment.Segment

	position    float64
	duration    float64
	fallbackDur float64
	playing     bool
	rateIdx     int

	activeID  int
	hasActive bool
	listener  SegmentListener
	pending   *pendingEvent
}

func New() *Controller {
	return &Controller{rateIdx: 1} // 1x
}

// Load binds a new source. Position and play state reset; duration may
// become known only later via DurationKnown, so fallbackDuration (for
// example the analysis metadata estimate) keeps progress math safe in
// the meantime. Any previously bound transport is closed.
func (c *Controller) Load(t Transport, segments []segment.Segment, fallbackDuration float64) {
	c.mu.Lock()
	old := c.transport
	c.transport = t
	c.segments = segments
	c.position = 0
	c.duration = 0
	c.fallbackDur = fallbackDuration
	c.playing = false
	c.hasActive = false
	c.activeID = 0
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	if b, ok := t.(SinkBinder); ok {
		b.SetSink(c)
	}
}

// Play starts sample output. A controller with no bound source ignores
// the request.
func (c *Controller) Play() {
	c.mu.Lock()
	t := c.transport
	if t != nil {
		c.playing = true
	}
	c.mu.Unlock()
	if t != nil {
		t.Start()
	}
}

func (c *Controller) Pause() {
	c.mu.Lock()
	t := c.transport
	if t != nil {
		c.playing = false
	}
	c.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

func (c *Controller) Toggle() {
	if c.IsPlaying() {
		c.Pause()
	} else {
		c.Play()
	}
}

// Seek clamps t into [0, duration], updates the position optimistically
// and relocates the transport. While the duration is unknown only the
// lower bound is enforced.
func (c *Controller) Seek(t float64) {
	c.mu.Lock()
	t = c.clampLocked(t)
	c.position = t
	transport := c.transport
	c.refreshActiveLocked()
	fire, seg, active := c.pendingEventLocked()
	c.mu.Unlock()

	if transport != nil {
		transport.SetPosition(t)
	}
	if fire {
		c.emit(seg, active)
	}
}

// Skip is Seek relative to the current position.
func (c *Controller) Skip(delta float64) {
	c.mu.Lock()
	target := c.position + delta
	c.mu.Unlock()
	c.Seek(target)
}

// SetRate applies one of the fixed rates. Values outside the cycle are
// ignored.
func (c *Controller) SetRate(rate float64) {
	c.mu.Lock()
	idx := -1
	for i, r := range Rates {
		if r == rate {
			idx = i
		}
	}
	if idx == -1 {
		c.mu.Unlock()
		return
	}
	c.rateIdx = idx
	t := c.transport
	c.mu.Unlock()
	if t != nil {
		t.SetRate(rate)
	}
}

// CycleRate advances to the next rate in the cycle and returns it.
func (c *Controller) CycleRate() float64 {
	c.mu.Lock()
	c.rateIdx = (c.rateIdx + 1) % len(Rates)
	rate := Rates[c.rateIdx]
	t := c.transport
	c.mu.Unlock()
	if t != nil {
		t.SetRate(rate)
	}
	return rate
}

// Reset stops playback, releases the bound source and zeroes the clock.
func (c *Controller) Reset() {
	c.mu.Lock()
	t := c.transport
	c.transport = nil
	c.segments = nil
	c.position = 0
	c.duration = 0
	c.fallbackDur = 0
	c.playing = false
	c.hasActive = false
	c.mu.Unlock()

	if t != nil {
		t.Stop()
		t.Close()
	}
}

func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *Controller) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Rates[c.rateIdx]
}

func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport != nil
}

// ProgressMax is the progress-bar maximum: the known duration, else the
// fallback estimate, else DefaultProgressMax. Never zero.
func (c *Controller) ProgressMax() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.duration > 0 {
		return c.duration
	}
	if c.fallbackDur > 0 {
		return c.fallbackDur
	}
	return DefaultProgressMax
}

// ActiveSegment returns the segment covering the current position.
func (c *Controller) ActiveSegment() (segment.Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return segment.ActiveAt(c.segments, c.position)
}

// SetSegmentListener registers the observer for active-segment changes.
// The transcript view uses it for highlighting and auto-scroll.
func (c *Controller) SetSegmentListener(fn SegmentListener) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// Tick implements EventSink.
func (c *Controller) Tick(position float64) {
	c.mu.Lock()
	c.position = c.clampLocked(position)
	c.refreshActiveLocked()
	fire, seg, active := c.pendingEventLocked()
	c.mu.Unlock()
	if fire {
		c.emit(seg, active)
	}
}

// DurationKnown implements EventSink. Metadata resolves asynchronously;
// the position is re-clamped once the real duration arrives.
func (c *Controller) DurationKnown(seconds float64) {
	c.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	c.duration = seconds
	c.position = c.clampLocked(c.position)
	c.mu.Unlock()
}

// Ended implements EventSink.
func (c *Controller) Ended() {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
}

func (c *Controller) clampLocked(t float64) float64 {
	if t < 0 {
		return 0
	}
	if c.duration > 0 && t > c.duration {
		return c.duration
	}
	return t
}

type pendingEvent struct {
	seg    segment.Segment
	active bool
}

func (c *Controller) refreshActiveLocked() {
	s, ok := segment.ActiveAt(c.segments, c.position)
	if ok == c.hasActive && (!ok || s.ID == c.activeID) {
		c.pending = nil
		return
	}
	c.hasActive = ok
	if ok {
		c.activeID = s.ID
	}
	c.pending = &pendingEvent{seg: s, active: ok}
}

func (c *Controller) pendingEventLocked() (bool, segment.Segment, bool) {
	if c.pending == nil || c.listener == nil {
		c.pending = nil
		return false, segment.Segment{}, false
	}
	ev := *c.pending
	c.pending = nil
	return true, ev.seg, ev.active
}

func (c *Controller) emit(seg segment.Segment, active bool) {
	c.mu.Lock()
	fn := c.listener
	c.mu.Unlock()
	if fn != nil {
		fn(seg, active)
	}
}
