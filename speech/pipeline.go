package speech

import (
	"sync"
)

// OutputDevice is the audible end of the pipeline. Implementations may
// enter a suspended state between playbacks (platform audio policy);
// Resume is called before every playback to recover from that.
type OutputDevice interface {
	Resume() error
	// Play starts emitting samples at the given rate and returns a channel
	// that closes when output finishes naturally.
	Play(samples []float32, sampleRate int) (<-chan struct{}, error)
}

// Handle tracks one playback. Completion is delivered exactly once.
type Handle struct {
	done chan struct{}
	once sync.Once
}

// Done closes when the playback finishes naturally.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) complete(fn func()) {
	h.once.Do(func() {
		if fn != nil {
			fn()
		}
		close(h.done)
	})
}

// Pipeline decodes PCM buffers and plays them on a shared output
// device. The device is created lazily on first use and reused for
// every later playback; concurrent playbacks are independent and no
// playback cancels another.
type Pipeline struct {
	mu     sync.Mutex
	device OutputDevice
	open   func() (OutputDevice, error)
}

// NewPipeline builds a pipeline around a device constructor. The
// constructor runs at most once, on the first Play.
func NewPipeline(open func() (OutputDevice, error)) *Pipeline {
	return &Pipeline{open: open}
}

func (p *Pipeline) sharedDevice() (OutputDevice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device != nil {
		return p.device, nil
	}
	dev, err := p.open()
	if err != nil {
		return nil, err
	}
	p.device = dev
	return dev, nil
}

// Play decodes buf and starts playback. onDone, when non-nil, runs
// exactly once when this playback finishes naturally; callers wanting
// single-flight behavior track their own "currently speaking" flag and
// ignore stale completions.
func (p *Pipeline) Play(buf []byte, onDone func()) (*Handle, error) {
	samples, err := Decode(buf)
	if err != nil {
		return nil, err
	}

	dev, err := p.sharedDevice()
	if err != nil {
		return nil, err
	}
	if err := dev.Resume(); err != nil {
		return nil, err
	}

	devDone, err := dev.Play(samples, SampleRate)
	if err != nil {
		return nil, err
	}

	h := &Handle{done: make(chan struct{})}
	go func() {
		<-devDone
		h.complete(onDone)
	}()
	return h, nil
}
