package speech

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"
)

func pcmBuffer(values ...int16) []byte {
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}

func TestDecodeRejectsEmptyBuffer(t *testing.T) {
	_, err := Decode(nil)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
}

func TestDecodeRejectsOddLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DecodeError", err)
	}
	if de.Length != 3 {
		t.Fatalf("DecodeError.Length = %d, want 3", de.Length)
	}
}

func TestDecodeNormalizesSamples(t *testing.T) {
	samples, err := Decode(pcmBuffer(0, 32767, -32768, 16384))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(samples))
	}
	want := []float32{0, 32767.0 / 32768.0, -1, 0.5}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
	for i, s := range samples {
		if s < -1 || s > 1 {
			t.Errorf("sample %d = %v outside [-1, 1]", i, s)
		}
	}
}

type MockDevice struct {
	mu       sync.Mutex
	resumes  int
	playbacks [][]float32
	doneChans []chan struct{}
	failPlay error
}

func (m *MockDevice) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes++
	return nil
}

func (m *MockDevice) Play(samples []float32, sampleRate int) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPlay != nil {
		return nil, m.failPlay
	}
	done := make(chan struct{})
	m.playbacks = append(m.playbacks, samples)
	m.doneChans = append(m.doneChans, done)
	return done, nil
}

func (m *MockDevice) finish(i int) {
	m.mu.Lock()
	ch := m.doneChans[i]
	m.mu.Unlock()
	close(ch)
}

func TestPipelineLazyDeviceReuse(t *testing.T) {
	dev := &MockDevice{}
	opens := 0
	p := NewPipeline(func() (OutputDevice, error) {
		opens++
		return dev, nil
	})

	if opens != 0 {
		t.Fatal("device constructed before first playback")
	}
	if _, err := p.Play(pcmBuffer(1, 2), nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	if _, err := p.Play(pcmBuffer(3, 4), nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	if opens != 1 {
		t.Fatalf("device constructed %d times, want once", opens)
	}
	if dev.resumes != 2 {
		t.Fatalf("resume called %d times, want before each playback", dev.resumes)
	}
}

func TestPipelineCompletionFiresOnce(t *testing.T) {
	dev := &MockDevice{}
	p := NewPipeline(func() (OutputDevice, error) { return dev, nil })

	var mu sync.Mutex
	completions := 0
	h, err := p.Play(pcmBuffer(1, 2, 3, 4), func() {
		mu.Lock()
		completions++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("play: %v", err)
	}

	dev.finish(0)
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	if completions != 1 {
		t.Fatalf("completion callback ran %d times, want 1", completions)
	}
}

func TestPipelineOverlappingPlaybacksAreIndependent(t *testing.T) {
	dev := &MockDevice{}
	p := NewPipeline(func() (OutputDevice, error) { return dev, nil })

	h1, err := p.Play(pcmBuffer(1, 2), nil)
	if err != nil {
		t.Fatalf("play 1: %v", err)
	}
	h2, err := p.Play(pcmBuffer(3, 4), nil)
	if err != nil {
		t.Fatalf("play 2: %v", err)
	}

	// Finishing the second playback must not complete the first.
	dev.finish(1)
	select {
	case <-h2.Done():
	case <-time.After(time.Second):
		t.Fatal("second handle never completed")
	}
	select {
	case <-h1.Done():
		t.Fatal("first handle completed by second playback")
	default:
	}

	dev.finish(0)
	select {
	case <-h1.Done():
	case <-time.After(time.Second):
		t.Fatal("first handle never completed")
	}
}

func TestPipelineRejectsBadBufferBeforeDeviceOpen(t *testing.T) {
	opens := 0
	p := NewPipeline(func() (OutputDevice, error) {
		opens++
		return &MockDevice{}, nil
	})
	if _, err := p.Play([]byte{9}, nil); err == nil {
		t.Fatal("odd buffer accepted")
	}
	if opens != 0 {
		t.Fatal("device opened for an undecodable buffer")
	}
}
