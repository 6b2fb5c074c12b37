// Package capture records one shadowing attempt from the microphone and
// hands the finalized blob to the pronunciation scorer.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"parlo/audio"
	"parlo/segment"
)

// ErrPermissionDenied is returned by Start when microphone access is
// refused. The session stays Idle.
var ErrPermissionDenied = errors.New("microphone access denied")

// Phase names the capture states. Transitions:
// Idle → Recording → Processing → Scored|Failed → Idle (re-armed).
// Starting again from Scored or Failed re-enters Recording directly and
// discards the previous result.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRecording
	PhaseProcessing
	PhaseScored
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRecording:
		return "recording"
	case PhaseProcessing:
		return "processing"
	case PhaseScored:
		return "scored"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// State is the tagged variant exposed to callers: Score is set only in
// PhaseScored, Err only in PhaseFailed.
type State struct {
	Phase Phase
	Score *segment.PronunciationScore
	Err   error
}

// Microphone grants access to an exclusive PCM input stream (16-bit LE
// mono at the capture rate). Implementations return ErrPermissionDenied
// (possibly wrapped) when access is refused.
type Microphone interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Scorer is the external pronunciation-scoring collaborator.
type Scorer interface {
	Score(ctx context.Context, targetText string, audioBlob []byte, mimeType string) (segment.PronunciationScore, error)
}

// Session owns at most one open microphone stream at a time. The stream
// is held only between Start and the moment Stop finalizes the blob (or
// an error aborts the capture); Teardown releases it on any other exit
// path.
type Session struct {
	mic    Microphone
	scorer Scorer
	log    *log.Logger

	mu        sync.Mutex
	phase     Phase
	score     *segment.PronunciationScore
	err       error
	stream    io.ReadCloser
	buf       bytes.Buffer
	readDone  chan struct{}
	attemptID string
	gen       int
	listener  func(State)
	finalize  func(pcm []byte) ([]byte, error)
}

func NewSession(mic Microphone, scorer Scorer, logger *log.Logger) *Session {
	s := &Session{mic: mic, scorer: scorer, log: logger}
	s.finalize = func(pcm []byte) ([]byte, error) {
		return audio.EncodeOggOpus(logger, pcm)
	}
	return s
}

// SetChangeListener registers an observer invoked after every phase
// change.
func (s *Session) SetChangeListener(fn func(State)) {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
}

// State returns the current tagged state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{Phase: s.phase, Score: s.score, Err: s.err}
}

// Start requests microphone access and begins accumulating audio. Valid
// from Idle, Scored or Failed; a second Start while recording or
// processing is rejected.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.phase {
	case PhaseRecording, PhaseProcessing:
		s.mu.Unlock()
		return fmt.Errorf("capture already active in phase %s", s.phase)
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	stream, err := s.mic.Open(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return fmt.Errorf("start capture: %w", err)
		}
		return fmt.Errorf("start capture: open microphone: %w", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		// A competing Start won; give the device back.
		s.mu.Unlock()
		stream.Close()
		return fmt.Errorf("capture superseded")
	}
	s.stream = stream
	s.buf.Reset()
	s.score = nil
	s.err = nil
	s.attemptID = uuid.NewString()
	s.phase = PhaseRecording
	s.readDone = make(chan struct{})
	readDone := s.readDone
	s.mu.Unlock()
	s.notify()

	s.log.Debug("capture started", "attempt", s.attemptID)
	go s.accumulate(stream, gen, readDone)
	return nil
}

func (s *Session) accumulate(stream io.ReadCloser, gen int, done chan struct{}) {
	var readErr error
	chunk := make([]byte, 4096)
	for {
		n, err := stream.Read(chunk)
		if n > 0 {
			s.mu.Lock()
			s.buf.Write(chunk[:n])
			s.mu.Unlock()
		}
		if err != nil {
			readErr = err
			break
		}
	}
	close(done)
	s.abortRecording(gen, readErr)
}

// abortRecording handles a stream that died under us. Streams closed by
// Stop or Teardown take the device handle first, so a recording that
// still owns its stream here ended for a real reason: the device was
// refused or the recorder died.
func (s *Session) abortRecording(gen int, cause error) {
	s.mu.Lock()
	if s.gen != gen || s.phase != PhaseRecording || s.stream == nil {
		s.mu.Unlock()
		return
	}
	stream := s.stream
	s.stream = nil
	if errors.Is(cause, io.EOF) {
		cause = errors.New("recorder stream ended unexpectedly")
	}
	s.phase = PhaseFailed
	s.err = fmt.Errorf("capture aborted: %w", cause)
	s.mu.Unlock()

	stream.Close()
	s.log.Error("capture aborted", "error", cause)
	s.notify()
}

// Stop finalizes the accumulated chunks into a single Ogg/Opus blob,
// releases the microphone immediately, and hands the blob to the scorer
// asynchronously. Calling Stop outside Recording is a no-op.
func (s *Session) Stop(ctx context.Context, targetText string) {
	s.mu.Lock()
	if s.phase != PhaseRecording {
		s.mu.Unlock()
		return
	}
	stream := s.stream
	s.stream = nil
	readDone := s.readDone
	gen := s.gen
	s.mu.Unlock()

	// Releasing the device unblocks the accumulator; wait for the final
	// chunks to land before snapshotting the buffer.
	stream.Close()
	<-readDone

	s.mu.Lock()
	pcm := make([]byte, s.buf.Len())
	copy(pcm, s.buf.Bytes())
	s.phase = PhaseProcessing
	attempt := s.attemptID
	s.mu.Unlock()
	s.notify()

	go s.scoreAttempt(ctx, gen, attempt, targetText, pcm)
}

func (s *Session) scoreAttempt(ctx context.Context, gen int, attempt, targetText string, pcm []byte) {
	blob, err := s.finalize(pcm)
	if err != nil {
		s.finish(gen, nil, fmt.Errorf("finalize capture: %w", err))
		return
	}

	score, err := s.scorer.Score(ctx, targetText, blob, "audio/ogg")
	if err != nil {
		s.log.Error("scoring failed", "attempt", attempt, "error", err)
		s.finish(gen, nil, err)
		return
	}
	s.log.Info("attempt scored",
		"attempt", attempt, "score", score.Score, "rating", score.Rating)
	s.finish(gen, &score, nil)
}

func (s *Session) finish(gen int, score *segment.PronunciationScore, err error) {
	s.mu.Lock()
	if s.gen != gen {
		// A newer recording started; this result is stale.
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.phase = PhaseFailed
		s.err = err
	} else {
		s.phase = PhaseScored
		s.score = score
	}
	s.mu.Unlock()
	s.notify()
}

// Teardown releases the microphone if a recording is still running and
// returns the session to Idle. Safe to call in any phase.
func (s *Session) Teardown() {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	readDone := s.readDone
	s.gen++
	s.phase = PhaseIdle
	s.score = nil
	s.err = nil
	s.mu.Unlock()

	if stream != nil {
		stream.Close()
		<-readDone
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.listener
	st := s.stateLocked()
	s.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}
