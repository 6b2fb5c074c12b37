// Package session drives the upload → analyze → persist → play flow and
// mediates between the store, the player and the inference service.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"parlo/etc"
	"parlo/history"
	"parlo/player"
	"parlo/segment"
)

// ErrorResetDelay is how long the visible error state lasts before the
// session recovers to Idle on its own.
const ErrorResetDelay = 3 * time.Second

type AppState int

const (
	StateIdle AppState = iota
	StateProcessing
	StateReady
	StateError
)

func (s AppState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Analyzer is the external analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, audioData []byte, mimeType string) (*segment.Analysis, error)
}

// Session holds the active analysis plus its surrounding app state.
type Session struct {
	store    *history.Store
	analyzer Analyzer
	player   *player.Controller
	log      *log.Logger

	mu             sync.Mutex
	state          AppState
	analysis       *segment.Analysis
	filename       string
	historyID      string
	transcriptOnly bool
	lastErr        error
	gen            int

	resetDelay time.Duration
}

func New(store *history.Store, analyzer Analyzer, ctrl *player.Controller, logger *log.Logger) *Session {
	return &Session{
		store:      store,
		analyzer:   analyzer,
		player:     ctrl,
		log:        logger,
		resetDelay: ErrorResetDelay,
	}
}

func (s *Session) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Analysis() *segment.Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

func (s *Session) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename
}

func (s *Session) HistoryID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyID
}

// TranscriptOnly reports whether the loaded analysis came from history
// and therefore has no audio bound. This is a deliberate capability
// reduction: raw audio is not persisted alongside history items.
func (s *Session) TranscriptOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptOnly
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) Player() *player.Controller { return s.player }

// Analyze runs the full flow for a new upload: request analysis, persist
// a history item, bind the transport. A failed save is non-fatal; the
// in-memory result remains usable. An analysis failure enters the error
// state which auto-clears after resetDelay.
func (s *Session) Analyze(ctx context.Context, filename string, audioData []byte, mimeType string, transport player.Transport) (*segment.Analysis, error) {
	s.mu.Lock()
	s.state = StateProcessing
	s.filename = filename
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	analysis, err := s.analyzer.Analyze(ctx, audioData, mimeType)
	if err != nil {
		s.enterErrorState(gen, err)
		return nil, fmt.Errorf("analyze %s: %w", filename, err)
	}

	item := segment.HistoryItem{
		ID:       etc.NewHistoryID(),
		Filename: filename,
		Date:     time.Now().UTC().Format(time.RFC3339),
		Analysis: *analysis,
	}
	if err := s.store.Put(ctx, item); err != nil {
		// Persistence failure is logged distinctly but does not abort the
		// flow; the result stays usable in memory.
		s.log.Error("history save failed", "id", item.ID, "error", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return analysis, nil
	}
	s.state = StateReady
	s.analysis = analysis
	s.historyID = item.ID
	s.transcriptOnly = false
	s.lastErr = nil
	s.mu.Unlock()

	s.player.Load(transport, analysis.Segments, analysis.Metadata.Duration)
	s.log.Info("analysis ready",
		"file", filename, "id", item.ID, "segments", len(analysis.Segments))
	return analysis, nil
}

func (s *Session) enterErrorState(gen int, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.state = StateError
	s.lastErr = err
	delay := s.resetDelay
	s.mu.Unlock()

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen || s.state != StateError {
			return
		}
		s.state = StateIdle
		s.lastErr = nil
	})
}

// LoadHistory binds a stored analysis without audio: the player stays
// unbound and the session enters transcript-only mode.
func (s *Session) LoadHistory(ctx context.Context, id string) (*segment.HistoryItem, error) {
	item, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("history item %s not found", id)
	}

	s.player.Reset()

	s.mu.Lock()
	s.gen++
	s.state = StateReady
	analysis := item.Analysis
	s.analysis = &analysis
	s.filename = item.Filename
	s.historyID = item.ID
	s.transcriptOnly = true
	s.lastErr = nil
	s.mu.Unlock()

	s.log.Warn("history item loaded without audio (transcript-only mode)",
		"id", item.ID, "file", item.Filename)
	return &item, nil
}

// History lists stored items, newest first.
func (s *Session) History(ctx context.Context) ([]segment.HistoryItem, error) {
	return s.store.List(ctx)
}

func (s *Session) DeleteHistory(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Reset discards the loaded analysis and releases the player transport.
func (s *Session) Reset() {
	s.player.Reset()
	s.mu.Lock()
	s.gen++
	s.state = StateIdle
	s.analysis = nil
	s.filename = ""
	s.historyID = ""
	s.transcriptOnly = false
	s.lastErr = nil
	s.mu.Unlock()
}
