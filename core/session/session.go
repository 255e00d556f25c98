package session

import (
	"context"
	"sync"
	"time"

	"ytbot/model"
)

// Phase is where a chat is in the playlist selection flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlaylistLoaded
	PhaseDownloading
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaylistLoaded:
		return "playlist_loaded"
	case PhaseDownloading:
		return "downloading"
	}
	return "unknown"
}

// Session is one chat's state. The "downloading" flag of the chat flow is
// Phase() != PhaseIdle. Each non-idle stretch owns a cancellation token that
// /stop cancels.
type Session struct {
	ChatID int64

	store TrackStore
	now   func() time.Time

	mu         sync.Mutex
	phase      Phase
	token      context.Context
	cancel     context.CancelFunc
	trackCount int
	updatedAt  time.Time
}

func newSession(chatID int64, store TrackStore, now func() time.Time) *Session {
	return &Session{
		ChatID:    chatID,
		store:     store,
		now:       now,
		updatedAt: now(),
	}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Downloading reports whether selection input is currently accepted.
func (s *Session) Downloading() bool {
	return s.Phase() != PhaseIdle
}

// Begin enters phase with a fresh cancellation token derived from parent,
// cancelling any previous one.
func (s *Session) Begin(parent context.Context, phase Phase) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.token, s.cancel = context.WithCancel(parent)
	s.phase = phase
	s.updatedAt = s.now()
	return s.token
}

// Advance moves between non-idle phases keeping the current token. It
// returns the token, or a cancelled context if the session was stopped.
func (s *Session) Advance(phase Phase) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseIdle || s.token == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.phase = phase
	s.updatedAt = s.now()
	return s.token
}

// Reset returns to PhaseIdle and releases the token. Loaded tracks are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Stop cancels whatever is in progress. It reports whether the session was
// active.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.phase != PhaseIdle
	s.resetLocked()
	return was
}

func (s *Session) resetLocked() {
	if s.cancel != nil {
		s.cancel()
	}
	s.token, s.cancel = nil, nil
	s.phase = PhaseIdle
	s.updatedAt = s.now()
}

// SetTracks replaces the loaded track list.
func (s *Session) SetTracks(ctx context.Context, tracks []model.Track) error {
	if err := s.store.SaveTracks(ctx, s.ChatID, tracks); err != nil {
		return err
	}
	s.mu.Lock()
	s.trackCount = len(tracks)
	s.updatedAt = s.now()
	s.mu.Unlock()
	return nil
}

// Tracks returns the loaded track list.
func (s *Session) Tracks(ctx context.Context) ([]model.Track, error) {
	return s.store.Tracks(ctx, s.ChatID)
}

// Info is a read-only view of a session.
type Info struct {
	ChatID    int64     `json:"chatId"`
	Phase     string    `json:"phase"`
	Tracks    int       `json:"tracks"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ChatID:    s.ChatID,
		Phase:     s.phase.String(),
		Tracks:    s.trackCount,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == PhaseIdle && s.updatedAt.Before(cutoff)
}
