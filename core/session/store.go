package session

import (
	"context"
	"sync"

	"ytbot/model"
)

// TrackStore keeps each chat's currently loaded track list. Lists are
// replaced wholesale, never edited in place.
type TrackStore interface {
	SaveTracks(ctx context.Context, chatID int64, tracks []model.Track) error
	Tracks(ctx context.Context, chatID int64) ([]model.Track, error)
	DeleteTracks(ctx context.Context, chatID int64) error
}

// MemoryTrackStore is the in-process TrackStore.
type MemoryTrackStore struct {
	mu     sync.RWMutex
	tracks map[int64][]model.Track
}

// NewMemoryTrackStore creates an empty store.
func NewMemoryTrackStore() *MemoryTrackStore {
	return &MemoryTrackStore{tracks: make(map[int64][]model.Track)}
}

// SaveTracks implements TrackStore.
func (s *MemoryTrackStore) SaveTracks(_ context.Context, chatID int64, tracks []model.Track) error {
	cp := make([]model.Track, len(tracks))
	copy(cp, tracks)
	s.mu.Lock()
	s.tracks[chatID] = cp
	s.mu.Unlock()
	return nil
}

// Tracks implements TrackStore. The returned slice is a copy.
func (s *MemoryTrackStore) Tracks(_ context.Context, chatID int64) ([]model.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.tracks[chatID]
	cp := make([]model.Track, len(src))
	copy(cp, src)
	return cp, nil
}

// DeleteTracks implements TrackStore.
func (s *MemoryTrackStore) DeleteTracks(_ context.Context, chatID int64) error {
	s.mu.Lock()
	delete(s.tracks, chatID)
	s.mu.Unlock()
	return nil
}
