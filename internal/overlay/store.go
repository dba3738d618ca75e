package overlay

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned by a Store when no overlay has the given id.
var ErrNotFound = errors.New("overlay not found")

// Store is the persistence abstraction for overlays.
// Implementations must be safe for concurrent use.
type Store interface {
	// Insert stores o under a newly generated id and returns that id.
	// o.ID is ignored.
	Insert(ctx context.Context, o Overlay) (string, error)

	// ListByStream returns every overlay whose StreamID matches, in the
	// backend's natural order. It returns an empty slice when none match.
	ListByStream(ctx context.Context, streamID string) ([]Overlay, error)

	// Update merges p into the overlay with the given id.
	// It returns ErrNotFound if no such overlay exists.
	Update(ctx context.Context, id string, p Patch) error

	// Delete removes the overlay with the given id.
	// It returns ErrNotFound if no such overlay exists.
	Delete(ctx context.Context, id string) error

	// Close releases the backend connection.
	Close() error
}

type storedOverlay struct {
	seq     uint64
	overlay Overlay
}

// InMemoryStore is a concurrency-safe in-memory Store. Listing returns
// overlays in insertion order.
type InMemoryStore struct {
	mu       sync.RWMutex
	overlays map[string]storedOverlay
	nextSeq  uint64
	newID    func() string
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		overlays: make(map[string]storedOverlay),
		newID:    uuid.NewString,
	}
}

// Insert implements Store.Insert.
func (s *InMemoryStore) Insert(_ context.Context, o Overlay) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = s.newID()
	s.nextSeq++
	s.overlays[o.ID] = storedOverlay{seq: s.nextSeq, overlay: o}
	return o.ID, nil
}

// ListByStream implements Store.ListByStream.
func (s *InMemoryStore) ListByStream(_ context.Context, streamID string) ([]Overlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]storedOverlay, 0)
	for _, so := range s.overlays {
		if so.overlay.StreamID == streamID {
			matched = append(matched, so)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]Overlay, 0, len(matched))
	for _, so := range matched {
		out = append(out, so.overlay)
	}
	return out, nil
}

// Update implements Store.Update.
func (s *InMemoryStore) Update(_ context.Context, id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	so, ok := s.overlays[id]
	if !ok {
		return ErrNotFound
	}
	p.Apply(&so.overlay)
	s.overlays[id] = so
	return nil
}

// Delete implements Store.Delete.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.overlays[id]; !ok {
		return ErrNotFound
	}
	delete(s.overlays, id)
	return nil
}

// Close implements Store.Close. It is a no-op.
func (s *InMemoryStore) Close() error { return nil }
