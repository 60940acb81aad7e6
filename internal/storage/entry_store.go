// ABOUTME: In-memory dream entry collection backed by a durable key-value store.
// ABOUTME: Mutations apply synchronously; a single background writer persists the latest snapshot.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/2389-research/dreamscribe/internal/kv"
	"github.com/2389-research/dreamscribe/internal/models"
)

// DefaultNamespace is the key the journal collection is stored under.
const DefaultNamespace = "dreamScribeJournal"

var (
	ErrNotFound  = errors.New("entry not found")
	ErrAmbiguous = errors.New("entry id prefix is ambiguous")
)

// EntryStore owns the journal collection. It is the only writer of entries;
// every other component observes it through List snapshots.
type EntryStore struct {
	kv        kv.Store
	namespace string
	log       zerolog.Logger
	now       func() time.Time

	mu          sync.RWMutex
	entries     []*models.Entry // newest first
	lastCreated time.Time
	version     uint64
	closed      bool

	saveMu   sync.Mutex
	saveCond *sync.Cond
	saved    uint64
	dirty    chan struct{}
	done     chan struct{}
}

// Option configures an EntryStore.
type Option func(*EntryStore)

// WithLogger sets the logger used for persistence failures.
func WithLogger(log zerolog.Logger) Option {
	return func(s *EntryStore) { s.log = log }
}

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *EntryStore) { s.now = now }
}

// WithNamespace overrides the key the collection is stored under.
func WithNamespace(key string) Option {
	return func(s *EntryStore) { s.namespace = key }
}

// NewEntryStore creates an empty store persisting to medium. Call Load to read
// the existing collection.
func NewEntryStore(medium kv.Store, opts ...Option) *EntryStore {
	s := &EntryStore{
		kv:        medium,
		namespace: DefaultNamespace,
		log:       zerolog.Nop(),
		now:       time.Now,
		dirty:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.saveCond = sync.NewCond(&s.saveMu)
	go s.writeLoop()
	return s
}

// Load replaces the in-memory collection with the persisted one. It never fails:
// unreadable or malformed data is logged and the store starts empty.
func (s *EntryStore) Load(ctx context.Context) int {
	var entries []*models.Entry

	data, ok, err := s.kv.Get(ctx, s.namespace)
	switch {
	case err != nil:
		s.log.Error().Err(err).Str("key", s.namespace).Msg("failed to load journal, starting empty")
	case ok:
		if err := json.Unmarshal(data, &entries); err != nil {
			s.log.Error().Err(err).Str("key", s.namespace).Msg("failed to decode journal, starting empty")
			entries = nil
		}
	}

	entries = normalize(entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.lastCreated = time.Time{}
	for _, e := range entries {
		if e.CreatedAt.After(s.lastCreated) {
			s.lastCreated = e.CreatedAt
		}
	}
	return len(entries)
}

// normalize drops unusable records, de-duplicates ids (first wins), and orders newest first.
func normalize(entries []*models.Entry) []*models.Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]*models.Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.ID == "" || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Create prepends a new pending entry and schedules a save.
func (s *EntryStore) Create(content string, emotion models.Emotion) models.Entry {
	id := uuid.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UTC()
	if !createdAt.After(s.lastCreated) {
		createdAt = s.lastCreated.Add(time.Nanosecond)
	}
	s.lastCreated = createdAt

	entry := &models.Entry{
		ID:        id.String(),
		CreatedAt: createdAt,
		Content:   content,
		Emotion:   emotion,
	}
	s.entries = append([]*models.Entry{entry}, s.entries...)
	s.markDirtyLocked()
	return *entry
}

// Update merges patch into the entry with id. Returns false (and changes nothing)
// when no such entry exists.
func (s *EntryStore) Update(id string, patch models.EntryPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ID == id {
			patch.Apply(e)
			s.markDirtyLocked()
			return true
		}
	}
	return false
}

// Remove deletes the entry with id. Returns false when no such entry exists.
func (s *EntryStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			s.markDirtyLocked()
			return true
		}
	}
	return false
}

// Get returns a copy of the entry with id.
func (s *EntryStore) Get(id string) (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ID == id {
			return *e, true
		}
	}
	return models.Entry{}, false
}

// Resolve finds the single entry whose id equals or starts with prefix.
func (s *EntryStore) Resolve(prefix string) (models.Entry, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return models.Entry{}, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *models.Entry
	for _, e := range s.entries {
		if e.ID == prefix {
			return *e, nil
		}
		if strings.HasPrefix(e.ID, prefix) {
			if match != nil {
				return models.Entry{}, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
			}
			match = e
		}
	}
	if match == nil {
		return models.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	return *match, nil
}

// List returns a snapshot of the collection, newest first.
func (s *EntryStore) List() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of entries.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sync blocks until every mutation made before the call has had a save attempt.
func (s *EntryStore) Sync() {
	s.mu.RLock()
	target := s.version
	s.mu.RUnlock()

	s.saveMu.Lock()
	for s.saved < target {
		s.saveCond.Wait()
	}
	s.saveMu.Unlock()
}

// Close flushes pending saves, stops the writer, and closes the medium.
// Mutations after Close stay in memory only.
func (s *EntryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.dirty)
	s.mu.Unlock()

	<-s.done
	return s.kv.Close()
}

// markDirtyLocked records a mutation and wakes the writer. Caller holds mu.
func (s *EntryStore) markDirtyLocked() {
	if s.closed {
		return
	}
	s.version++
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *EntryStore) writeLoop() {
	defer close(s.done)
	for range s.dirty {
		s.flush()
	}
}

// flush writes the current snapshot. Failures are logged; memory stays authoritative.
func (s *EntryStore) flush() {
	s.mu.RLock()
	version := s.version
	entries := s.entries
	if entries == nil {
		entries = []*models.Entry{}
	}
	data, err := json.Marshal(entries)
	s.mu.RUnlock()

	if err == nil {
		err = s.kv.Put(context.Background(), s.namespace, data)
	}
	if err != nil {
		s.log.Error().Err(err).Str("key", s.namespace).Msg("failed to save journal")
	} else {
		s.log.Debug().Str("key", s.namespace).Int("bytes", len(data)).Msg("journal saved")
	}

	s.saveMu.Lock()
	if version > s.saved {
		s.saved = version
	}
	s.saveCond.Broadcast()
	s.saveMu.Unlock()
}
