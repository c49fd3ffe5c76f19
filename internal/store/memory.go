package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/airline-rank-bot/internal/standings"
)

var (
	// ErrNotFound is returned when no snapshot matches the request.
	ErrNotFound = errors.New("no standings snapshot available")
)

// MemoryStore is a concurrency-safe in-memory snapshot history.
type MemoryStore struct {
	mu sync.RWMutex

	// oldest first
	snapshots []standings.Snapshot

	// retention configuration
	maxHistory int           // max number of snapshots kept
	maxAge     time.Duration // optional max age for snapshots
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a snapshot and enforces retention.
func (s *MemoryStore) SaveSnapshot(snapshot standings.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.snapshots) > s.maxHistory {
		over := len(s.snapshots) - s.maxHistory
		s.snapshots = s.snapshots[over:]
	}

	// Enforce retention by age. The newest snapshot always survives.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.snapshots)-1; i++ {
			if !s.snapshots[i].GeneratedAt.Before(cutoff) {
				break
			}
		}
		s.snapshots = s.snapshots[i:]
	}
}

// GetLatest returns the most recent snapshot.
func (s *MemoryStore) GetLatest() (standings.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return standings.Snapshot{}, ErrNotFound
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

// GetRange returns all snapshots generated between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]standings.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []standings.Snapshot
	for _, snap := range s.snapshots {
		if !snap.GeneratedAt.Before(from) && !snap.GeneratedAt.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// MemoryRankStore keeps rank positions in a map. Positions are lost on restart,
// so every airline reports an unknown change on the first run after boot.
type MemoryRankStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryRankStore() *MemoryRankStore {
	return &MemoryRankStore{data: make(map[string]string)}
}

func (s *MemoryRankStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryRankStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
