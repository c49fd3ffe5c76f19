package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/i474232898/airline-rank-bot/internal/standings"
)

func snapAt(ts time.Time, runID string) standings.Snapshot {
	return standings.Snapshot{RunID: runID, GeneratedAt: ts}
}

func TestMemoryStoreLatestEmpty(t *testing.T) {
	s := NewMemoryStore(10, 0)
	if _, err := s.GetLatest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	base := time.Date(2026, 1, 1, 4, 6, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		s.SaveSnapshot(snapAt(base.Add(time.Duration(i)*24*time.Hour), id))
	}

	all, err := s.GetRange(base, base.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].RunID != "b" || all[1].RunID != "c" {
		t.Fatalf("unexpected history: %+v", all)
	}

	latest, err := s.GetLatest()
	if err != nil || latest.RunID != "c" {
		t.Fatalf("GetLatest = %+v, %v; want c", latest, err)
	}
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, 48*time.Hour)
	s.now = func() time.Time { return now }

	s.SaveSnapshot(snapAt(now.Add(-72*time.Hour), "old"))
	s.SaveSnapshot(snapAt(now.Add(-24*time.Hour), "recent"))

	all, err := s.GetRange(now.Add(-100*time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 || all[0].RunID != "recent" {
		t.Fatalf("expected only recent snapshot, got %+v", all)
	}
}

func TestMemoryStoreRangeMiss(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SaveSnapshot(snapAt(base, "a"))

	if _, err := s.GetRange(base.Add(time.Hour), base.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRankStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRankStore()

	if _, ok, err := s.Get(ctx, "6076"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "6076", "3"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "6076")
	if err != nil || !ok || v != "3" {
		t.Fatalf("Get = %q, %v, %v; want 3", v, ok, err)
	}
}
