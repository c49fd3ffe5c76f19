package standings

import (
	"context"
	"io"
	"time"
)

// Source fetches identity and statistics for a single airline.
type Source interface {
	Name() string
	FetchAirline(ctx context.Context, id int) (Airline, error)
}

// RankStore keeps the previous rank position per airline. Values are opaque
// strings; callers parse them.
type RankStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// SnapshotStore keeps the history of computed snapshots.
type SnapshotStore interface {
	SaveSnapshot(snapshot Snapshot)
	GetLatest() (Snapshot, error)
	GetRange(from, to time.Time) ([]Snapshot, error)
}

// Renderer draws a snapshot as an image.
type Renderer interface {
	Render(snapshot Snapshot, w io.Writer) error
}

// Notifier delivers a rendered snapshot somewhere (chat channel, message bus).
type Notifier interface {
	Name() string
	Notify(ctx context.Context, snapshot Snapshot, imagePath string) error
}
