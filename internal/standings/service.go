package standings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/airline-rank-bot/internal/logger"
	"github.com/i474232898/airline-rank-bot/internal/metrics"
)

var (
	// ErrUpdateInProgress is returned when an update is requested while another one runs.
	ErrUpdateInProgress = errors.New("standings: update already in progress")
	// ErrNoData is returned when every airline fetch failed.
	ErrNoData = errors.New("standings: no airline data fetched")
)

// Options tunes a Service.
type Options struct {
	// OutputPath is the PNG file overwritten on every run.
	OutputPath string
	// Concurrency bounds parallel airline fetches. Values below 1 mean 1.
	Concurrency int
}

// Service runs the fetch, rank, render and deliver pipeline. Only one update
// runs at a time regardless of who triggered it.
type Service struct {
	source    Source
	tracker   *RankTracker
	snapshots SnapshotStore
	renderer  Renderer
	notifiers []Notifier
	log       logger.Logger
	metrics   *metrics.Metrics

	outputPath  string
	concurrency int
	now         func() time.Time

	rosterMu sync.RWMutex
	roster   Roster

	running sync.Mutex
}

// NewService creates a new Service. m may be nil.
func NewService(
	source Source,
	ranks RankStore,
	snapshots SnapshotStore,
	renderer Renderer,
	roster Roster,
	log logger.Logger,
	m *metrics.Metrics,
	opts Options,
) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Service{
		source:      source,
		tracker:     NewRankTracker(ranks, log, m),
		snapshots:   snapshots,
		renderer:    renderer,
		log:         log,
		metrics:     m,
		outputPath:  opts.OutputPath,
		concurrency: opts.Concurrency,
		now:         time.Now,
		roster:      roster,
	}
}

// AddNotifier registers a delivery target. Call before the first update.
func (s *Service) AddNotifier(n Notifier) {
	s.notifiers = append(s.notifiers, n)
}

// Roster returns the roster used by the next run.
func (s *Service) Roster() Roster {
	s.rosterMu.RLock()
	defer s.rosterMu.RUnlock()
	return s.roster
}

// SetRoster replaces the roster; a run already in flight keeps its copy.
func (s *Service) SetRoster(r Roster) {
	s.rosterMu.Lock()
	s.roster = r
	s.rosterMu.Unlock()
	s.log.Info("standings: roster updated", "reference_id", r.ReferenceID, "airlines", len(r.AirlineIDs), "policy", r.Policy)
}

// OutputPath is where the latest table image is written.
func (s *Service) OutputPath() string {
	return s.outputPath
}

// Update performs a complete run: fetch, project, sort, track rank changes,
// filter for display, store, render and deliver. It returns
// ErrUpdateInProgress without doing anything if another run is active.
// Panics inside the run are recovered and returned as errors.
func (s *Service) Update(ctx context.Context, trigger Trigger) (snap Snapshot, err error) {
	if !s.running.TryLock() {
		return Snapshot{}, ErrUpdateInProgress
	}
	defer s.running.Unlock()

	start := s.now()
	runID := uuid.NewString()
	log := s.log.With("run_id", runID, "trigger", string(trigger))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("standings: update panicked: %v", r)
		}
		result := "ok"
		if err != nil {
			result = "error"
			log.Error("standings: update failed", "err", err)
		}
		if s.metrics != nil {
			s.metrics.Runs.WithLabelValues(string(trigger), result).Inc()
			s.metrics.RunDuration.Observe(s.now().Sub(start).Seconds())
		}
	}()

	log.Info("standings: running update")

	roster := s.Roster()
	snap, err = s.compute(ctx, roster, log)
	if err != nil {
		return Snapshot{}, err
	}
	snap.RunID = runID
	snap.Trigger = trigger
	snap.GeneratedAt = start.UTC()

	s.snapshots.SaveSnapshot(snap)

	if err := s.renderToFile(snap); err != nil {
		return snap, err
	}

	if err := s.deliver(ctx, snap, log); err != nil {
		return snap, err
	}

	log.Info("standings: update complete", "airlines", len(snap.Airlines), "omitted", len(snap.Omitted),
		"elapsed", s.now().Sub(start).String())
	return snap, nil
}

// compute builds a snapshot without side effects other than the rank store.
func (s *Service) compute(ctx context.Context, roster Roster, log logger.Logger) (Snapshot, error) {
	fetched, omitted := s.fetchAll(ctx, roster.AirlineIDs, log)
	if len(fetched) == 0 {
		return Snapshot{}, ErrNoData
	}

	ranked, enabled := Rank(fetched, roster.ReferenceID)
	if !enabled {
		log.Warn("standings: reference 30-day rate missing or not positive; projections disabled",
			"reference_id", roster.ReferenceID)
	}

	// Rank positions are tracked across everything fetched, not just what is displayed.
	s.tracker.Track(ctx, ranked)

	display := ApplyDisplayPolicy(ranked, roster.Policy, roster.ReferenceID)
	if s.metrics != nil {
		s.metrics.AirlinesRanked.Set(float64(len(display)))
	}

	return Snapshot{
		ReferenceID:        roster.ReferenceID,
		ProjectionsEnabled: enabled,
		Airlines:           display,
		Omitted:            omitted,
	}, nil
}

// Rank copies fetched, applies projections against referenceID and sorts by
// lifetime flights. It does not touch the rank store, so calling it twice on
// the same input yields identical output.
func Rank(fetched []Airline, referenceID int) ([]Airline, bool) {
	ranked := make([]Airline, len(fetched))
	copy(ranked, fetched)
	enabled := ApplyProjections(ranked, referenceID)
	SortByTotalFlights(ranked)
	return ranked, enabled
}

// fetchAll fetches every roster airline with bounded concurrency. Results keep
// roster order; failures are logged and reported as omitted IDs.
func (s *Service) fetchAll(ctx context.Context, ids []int, log logger.Logger) ([]Airline, []int) {
	results := make([]*Airline, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("standings: fetch panicked", "airline_id", id, "panic", r)
				}
			}()
			a, err := s.source.FetchAirline(ctx, id)
			if err != nil {
				// Log and continue; partial tables are still useful.
				log.Error("standings: fetch failed", "source", s.source.Name(), "airline_id", id, "err", err)
				if s.metrics != nil {
					s.metrics.FetchErrors.Inc()
				}
				return nil
			}
			results[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	airlines := make([]Airline, 0, len(ids))
	var omitted []int
	for i, r := range results {
		if r == nil {
			omitted = append(omitted, ids[i])
			continue
		}
		airlines = append(airlines, *r)
	}
	return airlines, omitted
}

// renderToFile writes the table next to outputPath and renames it into place
// so readers never observe a partial image.
func (s *Service) renderToFile(snap Snapshot) error {
	dir := filepath.Dir(s.outputPath)
	tmp, err := os.CreateTemp(dir, ".standings-*.png")
	if err != nil {
		return fmt.Errorf("standings: create image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.renderer.Render(snap, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("standings: render image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("standings: write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.outputPath); err != nil {
		return fmt.Errorf("standings: move image into place: %w", err)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, snap Snapshot, log logger.Logger) error {
	var errs error
	for _, n := range s.notifiers {
		result := "ok"
		if err := n.Notify(ctx, snap, s.outputPath); err != nil {
			result = "error"
			log.Error("standings: delivery failed", "notifier", n.Name(), "err", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
		if s.metrics != nil {
			s.metrics.Deliveries.WithLabelValues(n.Name(), result).Inc()
		}
	}
	return errs
}

// Latest returns the most recent snapshot.
func (s *Service) Latest() (Snapshot, error) {
	return s.snapshots.GetLatest()
}

// History returns snapshots generated between from and to (inclusive).
func (s *Service) History(from, to time.Time) ([]Snapshot, error) {
	return s.snapshots.GetRange(from, to)
}
