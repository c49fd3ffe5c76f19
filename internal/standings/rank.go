package standings

import (
	"context"
	"strconv"

	"github.com/i474232898/airline-rank-bot/internal/logger"
	"github.com/i474232898/airline-rank-bot/internal/metrics"
)

// RankTracker compares each airline's position with the one stored by the
// previous run and writes the new position back.
type RankTracker struct {
	store   RankStore
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewRankTracker creates a tracker over store. m may be nil.
func NewRankTracker(store RankStore, log logger.Logger, m *metrics.Metrics) *RankTracker {
	return &RankTracker{store: store, log: log, metrics: m}
}

// Track sets Change on every airline from its index in the already sorted
// slice. Store failures never abort the run: the affected airline is marked
// unknown and the error is logged.
func (t *RankTracker) Track(ctx context.Context, airlines []Airline) {
	for i := range airlines {
		a := &airlines[i]
		key := strconv.Itoa(a.ID)

		a.Change = ChangeUnknown
		raw, ok, err := t.store.Get(ctx, key)
		switch {
		case err != nil:
			t.storeError("get")
			t.log.Error("rank: read previous position failed", "airline_id", a.ID, "err", err)
		case ok:
			prev, perr := strconv.Atoi(raw)
			if perr != nil {
				t.log.Warn("rank: stored position is not an integer", "airline_id", a.ID, "value", raw)
				break
			}
			a.Change = compareRank(i, prev)
		}

		if err := t.store.Set(ctx, key, strconv.Itoa(i)); err != nil {
			t.storeError("set")
			t.log.Error("rank: store position failed", "airline_id", a.ID, "err", err)
		}
	}
}

func compareRank(current, previous int) RankChange {
	switch {
	case current < previous:
		return ChangeUp
	case current > previous:
		return ChangeDown
	default:
		return ChangeUnchanged
	}
}

func (t *RankTracker) storeError(op string) {
	if t.metrics != nil {
		t.metrics.RankStoreErrs.WithLabelValues(op).Inc()
	}
}
