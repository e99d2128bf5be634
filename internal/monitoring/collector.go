package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/studyspot-cli/internal/store"
)

// Snapshot summarizes recorded queries over a lookback window.
type Snapshot struct {
	Total        int     `json:"total"`
	Strict       int     `json:"strict"`
	Weighted     int     `json:"weighted"`
	Auto         int     `json:"auto"`
	FellBack     int     `json:"fell_back"`
	FallbackRate float64 `json:"fallback_rate"`
	EmptyResults int     `json:"empty_results"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// StatsQuerier abstracts the store method the collector needs.
type StatsQuerier interface {
	QueryStats(ctx context.Context, since time.Time) (*store.QueryStats, error)
}

// Collector gathers query statistics from the store.
type Collector struct {
	stats StatsQuerier
	now   func() time.Time
}

// NewCollector creates a new collector.
func NewCollector(stats StatsQuerier) *Collector {
	return &Collector{stats: stats, now: time.Now}
}

// Collect builds a snapshot of the last lookbackHours. A lookback of zero or
// less covers all recorded history.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	var since time.Time
	if lookbackHours > 0 {
		since = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	st, err := c.stats.QueryStats(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: query stats")
	}

	snap.Total = st.Total
	snap.Strict = st.Strict
	snap.Weighted = st.Weighted
	snap.Auto = st.Auto
	snap.FellBack = st.FellBack
	snap.EmptyResults = st.Empty
	if st.Auto > 0 {
		snap.FallbackRate = float64(st.FellBack) / float64(st.Auto)
	}
	return snap, nil
}
