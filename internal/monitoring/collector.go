// Package monitoring summarizes the health of recent scrape runs.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/product-scraper/internal/model"
	"github.com/sells-group/product-scraper/internal/store"
)

// maxRuns bounds how many runs one snapshot reads.
const maxRuns = 10000

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	RunsTotal      int     `json:"runs_total"`
	RunsComplete   int     `json:"runs_complete"`
	RunsFailed     int     `json:"runs_failed"`
	RunsInProgress int     `json:"runs_in_progress"`
	RunFailRate    float64 `json:"run_fail_rate"`

	// Product page metrics over complete runs.
	Dispatched       int     `json:"dispatched"`
	Records          int     `json:"records"`
	FailedURLs       int     `json:"failed_urls"`
	PageSuccessRate  float64 `json:"page_success_rate"`
	AvgRecordsPerRun float64 `json:"avg_records_per_run"`
	AvgDurationMs    int64   `json:"avg_duration_ms"`

	// BySite counts runs per site.
	BySite map[model.Site]int `json:"by_site"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of the store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from the store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window. A window of
// zero or less covers every stored run.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		BySite:        map[model.Site]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: maxRuns})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var cutoff time.Time
	if lookbackHours > 0 {
		cutoff = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	var totalDur int64
	for _, r := range runs {
		if !cutoff.IsZero() && r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		snap.BySite[r.Request.Site]++

		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			if r.Result != nil {
				snap.Dispatched += r.Result.Dispatched
				snap.Records += r.Result.Records
				snap.FailedURLs += len(r.Result.FailedURLs)
				totalDur += r.Result.DurationMs
			}
		case model.RunStatusFailed:
			snap.RunsFailed++
		default:
			snap.RunsInProgress++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.Dispatched > 0 {
		snap.PageSuccessRate = float64(snap.Records) / float64(snap.Dispatched)
	}
	if snap.RunsComplete > 0 {
		snap.AvgRecordsPerRun = float64(snap.Records) / float64(snap.RunsComplete)
		snap.AvgDurationMs = totalDur / int64(snap.RunsComplete)
	}

	return snap, nil
}
