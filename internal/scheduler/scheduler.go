package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pumpwatch/pumpradar/internal/store"
	"github.com/pumpwatch/pumpradar/pkg/alert"
	"github.com/pumpwatch/pumpradar/pkg/analysis"
	"github.com/pumpwatch/pumpradar/pkg/momentum"
)

// eventRetention bounds the baseline history archive. Long enough for the
// 7x lookback at any sane window, short enough to keep the db small.
const eventRetention = 30 * 24 * time.Hour

// Scheduler runs periodic scans, archives events for baseline history and
// alerts on high-probability pump clusters.
type Scheduler struct {
	store    store.Store
	scanner  *momentum.Scanner
	analyst  *analysis.Analyst
	alertMgr *alert.Manager
	interval time.Duration
	minProb  int
}

// New creates a new scheduler. analyst may be nil; alerts then fall back to
// the heuristic cross-platform check.
func New(
	s store.Store,
	scanner *momentum.Scanner,
	analyst *analysis.Analyst,
	alertMgr *alert.Manager,
	interval time.Duration,
	minProb int,
) *Scheduler {
	if interval == 0 {
		interval = 15 * time.Minute
	}
	if minProb == 0 {
		minProb = 70
	}
	return &Scheduler{
		store:    s,
		scanner:  scanner,
		analyst:  analyst,
		alertMgr: alertMgr,
		interval: interval,
		minProb:  minProb,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial scan...")
	s.scanOnce(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (scan every %s)\n", s.interval)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprintln(os.Stderr, "scheduler: scanning...")
			s.scanOnce(ctx)
		}
	}
}

func (s *Scheduler) scanOnce(ctx context.Context) {
	res, err := s.scanner.Scan(ctx)
	if err != nil {
		if errors.Is(err, momentum.ErrNoData) {
			fmt.Fprintln(os.Stderr, "  all sources failed, skipping cycle")
		} else {
			fmt.Fprintf(os.Stderr, "  scan error: %v\n", err)
		}
		return
	}

	// Archive everything collected, scored or not. Next cycle's baselines
	// come from this history.
	if n, err := s.store.UpsertEvents(ctx, res.Raw); err != nil {
		fmt.Fprintf(os.Stderr, "  archived %d events, then: %v\n", n, err)
	} else {
		fmt.Fprintf(os.Stderr, "  archived %d events\n", n)
	}
	if pruned, err := s.store.PruneEventsBefore(ctx, time.Now().Add(-eventRetention)); err == nil && pruned > 0 {
		fmt.Fprintf(os.Stderr, "  pruned %d old events\n", pruned)
	}

	_, clusterIDs, err := s.store.SaveScan(ctx, res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  save scan error: %v\n", err)
		return
	}

	fmt.Fprintf(os.Stderr, "  %d momentum events, %d clusters, %d selected\n",
		res.EventCount, res.ClusterCount, len(res.Clusters))

	for i := range res.Clusters {
		s.analyzeAndAlert(ctx, &res.Clusters[i], clusterIDs[i])
	}
}

func (s *Scheduler) analyzeAndAlert(ctx context.Context, c *momentum.Cluster, clusterID int64) {
	n := &alert.Notification{
		Theme:          string(c.Theme),
		AggregateScore: c.AggregateScore,
		Events:         c.Events,
	}
	for platform := range c.PlatformDistribution {
		n.Platforms = append(n.Platforms, string(platform))
	}

	if s.analyst != nil {
		result, err := s.analyst.AnalyzeCluster(ctx, c)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  analysis failed for %s: %v\n", c.Theme, err)
			// Record the failure so the cluster's analysis history shows it
			// rather than a silent gap.
			_ = s.store.SaveAnalysis(ctx, clusterID, store.NewFailedAnalysis(err))
			return
		}
		_ = s.store.SaveAnalysis(ctx, clusterID, result)

		if result.PumpProbability < s.minProb {
			return
		}
		n.PumpProbability = result.PumpProbability
		n.PumpType = result.PumpType
		n.Summary = result.Summary
	} else if c.DistinctSources() <= 2 {
		// Without an analyst, only cross-platform spread earns an alert.
		return
	} else {
		n.Summary = fmt.Sprintf("Heuristic alert: %d events across %d platforms", len(c.Events), c.DistinctSources())
	}

	if !s.alertMgr.HasNotifiers() {
		return
	}
	if err := s.alertMgr.Broadcast(ctx, n); err != nil {
		fmt.Fprintf(os.Stderr, "  alert error for %s: %v\n", c.Theme, err)
		return
	}
	_ = s.store.MarkAlerted(ctx, clusterID)
	fmt.Fprintf(os.Stderr, "  alerted: %s (momentum %.1f)\n", c.Theme, c.AggregateScore)
}
