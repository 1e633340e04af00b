package momentum

import (
	"context"
	"math"
	"time"

	"github.com/pumpwatch/pumpradar/pkg/source"
)

// ScoredEvent is an activity event with its momentum score and the baseline
// it was measured against.
type ScoredEvent struct {
	source.Event
	MomentumScore float64 `json:"momentum_score"`
	BaselineRate  float64 `json:"baseline_rate"`
	Theme         Theme   `json:"theme"`
}

// WeightFunc maps an event to its contribution to the partition's activity
// rate. The weighting of engagement against raw post counts is a tuning
// policy, so it is pluggable.
type WeightFunc func(source.Event) float64

// DefaultWeight counts each event as 1, scaled multiplicatively by a
// log-damped engagement factor: 1 + log1p(upvotes + 2*replies)/log(51).
// Replies weigh double (a reply is a stronger signal than a vote) and ~50
// engagement doubles an event's contribution, while the damping keeps one
// viral post from dominating a whole forum's rate.
func DefaultWeight(e source.Event) float64 {
	engagement := float64(e.Upvotes + 2*e.Replies)
	if engagement < 0 {
		engagement = 0
	}
	return 1 + math.Log1p(engagement)/math.Log(51)
}

// CountWeight ignores engagement; every event contributes 1.
func CountWeight(source.Event) float64 { return 1 }

// BaselineProvider reports the historical activity rate, in events per hour,
// for one (source, forum) partition over a time range. Implementations return
// 0 when no history exists.
type BaselineProvider interface {
	Rate(ctx context.Context, src source.SourceType, forum string, from, to time.Time) (float64, error)
}

// StaticBaseline is a fixed BaselineProvider keyed by "source/forum".
type StaticBaseline map[string]float64

func (b StaticBaseline) Rate(_ context.Context, src source.SourceType, forum string, _, _ time.Time) (float64, error) {
	return b[string(src)+"/"+forum], nil
}

// DefaultBaselineFloor substitutes for a missing baseline: half a post per
// hour, the noise floor of a near-dead forum. It keeps brand-new forums from
// scoring infinitely high.
const DefaultBaselineFloor = 0.5

// baselineLookbackFactor sizes the history window at 7x the recency window.
const baselineLookbackFactor = 7

// Scorer computes momentum scores relative to per-partition baselines.
type Scorer struct {
	baseline  BaselineProvider
	weight    WeightFunc
	window    time.Duration
	threshold float64
	floors    map[source.SourceType]float64
}

// NewScorer creates a scorer. window is the recency window, threshold the
// minimum score an event needs to survive; it is the primary sensitivity knob.
func NewScorer(baseline BaselineProvider, weight WeightFunc, window time.Duration, threshold float64, floors map[source.SourceType]float64) *Scorer {
	if weight == nil {
		weight = DefaultWeight
	}
	if window <= 0 {
		window = 6 * time.Hour
	}
	return &Scorer{
		baseline:  baseline,
		weight:    weight,
		window:    window,
		threshold: threshold,
		floors:    floors,
	}
}

// Score partitions events by (source, forum), computes each partition's
// current activity rate against its baseline, and returns the events inside
// the recency window that score at or above the threshold. Relative order of
// the input is preserved.
func (s *Scorer) Score(ctx context.Context, events []source.Event, now time.Time) []ScoredEvent {
	windowStart := now.Add(-s.window)
	windowHours := s.window.Hours()

	type partition struct {
		weighted float64
		score    float64
		baseline float64
	}
	parts := make(map[string]*partition)

	key := func(e source.Event) string { return string(e.Source) + "/" + e.Forum }

	for _, e := range events {
		if e.Timestamp.Before(windowStart) || e.Timestamp.After(now) {
			continue
		}
		p := parts[key(e)]
		if p == nil {
			p = &partition{}
			parts[key(e)] = p
		}
		p.weighted += s.weight(e)
	}

	for k, p := range parts {
		src, forum := splitPartitionKey(k)
		currentRate := p.weighted / windowHours

		lookback := time.Duration(baselineLookbackFactor) * s.window
		rate, err := s.baseline.Rate(ctx, src, forum, windowStart.Add(-lookback), windowStart)
		if err != nil || rate <= 0 {
			rate = s.floor(src)
		}

		p.baseline = rate
		p.score = currentRate / rate
	}

	var scored []ScoredEvent
	for _, e := range events {
		if e.Timestamp.Before(windowStart) || e.Timestamp.After(now) {
			continue
		}
		p := parts[key(e)]
		if p.score < s.threshold || p.score <= 0 {
			continue
		}
		scored = append(scored, ScoredEvent{
			Event:         e,
			MomentumScore: p.score,
			BaselineRate:  p.baseline,
		})
	}

	return scored
}

func (s *Scorer) floor(src source.SourceType) float64 {
	if f, ok := s.floors[src]; ok && f > 0 {
		return f
	}
	return DefaultBaselineFloor
}

func splitPartitionKey(k string) (source.SourceType, string) {
	for i := 0; i < len(k); i++ {
		if k[i] == '/' {
			return source.SourceType(k[:i]), k[i+1:]
		}
	}
	return source.SourceType(k), ""
}
