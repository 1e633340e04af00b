package momentum

import (
	"sort"
	"time"

	"github.com/pumpwatch/pumpradar/pkg/source"
)

// Cluster is a time- and theme-bounded group of momentum events, the unit
// handed to downstream analysis.
type Cluster struct {
	Theme                Theme                     `json:"theme"`
	WindowStart          time.Time                 `json:"window_start"`
	WindowEnd            time.Time                 `json:"window_end"`
	Events               []ScoredEvent             `json:"events"`
	AggregateScore       float64                   `json:"aggregate_score"`
	PlatformDistribution map[source.SourceType]int `json:"platform_distribution"`
}

// DistinctSources returns the number of platforms contributing to the cluster.
func (c *Cluster) DistinctSources() int {
	return len(c.PlatformDistribution)
}

// DefaultMaxCoordination caps the cross-platform multiplier. With six source
// types, five distinct platforms saturate it.
const DefaultMaxCoordination = 3.0

// Builder groups themed, scored events into clusters bounded by a sliding
// time window.
type Builder struct {
	width           time.Duration
	maxCoordination float64
}

// NewBuilder creates a cluster builder. width is the analysis horizon; an
// event extends the open cluster for its theme if it lands within width of
// the cluster's current end.
func NewBuilder(width time.Duration, maxCoordination float64) *Builder {
	if width <= 0 {
		width = 6 * time.Hour
	}
	if maxCoordination <= 0 {
		maxCoordination = DefaultMaxCoordination
	}
	return &Builder{width: width, maxCoordination: maxCoordination}
}

// Build clusters events per theme. Within a theme events are walked in
// timestamp order; continuous bursts merge into one cluster, a gap wider than
// the window starts a new one. Every event lands in exactly one cluster.
func (b *Builder) Build(events []ScoredEvent) []Cluster {
	byTheme := make(map[Theme][]ScoredEvent)
	var themes []Theme
	for _, e := range events {
		if _, ok := byTheme[e.Theme]; !ok {
			themes = append(themes, e.Theme)
		}
		byTheme[e.Theme] = append(byTheme[e.Theme], e)
	}

	var clusters []Cluster
	for _, theme := range themes {
		group := byTheme[theme]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		var open *Cluster
		for _, e := range group {
			if open != nil && !e.Timestamp.After(open.WindowEnd.Add(b.width)) {
				b.insert(open, e)
				continue
			}
			if open != nil {
				clusters = append(clusters, *open)
			}
			open = &Cluster{
				Theme:                theme,
				WindowStart:          e.Timestamp,
				WindowEnd:            e.Timestamp,
				PlatformDistribution: make(map[source.SourceType]int),
			}
			b.insert(open, e)
		}
		if open != nil {
			clusters = append(clusters, *open)
		}
	}

	return clusters
}

// insert adds an event and recomputes the aggregate score. Events are kept in
// descending score order; the aggregate never decreases on insertion because
// scores are non-negative and the coordination factor is non-decreasing in
// the platform count.
func (b *Builder) insert(c *Cluster, e ScoredEvent) {
	pos := sort.Search(len(c.Events), func(i int) bool {
		return c.Events[i].MomentumScore < e.MomentumScore
	})
	c.Events = append(c.Events, ScoredEvent{})
	copy(c.Events[pos+1:], c.Events[pos:])
	c.Events[pos] = e

	if e.Timestamp.After(c.WindowEnd) {
		c.WindowEnd = e.Timestamp
	}
	if e.Timestamp.Before(c.WindowStart) {
		c.WindowStart = e.Timestamp
	}
	c.PlatformDistribution[e.Source]++

	sum := 0.0
	for _, ev := range c.Events {
		sum += ev.MomentumScore
	}
	c.AggregateScore = sum * b.coordinationFactor(len(c.PlatformDistribution))
}

// coordinationFactor rewards activity spread across independent platforms:
// 1 + 0.5 per additional distinct source, clamped.
func (b *Builder) coordinationFactor(distinctSources int) float64 {
	if distinctSources < 1 {
		return 1
	}
	f := 1 + 0.5*float64(distinctSources-1)
	if f > b.maxCoordination {
		return b.maxCoordination
	}
	return f
}
