package momentum

import (
	"math"
	"testing"
	"time"

	"github.com/pumpwatch/pumpradar/pkg/source"
)

func scoredEvent(src source.SourceType, id string, ts time.Time, score float64, theme Theme) ScoredEvent {
	return ScoredEvent{
		Event: source.Event{
			Source:    src,
			ItemID:    id,
			Title:     "event " + id,
			Timestamp: ts,
		},
		MomentumScore: score,
		Theme:         theme,
	}
}

func TestBuildMergesWithinWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	b := NewBuilder(time.Hour, 0)

	events := []ScoredEvent{
		scoredEvent(source.SourceReddit, "1", base, 2, ThemePumpHype),
		scoredEvent(source.SourceReddit, "2", base.Add(30*time.Minute), 3, ThemePumpHype),
		// 3 hours later, past the window: new cluster.
		scoredEvent(source.SourceReddit, "3", base.Add(4*time.Hour), 2, ThemePumpHype),
	}

	clusters := b.Build(events)
	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(clusters))
	}
	if len(clusters[0].Events) != 2 || len(clusters[1].Events) != 1 {
		t.Errorf("cluster sizes = %d, %d, want 2, 1", len(clusters[0].Events), len(clusters[1].Events))
	}
	if !clusters[0].WindowStart.Equal(base) || !clusters[0].WindowEnd.Equal(base.Add(30*time.Minute)) {
		t.Errorf("window = [%s, %s]", clusters[0].WindowStart, clusters[0].WindowEnd)
	}
}

func TestBuildSeparatesThemes(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	b := NewBuilder(time.Hour, 0)

	events := []ScoredEvent{
		scoredEvent(source.SourceReddit, "1", base, 2, ThemePumpHype),
		scoredEvent(source.SourceReddit, "2", base, 2, ThemeSqueezePlay),
	}

	clusters := b.Build(events)
	if len(clusters) != 2 {
		t.Fatalf("clusters = %d, want 2 (one per theme)", len(clusters))
	}
}

func TestBuildEveryEventInExactlyOneCluster(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	b := NewBuilder(time.Hour, 0)

	var events []ScoredEvent
	for i := 0; i < 20; i++ {
		events = append(events, scoredEvent(
			source.SourceReddit, string(rune('a'+i)),
			base.Add(time.Duration(i*40)*time.Minute), 2, ThemePumpHype))
	}

	clusters := b.Build(events)
	total := 0
	for _, c := range clusters {
		total += len(c.Events)
	}
	if total != len(events) {
		t.Errorf("events in clusters = %d, want %d", total, len(events))
	}
}

func TestAggregateScoreSinglePlatform(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	b := NewBuilder(time.Hour, 0)

	events := []ScoredEvent{
		scoredEvent(source.SourceReddit, "1", base, 2, ThemePumpHype),
		scoredEvent(source.SourceReddit, "2", base, 3, ThemePumpHype),
	}

	clusters := b.Build(events)
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	// One platform: coordination factor 1, aggregate is the plain sum.
	if math.Abs(clusters[0].AggregateScore-5.0) > 1e-9 {
		t.Errorf("aggregate = %f, want 5.0", clusters[0].AggregateScore)
	}
}

func TestAggregateScoreCoordinationFactor(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	b := NewBuilder(time.Hour, 0)

	events := []ScoredEvent{
		scoredEvent(source.SourceReddit, "1", base, 2, ThemePumpHype),
		scoredEvent(source.SourceFourChan, "2", base, 3, ThemePumpHype),
	}

	clusters := b.Build(events)
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	// Two platforms: factor 1.5.
	if math.Abs(clusters[0].AggregateScore-7.5) > 1e-9 {
		t.Errorf("aggregate = %f, want 7.5", clusters[0].AggregateScore)
	}
	if clusters[0].DistinctSources() != 2 {
		t.Errorf("distinct sources = %d, want 2", clusters[0].DistinctSources())
	}
}

func TestCoordinationFactorClamped(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	b := NewBuilder(time.Hour, 0)

	var events []ScoredEvent
	for i, src := range source.AllSourceTypes() {
		events = append(events, scoredEvent(src, string(rune('a'+i)), base, 1, ThemePumpHype))
	}

	clusters := b.Build(events)
	if len(clusters) != 1 {
		t.Fatalf("clusters = %d, want 1", len(clusters))
	}
	// Six platforms would give 3.5 unclamped; the cap is 3.0.
	want := 6.0 * DefaultMaxCoordination
	if math.Abs(clusters[0].AggregateScore-want) > 1e-9 {
		t.Errorf("aggregate = %f, want %f", clusters[0].AggregateScore, want)
	}
}

func TestInsertMonotoneAndOrdered(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	b := NewBuilder(time.Hour, 0)

	c := &Cluster{
		Theme:                ThemePumpHype,
		WindowStart:          base,
		WindowEnd:            base,
		PlatformDistribution: make(map[source.SourceType]int),
	}

	scores := []float64{2, 5, 1, 3, 4}
	srcs := []source.SourceType{
		source.SourceReddit, source.SourceFourChan, source.SourceReddit,
		source.SourceStockTwits, source.SourceNews,
	}

	prev := 0.0
	for i, sc := range scores {
		b.insert(c, scoredEvent(srcs[i], string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), sc, ThemePumpHype))
		if c.AggregateScore < prev {
			t.Fatalf("aggregate dropped from %f to %f after insert %d", prev, c.AggregateScore, i)
		}
		prev = c.AggregateScore
	}

	// Events must stay in descending score order.
	for i := 1; i < len(c.Events); i++ {
		if c.Events[i].MomentumScore > c.Events[i-1].MomentumScore {
			t.Errorf("events out of order at %d: %f > %f", i, c.Events[i].MomentumScore, c.Events[i-1].MomentumScore)
		}
	}

	if c.PlatformDistribution[source.SourceReddit] != 2 {
		t.Errorf("reddit count = %d, want 2", c.PlatformDistribution[source.SourceReddit])
	}
}
