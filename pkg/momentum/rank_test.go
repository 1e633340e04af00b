package momentum

import (
	"testing"
	"time"

	"github.com/pumpwatch/pumpradar/pkg/source"
)

func testCluster(score float64, platforms int, start time.Time) Cluster {
	dist := make(map[source.SourceType]int)
	for i, src := range source.AllSourceTypes() {
		if i >= platforms {
			break
		}
		dist[src] = 1
	}
	return Cluster{
		AggregateScore:       score,
		WindowStart:          start,
		PlatformDistribution: dist,
	}
}

func TestRankByScore(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	clusters := []Cluster{
		testCluster(5, 1, base),
		testCluster(20, 1, base),
		testCluster(10, 1, base),
	}

	Rank(clusters)

	want := []float64{20, 10, 5}
	for i, w := range want {
		if clusters[i].AggregateScore != w {
			t.Errorf("clusters[%d].AggregateScore = %f, want %f", i, clusters[i].AggregateScore, w)
		}
	}
}

func TestRankTieBreakers(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	// Same score: more platforms first.
	clusters := []Cluster{
		testCluster(10, 1, base),
		testCluster(10, 3, base),
	}
	Rank(clusters)
	if clusters[0].DistinctSources() != 3 {
		t.Errorf("first cluster platforms = %d, want 3", clusters[0].DistinctSources())
	}

	// Same score and platforms: earlier window start first.
	clusters = []Cluster{
		testCluster(10, 2, base.Add(time.Hour)),
		testCluster(10, 2, base),
	}
	Rank(clusters)
	if !clusters[0].WindowStart.Equal(base) {
		t.Errorf("first cluster start = %s, want %s", clusters[0].WindowStart, base)
	}
}

func TestSelect(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	clusters := []Cluster{
		testCluster(20, 1, base),
		testCluster(10, 1, base),
		testCluster(5, 1, base),
	}

	if got := Select(clusters, 2); len(got) != 2 {
		t.Errorf("Select(2) = %d clusters, want 2", len(got))
	}
	if got := Select(clusters, 10); len(got) != 3 {
		t.Errorf("Select(10) = %d clusters, want 3", len(got))
	}
	if got := Select(clusters, 0); got != nil {
		t.Errorf("Select(0) = %v, want nil", got)
	}
	if got := Select(nil, 5); got != nil {
		t.Errorf("Select(nil) = %v, want nil", got)
	}
}
