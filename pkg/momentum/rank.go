package momentum

import "sort"

// Rank orders clusters by aggregate score descending. Ties go to the cluster
// spanning more distinct platforms, then to the earlier window start, which
// favors earlier-detected momentum. The input is sorted in place.
func Rank(clusters []Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := &clusters[i], &clusters[j]
		if a.AggregateScore != b.AggregateScore {
			return a.AggregateScore > b.AggregateScore
		}
		if a.DistinctSources() != b.DistinctSources() {
			return a.DistinctSources() > b.DistinctSources()
		}
		return a.WindowStart.Before(b.WindowStart)
	})
}

// Select truncates a ranked cluster list to the top k. k <= 0 selects
// nothing; an empty result is a valid "no detectable momentum" outcome.
func Select(clusters []Cluster, k int) []Cluster {
	if k <= 0 || len(clusters) == 0 {
		return nil
	}
	if k > len(clusters) {
		k = len(clusters)
	}
	return clusters[:k]
}
