package momentum

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pumpwatch/pumpradar/pkg/source"
)

// State is the scan lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateProcessing State = "processing"
	StateDone       State = "done"
)

// Params holds the knobs for one scan.
type Params struct {
	// Threshold is the minimum momentum score an event needs to survive.
	// Lower means more sensitive detection. Zero is valid.
	Threshold float64
	// Window is the recency and clustering horizon.
	Window time.Duration
	// Analyze is the number of top clusters selected for downstream analysis.
	Analyze int
	// SourceTimeout bounds each source fetch; a source exceeding it is a
	// failed source, not a failed scan.
	SourceTimeout time.Duration
	// ScanTimeout bounds the whole fetch phase; processing starts with
	// whatever arrived.
	ScanTimeout time.Duration

	// Weight, Rules, BaselineFloors and MaxCoordination tune the pipeline
	// stages; zero values pick the defaults.
	Weight          WeightFunc
	Rules           []Rule
	BaselineFloors  map[source.SourceType]float64
	MaxCoordination float64
}

// Validate reports invalid parameter combinations. A scan must not begin with
// a config error.
func (p Params) Validate() error {
	if p.Threshold < 0 {
		return fmt.Errorf("%w: threshold %.2f is negative", ErrConfig, p.Threshold)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: window %s is not positive", ErrConfig, p.Window)
	}
	if p.Analyze < 0 {
		return fmt.Errorf("%w: analyze %d is negative", ErrConfig, p.Analyze)
	}
	return nil
}

// SourceDiag is the per-source outcome of the fetch phase.
type SourceDiag struct {
	Source    source.SourceType `json:"source"`
	Fetched   int               `json:"fetched"`
	Malformed int               `json:"malformed"`
	Failed    bool              `json:"failed"`
	Error     string            `json:"error,omitempty"`
	Elapsed   time.Duration     `json:"elapsed"`
}

// ThemeStat summarizes one theme's share of a scan.
type ThemeStat struct {
	Events        int     `json:"events"`
	TotalMomentum float64 `json:"total_momentum"`
}

// RiskIndicators are the heuristic pump-pattern counters reported per scan.
type RiskIndicators struct {
	HighRiskPatterns     int `json:"high_risk_patterns"`
	CoordinatedPlatforms int `json:"coordinated_platforms"`
	VolumeSpikes         int `json:"volume_spikes"`
}

// Result is the output of one end-to-end scan.
type Result struct {
	StartedAt        time.Time                     `json:"started_at"`
	FinishedAt       time.Time                     `json:"finished_at"`
	Raw              []source.Event                `json:"-"`
	Events           []ScoredEvent                 `json:"-"`
	EventCount       int                           `json:"event_count"`
	ClusterCount     int                           `json:"cluster_count"`
	Clusters         []Cluster                     `json:"clusters"`
	ThemeBreakdown   map[Theme]ThemeStat           `json:"theme_breakdown"`
	PlatformMomentum map[source.SourceType]float64 `json:"platform_momentum"`
	Risk             RiskIndicators                `json:"risk"`
	Recommendation   string                        `json:"recommendation"`
	Diagnostics      []SourceDiag                  `json:"diagnostics"`
}

// Scanner drives one scan across all configured sources: concurrent fetch,
// then single-threaded scoring, classification, clustering and ranking over
// the fully collected event set.
type Scanner struct {
	sources    []source.Source
	scorer     *Scorer
	classifier *Classifier
	builder    *Builder
	params     Params

	mu    sync.Mutex
	state State
}

// NewScanner validates params and wires the pipeline stages.
func NewScanner(sources []source.Source, baseline BaselineProvider, params Params) (*Scanner, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.SourceTimeout <= 0 {
		params.SourceTimeout = 60 * time.Second
	}
	if params.ScanTimeout <= 0 {
		params.ScanTimeout = 5 * time.Minute
	}
	if baseline == nil {
		baseline = StaticBaseline{}
	}

	return &Scanner{
		sources:    sources,
		scorer:     NewScorer(baseline, params.Weight, params.Window, params.Threshold, params.BaselineFloors),
		classifier: NewClassifier(params.Rules),
		builder:    NewBuilder(params.Window, params.MaxCoordination),
		params:     params,
		state:      StateIdle,
	}, nil
}

// State returns the current scan phase.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scanner) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

type fetchOutcome struct {
	records []source.Record
	err     error
	elapsed time.Duration
}

// Scan runs one end-to-end scan. Per-record and per-source failures are
// absorbed into diagnostics; only total data unavailability is an error.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	started := time.Now().UTC()
	since := started.Add(-s.params.Window)

	s.setState(StateFetching)
	defer s.setState(StateDone)

	fetchCtx, cancel := context.WithTimeout(ctx, s.params.ScanTimeout)
	defer cancel()

	outcomes := make([]fetchOutcome, len(s.sources))
	var g errgroup.Group
	for i, src := range s.sources {
		i, src := i, src
		g.Go(func() error {
			srcCtx, srcCancel := context.WithTimeout(fetchCtx, s.params.SourceTimeout)
			defer srcCancel()

			t0 := time.Now()
			records, err := src.Fetch(srcCtx, since)
			outcomes[i] = fetchOutcome{records: records, err: err, elapsed: time.Since(t0)}
			return nil
		})
	}
	g.Wait()

	s.setState(StateProcessing)

	// Normalize and dedup. Sources are walked in configuration order and
	// records in source order, so first-seen-wins is deterministic.
	var events []source.Event
	seen := make(map[string]bool)
	diags := make([]SourceDiag, len(s.sources))
	failed := 0

	for i, src := range s.sources {
		out := outcomes[i]
		diag := SourceDiag{Source: src.Name(), Elapsed: out.elapsed}

		if out.err != nil {
			srcErr := &SourceError{Source: src.Name(), Err: out.err}
			diag.Failed = true
			diag.Error = srcErr.Error()
			failed++
			diags[i] = diag
			continue
		}

		diag.Fetched = len(out.records)
		for _, rec := range out.records {
			ev, err := source.Normalize(src.Name(), rec)
			if err != nil {
				diag.Malformed++
				continue
			}
			if seen[ev.Key()] {
				continue
			}
			seen[ev.Key()] = true
			events = append(events, ev)
		}
		diags[i] = diag
	}

	if len(s.sources) == 0 || failed == len(s.sources) {
		return nil, ErrNoData
	}

	scored := s.scorer.Score(ctx, events, started)
	for i := range scored {
		scored[i].Theme = s.classifier.Classify(scored[i].Text())
	}

	clusters := s.builder.Build(scored)
	Rank(clusters)

	result := &Result{
		StartedAt:        started,
		Raw:              events,
		Events:           scored,
		EventCount:       len(scored),
		ClusterCount:     len(clusters),
		ThemeBreakdown:   themeBreakdown(clusters),
		PlatformMomentum: platformMomentum(scored),
		Risk:             detectRisk(clusters, scored),
		Diagnostics:      diags,
	}
	result.Clusters = Select(clusters, s.params.Analyze)
	result.Recommendation = recommend(result.Risk, len(clusters))
	result.FinishedAt = time.Now().UTC()

	return result, nil
}

func themeBreakdown(clusters []Cluster) map[Theme]ThemeStat {
	stats := make(map[Theme]ThemeStat)
	for _, c := range clusters {
		st := stats[c.Theme]
		st.Events += len(c.Events)
		st.TotalMomentum += c.AggregateScore
		stats[c.Theme] = st
	}
	return stats
}

func platformMomentum(events []ScoredEvent) map[source.SourceType]float64 {
	momentum := make(map[source.SourceType]float64)
	for _, e := range events {
		momentum[e.Source] += e.MomentumScore
	}
	return momentum
}

// volumeSpikeScore is the momentum score above which an event counts as a
// volume spike in the risk indicators.
const volumeSpikeScore = 5.0

func detectRisk(clusters []Cluster, events []ScoredEvent) RiskIndicators {
	var risk RiskIndicators
	for _, c := range clusters {
		if n := c.DistinctSources(); n > 2 {
			risk.HighRiskPatterns++
			if n > risk.CoordinatedPlatforms {
				risk.CoordinatedPlatforms = n
			}
		}
	}
	for _, e := range events {
		if e.MomentumScore > volumeSpikeScore {
			risk.VolumeSpikes++
		}
	}
	return risk
}

func recommend(risk RiskIndicators, clusterCount int) string {
	switch {
	case risk.HighRiskPatterns > 3:
		return "HIGH PUMP RISK: multiple coordinated patterns detected"
	case clusterCount > 5:
		return "ELEVATED ACTIVITY: monitor these themes closely"
	default:
		return "NORMAL MARKET CHATTER: no significant pump patterns"
	}
}
