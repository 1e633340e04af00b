package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pumpwatch/pumpradar/pkg/momentum"
	"github.com/pumpwatch/pumpradar/pkg/source"
)

// ScanRecord summarizes one persisted scan.
type ScanRecord struct {
	ID              int64     `db:"id" json:"id"`
	StartedAt       time.Time `db:"started_at" json:"started_at"`
	FinishedAt      time.Time `db:"finished_at" json:"finished_at"`
	EventCount      int       `db:"event_count" json:"event_count"`
	ClusterCount    int       `db:"cluster_count" json:"cluster_count"`
	Recommendation  string    `db:"recommendation" json:"recommendation"`
	RiskJSON        string    `db:"risk" json:"-"`
	DiagnosticsJSON string    `db:"diagnostics" json:"-"`

	Risk        momentum.RiskIndicators `db:"-" json:"risk"`
	Diagnostics []momentum.SourceDiag   `db:"-" json:"diagnostics"`
}

// ClusterRecord is a persisted cluster summary.
type ClusterRecord struct {
	ID             int64     `db:"id" json:"id"`
	ScanID         int64     `db:"scan_id" json:"scan_id"`
	Theme          string    `db:"theme" json:"theme"`
	WindowStart    time.Time `db:"window_start" json:"window_start"`
	WindowEnd      time.Time `db:"window_end" json:"window_end"`
	EventCount     int       `db:"event_count" json:"event_count"`
	PlatformCount  int       `db:"platform_count" json:"platform_count"`
	AggregateScore float64   `db:"aggregate_score" json:"aggregate_score"`
	PlatformsJSON  string    `db:"platforms" json:"-"`
	Alerted        bool      `db:"alerted" json:"alerted"`

	Platforms map[source.SourceType]int `db:"-" json:"platforms"`
}

// AnalysisRecord is a persisted analyst verdict for one cluster.
type AnalysisRecord struct {
	ID                int64     `db:"id" json:"id"`
	ClusterID         int64     `db:"cluster_id" json:"cluster_id"`
	PumpProbability   int       `db:"pump_probability" json:"pump_probability"`
	PumpType          string    `db:"pump_type" json:"pump_type"`
	CoordinationScore int       `db:"coordination_score" json:"coordination_score"`
	PayloadJSON       string    `db:"payload" json:"payload"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// FailedAnalysis is the payload persisted when the analyst could not produce
// a verdict for a cluster. The failure stays visible in the analysis history
// instead of leaving a silent gap.
type FailedAnalysis struct {
	Failed bool   `json:"analysis_failed"`
	Error  string `json:"error"`
}

// NewFailedAnalysis wraps an analysis error for persistence.
func NewFailedAnalysis(err error) FailedAnalysis {
	return FailedAnalysis{Failed: true, Error: err.Error()}
}

// EventListOpts controls event listing.
type EventListOpts struct {
	Source source.SourceType
	Forum  string
	Since  time.Time
	Limit  int
}

// ClusterListOpts controls cluster listing.
type ClusterListOpts struct {
	ScanID    int64
	MinScore  float64
	Limit     int
	Unalerted bool
}

// Store is the persistence interface. The event archive doubles as the
// baseline history the scorer measures momentum against.
type Store interface {
	momentum.BaselineProvider

	UpsertEvent(ctx context.Context, e *source.Event) error
	UpsertEvents(ctx context.Context, events []source.Event) (int, error)
	ListEvents(ctx context.Context, opts EventListOpts) ([]source.Event, error)
	CountEventsBySource(ctx context.Context) (map[source.SourceType]int, error)
	PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	SaveScan(ctx context.Context, res *momentum.Result) (int64, []int64, error)
	LatestScan(ctx context.Context) (*ScanRecord, error)
	ListClusters(ctx context.Context, opts ClusterListOpts) ([]ClusterRecord, error)
	MarkAlerted(ctx context.Context, clusterID int64) error

	SaveAnalysis(ctx context.Context, clusterID int64, a any) error
	ListAnalyses(ctx context.Context, scanID int64) ([]AnalysisRecord, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Rate returns the historical activity rate for one (source, forum)
// partition, weighted by engagement the same way the scorer weights the
// current window so the momentum ratio compares like with like. Zero means
// no history; the scorer falls back to its floor.
func (s *SQLiteStore) Rate(ctx context.Context, src source.SourceType, forum string, from, to time.Time) (float64, error) {
	hours := to.Sub(from).Hours()
	if hours <= 0 {
		return 0, nil
	}

	var rows []source.Event
	err := s.db.SelectContext(ctx, &rows,
		"SELECT replies, upvotes, views FROM events WHERE source = ? AND forum = ? AND timestamp >= ? AND timestamp < ?",
		src, forum, from, to)
	if err != nil {
		return 0, fmt.Errorf("baseline rate %s/%s: %w", src, forum, err)
	}

	var weighted float64
	for i := range rows {
		weighted += momentum.DefaultWeight(rows[i])
	}
	return weighted / hours, nil
}

func (s *SQLiteStore) UpsertEvent(ctx context.Context, e *source.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (source, forum, item_id, title, body, author, url, replies, upvotes, views, timestamp, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, item_id) DO UPDATE SET
			replies = excluded.replies,
			upvotes = excluded.upvotes,
			views = excluded.views,
			collected_at = excluded.collected_at
	`, e.Source, e.Forum, e.ItemID, e.Title, e.Body, e.Author, e.URL,
		e.Replies, e.Upvotes, e.Views, e.Timestamp, e.CollectedAt)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", e.Key(), err)
	}
	return nil
}

// UpsertEvents stores a batch and returns how many were written.
func (s *SQLiteStore) UpsertEvents(ctx context.Context, events []source.Event) (int, error) {
	for i := range events {
		if err := s.UpsertEvent(ctx, &events[i]); err != nil {
			return i, err
		}
	}
	return len(events), nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, opts EventListOpts) ([]source.Event, error) {
	query := "SELECT source, forum, item_id, title, body, author, url, replies, upvotes, views, timestamp, collected_at FROM events WHERE 1=1"
	var args []any

	if opts.Source != "" {
		query += " AND source = ?"
		args = append(args, opts.Source)
	}
	if opts.Forum != "" {
		query += " AND forum = ?"
		args = append(args, opts.Forum)
	}
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY timestamp DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var events []source.Event
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *SQLiteStore) CountEventsBySource(ctx context.Context) (map[source.SourceType]int, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT source, COUNT(*) as cnt FROM events GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("count events by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[source.SourceType]int)
	for rows.Next() {
		var src string
		var cnt int
		if err := rows.Scan(&src, &cnt); err != nil {
			return nil, err
		}
		counts[source.SourceType(src)] = cnt
	}
	return counts, nil
}

// PruneEventsBefore drops events older than cutoff and returns the count.
func (s *SQLiteStore) PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SaveScan persists a scan summary with its selected clusters. Returns the
// scan id and the cluster row ids in the same order as res.Clusters.
func (s *SQLiteStore) SaveScan(ctx context.Context, res *momentum.Result) (int64, []int64, error) {
	riskJSON, _ := json.Marshal(res.Risk)
	diagsJSON, _ := json.Marshal(res.Diagnostics)

	r, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (started_at, finished_at, event_count, cluster_count, recommendation, risk, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, res.StartedAt, res.FinishedAt, res.EventCount, res.ClusterCount,
		res.Recommendation, string(riskJSON), string(diagsJSON))
	if err != nil {
		return 0, nil, fmt.Errorf("insert scan: %w", err)
	}
	scanID, _ := r.LastInsertId()

	clusterIDs := make([]int64, 0, len(res.Clusters))
	for i := range res.Clusters {
		c := &res.Clusters[i]
		platformsJSON, _ := json.Marshal(c.PlatformDistribution)
		cr, err := s.db.ExecContext(ctx, `
			INSERT INTO clusters (scan_id, theme, window_start, window_end, event_count, platform_count, aggregate_score, platforms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, scanID, c.Theme, c.WindowStart, c.WindowEnd, len(c.Events),
			c.DistinctSources(), c.AggregateScore, string(platformsJSON))
		if err != nil {
			return scanID, clusterIDs, fmt.Errorf("insert cluster %s: %w", c.Theme, err)
		}
		id, _ := cr.LastInsertId()
		clusterIDs = append(clusterIDs, id)
	}

	return scanID, clusterIDs, nil
}

// LatestScan returns the most recent scan, or nil when none exist.
func (s *SQLiteStore) LatestScan(ctx context.Context) (*ScanRecord, error) {
	var rec ScanRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM scans ORDER BY started_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest scan: %w", err)
	}
	json.Unmarshal([]byte(rec.RiskJSON), &rec.Risk)
	json.Unmarshal([]byte(rec.DiagnosticsJSON), &rec.Diagnostics)
	return &rec, nil
}

func (s *SQLiteStore) ListClusters(ctx context.Context, opts ClusterListOpts) ([]ClusterRecord, error) {
	query := "SELECT * FROM clusters WHERE 1=1"
	var args []any

	if opts.ScanID > 0 {
		query += " AND scan_id = ?"
		args = append(args, opts.ScanID)
	}
	if opts.MinScore > 0 {
		query += " AND aggregate_score >= ?"
		args = append(args, opts.MinScore)
	}
	if opts.Unalerted {
		query += " AND alerted = 0"
	}

	query += " ORDER BY aggregate_score DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var clusters []ClusterRecord
	if err := s.db.SelectContext(ctx, &clusters, query, args...); err != nil {
		return nil, fmt.Errorf("list clusters: %w", err)
	}

	for i := range clusters {
		json.Unmarshal([]byte(clusters[i].PlatformsJSON), &clusters[i].Platforms)
	}
	return clusters, nil
}

func (s *SQLiteStore) MarkAlerted(ctx context.Context, clusterID int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE clusters SET alerted = 1 WHERE id = ?", clusterID)
	if err != nil {
		return fmt.Errorf("mark alerted %d: %w", clusterID, err)
	}
	return nil
}

// SaveAnalysis persists an analyst verdict. The full payload is stored as
// JSON; probability, type and coordination are lifted into columns for
// querying.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, clusterID int64, a any) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	var cols struct {
		PumpProbability   int    `json:"pump_probability"`
		PumpType          string `json:"pump_type"`
		CoordinationScore int    `json:"coordination_score"`
	}
	json.Unmarshal(payload, &cols)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (cluster_id, pump_probability, pump_type, coordination_score, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, clusterID, cols.PumpProbability, cols.PumpType, cols.CoordinationScore,
		string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert analysis for cluster %d: %w", clusterID, err)
	}
	return nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, scanID int64) ([]AnalysisRecord, error) {
	var records []AnalysisRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT a.* FROM analyses a
		JOIN clusters c ON c.id = a.cluster_id
		WHERE c.scan_id = ?
		ORDER BY a.pump_probability DESC
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("list analyses for scan %d: %w", scanID, err)
	}
	return records, nil
}
