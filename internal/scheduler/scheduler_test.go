package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pumpwatch/pumpradar/internal/store"
	"github.com/pumpwatch/pumpradar/pkg/alert"
	"github.com/pumpwatch/pumpradar/pkg/analysis"
	"github.com/pumpwatch/pumpradar/pkg/momentum"
	"github.com/pumpwatch/pumpradar/pkg/source"
)

type burstSource struct {
	records []source.Record
}

func (b *burstSource) Name() source.SourceType { return source.SourceReddit }

func (b *burstSource) Fetch(ctx context.Context, since time.Time) ([]source.Record, error) {
	return b.records, nil
}

func TestScanOncePersistsFailedAnalysis(t *testing.T) {
	// Model endpoint that answers with prose the parser rejects.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "probably a pump, hard to say"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now().UTC()
	src := &burstSource{records: []source.Record{
		{ItemID: "1", Forum: "wallstreetbets", Title: "massive short squeeze", Timestamp: now.Add(-30 * time.Minute)},
		{ItemID: "2", Forum: "wallstreetbets", Title: "squeeze is on", Timestamp: now.Add(-20 * time.Minute)},
		{ItemID: "3", Forum: "wallstreetbets", Title: "short interest exploding", Timestamp: now.Add(-10 * time.Minute)},
	}}

	scanner, err := momentum.NewScanner([]source.Source{src}, db, momentum.Params{
		Threshold: 2.0,
		Window:    time.Hour,
		Analyze:   1,
	})
	if err != nil {
		t.Fatal(err)
	}

	analyst := analysis.NewAnalyst("openai", "test-model", "key", srv.URL)
	sched := New(db, scanner, analyst, alert.NewManager(nil), time.Hour, 70)

	sched.scanOnce(context.Background())

	rec, err := db.LatestScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("no scan persisted")
	}

	// The failed analysis lands in the history as a failure record instead
	// of leaving the cluster without a row.
	records, err := db.ListAnalyses(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("analyses = %d, want 1 failure record", len(records))
	}
	if !strings.Contains(records[0].PayloadJSON, "analysis_failed") {
		t.Errorf("payload = %s", records[0].PayloadJSON)
	}
	if records[0].PumpProbability != 0 {
		t.Errorf("pump probability = %d, want 0", records[0].PumpProbability)
	}
}
