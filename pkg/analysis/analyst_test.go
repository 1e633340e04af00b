package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pumpwatch/pumpradar/pkg/momentum"
	"github.com/pumpwatch/pumpradar/pkg/source"
)

func TestParseJSONPlain(t *testing.T) {
	var out ClusterAnalysis
	raw := `{"pump_probability": 85, "pump_type": "crypto_pump", "coordination_score": 7}`
	if err := parseJSON(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.PumpProbability != 85 || out.PumpType != "crypto_pump" {
		t.Errorf("parsed = %+v", out)
	}
}

func TestParseJSONFenced(t *testing.T) {
	var out ClusterAnalysis
	raw := "```json\n{\"pump_probability\": 42}\n```"
	if err := parseJSON(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.PumpProbability != 42 {
		t.Errorf("pump_probability = %d, want 42", out.PumpProbability)
	}
}

func TestParseJSONUnknownFieldsTolerated(t *testing.T) {
	var out PlatformAnalysis
	raw := `{"coordination_level": 3, "some_new_field": true}`
	if err := parseJSON(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.CoordinationLevel != 3 {
		t.Errorf("coordination_level = %d, want 3", out.CoordinationLevel)
	}
}

func TestParseJSONGarbage(t *testing.T) {
	var out ClusterAnalysis
	err := parseJSON("I think this is probably a pump.", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	var ae *AnalysisError
	if !errors.As(err, &ae) {
		t.Errorf("err = %T, want *AnalysisError", err)
	}
}

func TestIntUnmarshal(t *testing.T) {
	var m map[string]Int
	raw := `{"number": 5, "string": "12", "float": 3.7, "null": null}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	if m["number"] != 5 || m["string"] != 12 || m["float"] != 3 || m["null"] != 0 {
		t.Errorf("parsed = %+v", m)
	}
}

func testClusterForAnalysis() *momentum.Cluster {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &momentum.Cluster{
		Theme:       momentum.ThemePumpHype,
		WindowStart: now.Add(-time.Hour),
		WindowEnd:   now,
		Events: []momentum.ScoredEvent{
			{
				Event: source.Event{
					Source: source.SourceFourChan,
					Forum:  "biz",
					ItemID: "1",
					Title:  "MOONCOIN 100x guaranteed",
				},
				MomentumScore: 8.2,
			},
		},
		AggregateScore:       8.2,
		PlatformDistribution: map[source.SourceType]int{source.SourceFourChan: 1},
	}
}

func chatCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyzeCluster(t *testing.T) {
	content := `{
		"pump_probability": 90,
		"pump_type": "crypto_pump",
		"coordination_score": 8,
		"urgency_indicators": ["100x guaranteed"],
		"red_flags": ["unrealistic returns"],
		"time_sensitivity": "immediate",
		"recommended_action": "high_alert",
		"detected_assets": ["Mooncoin"],
		"asset_mentions": {"Mooncoin": "3"},
		"analysis_summary": "classic crypto pump"
	}`
	srv := chatCompletionServer(t, content)
	defer srv.Close()

	a := NewAnalyst("openai", "test-model", "key", srv.URL)
	result, err := a.AnalyzeCluster(context.Background(), testClusterForAnalysis())
	if err != nil {
		t.Fatal(err)
	}

	if result.PumpProbability != 90 {
		t.Errorf("pump_probability = %d, want 90", result.PumpProbability)
	}
	if result.AssetMentions["Mooncoin"] != 3 {
		t.Errorf("asset mentions = %+v", result.AssetMentions)
	}
	if result.RecommendedAction != "high_alert" {
		t.Errorf("action = %q", result.RecommendedAction)
	}
}

func TestAnalyzeClusterRejectsOutOfRange(t *testing.T) {
	cases := []string{
		`{"pump_probability": 150, "coordination_score": 5}`,
		`{"pump_probability": 50, "coordination_score": 11}`,
		`{"pump_probability": -5, "coordination_score": 5}`,
	}

	for _, content := range cases {
		srv := chatCompletionServer(t, content)
		a := NewAnalyst("openai", "test-model", "key", srv.URL)
		_, err := a.AnalyzeCluster(context.Background(), testClusterForAnalysis())
		srv.Close()

		var ae *AnalysisError
		if !errors.As(err, &ae) {
			t.Errorf("content %s: err = %v, want *AnalysisError", content, err)
		}
	}
}

func TestAnalyzePlatforms(t *testing.T) {
	content := `{
		"coordination_level": 6,
		"origination_platform": "fourchan",
		"spread_pattern": "coordinated",
		"artificial_indicators": ["synchronized posting"],
		"risk_assessment": "high",
		"confidence": 80
	}`
	srv := chatCompletionServer(t, content)
	defer srv.Close()

	a := NewAnalyst("openai", "test-model", "key", srv.URL)
	result, err := a.AnalyzePlatforms(context.Background(), map[source.SourceType]float64{
		source.SourceFourChan: 12.5,
		source.SourceReddit:   4.0,
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.SpreadPattern != "coordinated" || result.RiskAssessment != "high" {
		t.Errorf("parsed = %+v", result)
	}
}

func TestAnalyzeClusterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited"}}`)
	}))
	defer srv.Close()

	a := NewAnalyst("openai", "test-model", "key", srv.URL)
	if _, err := a.AnalyzeCluster(context.Background(), testClusterForAnalysis()); err == nil {
		t.Fatal("expected error on 429")
	}
}
