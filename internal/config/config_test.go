package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Scan.Threshold != 2.0 {
		t.Errorf("threshold = %f, want 2.0", cfg.Scan.Threshold)
	}
	if cfg.Scan.Hours != 6 {
		t.Errorf("hours = %d, want 6", cfg.Scan.Hours)
	}
	if cfg.Scan.Analyze != 5 {
		t.Errorf("analyze = %d, want 5", cfg.Scan.Analyze)
	}
	if cfg.Scan.Window() != 6*time.Hour {
		t.Errorf("window = %s, want 6h", cfg.Scan.Window())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
scan:
  threshold: 1.5
  hours: 12
sources:
  fourchan:
    enabled: true
    board: pol
database:
  path: /tmp/test.db
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Scan.Threshold != 1.5 {
		t.Errorf("threshold = %f, want 1.5", cfg.Scan.Threshold)
	}
	if cfg.Scan.Hours != 12 {
		t.Errorf("hours = %d, want 12", cfg.Scan.Hours)
	}
	// Unset fields keep their defaults.
	if cfg.Scan.Analyze != 5 {
		t.Errorf("analyze = %d, want default 5", cfg.Scan.Analyze)
	}
	if cfg.Sources.FourChan.Board != "pol" {
		t.Errorf("board = %q, want pol", cfg.Sources.FourChan.Board)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PUMPRADAR_DB_PATH", "/data/radar.db")
	t.Setenv("REDDIT_CLIENT_ID", "id123")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret456")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Database.Path != "/data/radar.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if !cfg.Sources.Reddit.Enabled || cfg.Sources.Reddit.ClientID != "id123" {
		t.Errorf("reddit = %+v", cfg.Sources.Reddit)
	}
	if !cfg.Analysis.Enabled || cfg.Analysis.Provider != "anthropic" {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Scan.Threshold = -0.5
	if err := cfg.Validate(); err == nil {
		t.Error("negative threshold accepted")
	}

	cfg = Default()
	cfg.Scan.Hours = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero hours accepted")
	}

	cfg = Default()
	cfg.Scan.Analyze = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative analyze accepted")
	}

	// Zero threshold is a valid, maximally sensitive setting.
	cfg = Default()
	cfg.Scan.Threshold = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero threshold rejected: %v", err)
	}
}

func TestParseDurationsFallBack(t *testing.T) {
	s := ScanConfig{SourceTimeout: "bogus", ScanTimeout: ""}
	if d := s.ParseSourceTimeout(); d != 60*time.Second {
		t.Errorf("source timeout = %s, want 60s", d)
	}
	if d := s.ParseScanTimeout(); d != 5*time.Minute {
		t.Errorf("scan timeout = %s, want 5m", d)
	}

	sch := ScheduleConfig{ScanInterval: "30m"}
	if d := sch.ParseScanInterval(); d != 30*time.Minute {
		t.Errorf("interval = %s, want 30m", d)
	}
}
