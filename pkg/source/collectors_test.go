package source

import (
	"testing"
	"time"
)

func TestParseStockTwitsTime(t *testing.T) {
	got, err := parseStockTwitsTime("2026-03-01T10:30:00Z")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}

	if _, err := parseStockTwitsTime("2026-03-01 10:30:00 UTC"); err != nil {
		t.Errorf("legacy format rejected: %v", err)
	}

	if _, err := parseStockTwitsTime("yesterday"); err == nil {
		t.Error("expected error for unparseable time")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML(`low float <span class="quote">&gt;buy now</span><br>moon soon`)
	want := "low float  >buy now  moon soon"
	if got != want {
		t.Errorf("stripHTML = %q, want %q", got, want)
	}
}

func TestExtractTopicID(t *testing.T) {
	if got := extractTopicID("https://bitcointalk.org/index.php?topic=5417891.0"); got != "5417891" {
		t.Errorf("got %q, want 5417891", got)
	}
	if got := extractTopicID("https://bitcointalk.org/index.php?board=159.0"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestDedupeRecords(t *testing.T) {
	records := []Record{
		{ItemID: "1", Title: "first"},
		{ItemID: "2", Title: "second"},
		{ItemID: "1", Title: "repeat"},
	}

	out := dedupeRecords(records)
	if len(out) != 2 {
		t.Fatalf("deduped = %d, want 2", len(out))
	}
	if out[0].Title != "first" {
		t.Errorf("kept %q, want the first occurrence", out[0].Title)
	}
}
