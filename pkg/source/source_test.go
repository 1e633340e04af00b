package source

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	ev, err := Normalize(SourceReddit, Record{
		ItemID:    "abc",
		Forum:     "stocks",
		Title:     "hello",
		Upvotes:   10,
		Timestamp: ts,
	})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Key() != "reddit:abc" {
		t.Errorf("key = %q, want reddit:abc", ev.Key())
	}
	if ev.CollectedAt.IsZero() {
		t.Error("collected_at not set")
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		rec  Record
	}{
		{"missing id", Record{Title: "x", Timestamp: ts}},
		{"zero timestamp", Record{ItemID: "1", Title: "x"}},
		{"no text", Record{ItemID: "1", Timestamp: ts}},
	}

	for _, tc := range cases {
		if _, err := Normalize(SourceReddit, tc.rec); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("%s: err = %v, want ErrMalformedRecord", tc.name, err)
		}
	}
}

func TestNormalizeClampsNegativeEngagement(t *testing.T) {
	ev, err := Normalize(SourceStockTwits, Record{
		ItemID:    "1",
		Body:      "text",
		Replies:   -3,
		Upvotes:   -1,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ev.Replies != 0 || ev.Upvotes != 0 {
		t.Errorf("engagement = %d/%d, want clamped to 0", ev.Replies, ev.Upvotes)
	}
}

func TestEventText(t *testing.T) {
	e := Event{Title: "title", Body: "body"}
	if e.Text() != "title body" {
		t.Errorf("Text() = %q", e.Text())
	}
	e.Body = ""
	if e.Text() != "title" {
		t.Errorf("Text() = %q", e.Text())
	}
}

func TestFilterMatches(t *testing.T) {
	f := NewFilter(nil, nil)

	if !f.Matches("This stock is going TO THE MOON") {
		t.Error("expected match on pump keyword")
	}
	if f.Matches("quarterly dividend announcement") {
		t.Error("unexpected match on neutral text")
	}
}

func TestFilterExtraAndExclude(t *testing.T) {
	f := NewFilter([]string{"gemstone"}, []string{"sponsored"})

	if !f.Matches("new gemstone listing") {
		t.Error("extra keyword not matched")
	}
	if f.Matches("sponsored: bitcoin pump review") {
		t.Error("excluded text matched")
	}
}
