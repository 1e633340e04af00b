package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SourceType identifies which platform an activity record came from.
type SourceType string

const (
	SourceReddit       SourceType = "reddit"
	SourceStockTwits   SourceType = "stocktwits"
	SourceFourChan     SourceType = "fourchan"
	SourceInvestorsHub SourceType = "investorshub"
	SourceBitcoinTalk  SourceType = "bitcointalk"
	SourceNews         SourceType = "news"
)

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceReddit,
		SourceStockTwits,
		SourceFourChan,
		SourceInvestorsHub,
		SourceBitcoinTalk,
		SourceNews,
	}
}

// Event is the normalized activity record every platform maps into.
// Engagement counts a platform doesn't report stay zero.
type Event struct {
	Source      SourceType `json:"source" db:"source"`
	Forum       string     `json:"forum" db:"forum"`
	ItemID      string     `json:"item_id" db:"item_id"`
	Title       string     `json:"title" db:"title"`
	Body        string     `json:"body" db:"body"`
	Author      string     `json:"author" db:"author"`
	URL         string     `json:"url" db:"url"`
	Replies     int        `json:"replies" db:"replies"`
	Upvotes     int        `json:"upvotes" db:"upvotes"`
	Views       int        `json:"views" db:"views"`
	Timestamp   time.Time  `json:"timestamp" db:"timestamp"`
	CollectedAt time.Time  `json:"collected_at" db:"collected_at"`
}

// Key returns the dedup key, unique per scan.
func (e Event) Key() string {
	return string(e.Source) + ":" + e.ItemID
}

// Text returns the searchable text of the event.
func (e Event) Text() string {
	if e.Body == "" {
		return e.Title
	}
	return e.Title + " " + e.Body
}

// Record is a platform record before normalization. Collectors fill in what
// the platform gives them; Normalize decides whether that is enough.
type Record struct {
	ItemID    string
	Forum     string
	Title     string
	Body      string
	Author    string
	URL       string
	Replies   int
	Upvotes   int
	Views     int
	Timestamp time.Time
}

// ErrMalformedRecord marks a record missing required fields. Callers skip and
// count these; they never abort a scan.
var ErrMalformedRecord = errors.New("malformed record")

// Normalize converts a platform record into an Event. Required fields are the
// item id, a timestamp and some text; negative engagement counts are clamped
// to zero so they never reach scoring.
func Normalize(src SourceType, r Record) (Event, error) {
	if r.ItemID == "" {
		return Event{}, fmt.Errorf("%w: missing item id", ErrMalformedRecord)
	}
	if r.Timestamp.IsZero() {
		return Event{}, fmt.Errorf("%w: %s/%s missing timestamp", ErrMalformedRecord, src, r.ItemID)
	}
	if r.Title == "" && r.Body == "" {
		return Event{}, fmt.Errorf("%w: %s/%s has no text", ErrMalformedRecord, src, r.ItemID)
	}

	return Event{
		Source:      src,
		Forum:       r.Forum,
		ItemID:      r.ItemID,
		Title:       r.Title,
		Body:        r.Body,
		Author:      r.Author,
		URL:         r.URL,
		Replies:     clampNonNegative(r.Replies),
		Upvotes:     clampNonNegative(r.Upvotes),
		Views:       clampNonNegative(r.Views),
		Timestamp:   r.Timestamp.UTC(),
		CollectedAt: time.Now().UTC(),
	}, nil
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Source is the interface every platform collector must implement. Fetch
// returns raw records observed since the given time; auth, rate limiting and
// retries are the collector's business.
type Source interface {
	Name() SourceType
	Fetch(ctx context.Context, since time.Time) ([]Record, error)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
