package source

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

const fourchanBaseURL = "https://a.4cdn.org"

// FourChan collects threads from the /biz/ catalog. Reply counts are the only
// engagement signal the board exposes.
type FourChan struct {
	client *http.Client
	board  string
}

// NewFourChan creates a new 4chan collector for the given board.
func NewFourChan(board string) *FourChan {
	if board == "" {
		board = "biz"
	}
	return &FourChan{
		client: &http.Client{Timeout: 30 * time.Second},
		board:  board,
	}
}

func (f *FourChan) Name() SourceType { return SourceFourChan }

func (f *FourChan) Fetch(ctx context.Context, since time.Time) ([]Record, error) {
	reqURL := fmt.Sprintf("%s/%s/catalog.json", fourchanBaseURL, f.board)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "pumpradar/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch /%s/ catalog: %w", f.board, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("4chan /%s/ status %d", f.board, resp.StatusCode)
	}

	var pages []struct {
		Threads []fourchanThread `json:"threads"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		return nil, fmt.Errorf("decode /%s/ catalog: %w", f.board, err)
	}

	var records []Record
	for _, page := range pages {
		for _, thread := range page.Threads {
			created := time.Unix(thread.Time, 0).UTC()
			if created.Before(since) {
				continue
			}

			records = append(records, Record{
				ItemID:    strconv.FormatInt(thread.No, 10),
				Forum:     f.board,
				Title:     html.UnescapeString(thread.Subject),
				Body:      truncate(stripHTML(thread.Comment), 500),
				URL:       fmt.Sprintf("https://boards.4chan.org/%s/thread/%d", f.board, thread.No),
				Replies:   thread.Replies,
				Timestamp: created,
			})
		}
	}

	return records, nil
}

type fourchanThread struct {
	No      int64  `json:"no"`
	Subject string `json:"sub"`
	Comment string `json:"com"`
	Replies int    `json:"replies"`
	Time    int64  `json:"time"`
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// stripHTML drops markup from post comments; 4chan serves them as HTML.
func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	return html.UnescapeString(s)
}
