package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const stocktwitsBaseURL = "https://api.stocktwits.com/api/2"

// StockTwits collects message streams for currently trending symbols from the
// public StockTwits API.
type StockTwits struct {
	client        *http.Client
	trendingLimit int
	streamLimit   int
}

// NewStockTwits creates a new StockTwits collector.
func NewStockTwits(trendingLimit, streamLimit int) *StockTwits {
	if trendingLimit <= 0 {
		trendingLimit = 10
	}
	if streamLimit <= 0 || streamLimit > 30 {
		streamLimit = 30 // API cap
	}
	return &StockTwits{
		client:        &http.Client{Timeout: 30 * time.Second},
		trendingLimit: trendingLimit,
		streamLimit:   streamLimit,
	}
}

func (s *StockTwits) Name() SourceType { return SourceStockTwits }

func (s *StockTwits) Fetch(ctx context.Context, since time.Time) ([]Record, error) {
	symbols, err := s.fetchTrending(ctx)
	if err != nil {
		return nil, err
	}

	if len(symbols) > s.trendingLimit {
		symbols = symbols[:s.trendingLimit]
	}

	var all []Record
	for _, sym := range symbols {
		records, err := s.fetchStream(ctx, sym, since)
		if err != nil {
			fmt.Printf("  stocktwits $%s error: %v\n", sym, err)
			continue
		}
		all = append(all, records...)
	}

	return all, nil
}

func (s *StockTwits) fetchTrending(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		stocktwitsBaseURL+"/trending/symbols.json", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "pumpradar/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stocktwits trending: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stocktwits trending status %d", resp.StatusCode)
	}

	var data struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
		} `json:"symbols"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode stocktwits trending: %w", err)
	}

	var symbols []string
	for _, s := range data.Symbols {
		if s.Symbol != "" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

func (s *StockTwits) fetchStream(ctx context.Context, symbol string, since time.Time) ([]Record, error) {
	reqURL := fmt.Sprintf("%s/streams/symbol/%s.json?limit=%d", stocktwitsBaseURL, symbol, s.streamLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "pumpradar/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stream %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stocktwits %s status %d", symbol, resp.StatusCode)
	}

	var data struct {
		Messages []stocktwitsMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode stream %s: %w", symbol, err)
	}

	var records []Record
	for _, msg := range data.Messages {
		created, err := parseStockTwitsTime(msg.CreatedAt)
		if err != nil {
			created = time.Time{} // Normalize rejects it as malformed.
		}
		if !created.IsZero() && created.Before(since) {
			continue
		}

		records = append(records, Record{
			ItemID:    strconv.FormatInt(msg.ID, 10),
			Forum:     symbol,
			Body:      msg.Body,
			Author:    msg.User.Username,
			URL:       fmt.Sprintf("https://stocktwits.com/symbol/%s", symbol),
			Upvotes:   msg.Likes.Total,
			Replies:   msg.Conversation.Replies,
			Timestamp: created,
		})
	}

	return records, nil
}

type stocktwitsMessage struct {
	ID        int64  `json:"id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	User      struct {
		Username string `json:"username"`
	} `json:"user"`
	Likes struct {
		Total int `json:"total"`
	} `json:"likes"`
	Conversation struct {
		Replies int `json:"replies"`
	} `json:"conversation"`
}

// parseStockTwitsTime handles the two timestamp shapes the API returns.
func parseStockTwitsTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02 15:04:05 MST", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
