package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Reddit collects posts from trading and crypto subreddits. Both "hot" and
// "rising" listings are pulled; rising posts are where momentum shows first.
type Reddit struct {
	client       *http.Client
	clientID     string
	clientSecret string
	subreddits   []string
	mu           sync.Mutex
	token        string
	tokenExpiry  time.Time
}

// NewReddit creates a new Reddit collector.
func NewReddit(clientID, clientSecret string, subreddits []string) *Reddit {
	if len(subreddits) == 0 {
		subreddits = []string{
			"wallstreetbets", "pennystocks", "stocks", "StockMarket",
			"Shortsqueeze", "smallstreetbets", "CryptoMoonShots",
			"CryptoCurrency", "SatoshiStreetBets",
		}
	}
	return &Reddit{
		client:       &http.Client{Timeout: 30 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		subreddits:   subreddits,
	}
}

func (r *Reddit) Name() SourceType { return SourceReddit }

func (r *Reddit) Fetch(ctx context.Context, since time.Time) ([]Record, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("reddit auth: %w", err)
	}

	var all []Record
	for _, sub := range r.subreddits {
		for _, listing := range []string{"hot", "rising"} {
			records, err := r.fetchListing(ctx, sub, listing, since)
			if err != nil {
				fmt.Printf("  reddit r/%s/%s error: %v\n", sub, listing, err)
				continue
			}
			all = append(all, records...)
		}
	}

	return all, nil
}

func (r *Reddit) authenticate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.tokenExpiry) {
		return nil
	}

	data := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.reddit.com/api/v1/access_token",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}

	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "pumpradar/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("reddit token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit auth status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("decode reddit token: %w", err)
	}

	r.token = tokenResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	return nil
}

func (r *Reddit) fetchListing(ctx context.Context, subreddit, listing string, since time.Time) ([]Record, error) {
	reqURL := fmt.Sprintf("https://oauth.reddit.com/r/%s/%s.json?limit=50", subreddit, listing)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("User-Agent", "pumpradar/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit r/%s status %d", subreddit, resp.StatusCode)
	}

	var data redditListing
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode r/%s: %w", subreddit, err)
	}

	var records []Record
	for _, child := range data.Data.Children {
		post := child.Data
		if post.Stickied {
			continue
		}

		created := time.Unix(int64(post.CreatedUTC), 0).UTC()
		if created.Before(since) {
			continue
		}

		postURL := post.URL
		if postURL == "" || strings.HasPrefix(postURL, "/r/") {
			postURL = "https://reddit.com" + post.Permalink
		}

		records = append(records, Record{
			ItemID:    post.ID,
			Forum:     subreddit,
			Title:     post.Title,
			Body:      truncate(post.Selftext, 500),
			Author:    post.Author,
			URL:       postURL,
			Upvotes:   post.Score,
			Replies:   post.NumComments,
			Timestamp: created,
		})
	}

	return records, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Stickied    bool    `json:"stickied"`
}
