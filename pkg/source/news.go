package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// NewsFeed is a named RSS/Atom feed URL.
type NewsFeed struct {
	Name string
	URL  string
}

// News collects finance headlines from RSS/Atom feeds. Feeds carry mostly
// unrelated coverage, so a keyword filter keeps only pump-adjacent stories.
type News struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []NewsFeed
	filter *Filter
}

// NewNews creates a new RSS news collector.
func NewNews(feeds []NewsFeed, filter *Filter) *News {
	return &News{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		filter: filter,
	}
}

func (n *News) Name() SourceType { return SourceNews }

func (n *News) Fetch(ctx context.Context, since time.Time) ([]Record, error) {
	var all []Record

	for _, feed := range n.feeds {
		records, err := n.fetchFeed(ctx, feed, since)
		if err != nil {
			fmt.Printf("  news feed %s error: %v\n", feed.Name, err)
			continue
		}
		all = append(all, records...)
	}

	return all, nil
}

func (n *News) fetchFeed(ctx context.Context, feed NewsFeed, since time.Time) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create news request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "pumpradar/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := n.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse news %s: %w", feed.Name, err)
	}

	var records []Record
	for _, entry := range parsed.Items {
		var published time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		if !published.IsZero() && published.Before(since) {
			continue
		}

		text := entry.Title + " " + entry.Description
		if n.filter != nil && !n.filter.Matches(text) {
			continue
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}

		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}

		itemID := entry.GUID
		if itemID == "" {
			itemID = link
		}

		records = append(records, Record{
			ItemID:    itemID,
			Forum:     feed.Name,
			Title:     entry.Title,
			Body:      truncate(entry.Description, 500),
			Author:    author,
			URL:       link,
			Timestamp: published,
		})
	}

	return records, nil
}
