package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const bitcointalkBaseURL = "https://bitcointalk.org"

// DefaultBitcoinTalkBoards are the boards where altcoin pump activity shows:
// altcoin announcements, altcoin discussion, speculation, bounties, tokens.
var DefaultBitcoinTalkBoards = []int{159, 67, 57, 238, 240}

// BitcoinTalk collects topic listings from the forum's altcoin boards.
type BitcoinTalk struct {
	client *http.Client
	boards []int
}

// NewBitcoinTalk creates a new BitcoinTalk collector.
func NewBitcoinTalk(boards []int) *BitcoinTalk {
	if len(boards) == 0 {
		boards = DefaultBitcoinTalkBoards
	}
	return &BitcoinTalk{
		client: &http.Client{Timeout: 30 * time.Second},
		boards: boards,
	}
}

func (b *BitcoinTalk) Name() SourceType { return SourceBitcoinTalk }

func (b *BitcoinTalk) Fetch(ctx context.Context, since time.Time) ([]Record, error) {
	var all []Record
	for _, board := range b.boards {
		records, err := b.fetchBoard(ctx, board)
		if err != nil {
			fmt.Printf("  bitcointalk board %d error: %v\n", board, err)
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

func (b *BitcoinTalk) fetchBoard(ctx context.Context, board int) ([]Record, error) {
	reqURL := fmt.Sprintf("%s/index.php?board=%d.0", bitcointalkBaseURL, board)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch board %d: %w", board, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bitcointalk board %d status %d", board, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse board %d: %w", board, err)
	}

	observed := time.Now().UTC()
	forum := strconv.Itoa(board)
	var records []Record

	doc.Find("a[href*='topic=']").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		topicID := extractTopicID(href)
		if topicID == "" {
			return
		}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		// Topic rows list replies and views in sibling cells.
		replies, views := 0, 0
		row := link.Closest("tr")
		row.Find("td").Each(func(i int, cell *goquery.Selection) {
			n, err := strconv.Atoi(strings.TrimSpace(cell.Text()))
			if err != nil {
				return
			}
			if replies == 0 {
				replies = n
			} else if views == 0 {
				views = n
			}
		})

		records = append(records, Record{
			ItemID:    topicID,
			Forum:     forum,
			Title:     title,
			URL:       href,
			Replies:   replies,
			Views:     views,
			Timestamp: observed,
		})
	})

	return dedupeRecords(records), nil
}

var btTopicIDRe = regexp.MustCompile(`topic=(\d+)`)

func extractTopicID(href string) string {
	m := btTopicIDRe.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}

// dedupeRecords keeps the first record per item id; topic pages repeat links
// for the "last post" column.
func dedupeRecords(records []Record) []Record {
	seen := make(map[string]bool, len(records))
	var out []Record
	for _, r := range records {
		if seen[r.ItemID] {
			continue
		}
		seen[r.ItemID] = true
		out = append(out, r)
	}
	return out
}
