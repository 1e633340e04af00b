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

const ihubBaseURL = "https://investorshub.advfn.com"

// InvestorsHub collects the hot boards list, the busiest penny stock message
// boards of the day. Each hot board row becomes one record whose reply count
// is the board's post volume today.
type InvestorsHub struct {
	client *http.Client
}

// NewInvestorsHub creates a new InvestorsHub collector.
func NewInvestorsHub() *InvestorsHub {
	return &InvestorsHub{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *InvestorsHub) Name() SourceType { return SourceInvestorsHub }

func (h *InvestorsHub) Fetch(ctx context.Context, since time.Time) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ihubBaseURL+"/boards/hotboards.aspx", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ihub hot boards: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ihub hot boards status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse ihub hot boards: %w", err)
	}

	observed := time.Now().UTC()
	var records []Record

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a[href*='board.aspx']").First()
		if link.Length() == 0 {
			return
		}

		href, _ := link.Attr("href")
		boardID := extractBoardID(href)
		if boardID == "" {
			return
		}

		name := strings.TrimSpace(link.Text())
		posts := 0
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			if n, err := strconv.Atoi(strings.TrimSpace(cell.Text())); err == nil && n > posts {
				posts = n
			}
		})

		records = append(records, Record{
			ItemID:    boardID + ":" + observed.Format("2006-01-02"),
			Forum:     boardID,
			Title:     name,
			URL:       ihubBaseURL + "/" + strings.TrimPrefix(href, "/"),
			Replies:   posts,
			Timestamp: observed,
		})
	})

	return records, nil
}

var ihubBoardIDRe = regexp.MustCompile(`board_id=(\d+)`)

func extractBoardID(href string) string {
	m := ihubBoardIDRe.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}
