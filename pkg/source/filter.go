package source

import "strings"

// DefaultPumpKeywords is the base set used for filtering pump-adjacent chatter
// from sources that carry mostly unrelated content (news feeds, search).
var DefaultPumpKeywords = []string{
	"pump", "moon", "to the moon", "rocket", "100x", "10x",
	"squeeze", "short squeeze", "short interest", "gamma",
	"low float", "volume spike", "unusual volume", "breakout",
	"don't miss", "buy now", "last chance", "fomo", "yolo",
	"penny stock", "microcap", "otc",
	"merger", "acquisition", "buyout",
	"earnings", "guidance", "revenue beat",
	"fda approval", "clinical trial", "phase 3",
	"crypto", "bitcoin", "altcoin", "defi", "memecoin",
	"diamond hands", "paper hands", "bagholder",
	"insider", "halted", "manipulation", "short ladder",
}

// Filter holds keyword lists for pump-chatter matching.
type Filter struct {
	keywords []string
	exclude  []string
}

// NewFilter creates a filter with the default pump keywords plus extras.
func NewFilter(extraKeywords, excludeKeywords []string) *Filter {
	keywords := make([]string, len(DefaultPumpKeywords))
	copy(keywords, DefaultPumpKeywords)
	keywords = append(keywords, extraKeywords...)

	// Lowercase all keywords for case-insensitive matching.
	for i, kw := range keywords {
		keywords[i] = strings.ToLower(kw)
	}

	exclude := make([]string, len(excludeKeywords))
	for i, kw := range excludeKeywords {
		exclude[i] = strings.ToLower(kw)
	}

	return &Filter{keywords: keywords, exclude: exclude}
}

// Matches returns true if text contains pump-adjacent keywords.
func (f *Filter) Matches(text string) bool {
	lower := strings.ToLower(text)

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}

	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
