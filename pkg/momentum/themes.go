package momentum

import "strings"

// Theme is the narrative pattern a momentum event belongs to.
type Theme string

const (
	ThemeSqueezePlay     Theme = "squeeze_play"
	ThemePumpHype        Theme = "pump_hype"
	ThemeMARumor         Theme = "ma_rumor"
	ThemeEarningsPlay    Theme = "earnings_play"
	ThemeBiotechCatalyst Theme = "biotech_catalyst"
	ThemeCryptoMomentum  Theme = "crypto_momentum"
	ThemeSectorTech      Theme = "sector_tech"
	ThemeSectorBiotech   Theme = "sector_biotech"
	ThemeSectorEnergy    Theme = "sector_energy"
	ThemeSectorFinance   Theme = "sector_finance"
	ThemeSectorRetail    Theme = "sector_retail"
	ThemeSectorCrypto    Theme = "sector_crypto"

	// ThemeGeneralMomentum is the sentinel for events no rule matches.
	ThemeGeneralMomentum Theme = "general_momentum"
)

// Rule pairs a theme with the keywords that select it.
type Rule struct {
	Theme    Theme
	Keywords []string
}

// DefaultRules is the ordered rule table. Evaluation is top to bottom and the
// first match wins, so specific high-confidence themes must stay ahead of the
// generic sector ones. Reordering silently changes theme assignment.
func DefaultRules() []Rule {
	return []Rule{
		{ThemeSqueezePlay, []string{"squeeze", "short", "gamma"}},
		{ThemePumpHype, []string{"pump", "moon", "rocket"}},
		{ThemeMARumor, []string{"merger", "acquisition", "buyout"}},
		{ThemeEarningsPlay, []string{"earnings", "revenue", "beat"}},
		{ThemeBiotechCatalyst, []string{"fda", "approval", "clinical"}},
		{ThemeCryptoMomentum, []string{"crypto", "bitcoin", "defi"}},
		{ThemeSectorTech, []string{"tech", "software", "saas", "cloud", "ai"}},
		{ThemeSectorBiotech, []string{"biotech", "pharma", "drug"}},
		{ThemeSectorEnergy, []string{"oil", "energy", "solar", "renewable"}},
		{ThemeSectorFinance, []string{"bank", "financial", "fintech", "payment"}},
		{ThemeSectorRetail, []string{"retail", "consumer", "store", "ecommerce"}},
		{ThemeSectorCrypto, []string{"blockchain", "altcoin", "token", "memecoin"}},
	}
}

// Classifier assigns exactly one theme per event. The rule table is fixed at
// construction and never mutated during a scan.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over the given ordered rules; nil means
// DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	// Lowercase once so Classify is a plain substring check.
	owned := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		owned[i] = Rule{Theme: r.Theme, Keywords: kws}
	}
	return &Classifier{rules: owned}
}

// Classify returns the theme of the first matching rule, or general_momentum.
func (c *Classifier) Classify(text string) Theme {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Theme
			}
		}
	}
	return ThemeGeneralMomentum
}
