package momentum

import "testing"

func TestClassifyFirstMatchWins(t *testing.T) {
	c := NewClassifier(nil)

	// Matches both squeeze_play and pump_hype keywords; squeeze_play is
	// listed first and must win.
	if got := c.Classify("massive short squeeze, this will moon"); got != ThemeSqueezePlay {
		t.Errorf("Classify = %s, want %s", got, ThemeSqueezePlay)
	}
}

func TestClassifyTable(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		text string
		want Theme
	}{
		{"GME gamma ramp incoming", ThemeSqueezePlay},
		{"this coin is going to pump hard", ThemePumpHype},
		{"rumors of a buyout next week", ThemeMARumor},
		{"earnings call tomorrow", ThemeEarningsPlay},
		{"FDA Approval expected Friday", ThemeBiotechCatalyst},
		{"bitcoin breaking out", ThemeCryptoMomentum},
		{"new saas platform", ThemeSectorTech},
		{"pharma insider buying", ThemeSectorBiotech},
		{"solar capacity doubling", ThemeSectorEnergy},
		{"regional bank trouble", ThemeSectorFinance},
		{"ecommerce numbers strong", ThemeSectorRetail},
		{"new altcoin listing", ThemeSectorCrypto},
		{"nothing interesting here", ThemeGeneralMomentum},
		{"", ThemeGeneralMomentum},
	}

	for _, tc := range cases {
		if got := c.Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifyCustomRules(t *testing.T) {
	rules := []Rule{
		{Theme("meme"), []string{"Doge"}},
	}
	c := NewClassifier(rules)

	// Keywords are matched case-insensitively.
	if got := c.Classify("DOGE to the moon"); got != Theme("meme") {
		t.Errorf("Classify = %s, want meme", got)
	}
	// Default rules are not consulted when custom rules are given.
	if got := c.Classify("short squeeze"); got != ThemeGeneralMomentum {
		t.Errorf("Classify = %s, want %s", got, ThemeGeneralMomentum)
	}
}
