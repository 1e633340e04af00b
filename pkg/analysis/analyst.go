package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pumpwatch/pumpradar/pkg/momentum"
	"github.com/pumpwatch/pumpradar/pkg/source"
)

const clusterPrompt = `You are an expert at detecting cryptocurrency and stock pump & dump schemes.
Analyze this momentum cluster for pump indicators.

MOMENTUM CLUSTER DATA:
- Theme: %s
- Window: %s to %s
- Total Events: %d
- Platforms Involved: %d
- Aggregate Momentum Score: %.1f

Sample Events (highest momentum first):
%s

IMPORTANT: Extract ALL company names, cryptocurrency names, or asset names mentioned in the content.
Look for formal names and common abbreviations, NOT ticker symbols.

ANALYZE FOR:
1. Asset identification: which assets are being discussed and how often
2. Coordination patterns: evidence of coordinated posting across platforms
3. Content patterns: pump language, urgency indicators, unrealistic return promises
4. Risk assessment: pump probability and primary red flags

Respond with ONLY a JSON object:
{
    "pump_probability": <0-100>,
    "pump_type": "crypto_pump|penny_stock|squeeze_play|earnings_pump|other",
    "coordination_score": <0-10>,
    "urgency_indicators": ["list", "of", "indicators"],
    "red_flags": ["specific", "concerning", "patterns"],
    "time_sensitivity": "immediate|hours|days",
    "recommended_action": "high_alert|monitor|normal",
    "detected_assets": ["asset names, not tickers"],
    "asset_mentions": {"asset_name": <mentions>},
    "analysis_summary": "brief explanation of findings"
}`

const platformPrompt = `Analyze these platform activity patterns for pump & dump indicators:

PLATFORM MOMENTUM DATA:
%s

Respond with ONLY a JSON object:
{
    "coordination_level": <0-10>,
    "origination_platform": "platform_name",
    "spread_pattern": "organic|coordinated|bot_driven",
    "artificial_indicators": ["list", "of", "indicators"],
    "risk_assessment": "low|medium|high|extreme",
    "confidence": <0-100>
}`

// AnalysisError marks a malformed or unparseable analyst response. The
// affected cluster is reported as failed; the scan continues.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis failed: %s: %v", e.Reason, e.Err)
	}
	return "analysis failed: " + e.Reason
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ClusterAnalysis is the structured judgment the analyst returns for one
// cluster. It is passed through to reporting; only structural well-formedness
// is validated here.
type ClusterAnalysis struct {
	PumpProbability   int            `json:"pump_probability"`
	PumpType          string         `json:"pump_type"`
	CoordinationScore int            `json:"coordination_score"`
	UrgencyIndicators []string       `json:"urgency_indicators"`
	RedFlags          []string       `json:"red_flags"`
	TimeSensitivity   string         `json:"time_sensitivity"`
	RecommendedAction string         `json:"recommended_action"`
	DetectedAssets    []string       `json:"detected_assets"`
	AssetMentions     map[string]Int `json:"asset_mentions"`
	Summary           string         `json:"analysis_summary"`
}

// PlatformAnalysis is the analyst's judgment of cross-platform spread.
type PlatformAnalysis struct {
	CoordinationLevel    int      `json:"coordination_level"`
	OriginationPlatform  string   `json:"origination_platform"`
	SpreadPattern        string   `json:"spread_pattern"`
	ArtificialIndicators []string `json:"artificial_indicators"`
	RiskAssessment       string   `json:"risk_assessment"`
	Confidence           int      `json:"confidence"`
}

// Int accepts both JSON numbers and numeric strings; models return either.
type Int int

func (n *Int) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		v = int(f)
	}
	*n = Int(v)
	return nil
}

// Analyst sends cluster summaries to an LLM and parses its judgments.
type Analyst struct {
	client     *http.Client
	provider   string // "openai", "anthropic" or "openrouter"
	model      string
	apiKey     string
	baseURL    string
	maxSamples int
}

// NewAnalyst creates an analyst. Empty model picks a provider default.
func NewAnalyst(provider, model, apiKey, baseURL string) *Analyst {
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		case "openrouter":
			model = "anthropic/claude-3.5-sonnet"
		default:
			model = "gpt-4o-mini"
		}
	}
	return &Analyst{
		client:     &http.Client{Timeout: 60 * time.Second},
		provider:   provider,
		model:      model,
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxSamples: 5,
	}
}

// AnalyzeCluster runs pump-pattern analysis on one cluster.
func (a *Analyst) AnalyzeCluster(ctx context.Context, c *momentum.Cluster) (*ClusterAnalysis, error) {
	var samples []string
	limit := a.maxSamples
	if len(c.Events) < limit {
		limit = len(c.Events)
	}
	for i, e := range c.Events[:limit] {
		samples = append(samples, fmt.Sprintf(
			"Event %d:\n- Platform: %s (%s)\n- Momentum Score: %.1f\n- Text: %s",
			i+1, e.Source, e.Forum, e.MomentumScore, truncate(e.Text(), 200)))
	}

	prompt := fmt.Sprintf(clusterPrompt,
		c.Theme,
		c.WindowStart.Format(time.RFC3339), c.WindowEnd.Format(time.RFC3339),
		len(c.Events), c.DistinctSources(), c.AggregateScore,
		strings.Join(samples, "\n\n"))

	raw, err := a.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result ClusterAnalysis
	if err := parseJSON(raw, &result); err != nil {
		return nil, err
	}
	if result.PumpProbability < 0 || result.PumpProbability > 100 {
		return nil, &AnalysisError{Reason: fmt.Sprintf("pump_probability %d out of range", result.PumpProbability)}
	}
	if result.CoordinationScore < 0 || result.CoordinationScore > 10 {
		return nil, &AnalysisError{Reason: fmt.Sprintf("coordination_score %d out of range", result.CoordinationScore)}
	}
	return &result, nil
}

// AnalyzePlatforms runs cross-platform spread analysis.
func (a *Analyst) AnalyzePlatforms(ctx context.Context, platformMomentum map[source.SourceType]float64) (*PlatformAnalysis, error) {
	var lines []string
	for platform, m := range platformMomentum {
		lines = append(lines, fmt.Sprintf("- %s: %.1f momentum score", platform, m))
	}

	raw, err := a.complete(ctx, fmt.Sprintf(platformPrompt, strings.Join(lines, "\n")))
	if err != nil {
		return nil, err
	}

	var result PlatformAnalysis
	if err := parseJSON(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// parseJSON strips markdown code fences and decodes strictly. Untyped data
// never crosses this boundary.
func parseJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if idx := strings.Index(raw[3:], "\n"); idx >= 0 {
			raw = raw[3+idx+1:]
		}
		if strings.HasSuffix(raw, "```") {
			raw = raw[:len(raw)-3]
		}
		raw = strings.TrimSpace(raw)
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		// Retry leniently: extra fields are tolerable, garbage is not.
		if err2 := json.Unmarshal([]byte(raw), v); err2 != nil {
			return &AnalysisError{Reason: "unparseable response: " + truncate(raw, 200), Err: err2}
		}
	}
	return nil
}

func (a *Analyst) complete(ctx context.Context, prompt string) (string, error) {
	switch a.provider {
	case "anthropic":
		return a.callAnthropic(ctx, prompt)
	default:
		return a.callOpenAI(ctx, prompt)
	}
}

// callOpenAI speaks the chat-completions protocol; OpenRouter uses the same
// shape behind a different base URL.
func (a *Analyst) callOpenAI(ctx context.Context, prompt string) (string, error) {
	baseURL := a.baseURL
	if baseURL == "" {
		if a.provider == "openrouter" {
			baseURL = "https://openrouter.ai/api"
		} else {
			baseURL = "https://api.openai.com"
		}
	}

	payload := map[string]any{
		"model": a.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.3,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", a.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("%s status %d: %v", a.provider, resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode %s response: %w", a.provider, err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", a.provider)
	}
	return result.Choices[0].Message.Content, nil
}

func (a *Analyst) callAnthropic(ctx context.Context, prompt string) (string, error) {
	baseURL := a.baseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	payload := map[string]any{
		"model":      a.model,
		"max_tokens": 1024,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content returned")
	}
	return result.Content[0].Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
