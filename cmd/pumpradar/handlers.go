package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pumpwatch/pumpradar/internal/config"
	"github.com/pumpwatch/pumpradar/internal/scheduler"
	"github.com/pumpwatch/pumpradar/internal/store"
	"github.com/pumpwatch/pumpradar/pkg/alert"
	"github.com/pumpwatch/pumpradar/pkg/analysis"
	"github.com/pumpwatch/pumpradar/pkg/momentum"
	"github.com/pumpwatch/pumpradar/pkg/server"
	"github.com/pumpwatch/pumpradar/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", momentum.ErrConfig, err)
	}
	return cfg, nil
}

func buildSources(cfg *config.Config, filter *source.Filter) []source.Source {
	var sources []source.Source

	if cfg.Sources.Reddit.Enabled {
		sources = append(sources, source.NewReddit(
			cfg.Sources.Reddit.ClientID,
			cfg.Sources.Reddit.ClientSecret,
			cfg.Sources.Reddit.Subreddits,
		))
	}
	if cfg.Sources.StockTwits.Enabled {
		sources = append(sources, source.NewStockTwits(
			cfg.Sources.StockTwits.TrendingLimit,
			cfg.Sources.StockTwits.StreamLimit,
		))
	}
	if cfg.Sources.FourChan.Enabled {
		sources = append(sources, source.NewFourChan(cfg.Sources.FourChan.Board))
	}
	if cfg.Sources.InvestorsHub.Enabled {
		sources = append(sources, source.NewInvestorsHub())
	}
	if cfg.Sources.BitcoinTalk.Enabled {
		sources = append(sources, source.NewBitcoinTalk(cfg.Sources.BitcoinTalk.Boards))
	}
	if cfg.Sources.News.Enabled {
		feeds := make([]source.NewsFeed, len(cfg.Sources.News.Feeds))
		for i, f := range cfg.Sources.News.Feeds {
			feeds[i] = source.NewsFeed{Name: f.Name, URL: f.URL}
		}
		sources = append(sources, source.NewNews(feeds, filter))
	}

	return sources
}

func buildScanner(cfg *config.Config, baseline momentum.BaselineProvider, sources []source.Source) (*momentum.Scanner, error) {
	floors := make(map[source.SourceType]float64, len(cfg.Scan.BaselineFloors))
	for src, rate := range cfg.Scan.BaselineFloors {
		floors[source.SourceType(src)] = rate
	}

	return momentum.NewScanner(sources, baseline, momentum.Params{
		Threshold:       cfg.Scan.Threshold,
		Window:          cfg.Scan.Window(),
		Analyze:         cfg.Scan.Analyze,
		SourceTimeout:   cfg.Scan.ParseSourceTimeout(),
		ScanTimeout:     cfg.Scan.ParseScanTimeout(),
		BaselineFloors:  floors,
		MaxCoordination: cfg.Scan.MaxCoordination,
	})
}

func buildAnalyst(cfg *config.Config) *analysis.Analyst {
	if !cfg.Analysis.Enabled || cfg.Analysis.APIKey == "" {
		return nil
	}
	fmt.Fprintf(os.Stderr, "analyst: %s/%s\n", cfg.Analysis.Provider, cfg.Analysis.Model)
	return analysis.NewAnalyst(
		cfg.Analysis.Provider,
		cfg.Analysis.Model,
		cfg.Analysis.APIKey,
		cfg.Analysis.BaseURL,
	)
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runScan(threshold float64, hours, analyze int, filterSources []string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if threshold >= 0 {
		cfg.Scan.Threshold = threshold
	}
	if hours > 0 {
		cfg.Scan.Hours = hours
	}
	if analyze >= 0 {
		cfg.Scan.Analyze = analyze
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	filter := source.NewFilter(cfg.Filter.ExtraKeywords, cfg.Filter.ExcludeKeywords)
	allSources := buildSources(cfg, filter)

	// Filter to requested sources only.
	sources := allSources
	if len(filterSources) > 0 {
		wanted := make(map[string]bool)
		for _, s := range filterSources {
			wanted[strings.ToLower(strings.TrimSpace(s))] = true
		}
		sources = nil
		for _, s := range allSources {
			if wanted[string(s.Name())] {
				sources = append(sources, s)
			}
		}
		if len(sources) == 0 {
			return fmt.Errorf("no matching sources for: %s", strings.Join(filterSources, ", "))
		}
	}

	scanner, err := buildScanner(cfg, db, sources)
	if err != nil {
		return err
	}

	ctx := context.Background()
	fmt.Fprintf(os.Stderr, "scanning %d sources (threshold %.1f, window %dh)...\n",
		len(sources), cfg.Scan.Threshold, cfg.Scan.Hours)

	res, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	if _, err := db.UpsertEvents(ctx, res.Raw); err != nil {
		fmt.Fprintf(os.Stderr, "archive error: %v\n", err)
	}
	_, clusterIDs, err := db.SaveScan(ctx, res)
	if err != nil {
		fmt.Fprintf(os.Stderr, "save scan error: %v\n", err)
	}

	var verdicts []clusterVerdict
	var platforms *analysis.PlatformAnalysis
	if analyst := buildAnalyst(cfg); analyst != nil && len(res.Clusters) > 0 {
		verdicts = make([]clusterVerdict, len(res.Clusters))
		for i := range res.Clusters {
			a, err := analyst.AnalyzeCluster(ctx, &res.Clusters[i])
			if err != nil {
				fmt.Fprintf(os.Stderr, "analysis failed for %s: %v\n", res.Clusters[i].Theme, err)
				verdicts[i] = clusterVerdict{Error: err.Error()}
				if len(clusterIDs) > i {
					_ = db.SaveAnalysis(ctx, clusterIDs[i], store.NewFailedAnalysis(err))
				}
				continue
			}
			verdicts[i] = clusterVerdict{Analysis: a}
			if len(clusterIDs) > i {
				_ = db.SaveAnalysis(ctx, clusterIDs[i], a)
			}
		}

		p, err := analyst.AnalyzePlatforms(ctx, res.PlatformMomentum)
		if err != nil {
			fmt.Fprintf(os.Stderr, "platform analysis failed: %v\n", err)
		} else {
			platforms = p
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"result":            res,
			"analyses":          verdicts,
			"platform_analysis": platforms,
		})
	}

	printReport(os.Stdout, res, verdicts, platforms)
	return nil
}

// clusterVerdict is one cluster's analysis outcome. A failed analysis keeps
// its slot with the error filled in, so the report shows it as failed rather
// than dropping the cluster.
type clusterVerdict struct {
	Analysis *analysis.ClusterAnalysis `json:"analysis,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

func printReport(out io.Writer, res *momentum.Result, verdicts []clusterVerdict, platforms *analysis.PlatformAnalysis) {
	fmt.Fprintf(out, "\n=== MOMENTUM SCAN %s ===\n", res.StartedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(out, "%d momentum events in %d clusters\n", res.EventCount, res.ClusterCount)

	for _, d := range res.Diagnostics {
		if d.Failed {
			fmt.Fprintf(out, "  %s: FAILED (%s)\n", d.Source, d.Error)
		} else if d.Malformed > 0 {
			fmt.Fprintf(out, "  %s: %d records, %d malformed\n", d.Source, d.Fetched, d.Malformed)
		}
	}

	if res.EventCount == 0 {
		fmt.Fprintln(out, "\nno detectable momentum in this window")
		fmt.Fprintln(out, res.Recommendation)
		return
	}

	fmt.Fprintln(out, "\n--- THEME BREAKDOWN ---")
	themes := make([]momentum.Theme, 0, len(res.ThemeBreakdown))
	for t := range res.ThemeBreakdown {
		themes = append(themes, t)
	}
	sort.Slice(themes, func(i, j int) bool {
		return res.ThemeBreakdown[themes[i]].TotalMomentum > res.ThemeBreakdown[themes[j]].TotalMomentum
	})
	for _, t := range themes {
		st := res.ThemeBreakdown[t]
		fmt.Fprintf(out, "  %-18s %3d events  momentum %.1f\n", t, st.Events, st.TotalMomentum)
	}

	fmt.Fprintln(out, "\n--- PLATFORM MOMENTUM ---")
	for _, src := range source.AllSourceTypes() {
		if m, ok := res.PlatformMomentum[src]; ok {
			fmt.Fprintf(out, "  %-14s %.1f\n", src, m)
		}
	}

	fmt.Fprintln(out, "\n--- RISK INDICATORS ---")
	fmt.Fprintf(out, "  high-risk patterns:    %d\n", res.Risk.HighRiskPatterns)
	fmt.Fprintf(out, "  coordinated platforms: %d\n", res.Risk.CoordinatedPlatforms)
	fmt.Fprintf(out, "  volume spikes:         %d\n", res.Risk.VolumeSpikes)

	fmt.Fprintln(out, "\n--- TOP CLUSTERS ---")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTHEME\tEVENTS\tPLATFORMS\tWINDOW START")
	for i := range res.Clusters {
		c := &res.Clusters[i]
		fmt.Fprintf(w, "%.1f\t%s\t%d\t%d\t%s\n",
			c.AggregateScore, c.Theme, len(c.Events),
			c.DistinctSources(), c.WindowStart.Format(time.RFC3339))
	}
	w.Flush()

	for i, v := range verdicts {
		c := &res.Clusters[i]
		fmt.Fprintf(out, "\n--- ANALYSIS: %s ---\n", c.Theme)
		if v.Error != "" {
			fmt.Fprintf(out, "  analysis failed: %s\n", v.Error)
			continue
		}
		a := v.Analysis
		fmt.Fprintf(out, "  pump probability: %d%% (%s)\n", a.PumpProbability, a.PumpType)
		fmt.Fprintf(out, "  coordination:     %d/10\n", a.CoordinationScore)
		fmt.Fprintf(out, "  action:           %s (%s)\n", a.RecommendedAction, a.TimeSensitivity)
		if len(a.DetectedAssets) > 0 {
			fmt.Fprintf(out, "  assets:           %s\n", strings.Join(a.DetectedAssets, ", "))
		}
		for _, flag := range a.RedFlags {
			fmt.Fprintf(out, "  red flag:         %s\n", flag)
		}
		if a.Summary != "" {
			fmt.Fprintf(out, "  %s\n", a.Summary)
		}
	}

	if platforms != nil {
		fmt.Fprintln(out, "\n--- PLATFORM SPREAD ---")
		fmt.Fprintf(out, "  coordination:     %d/10 (confidence %d%%)\n", platforms.CoordinationLevel, platforms.Confidence)
		fmt.Fprintf(out, "  origin:           %s\n", platforms.OriginationPlatform)
		fmt.Fprintf(out, "  spread pattern:   %s\n", platforms.SpreadPattern)
		fmt.Fprintf(out, "  risk:             %s\n", platforms.RiskAssessment)
		for _, ind := range platforms.ArtificialIndicators {
			fmt.Fprintf(out, "  indicator:        %s\n", ind)
		}
	}

	fmt.Fprintf(out, "\n%s\n", res.Recommendation)
}

func runClusters(jsonOutput bool, minScore float64, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	clusters, err := db.ListClusters(context.Background(), store.ClusterListOpts{
		MinScore: minScore,
		Limit:    limit,
	})
	if err != nil {
		return fmt.Errorf("list clusters: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(clusters)
	}

	if len(clusters) == 0 {
		fmt.Println("no clusters found (try scanning first: pumpradar scan)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTHEME\tEVENTS\tPLATFORMS\tWINDOW START\tALERTED")
	for _, c := range clusters {
		fmt.Fprintf(w, "%.1f\t%s\t%d\t%d\t%s\t%v\n",
			c.AggregateScore, c.Theme, c.EventCount, c.PlatformCount,
			c.WindowStart.Format(time.RFC3339), c.Alerted)
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	filter := source.NewFilter(cfg.Filter.ExtraKeywords, cfg.Filter.ExcludeKeywords)
	sources := buildSources(cfg, filter)
	scanner, err := buildScanner(cfg, db, sources)
	if err != nil {
		return err
	}

	srv := server.New(db, scanner, sources, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	filter := source.NewFilter(cfg.Filter.ExtraKeywords, cfg.Filter.ExcludeKeywords)
	sources := buildSources(cfg, filter)
	scanner, err := buildScanner(cfg, db, sources)
	if err != nil {
		return err
	}
	alertMgr := buildAlertManager(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db, scanner, buildAnalyst(cfg), alertMgr,
		cfg.Schedule.ParseScanInterval(),
		cfg.Alerts.MinPumpProbability,
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	// Start HTTP server.
	srv := server.New(db, scanner, sources, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}
