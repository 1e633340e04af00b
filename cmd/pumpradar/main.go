package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pumpradar",
		Short: "Detect pump & dump momentum bursts across social platforms",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(scanCmd())
	root.AddCommand(clustersCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func scanCmd() *cobra.Command {
	var (
		threshold  float64
		hours      int
		analyze    int
		sources    []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one momentum scan across all configured platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(threshold, hours, analyze, sources, jsonOutput)
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", -1, "momentum score threshold (default: from config)")
	cmd.Flags().IntVar(&hours, "hours", 0, "scan window in hours (default: from config)")
	cmd.Flags().IntVar(&analyze, "analyze", -1, "top clusters to analyze (default: from config)")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific sources to scan (e.g., reddit,fourchan)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func clustersCmd() *cobra.Command {
	var (
		jsonOutput bool
		minScore   float64
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Show clusters from past scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClusters(jsonOutput, minScore, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum aggregate score")
	cmd.Flags().IntVar(&limit, "limit", 20, "max clusters to show")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "server port")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "server port")
	return cmd
}
