// Package cli wires the typo-sniper command line (spec §6): a single
// flag surface rather than the teacher's many subcommands, since this
// pipeline has one operation (scan a seed list) instead of a
// multi-phase recon framework.
//
// Grounded on the teacher's internal/cli/root.go for the overall cobra
// wiring idiom (a package-level Config built from DefaultConfig(),
// flags bound directly into its fields, a colored banner print before
// the run) — trimmed from its many subcommands down to the one
// operation this spec defines, and the flag set replaced wholesale with
// spec §6's CLI contract.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rootsploit/typo-sniper/internal/config"
	"github.com/rootsploit/typo-sniper/internal/debug"
	"github.com/rootsploit/typo-sniper/internal/version"
)

var (
	cfg = *config.DefaultConfig()

	inputFile   string
	outputDir   string
	formats     []string
	monthsFlag  int
	configFile  string
	maxWorkers  int
	cacheTTL    int
	noCache     bool
	mlEnabled   bool
	mlModel     string
	mlReview    int
	verbose     bool
	debugFlag   bool
	showVersion bool

	rootCmd = &cobra.Command{
		Use:   "typo-sniper",
		Short: "Brand-domain typosquat detection and enrichment pipeline",
		Long: `typo-sniper generates lookalike domains for a set of brand seeds, checks which
are registered, and enriches the registered ones with WHOIS, certificate-transparency,
URLScan, and live HTTP-probe signals to produce a risk-scored report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScan,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Seed domain list, one per line (required)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", cfg.OutputDir, "Output directory")
	rootCmd.Flags().StringSliceVar(&formats, "format", []string{"json"}, "Output formats (json; csv/excel/html are interface-only, see DESIGN.md)")
	rootCmd.Flags().IntVar(&monthsFlag, "months", 0, "Only emit records whose WHOIS creation_date is within the last N months (0 = off)")
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.Flags().IntVar(&maxWorkers, "max-workers", cfg.MaxWorkers, "Worker pool size")
	rootCmd.Flags().IntVar(&cacheTTL, "cache-ttl", cfg.CacheTTL, "Cache TTL in seconds")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the on-disk cache")
	rootCmd.Flags().BoolVar(&mlEnabled, "ml", false, "Enable the ML scoring hook")
	rootCmd.Flags().StringVar(&mlModel, "ml-model", "", "Path to an ML model file")
	rootCmd.Flags().IntVar(&mlReview, "ml-review", 0, "Active-learning review budget (0 = disabled)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "Show detailed phase/enricher timing")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Print version and exit")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command; its RunE (runScan, in run.go) implements
// the scan operation.
func Execute() error {
	return rootCmd.Execute()
}

func printBanner() {
	red := color.New(color.FgRed, color.Bold)
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	red.Print(`
  _______  ______   ____     _____       _
 |__   __||  ____| / __ \   / ____|     (_)
    | |   | |__   | |  | | | (___  _ __  _ _ __   ___ _ __
    | |   |  __|  | |  | |  \___ \| '_ \| | '_ \ / _ \ '__|
    | |   | |____ | |__| |  ____) | | | | | |_) |  __/ |
    |_|   |______| \____/  |_____/|_| |_|_| .__/ \___|_|
                                           | |
                                           |_|
`)
	cyan.Print("  Brand-domain typosquat detection and enrichment pipeline")
	gray.Printf("  v%s\n", version.Version)
	fmt.Println()
}

func logDebugIfEnabled() {
	if cfg.Debug {
		debug.Enable()
	}
}
