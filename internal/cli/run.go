// run.go implements the single scan operation (spec §4, §6): read the
// seed list, build every enricher from Config, run the Scheduler, filter
// and sort, write the JSON export, and resolve the exit code.
//
// Grounded on the teacher's internal/runner.Run for the overall
// "build components from Config, run, print a summary" shape, trimmed
// to this pipeline's single operation.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rootsploit/typo-sniper/internal/cache"
	"github.com/rootsploit/typo-sniper/internal/config"
	"github.com/rootsploit/typo-sniper/internal/debug"
	"github.com/rootsploit/typo-sniper/internal/dnsresolve"
	"github.com/rootsploit/typo-sniper/internal/errs"
	"github.com/rootsploit/typo-sniper/internal/export"
	"github.com/rootsploit/typo-sniper/internal/fuzz"
	"github.com/rootsploit/typo-sniper/internal/mlhook"
	"github.com/rootsploit/typo-sniper/internal/record"
	"github.com/rootsploit/typo-sniper/internal/scheduler"
	"github.com/rootsploit/typo-sniper/internal/secrets"
	"github.com/rootsploit/typo-sniper/internal/threatintel"
	"github.com/rootsploit/typo-sniper/internal/version"
	"github.com/rootsploit/typo-sniper/internal/whoisenrich"
)

// exitCoder lets runScan hand a concrete process exit code back to main
// without main needing to re-inspect error types itself.
type exitCoder struct {
	code int
	err  error
}

func (e *exitCoder) Error() string { return e.err.Error() }
func (e *exitCoder) Unwrap() error { return e.err }

// ExitCode extracts the process exit code spec §7 assigns to err: 0 when
// err is nil, 1 for a fatal ConfigError/InputError, 2 for partial
// results, 1 for anything unrecognized.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ec, ok := err.(*exitCoder); ok {
		return ec.code
	}
	return 1
}

func runScan(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Println(version.Info())
		return nil
	}
	if inputFile == "" {
		return &exitCoder{code: 1, err: &errs.ConfigError{Field: "input", Err: fmt.Errorf("--input is required")}}
	}

	printBanner()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[!] interrupted, shutting down...")
		cancel()
	}()

	// Priority (spec §6): defaults < YAML file < environment < CLI flags.
	// cfg already holds the defaults from config.DefaultConfig(); apply
	// YAML and env now, then layer only the flags the user actually set.
	cfg.InputFile = inputFile
	if configFile != "" {
		if err := cfg.LoadYAML(configFile); err != nil {
			return &exitCoder{code: 1, err: err}
		}
	}
	cfg.LoadEnv()

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("format") {
		cfg.Formats = formats
	}
	if flags.Changed("months") {
		cfg.MonthsFilter = monthsFlag
	}
	if flags.Changed("max-workers") {
		cfg.MaxWorkers = maxWorkers
	}
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL = cacheTTL
	}
	if flags.Changed("no-cache") {
		cfg.UseCache = !noCache
	}
	if flags.Changed("ml") {
		cfg.EnableML = mlEnabled
	}
	if flags.Changed("ml-model") {
		cfg.MLModelPath = mlModel
	}
	if flags.Changed("ml-review") {
		cfg.MLReviewBudget = mlReview
		cfg.MLEnableActiveLearning = mlReview > 0
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("debug") {
		cfg.Debug = debugFlag
	}

	if err := cfg.Validate(); err != nil {
		return &exitCoder{code: 1, err: err}
	}
	logDebugIfEnabled()

	seeds, err := readSeeds(inputFile)
	if err != nil {
		return &exitCoder{code: 1, err: err}
	}
	if len(seeds) == 0 {
		return &exitCoder{code: 1, err: &errs.InputError{Line: 0, Reason: "no valid seeds found in input file"}}
	}

	sched, err := buildScheduler(ctx, &cfg)
	if err != nil {
		return &exitCoder{code: 1, err: err}
	}

	started := time.Now()
	result, err := sched.Scan(ctx, seeds)
	finished := time.Now()
	if err != nil {
		return &exitCoder{code: 1, err: err}
	}

	records := record.MonthsFilter(result.Records, cfg.MonthsFilter, finished)
	// Sort each seed's contiguous run separately so seed input order holds.
	for start := 0; start < len(records); {
		end := start
		for end < len(records) && records[end].Seed == records[start].Seed {
			end++
		}
		record.SortWithinSeed(records[start:end])
		start = end
	}

	doc := export.Document{
		Meta: export.ScanMeta{
			ScanID:         uuid.NewString(),
			ToolVersion:    version.Version,
			StartedAt:      started,
			FinishedAt:     finished,
			Seeds:          seeds,
			EnabledFuzzers: enabledFuzzerNames(cfg),
			EnabledML:      cfg.EnableML,
		},
		Records:       records,
		ReviewSidecar: result.ReviewSidecar,
	}

	path, err := export.WriteJSON(cfg.OutputDir, doc)
	if err != nil {
		return &exitCoder{code: 1, err: err}
	}

	printSummary(seeds, records, path)
	debug.Summary()

	if seedsWithoutRecords(seeds, result.Records) > 0 {
		return &exitCoder{code: 2, err: fmt.Errorf("%d of %d seeds produced no registered candidates", seedsWithoutRecords(seeds, result.Records), len(seeds))}
	}
	return nil
}

// readSeeds reads one seed per line (spec §6): blank lines and
// #-comments are skipped; each malformed line is a non-fatal InputError
// (surfaced as a warning), fatal only when it leaves the file empty.
func readSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.ConfigError{Field: "input", Err: err}
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.ContainsAny(line, " \t") {
			fmt.Fprintln(os.Stderr, (&errs.InputError{Line: lineNo, Reason: "skipping line with embedded whitespace"}).Error())
			continue
		}
		seeds = append(seeds, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, &errs.ConfigError{Field: "input", Err: err}
	}
	return seeds, nil
}

func buildScheduler(ctx context.Context, c *config.Config) (*scheduler.Scheduler, error) {
	var c8 *cache.Cache
	if c.UseCache {
		var err error
		c8, err = cache.New(c.CacheDir)
		if err != nil {
			return nil, &errs.CacheIOError{Key: c.CacheDir, Err: err}
		}
	}

	secretResolver := secrets.NewResolver(configValues(c), c.AWSSecretName)
	apiKey, _ := secretResolver.Get(ctx, "urlscan_api_key")
	c.URLScanAPIKey = apiKey

	logger := log.Default()
	if c.Debug {
		logger.SetLevel(log.DebugLevel)
	} else if c.Verbose {
		logger.SetLevel(log.InfoLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	dnsRes := dnsresolve.New(nil, 5*time.Second, c.DNSRetryCount, logger)
	whoisEnr := whoisenrich.New(c8, time.Duration(c.WhoisTimeout)*time.Second, c.WhoisRetryCount, time.Duration(c.WhoisRetryDelay)*time.Second, time.Duration(c.CacheTTL)*time.Second)

	urlscanEnr := threatintel.NewURLScan(
		valueIf(c.URLScanEnabled(), c.URLScanAPIKey),
		c.URLScanMaxAgeDays,
		time.Duration(c.URLScanWaitTimeout)*time.Second,
		c.URLScanVisibility,
		time.Duration(c.URLScanSubmitInterval*float64(time.Second)),
		c8,
	)
	ctEnr := threatintel.NewCT(c.EnableCertificateTransparency, c8)
	httpEnr := threatintel.NewHTTPProbe(c.EnableHTTPProbe, time.Duration(c.HTTPTimeout)*time.Second)

	var ml *mlhook.Hook
	if c.EnableML {
		ml = mlhook.New(true, c.MLModelPath, c.MLConfidenceThreshold, c.MLEnableActiveLearning, c.MLUncertaintyThreshold, c.MLReviewBudget)
	}

	return scheduler.New(dnsRes, whoisEnr, urlscanEnr, ctEnr, httpEnr, ml, scheduler.Options{
		MaxWorkers:     c.MaxWorkers,
		RateLimitDelay: time.Duration(c.RateLimitDelay * float64(time.Second)),
		FuzzOptions: fuzz.Options{
			EnableCombosquatting: c.EnableCombosquatting,
			EnableSoundalike:     c.EnableSoundalike,
			EnableIDNHomograph:   c.EnableIDNHomograph,
		},
		EnableRisk:   c.EnableRiskScoring,
		ScanDeadline: c.ScanDeadline,
		Limits: scheduler.Limits{
			Whois:   int64(c.WhoisConcurrency),
			URLScan: int64(c.URLScanConcurrency),
			CT:      int64(c.CTConcurrency),
			HTTP:    int64(c.HTTPConcurrency),
		},
	}), nil
}

func valueIf(cond bool, v string) string {
	if cond {
		return v
	}
	return ""
}

// configValues exposes the raw YAML config file as the secrets
// resolver's last-resort fallback (spec §4.8 step 5). Values are
// stringified since the resolver only ever reads string secrets.
func configValues(c *config.Config) secrets.ConfigValues {
	values := secrets.ConfigValues{}
	if configFile == "" {
		return values
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		return values
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return values
	}
	for k, v := range raw {
		values[k] = fmt.Sprintf("%v", v)
	}
	return values
}

func enabledFuzzerNames(c config.Config) []string {
	names := []string{"original", "addition", "omission", "repetition", "replacement", "transposition", "hyphenation", "vowel-swap", "bitsquat", "homoglyph", "tld-swap", "subdomain"}
	if c.EnableCombosquatting {
		names = append(names, "combo")
	}
	if c.EnableSoundalike {
		names = append(names, "soundalike")
	}
	if c.EnableIDNHomograph {
		names = append(names, "idn-homograph")
	}
	return names
}

func seedsWithoutRecords(seeds []string, records []record.PermutationRecord) int {
	seen := make(map[string]bool, len(seeds))
	for _, r := range records {
		seen[r.Seed] = true
	}
	missing := 0
	for _, s := range seeds {
		if !seen[s] {
			missing++
		}
	}
	return missing
}

func printSummary(seeds []string, records []record.PermutationRecord, path string) {
	bold := color.New(color.Bold)
	bold.Println("\nScan complete")
	fmt.Printf("  seeds scanned:     %d\n", len(seeds))
	fmt.Printf("  records emitted:   %d\n", len(records))
	fmt.Printf("  results written to: %s\n", path)
}
