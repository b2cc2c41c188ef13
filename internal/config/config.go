// Package config holds Typo Sniper's configuration value. Per the
// "global configuration object -> explicit context" redesign note, a
// Config is built once (defaults, then YAML file, then environment, then
// CLI flags, in that priority) and is immutable once handed to the
// scanner; components receive it by value or pointer-to-const-in-practice,
// never mutate it after construction.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rootsploit/typo-sniper/internal/errs"
)

// TriState models the "force_on/force_off/auto" redesign of the source's
// "auto-enable when key present" behavior (spec §9).
type TriState string

const (
	Auto     TriState = "auto"
	ForceOn  TriState = "force_on"
	ForceOff TriState = "force_off"
)

// Config is the flattened configuration struct, shaped like the teacher's
// internal/config.Config: one struct, one constructor, helper methods for
// derived decisions.
type Config struct {
	// Input/output
	InputFile    string   `yaml:"-"`
	OutputDir    string   `yaml:"output_dir"`
	Formats      []string `yaml:"-"`
	MonthsFilter int      `yaml:"months_filter"`

	// Performance
	MaxWorkers     int     `yaml:"max_workers"`
	RateLimitDelay float64 `yaml:"rate_limit_delay"`

	// Cache
	UseCache bool   `yaml:"use_cache"`
	CacheDir string `yaml:"cache_dir"`
	CacheTTL int    `yaml:"cache_ttl"` // seconds

	// DNS
	DNSRetryCount int `yaml:"dns_retry_count"`

	// WHOIS
	WhoisTimeout    int `yaml:"whois_timeout"`
	WhoisRetryCount int `yaml:"whois_retry_count"`
	WhoisRetryDelay int `yaml:"whois_retry_delay"`

	// Optional fuzzers
	EnableCombosquatting bool `yaml:"enable_combosquatting"`
	EnableSoundalike     bool `yaml:"enable_soundalike"`
	EnableIDNHomograph   bool `yaml:"enable_idn_homograph"`

	// URLScan
	EnableURLScan         TriState `yaml:"enable_urlscan"`
	URLScanAPIKey         string   `yaml:"-"` // resolved via secrets, never from YAML directly
	URLScanMaxAgeDays     int      `yaml:"urlscan_max_age_days"`
	URLScanWaitTimeout    int      `yaml:"urlscan_wait_timeout"` // seconds
	URLScanVisibility     string   `yaml:"urlscan_visibility"`
	URLScanSubmitInterval float64  `yaml:"urlscan_submit_interval"` // seconds between submits

	// Certificate transparency / HTTP probe
	EnableCertificateTransparency bool `yaml:"enable_certificate_transparency"`
	EnableHTTPProbe               bool `yaml:"enable_http_probe"`
	HTTPTimeout                   int  `yaml:"http_timeout"`

	// Risk scoring
	EnableRiskScoring bool `yaml:"enable_risk_scoring"`

	// ML hook
	EnableML               bool    `yaml:"enable_ml"`
	MLModelPath            string  `yaml:"ml_model_path"`
	MLConfidenceThreshold  float64 `yaml:"ml_confidence_threshold"`
	MLEnableActiveLearning bool    `yaml:"ml_enable_active_learning"`
	MLUncertaintyThreshold float64 `yaml:"ml_uncertainty_threshold"`
	MLReviewBudget         int     `yaml:"ml_review_budget"`

	// Secrets sourcing (resolved, not loaded straight from YAML)
	UseDoppler    bool   `yaml:"-"`
	UseAWSSecrets bool   `yaml:"-"`
	AWSSecretName string `yaml:"-"`

	// Debug
	Debug   bool `yaml:"-"`
	Verbose bool `yaml:"-"`

	// Per-enricher concurrency limits (spec §4.5 Phase B)
	WhoisConcurrency   int `yaml:"whois_concurrency"`
	URLScanConcurrency int `yaml:"urlscan_concurrency"`
	CTConcurrency      int `yaml:"ct_concurrency"`
	HTTPConcurrency    int `yaml:"http_concurrency"`

	// Global deadline for an entire scan run; zero means unbounded.
	ScanDeadline time.Duration `yaml:"-"`
}

// DefaultConfig mirrors the teacher's config.DefaultConfig(): one place
// that sets every field to its documented default (spec §4, §6).
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		OutputDir:      filepath.Join(home, "typo-sniper-results"),
		Formats:        []string{"json"},
		MonthsFilter:   0,
		MaxWorkers:     10,
		RateLimitDelay: 1.0,

		UseCache: true,
		CacheDir: filepath.Join(home, ".typo_sniper", "cache"),
		CacheTTL: 86400,

		DNSRetryCount: 2,

		WhoisTimeout:    30,
		WhoisRetryCount: 3,
		WhoisRetryDelay: 5,

		EnableCombosquatting: false,
		EnableSoundalike:     false,
		EnableIDNHomograph:   false,

		EnableURLScan:         Auto,
		URLScanMaxAgeDays:     7,
		URLScanWaitTimeout:    90,
		URLScanVisibility:     "public",
		URLScanSubmitInterval: 1.0,

		EnableCertificateTransparency: true,
		EnableHTTPProbe:               true,
		HTTPTimeout:                   10,

		EnableRiskScoring: true,

		EnableML:               false,
		MLConfidenceThreshold:  0.5,
		MLEnableActiveLearning: false,
		MLUncertaintyThreshold: 0.15,
		MLReviewBudget:         50,

		WhoisConcurrency:   8,
		URLScanConcurrency: 4,
		CTConcurrency:      10,
		HTTPConcurrency:    20,
	}
}

// LoadYAML overlays fields present in the YAML document at path onto cfg.
// Unset keys keep their current (default) value.
func (c *Config) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &errs.ConfigError{Field: "config_file", Err: err}
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &errs.ConfigError{Field: "config_file", Err: err}
	}
	return nil
}

// LoadEnv overlays a small set of environment-controlled toggles that
// mirror the Python original's __post_init__ (config.py): DOPPLER_TOKEN and
// AWS_SECRET_NAME flip on their respective secret sources.
func (c *Config) LoadEnv() {
	if os.Getenv("DOPPLER_TOKEN") != "" || os.Getenv("TYPO_SNIPER_USE_DOPPLER") != "" {
		c.UseDoppler = true
	}
	if name := os.Getenv("AWS_SECRET_NAME"); name != "" {
		c.UseAWSSecrets = true
		c.AWSSecretName = name
	} else if os.Getenv("TYPO_SNIPER_USE_AWS_SECRETS") != "" {
		c.UseAWSSecrets = true
		c.AWSSecretName = os.Getenv("TYPO_SNIPER_AWS_SECRET_NAME")
	}
}

// Validate enforces the numeric-range invariants spec.md §6 documents
// (e.g. max_workers >= 1). Returns a ConfigError, the only fatal
// pre-scan error class (spec §7).
func (c *Config) Validate() error {
	if c.MaxWorkers < 1 {
		return &errs.ConfigError{Field: "max_workers", Err: fmt.Errorf("must be >= 1, got %d", c.MaxWorkers)}
	}
	if c.RateLimitDelay < 0 {
		return &errs.ConfigError{Field: "rate_limit_delay", Err: fmt.Errorf("must be >= 0")}
	}
	if c.EnableURLScan != Auto && c.EnableURLScan != ForceOn && c.EnableURLScan != ForceOff {
		return &errs.ConfigError{Field: "enable_urlscan", Err: fmt.Errorf("must be one of auto/force_on/force_off, got %q", c.EnableURLScan)}
	}
	for _, f := range c.Formats {
		switch f {
		case "json", "csv", "excel", "html":
		default:
			return &errs.ConfigError{Field: "format", Err: fmt.Errorf("unsupported format %q", f)}
		}
	}
	return nil
}

// URLScanEnabled resolves the three-valued enable_urlscan field against a
// resolved API key, per spec §9's redesign of "auto-enable when key
// present": force_on/force_off are absolute, auto depends on key presence.
func (c *Config) URLScanEnabled() bool {
	switch c.EnableURLScan {
	case ForceOn:
		return true
	case ForceOff:
		return false
	default:
		return c.URLScanAPIKey != ""
	}
}
