// Package threatintel implements the four Threat-Intel Enrichers (spec
// §4.4): URLScan, Certificate Transparency, HTTP Probe, and the pure Risk
// Scorer. Each enricher is a small capability type with
// {enabled() bool, fetch(ctx, domain) (T, error)} per spec §9's tagged
// variant set design note — no dynamic plugin registry.
//
// HTTP client usage is grounded on the teacher's internal/techdetect and
// internal/waf clients (http.Client with an explicit timeout, context-aware
// requests); rate limiting on submits follows
// _examples/other_examples/waftester-waftester__cmd_scan.go's
// golang.org/x/time/rate.Limiter usage.
package threatintel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rootsploit/typo-sniper/internal/cache"
)

const urlscanNamespace = "urlscan"
const urlscanCacheTTL = time.Hour

// URLScanResult is the §3 threat_intel.urlscan shape.
type URLScanResult struct {
	Verdict       string `json:"verdict"` // malicious | suspicious | clean | unknown
	Score         int    `json:"score"`
	ReportURL     string `json:"report_url"`
	ScreenshotURL string `json:"screenshot_url"`
	ScanAgeDays   int    `json:"scan_age_days"`
	Source        string `json:"source"` // existing | submitted
}

// URLScanEnricher implements the two-phase lookup/submit protocol of §4.4.
type URLScanEnricher struct {
	apiKey        string
	client        *http.Client
	cache         *cache.Cache
	maxAgeDays    int
	waitTimeout   time.Duration
	visibility    string
	submitLimiter *rate.Limiter
}

// NewURLScan builds a URLScanEnricher. apiKey empty means disabled per
// spec §9's three-valued enable_urlscan resolution — the caller always
// constructs it and passes an empty key when TriState + secret resolution
// leave URLScan off; Enabled() checks the key.
func NewURLScan(apiKey string, maxAgeDays int, waitTimeout time.Duration, visibility string, submitInterval time.Duration, c *cache.Cache) *URLScanEnricher {
	if submitInterval <= 0 {
		submitInterval = time.Second
	}
	return &URLScanEnricher{
		apiKey:        apiKey,
		client:        &http.Client{Timeout: 30 * time.Second},
		cache:         c,
		maxAgeDays:    maxAgeDays,
		waitTimeout:   waitTimeout,
		visibility:    visibility,
		submitLimiter: rate.NewLimiter(rate.Every(submitInterval), 1),
	}
}

// Enabled reports whether this enricher has a usable key.
func (e *URLScanEnricher) Enabled() bool { return e != nil && e.apiKey != "" }

// Key is the enricher's fingerprint: the cache key, built from the domain
// and max_age_days, under which Fetch stores its result.
func (e *URLScanEnricher) Key(domain string) string {
	return cache.Key(domain, fmt.Sprintf("%d", e.maxAgeDays))
}

// Fetch implements §4.4's lookup-then-submit protocol. A timeout while
// polling a submitted scan returns (nil, nil) per spec §9's resolved open
// question: "urlscan=null" on submit-then-poll-timeout, never an error.
func (e *URLScanEnricher) Fetch(ctx context.Context, domain string) (*URLScanResult, error) {
	key := e.Key(domain)
	payload, err := e.cache.GetOrFetch(urlscanNamespace, key, urlscanCacheTTL, func() (json.RawMessage, error) {
		result, fetchErr := e.lookupOrSubmit(ctx, domain)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return json.Marshal(result)
	})
	if err != nil {
		return nil, err
	}
	var result *URLScanResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *URLScanEnricher) lookupOrSubmit(ctx context.Context, domain string) (*URLScanResult, error) {
	if existing, err := e.lookup(ctx, domain); err == nil && existing != nil {
		return existing, nil
	}
	return e.submit(ctx, domain)
}

type urlscanSearchResponse struct {
	Results []struct {
		Task struct {
			Time string `json:"time"`
		} `json:"task"`
		Page struct {
			URL string `json:"url"`
		} `json:"page"`
		Result string `json:"result"`
		Verdicts struct {
			Overall struct {
				Malicious bool `json:"malicious"`
				Score     int  `json:"score"`
			} `json:"overall"`
		} `json:"verdicts"`
	} `json:"results"`
}

func (e *URLScanEnricher) lookup(ctx context.Context, domain string) (*URLScanResult, error) {
	url := fmt.Sprintf("https://urlscan.io/api/v1/search/?q=domain:%s", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("API-Key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("urlscan search status %d", resp.StatusCode)
	}

	var search urlscanSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, err
	}

	var newest *time.Time
	for i := range search.Results {
		ts, err := time.Parse("2006-01-02T15:04:05", search.Results[i].Task.Time)
		if err != nil {
			ts, err = time.Parse(time.RFC3339, search.Results[i].Task.Time)
			if err != nil {
				continue
			}
		}
		ageDays := int(time.Since(ts).Hours() / 24)
		if ageDays > e.maxAgeDays {
			continue
		}
		if newest != nil && ts.Before(*newest) {
			continue
		}
		newest = &ts

		entry := search.Results[i]
		return &URLScanResult{
			Verdict:     classifyVerdict(entry.Verdicts.Overall.Malicious, entry.Verdicts.Overall.Score),
			Score:       entry.Verdicts.Overall.Score,
			ReportURL:   strings.Replace(entry.Result, "/api/v1/result/", "/result/", 1),
			ScanAgeDays: ageDays,
			Source:      "existing",
		}, nil
	}
	return nil, nil
}

type urlscanSubmitResponse struct {
	UUID    string `json:"uuid"`
	API     string `json:"api"`
	Message string `json:"message"`
}

type urlscanResultResponse struct {
	Task struct {
		Time string `json:"time"`
	} `json:"task"`
	Verdicts struct {
		Overall struct {
			Malicious bool `json:"malicious"`
			Score     int  `json:"score"`
		} `json:"overall"`
	} `json:"verdicts"`
}

func (e *URLScanEnricher) submit(ctx context.Context, domain string) (*URLScanResult, error) {
	if err := e.submitLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, _ := json.Marshal(map[string]string{
		"url":        "http://" + domain,
		"visibility": e.visibility,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://urlscan.io/api/v1/scan/", strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("API-Key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("urlscan submit status %d", resp.StatusCode)
	}

	var submitted urlscanSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, err
	}
	if submitted.API == "" {
		return nil, fmt.Errorf("urlscan submit returned no result url")
	}

	deadline := time.Now().Add(e.waitTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, ready, err := e.pollResult(ctx, submitted.API)
		if err != nil {
			return nil, err
		}
		if ready {
			result.Source = "submitted"
			return result, nil
		}

		timer := time.NewTimer(5 * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	// Poll timed out: §9 resolved open question fixes this case to
	// urlscan=null rather than an error.
	return nil, nil
}

func (e *URLScanEnricher) pollResult(ctx context.Context, apiURL string) (*URLScanResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("API-Key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("urlscan result status %d", resp.StatusCode)
	}

	var result urlscanResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, err
	}

	scanAge := 0
	if ts, err := time.Parse("2006-01-02T15:04:05", result.Task.Time); err == nil {
		scanAge = int(time.Since(ts).Hours() / 24)
	}

	return &URLScanResult{
		Verdict:     classifyVerdict(result.Verdicts.Overall.Malicious, result.Verdicts.Overall.Score),
		Score:       result.Verdicts.Overall.Score,
		ReportURL:   strings.Replace(apiURL, "/api/v1/result/", "/result/", 1),
		ScanAgeDays: scanAge,
	}, true, nil
}

func classifyVerdict(malicious bool, score int) string {
	switch {
	case malicious || score >= 70:
		return "malicious"
	case score >= 30:
		return "suspicious"
	case score >= 0:
		return "clean"
	default:
		return "unknown"
	}
}

// drainBody bounds a response body read to the HTTP probe's 4KB cap; its
// only caller is httpprobe.go.
func drainBody(r io.Reader, max int64) {
	io.Copy(io.Discard, io.LimitReader(r, max))
}
