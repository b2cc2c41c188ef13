package threatintel

import (
	"context"
	"net/http"
	"time"
)

const maxProbeBodyBytes = 4096
const maxRedirects = 5

// HTTPProbeResult is the §3 threat_intel.http_probe shape.
type HTTPProbeResult struct {
	StatusCode  *int   `json:"status_code"`
	Active      bool   `json:"active"`
	FinalURL    string `json:"final_url"`
	ChainLength int    `json:"chain_length"`
}

// HTTPProbeEnricher issues a HEAD (falling back to GET) against https then
// http, per spec §4.4.
type HTTPProbeEnricher struct {
	enabled bool
	timeout time.Duration
}

func NewHTTPProbe(enabled bool, timeout time.Duration) *HTTPProbeEnricher {
	return &HTTPProbeEnricher{enabled: enabled, timeout: timeout}
}

func (e *HTTPProbeEnricher) Enabled() bool { return e != nil && e.enabled }

// Fetch never returns an error: a fully failed probe degrades to an
// inactive result, matching spec §4.4's "Failure -> {status_code: null,
// active: false, ...}".
func (e *HTTPProbeEnricher) Fetch(ctx context.Context, domain string) (*HTTPProbeResult, error) {
	for _, scheme := range []string{"https", "http"} {
		if result, ok := e.probe(ctx, scheme+"://"+domain); ok {
			return result, nil
		}
	}
	return &HTTPProbeResult{Active: false}, nil
}

func (e *HTTPProbeEnricher) probe(ctx context.Context, url string) (*HTTPProbeResult, bool) {
	chainLength := 0
	client := &http.Client{
		Timeout: e.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			chainLength = len(via)
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	resp, finalURL, err := doProbe(ctx, client, http.MethodHead, url)
	if err != nil || resp == nil {
		resp, finalURL, err = doProbe(ctx, client, http.MethodGet, url)
	}
	if err != nil || resp == nil {
		return nil, false
	}
	defer resp.Body.Close()
	drainBody(resp.Body, maxProbeBodyBytes)

	status := resp.StatusCode
	return &HTTPProbeResult{
		StatusCode:  &status,
		Active:      status >= 200 && status <= 399,
		FinalURL:    finalURL,
		ChainLength: chainLength,
	}, true
}

func doProbe(ctx context.Context, client *http.Client, method, url string) (*http.Response, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "typo-sniper/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return resp, final, nil
}
