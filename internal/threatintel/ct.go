package threatintel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rootsploit/typo-sniper/internal/cache"
)

const ctNamespace = "certificate_transparency"
const ctCacheTTL = 24 * time.Hour
const ctTimeout = 15 * time.Second

// CTResult is the §3 threat_intel.certificate_transparency shape.
type CTResult struct {
	Count     int        `json:"count"`
	Issuers   []string   `json:"issuers"`
	FirstSeen *time.Time `json:"first_seen,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

// CTEnricher queries crt.sh's public certificate-transparency log search,
// requiring no API key (spec §4.4).
type CTEnricher struct {
	enabled bool
	client  *http.Client
	cache   *cache.Cache
}

func NewCT(enabled bool, c *cache.Cache) *CTEnricher {
	return &CTEnricher{
		enabled: enabled,
		client:  &http.Client{Timeout: ctTimeout},
		cache:   c,
	}
}

func (e *CTEnricher) Enabled() bool { return e != nil && e.enabled }

func (e *CTEnricher) Key(domain string) string { return cache.Key(domain) }

// Fetch returns nil on any failure (spec: "Failure -> null"), never an
// error that would abort the candidate's other enrichers.
func (e *CTEnricher) Fetch(ctx context.Context, domain string) (*CTResult, error) {
	payload, err := e.cache.GetOrFetch(ctNamespace, e.Key(domain), ctCacheTTL, func() (json.RawMessage, error) {
		result, fetchErr := e.query(ctx, domain)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return json.Marshal(result)
	})
	if err != nil {
		return nil, nil
	}
	var result CTResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, nil
	}
	return &result, nil
}

type crtShEntry struct {
	IssuerName string `json:"issuer_name"`
	NotBefore  string `json:"not_before"`
}

func (e *CTEnricher) query(ctx context.Context, domain string) (CTResult, error) {
	url := fmt.Sprintf("https://crt.sh/?q=%%25.%s&output=json", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CTResult{}, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return CTResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return CTResult{}, fmt.Errorf("crt.sh status %d", resp.StatusCode)
	}

	var entries []crtShEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return CTResult{}, err
	}

	issuerSet := make(map[string]bool)
	var dates []time.Time
	for _, entry := range entries {
		if entry.IssuerName != "" {
			issuerSet[entry.IssuerName] = true
		}
		if t, err := time.Parse("2006-01-02T15:04:05", entry.NotBefore); err == nil {
			dates = append(dates, t)
		}
	}

	var issuers []string
	for issuer := range issuerSet {
		issuers = append(issuers, issuer)
	}
	sort.Strings(issuers)

	result := CTResult{Count: len(entries), Issuers: issuers}
	if len(dates) > 0 {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		first, last := dates[0], dates[len(dates)-1]
		result.FirstSeen = &first
		result.LastSeen = &last
	}
	return result, nil
}
