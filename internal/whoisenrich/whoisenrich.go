// Package whoisenrich implements the WHOIS Enricher (spec §4.3): cached,
// retried WHOIS lookups normalized into a structured record.
//
// Grounded on _examples/other_examples/Neved4-dnsrecce__scanner.go's use of
// github.com/likexian/whois (the same library, same top-level Whois call),
// and on the teacher's internal/vulnscan cache-then-fetch-with-negative-TTL
// pattern generalized in internal/cache.
package whoisenrich

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/likexian/whois"

	"github.com/rootsploit/typo-sniper/internal/cache"
	"github.com/rootsploit/typo-sniper/internal/errs"
	"github.com/rootsploit/typo-sniper/internal/retry"
)

const namespace = "whois"
const negativeTTL = 10 * time.Minute

// Record is the normalized WHOIS result (spec §3's whois mapping).
type Record struct {
	Registrar      string     `json:"registrar,omitempty"`
	CreationDate   *time.Time `json:"creation_date,omitempty"`
	UpdatedDate    *time.Time `json:"updated_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	NameServers    []string   `json:"name_servers,omitempty"`
	Status         []string   `json:"status,omitempty"`
	Emails         []string   `json:"emails,omitempty"`
	RawOK          bool       `json:"raw_ok"`
}

// UsesPrivacyProxy is the heuristic risk-scorer input (spec §4.5): true if
// the registrar or emails mention a known privacy/proxy service.
func (r Record) UsesPrivacyProxy() bool {
	haystacks := append([]string{r.Registrar}, r.Emails...)
	for _, h := range haystacks {
		lower := strings.ToLower(h)
		for _, marker := range privacyMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

var privacyMarkers = []string{
	"privacy", "proxy", "whoisguard", "redacted", "perfect privacy",
	"domains by proxy", "private registration", "contact privacy",
}

// Enricher issues cached, retried WHOIS lookups.
type Enricher struct {
	cache   *cache.Cache
	retry   retry.Policy
	ttl     time.Duration
	timeout time.Duration
}

// New builds an Enricher. retryCount is whois_retry_count, retryDelay is
// whois_retry_delay, used as the base of the retry policy's exponential
// backoff (it doubles after each failed attempt, plus jitter), timeout is whois_timeout,
// cacheTTL is the positive-result TTL (cache_ttl, default 24h).
func New(c *cache.Cache, timeout time.Duration, retryCount int, retryDelay time.Duration, cacheTTL time.Duration) *Enricher {
	return &Enricher{
		cache:   c,
		timeout: timeout,
		ttl:     cacheTTL,
		retry: retry.Policy{
			MaxAttempts: retryCount + 1,
			Timeout:     timeout,
			BackoffBase: retryDelay,
		},
	}
}

// Lookup implements the §4.3 contract. On repeated failure, an
// unavailable marker (RawOK=false) is cached under a short negative TTL so
// a seed's many candidates sharing a broken registrar don't hammer it.
func (e *Enricher) Lookup(ctx context.Context, domain string) (Record, error) {
	key := cache.Key(domain)

	payload, err := e.cache.GetOrFetch(namespace, key, e.ttl, func() (json.RawMessage, error) {
		rec, lookupErr := e.fetch(ctx, domain)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return json.Marshal(rec)
	})
	if err != nil {
		// The failed lookup is not cached by GetOrFetch; the unavailable
		// marker is stored here instead, under negativeTTL, since
		// GetOrFetch has no per-outcome TTL. A nil cache stores nothing.
		payload, _ = json.Marshal(Record{RawOK: false})
		if e.cache != nil {
			_ = e.cache.Set(namespace, key, payload, negativeTTL)
		}
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, &errs.EnrichmentMiss{Enricher: "whois", Reason: err.Error()}
	}
	return rec, nil
}

func (e *Enricher) fetch(ctx context.Context, domain string) (Record, error) {
	var raw string
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		result, err := whois.Whois(domain)
		if err != nil {
			return err
		}
		raw = result
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return parse(raw), nil
}

// parse normalizes raw WHOIS text into a Record. Date fields use a
// fallback chain of layouts (spec: "if any parse fails the field is null
// but raw_ok remains true").
func parse(raw string) Record {
	rec := Record{RawOK: true}
	seenNS := make(map[string]bool)
	seenStatus := make(map[string]bool)
	seenEmail := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := splitField(line)
		if !ok {
			continue
		}

		switch normalizeKey(key) {
		case "registrar":
			if rec.Registrar == "" {
				rec.Registrar = val
			}
		case "creation_date":
			if rec.CreationDate == nil {
				if t, ok := parseDate(val); ok {
					rec.CreationDate = &t
				}
			}
		case "updated_date":
			if rec.UpdatedDate == nil {
				if t, ok := parseDate(val); ok {
					rec.UpdatedDate = &t
				}
			}
		case "expiration_date":
			if rec.ExpirationDate == nil {
				if t, ok := parseDate(val); ok {
					rec.ExpirationDate = &t
				}
			}
		case "name_server":
			v := strings.ToLower(val)
			if !seenNS[v] {
				seenNS[v] = true
				rec.NameServers = append(rec.NameServers, v)
			}
		case "status":
			if !seenStatus[val] {
				seenStatus[val] = true
				rec.Status = append(rec.Status, val)
			}
		case "email":
			v := strings.ToLower(val)
			if !seenEmail[v] {
				seenEmail[v] = true
				rec.Emails = append(rec.Emails, v)
			}
		}
	}
	return rec
}

func splitField(line string) (key, val string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	val = strings.TrimSpace(line[idx+1:])
	if val == "" {
		return "", "", false
	}
	return key, val, true
}

// normalizeKey folds the many per-registrar/per-TLD WHOIS field name
// spellings onto the spec's canonical field set.
func normalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	switch {
	case k == "registrar" || k == "sponsoring registrar":
		return "registrar"
	case strings.Contains(k, "creation date") || k == "created" || k == "created on" || k == "domain registration date":
		return "creation_date"
	case strings.Contains(k, "updated date") || k == "changed" || k == "last modified" || k == "domain last updated date":
		return "updated_date"
	case strings.Contains(k, "expiration date") || strings.Contains(k, "expiry date") || k == "registry expiry date" || k == "domain expiration date":
		return "expiration_date"
	case strings.Contains(k, "name server") || k == "nserver":
		return "name_server"
	case k == "domain status" || k == "status":
		return "status"
	case strings.Contains(k, "email"):
		return "email"
	default:
		return ""
	}
}

// dateLayouts is the fallback parser chain covering the WHOIS timestamp
// formats seen in practice across registries.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
	"02-Jan-2006",
	"2006.01.02",
	"02/01/2006",
	"Mon Jan 02 15:04:05 MST 2006",
}

func parseDate(val string) (time.Time, bool) {
	val = strings.TrimSpace(val)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
