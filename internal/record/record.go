// Package record implements C7: the PermutationRecord assembly, the
// months_filter post-filter, and the final sort/ordering pass (spec §3's
// data model and Invariant I4).
//
// Grounded on the teacher's internal/subdomain result-struct shape (one
// flat struct per finding, JSON-tagged for the exporter) generalized to
// the threat-intel-enriched fields this spec's candidates carry.
package record

import (
	"sort"
	"time"
)

// DNSInfo is the §3 dns mapping.
type DNSInfo struct {
	A    []string `json:"a,omitempty"`
	AAAA []string `json:"aaaa,omitempty"`
	MX   []string `json:"mx,omitempty"`
	NS   []string `json:"ns,omitempty"`
}

// WHOISInfo is the §3 whois mapping.
type WHOISInfo struct {
	Registrar      string     `json:"registrar,omitempty"`
	CreationDate   *time.Time `json:"creation_date,omitempty"`
	UpdatedDate    *time.Time `json:"updated_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	NameServers    []string   `json:"name_servers,omitempty"`
	Status         []string   `json:"status,omitempty"`
	Emails         []string   `json:"emails,omitempty"`
	RawOK          bool       `json:"raw_ok"`
}

// ThreatIntelInfo is the §3 threat_intel mapping. Per Invariant I2, these
// three fields are all-or-nothing null: either the enricher ran and
// produced a value, or it is entirely absent (nil pointer), never a
// partially-populated struct.
type ThreatIntelInfo struct {
	URLScan                 *URLScanInfo   `json:"urlscan,omitempty"`
	CertificateTransparency *CTInfo        `json:"certificate_transparency,omitempty"`
	HTTPProbe               *HTTPProbeInfo `json:"http_probe,omitempty"`
}

type URLScanInfo struct {
	Verdict       string `json:"verdict"`
	Score         int    `json:"score"`
	Source        string `json:"source"`
	ReportURL     string `json:"report_url"`
	ScreenshotURL string `json:"screenshot_url"`
	ScanAgeDays   int    `json:"scan_age_days"`
}

type CTInfo struct {
	Count     int        `json:"count"`
	Issuers   []string   `json:"issuers"`
	FirstSeen *time.Time `json:"first_seen,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

type HTTPProbeInfo struct {
	StatusCode  *int   `json:"status_code"`
	Active      bool   `json:"active"`
	FinalURL    string `json:"final_url,omitempty"`
	ChainLength int    `json:"chain_length"`
}

// MLResult is the ML Hook's additive annotation (spec §3/§4.7). A nil ML
// field anywhere in this package means the hook was disabled, threw, or
// was never run for that record — never a pipeline failure.
type MLResult struct {
	Risk        int     `json:"risk"`
	Confidence  float64 `json:"confidence"`
	Verdict     string  `json:"verdict"`
	NeedsReview bool    `json:"needs_review,omitempty"`
	Explanation string  `json:"explanation"`
}

// PermutationRecord is the §3 data model's emission unit: one row per
// registered candidate domain. Per Invariant I1, a PermutationRecord is
// only ever constructed for Registered == true candidates.
type PermutationRecord struct {
	Seed        string          `json:"seed"`
	Domain      string          `json:"domain"`
	Fuzzer      string          `json:"fuzzer"`
	Registered  bool            `json:"registered"`
	DNS         DNSInfo         `json:"dns"`
	WHOIS       *WHOISInfo      `json:"whois,omitempty"`
	ThreatIntel ThreatIntelInfo `json:"threat_intel"`
	RiskScore   int             `json:"risk_score"`
	ML          *MLResult       `json:"ml,omitempty"`
}

// MonthsFilter keeps only records whose WHOIS creation_date falls within
// the last months calendar months of now, per spec §6's --months flag.
// Records with no creation date (WHOIS unavailable, or the field failed
// to parse) are kept — the filter only ever removes records it has
// positive evidence to exclude. months <= 0 disables the filter
// (spec default: unfiltered).
//
// Idempotent (Property P5): filtering an already-filtered sequence with
// the same months value returns the same sequence, since the predicate
// depends only on each record's own creation date, not on set membership.
func MonthsFilter(records []PermutationRecord, months int, now time.Time) []PermutationRecord {
	if months <= 0 {
		return records
	}
	cutoff := now.AddDate(0, -months, 0)

	out := make([]PermutationRecord, 0, len(records))
	for _, r := range records {
		if r.WHOIS == nil || r.WHOIS.CreationDate == nil {
			out = append(out, r)
			continue
		}
		if r.WHOIS.CreationDate.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// SortWithinSeed orders records for a single seed per Invariant I4:
// descending risk_score, then ascending domain as a tiebreaker.
func SortWithinSeed(records []PermutationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RiskScore != records[j].RiskScore {
			return records[i].RiskScore > records[j].RiskScore
		}
		return records[i].Domain < records[j].Domain
	})
}
