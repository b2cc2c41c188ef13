// Package scheduler implements C6, the Scheduler/Scanner (spec §4.5): it
// drives every seed through Phase A (permutation generation + DNS
// admission) and Phase B (parallel threat-intel enrichment, risk scoring,
// the ML hook) under a bounded worker pool, per-enricher concurrency
// limits, and an additive inter-batch rate limit.
//
// Grounded on the teacher's internal/runner/runner.go orchestration
// idiom (a sync.WaitGroup + result mutex per parallel phase, a
// select{case <-ctx.Done(): ...} cancellation check before each phase,
// debug.LogPhaseStart/LogPhaseEnd instrumentation) combined with
// _examples/other_examples/waftester-waftester__cmd_scan.go's dual
// concurrency model: a channel semaphore bounding in-flight work plus a
// golang.org/x/time/rate.Limiter for submission pacing.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/rootsploit/typo-sniper/internal/debug"
	"github.com/rootsploit/typo-sniper/internal/dnsresolve"
	"github.com/rootsploit/typo-sniper/internal/fuzz"
	"github.com/rootsploit/typo-sniper/internal/mlhook"
	"github.com/rootsploit/typo-sniper/internal/record"
	"github.com/rootsploit/typo-sniper/internal/threatintel"
	"github.com/rootsploit/typo-sniper/internal/whoisenrich"
)

// DNSResolver and WhoisEnricher narrow internal/dnsresolve.Resolver and
// internal/whoisenrich.Enricher down to the methods the scheduler calls,
// so a test can substitute a fake without spinning up real network I/O.
type DNSResolver interface {
	Resolve(ctx context.Context, domain string) (dnsresolve.Result, error)
}

type WhoisEnricher interface {
	Lookup(ctx context.Context, domain string) (whoisenrich.Record, error)
}

// URLScanFetcher, CTFetcher, and HTTPProbeFetcher narrow the
// internal/threatintel enricher types down to what the scheduler needs,
// so a disabled enricher can be represented as a nil interface value
// rather than a special-cased bool everywhere.
type URLScanFetcher interface {
	Enabled() bool
	Fetch(ctx context.Context, domain string) (*threatintel.URLScanResult, error)
}

type CTFetcher interface {
	Enabled() bool
	Fetch(ctx context.Context, domain string) (*threatintel.CTResult, error)
}

type HTTPProbeFetcher interface {
	Enabled() bool
	Fetch(ctx context.Context, domain string) (*threatintel.HTTPProbeResult, error)
}

// Limits bounds Phase B's per-enricher concurrency (spec §4.5 defaults:
// WHOIS<=8, URLScan<=4, CT<=10, HTTP<=20).
type Limits struct {
	Whois    int64
	URLScan  int64
	CT       int64
	HTTP     int64
}

// Options configures one Scheduler run.
type Options struct {
	MaxWorkers     int
	RateLimitDelay time.Duration
	FuzzOptions    fuzz.Options
	EnableRisk     bool
	Limits         Limits
	// ScanDeadline bounds the whole run; zero means unbounded. On
	// expiry, new admissions stop and already-complete records are
	// still emitted (spec §4.5's cancellation semantics).
	ScanDeadline time.Duration
}

// Scheduler wires C1-C5 and C7/C9 together behind the scan(seeds)
// contract (spec §4.5).
type Scheduler struct {
	dns       DNSResolver
	whois     WhoisEnricher
	urlscan   URLScanFetcher
	ct        CTFetcher
	httpprobe HTTPProbeFetcher
	mlhook    *mlhook.Hook

	opts Options

	whoisSem   *semaphore.Weighted
	urlscanSem *semaphore.Weighted
	ctSem      *semaphore.Weighted
	httpSem    *semaphore.Weighted

	limiter *rate.Limiter
}

// New builds a Scheduler. Any of the threat-intel fetchers may be nil
// (or Enabled() == false), matching spec §9's tagged-variant-set design:
// a disabled enricher contributes nothing rather than being swapped out
// of a registry.
func New(dns DNSResolver, whois WhoisEnricher, urlscan URLScanFetcher, ct CTFetcher, httpprobe HTTPProbeFetcher, ml *mlhook.Hook, opts Options) *Scheduler {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 10
	}
	limits := opts.Limits
	if limits.Whois <= 0 {
		limits.Whois = 8
	}
	if limits.URLScan <= 0 {
		limits.URLScan = 4
	}
	if limits.CT <= 0 {
		limits.CT = 10
	}
	if limits.HTTP <= 0 {
		limits.HTTP = 20
	}

	var limiter *rate.Limiter
	if opts.RateLimitDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RateLimitDelay), 1)
	}

	return &Scheduler{
		dns:        dns,
		whois:      whois,
		urlscan:    urlscan,
		ct:         ct,
		httpprobe:  httpprobe,
		mlhook:     ml,
		opts:       opts,
		whoisSem:   semaphore.NewWeighted(limits.Whois),
		urlscanSem: semaphore.NewWeighted(limits.URLScan),
		ctSem:      semaphore.NewWeighted(limits.CT),
		httpSem:    semaphore.NewWeighted(limits.HTTP),
		limiter:    limiter,
	}
}

// Result is the outcome of one scan() call (spec §4.5): the ordered
// record sequence plus the ML hook's active-learning review sidecar.
type Result struct {
	Records       []record.PermutationRecord
	ReviewSidecar []record.PermutationRecord
}

// Scan implements the §4.5 scan(seeds) -> sequence<PermutationRecord>
// contract: seed input order is preserved (Invariant I4 across seeds),
// each seed's own records are sorted by risk_score desc / domain asc.
//
// Seeds are processed with bounded parallelism internally (Phase A/B
// below) but the per-seed output is buffered and emitted in seed input
// order, matching spec §4.5's "across seeds: buffer until the preceding
// seed completes" ordering guarantee.
func (s *Scheduler) Scan(ctx context.Context, seeds []string) (Result, error) {
	if s.opts.ScanDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ScanDeadline)
		defer cancel()
	}

	start := debug.LogPhaseStart("scan")
	defer debug.LogPhaseEnd("scan", start)

	perSeed := make([][]record.PermutationRecord, len(seeds))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	seedSem := semaphore.NewWeighted(int64(s.opts.MaxWorkers))
	for i, seed := range seeds {
		if err := ctx.Err(); err != nil {
			break
		}
		if err := seedSem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, seed string) {
			defer wg.Done()
			defer seedSem.Release(1)

			recs, err := s.scanSeed(ctx, seed)
			mu.Lock()
			perSeed[i] = recs
			if err != nil && firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}(i, seed)
	}
	wg.Wait()

	var all []record.PermutationRecord
	for _, recs := range perSeed {
		all = append(all, recs...)
	}

	var review []record.PermutationRecord
	if s.mlhook.Enabled() {
		review = s.mlhook.Score(all)
	}

	return Result{Records: all, ReviewSidecar: review}, firstErr
}

// scanSeed runs Phase A then Phase B for one seed, returning its records
// sorted per Invariant I4.
func (s *Scheduler) scanSeed(ctx context.Context, seed string) ([]record.PermutationRecord, error) {
	phase := "seed:" + seed
	startA := debug.LogPhaseStart(phase + ":generate+dns")

	candidates := fuzz.Generate(seed, s.opts.FuzzOptions)
	admitted := s.admitByDNS(ctx, seed, candidates)

	debug.LogPhaseEnd(phase+":generate+dns", startA)

	startB := debug.LogPhaseStart(phase + ":enrich")
	recs := s.enrichAll(ctx, seed, admitted)
	debug.LogPhaseEnd(phase+":enrich", startB)

	record.SortWithinSeed(recs)
	return recs, ctx.Err()
}

// admittedCandidate pairs a Candidate with its DNS evidence; only
// Registered candidates are admitted to Phase B (Invariant I1).
type admittedCandidate struct {
	fuzz.Candidate
	dns dnsresolve.Result
}

// admitByDNS implements Phase A's per-seed DNS admission: candidates are
// submitted to the DNS resolver in batches of max_workers; between batches
// it waits on a limiter, shared across seeds, that releases one batch per
// rate_limit_delay (spec §4.5). Only candidates whose
// resolver result is Registered proceed to Phase B.
func (s *Scheduler) admitByDNS(ctx context.Context, seed string, candidates []fuzz.Candidate) []admittedCandidate {
	var admitted []admittedCandidate
	var mu sync.Mutex

	batchSize := s.opts.MaxWorkers
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(candidates); start += batchSize {
		if err := ctx.Err(); err != nil {
			break
		}
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		var wg sync.WaitGroup
		for _, c := range candidates[start:end] {
			wg.Add(1)
			go func(c fuzz.Candidate) {
				defer wg.Done()
				res, err := s.dns.Resolve(ctx, c.Domain)
				if err != nil || !res.Registered {
					return
				}
				mu.Lock()
				admitted = append(admitted, admittedCandidate{Candidate: c, dns: res})
				mu.Unlock()
			}(c)
		}
		wg.Wait()

		if end < len(candidates) && s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}
	}

	sort.Slice(admitted, func(i, j int) bool { return admitted[i].Domain < admitted[j].Domain })
	return admitted
}

// enrichAll runs Phase B in parallel across admitted candidates, each
// candidate itself fanning out WHOIS/URLScan/CT/HTTP concurrently under
// their respective semaphores.
func (s *Scheduler) enrichAll(ctx context.Context, seed string, admitted []admittedCandidate) []record.PermutationRecord {
	recs := make([]record.PermutationRecord, len(admitted))
	var wg sync.WaitGroup
	for i, c := range admitted {
		wg.Add(1)
		go func(i int, c admittedCandidate) {
			defer wg.Done()
			recs[i] = s.enrichOne(ctx, seed, c)
		}(i, c)
	}
	wg.Wait()
	return recs
}

// enrichOne assembles one PermutationRecord: DNS evidence is already in
// hand from Phase A; WHOIS and the three threat-intel enrichers run
// concurrently, each bounded by its own semaphore and its own deadline
// (max(enricher timeouts) * 1.5, per spec §4.5 — approximated here by
// each enricher honoring its own configured timeout internally and the
// shared ctx carrying the overall scan deadline).
func (s *Scheduler) enrichOne(ctx context.Context, seed string, c admittedCandidate) record.PermutationRecord {
	rec := record.PermutationRecord{
		Seed:       seed,
		Domain:     c.Domain,
		Fuzzer:     c.Fuzzer,
		Registered: true,
		DNS: record.DNSInfo{
			A:    c.dns.A,
			AAAA: c.dns.AAAA,
			MX:   c.dns.MX,
			NS:   c.dns.NS,
		},
	}

	var wg sync.WaitGroup
	var whoisRec whoisenrich.Record
	var whoisOK bool
	var urlscanRes *threatintel.URLScanResult
	var ctRes *threatintel.CTResult
	var httpRes *threatintel.HTTPProbeResult

	if s.whois != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.whoisSem.Acquire(ctx, 1); err != nil {
				return
			}
			defer s.whoisSem.Release(1)
			start := debug.LogCallStart("whois", []string{c.Domain})
			r, err := s.whois.Lookup(ctx, c.Domain)
			debug.LogCallEnd("whois", []string{c.Domain}, start, err)
			if err == nil {
				whoisRec = r
				whoisOK = true
			}
		}()
	}
	if s.urlscan != nil && s.urlscan.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.urlscanSem.Acquire(ctx, 1); err != nil {
				return
			}
			defer s.urlscanSem.Release(1)
			start := debug.LogCallStart("urlscan", []string{c.Domain})
			r, err := s.urlscan.Fetch(ctx, c.Domain)
			debug.LogCallEnd("urlscan", []string{c.Domain}, start, err)
			if err == nil {
				urlscanRes = r
			}
		}()
	}
	if s.ct != nil && s.ct.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ctSem.Acquire(ctx, 1); err != nil {
				return
			}
			defer s.ctSem.Release(1)
			start := debug.LogCallStart("certificate_transparency", []string{c.Domain})
			r, err := s.ct.Fetch(ctx, c.Domain)
			debug.LogCallEnd("certificate_transparency", []string{c.Domain}, start, err)
			if err == nil {
				ctRes = r
			}
		}()
	}
	if s.httpprobe != nil && s.httpprobe.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.httpSem.Acquire(ctx, 1); err != nil {
				return
			}
			defer s.httpSem.Release(1)
			start := debug.LogCallStart("http_probe", []string{c.Domain})
			r, err := s.httpprobe.Fetch(ctx, c.Domain)
			debug.LogCallEnd("http_probe", []string{c.Domain}, start, err)
			if err == nil {
				httpRes = r
			}
		}()
	}
	wg.Wait()

	if whoisOK {
		rec.WHOIS = &record.WHOISInfo{
			Registrar:      whoisRec.Registrar,
			CreationDate:   whoisRec.CreationDate,
			UpdatedDate:    whoisRec.UpdatedDate,
			ExpirationDate: whoisRec.ExpirationDate,
			NameServers:    whoisRec.NameServers,
			Status:         whoisRec.Status,
			Emails:         whoisRec.Emails,
			RawOK:          whoisRec.RawOK,
		}
	}
	if urlscanRes != nil {
		rec.ThreatIntel.URLScan = &record.URLScanInfo{
			Verdict:       urlscanRes.Verdict,
			Score:         urlscanRes.Score,
			Source:        urlscanRes.Source,
			ReportURL:     urlscanRes.ReportURL,
			ScreenshotURL: urlscanRes.ScreenshotURL,
			ScanAgeDays:   urlscanRes.ScanAgeDays,
		}
	}
	if ctRes != nil {
		rec.ThreatIntel.CertificateTransparency = &record.CTInfo{
			Count:     ctRes.Count,
			Issuers:   ctRes.Issuers,
			FirstSeen: ctRes.FirstSeen,
			LastSeen:  ctRes.LastSeen,
		}
	}
	if httpRes != nil {
		rec.ThreatIntel.HTTPProbe = &record.HTTPProbeInfo{
			StatusCode:  httpRes.StatusCode,
			Active:      httpRes.Active,
			FinalURL:    httpRes.FinalURL,
			ChainLength: httpRes.ChainLength,
		}
	}

	if s.opts.EnableRisk {
		var creationDate *time.Time
		privacy := false
		if whoisOK {
			creationDate = whoisRec.CreationDate
			privacy = whoisRec.UsesPrivacyProxy()
		}
		rec.RiskScore = threatintel.Score(threatintel.ScoreInput{
			Fuzzer:                c.Fuzzer,
			URLScan:               urlscanRes,
			CT:                    ctRes,
			HTTPProbe:             httpRes,
			WHOISCreationDate:     creationDate,
			WHOISUsesPrivacyProxy: privacy,
			Now:                   time.Now(),
		})
	}

	return rec
}
