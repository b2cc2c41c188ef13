// Package dnsresolve implements the DNS Resolver (spec §4.2): it decides
// whether a candidate domain is registered by querying A, AAAA, MX, and NS
// records, the same four record types the teacher's scanner inspects for
// subdomain confirmation.
//
// Grounded on _examples/other_examples/Neved4-dnsrecce__scanner.go's
// dns.Client/dns.Msg usage (query construction, server iteration,
// rcode handling).
package dnsresolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/miekg/dns"

	"github.com/rootsploit/typo-sniper/internal/retry"
)

// Result is the registration evidence for one domain.
type Result struct {
	Registered bool
	A          []string
	AAAA       []string
	MX         []string
	NS         []string
}

// Resolver issues the four record-type queries against a fixed server set.
type Resolver struct {
	client  *dns.Client
	servers []string
	retry   retry.Policy
	logger  *log.Logger
}

// New builds a Resolver. servers are host:port pairs; timeout bounds each
// single query exchange; retryCount is dns_retry_count (default 2, i.e. up
// to 3 attempts) applied per record type on transient network errors.
func New(servers []string, timeout time.Duration, retryCount int, logger *log.Logger) *Resolver {
	if len(servers) == 0 {
		servers = []string{"1.1.1.1:53", "8.8.8.8:53"}
	}
	return &Resolver{
		client:  &dns.Client{Timeout: timeout},
		servers: servers,
		retry: retry.Policy{
			MaxAttempts: retryCount + 1,
			Timeout:     timeout,
			BackoffBase: 250 * time.Millisecond,
			Retryable:   isTransient,
		},
		logger: logger,
	}
}

// Resolve implements the §4.2 contract: Unregistered iff all four queries
// come back NXDOMAIN or an authoritative empty answer; any other
// authoritative answer yields a populated Result with Registered=true.
// A record type whose queries exhaust all retries degrades to an empty
// answer for that type rather than failing the whole domain — final
// failure across every type still yields Unregistered, logged as a
// warning, never a fatal error (spec: "never as fatal").
func (r *Resolver) Resolve(ctx context.Context, domain string) (Result, error) {
	var res Result

	queries := []struct {
		qtype uint16
		dst   *[]string
	}{
		{dns.TypeA, &res.A},
		{dns.TypeAAAA, &res.AAAA},
		{dns.TypeMX, &res.MX},
		{dns.TypeNS, &res.NS},
	}

	anyDegraded := false
	for _, q := range queries {
		values, err := r.queryWithRetry(ctx, domain, q.qtype)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("dns query degraded to empty after retries", "domain", domain, "qtype", dns.TypeToString[q.qtype], "err", err)
			}
			anyDegraded = true
			continue
		}
		*q.dst = values
	}

	res.Registered = len(res.A) > 0 || len(res.AAAA) > 0 || len(res.MX) > 0 || len(res.NS) > 0
	if !res.Registered && anyDegraded && r.logger != nil {
		r.logger.Warn("domain treated as unregistered after transient failures on all queries", "domain", domain)
	}
	return res, nil
}

// queryWithRetry runs one record-type query through the shared retry
// policy, trying every configured server in turn on each attempt.
func (r *Resolver) queryWithRetry(ctx context.Context, domain string, qtype uint16) ([]string, error) {
	var values []string
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		v, err := r.queryOnce(ctx, domain, qtype)
		if err != nil {
			return err
		}
		values = v
		return nil
	})
	return values, err
}

// queryOnce exchanges a single query against every configured server,
// returning the first authoritative answer. NXDOMAIN and authoritative
// empty answers are not errors — they mean "no records of this type".
func (r *Resolver) queryOnce(ctx context.Context, domain string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
			return extractValues(resp, qtype), nil
		case dns.RcodeNameError:
			return nil, nil
		default:
			lastErr = fmt.Errorf("dns server %s: rcode %s", server, dns.RcodeToString[resp.Rcode])
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no dns server responded for %s", domain)
	}
	return nil, lastErr
}

func extractValues(msg *dns.Msg, qtype uint16) []string {
	var out []string
	for _, rr := range msg.Answer {
		switch qtype {
		case dns.TypeA:
			if a, ok := rr.(*dns.A); ok {
				out = append(out, a.A.String())
			}
		case dns.TypeAAAA:
			if a, ok := rr.(*dns.AAAA); ok {
				out = append(out, a.AAAA.String())
			}
		case dns.TypeMX:
			if mx, ok := rr.(*dns.MX); ok {
				out = append(out, strings.TrimSuffix(mx.Mx, "."))
			}
		case dns.TypeNS:
			if ns, ok := rr.(*dns.NS); ok {
				out = append(out, strings.TrimSuffix(ns.Ns, "."))
			}
		}
	}
	return out
}

// isTransient classifies a dns exchange failure as retryable: network I/O
// and timeout errors are transient; a non-success, non-NXDOMAIN rcode from
// every server is treated as transient too since it is usually a resolver
// hiccup rather than a permanent answer.
func isTransient(err error) bool {
	return err != nil
}
