package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rootsploit/typo-sniper/internal/dnsresolve"
	"github.com/rootsploit/typo-sniper/internal/fuzz"
	"github.com/rootsploit/typo-sniper/internal/threatintel"
	"github.com/rootsploit/typo-sniper/internal/whoisenrich"
)

// fakeDNS registers exactly the domains in its set; everything else comes
// back unregistered, matching dnsresolve's own "never an error" contract.
type fakeDNS struct{ registered map[string]bool }

func (f *fakeDNS) Resolve(ctx context.Context, domain string) (dnsresolve.Result, error) {
	if f.registered[domain] {
		return dnsresolve.Result{Registered: true, A: []string{"1.2.3.4"}}, nil
	}
	return dnsresolve.Result{Registered: false}, nil
}

type fakeWhois struct{ rec whoisenrich.Record }

func (f *fakeWhois) Lookup(ctx context.Context, domain string) (whoisenrich.Record, error) {
	return f.rec, nil
}

type disabledFetcher struct{}

func (disabledFetcher) Enabled() bool { return false }
func (disabledFetcher) Fetch(ctx context.Context, domain string) (*threatintel.URLScanResult, error) {
	return nil, nil
}

type disabledCT struct{}

func (disabledCT) Enabled() bool { return false }
func (disabledCT) Fetch(ctx context.Context, domain string) (*threatintel.CTResult, error) {
	return nil, nil
}

type disabledHTTP struct{}

func (disabledHTTP) Enabled() bool { return false }
func (disabledHTTP) Fetch(ctx context.Context, domain string) (*threatintel.HTTPProbeResult, error) {
	return nil, nil
}

func TestScanOnlyEmitsRegisteredCandidates(t *testing.T) {
	dns := &fakeDNS{registered: map[string]bool{"example.com": true}}
	whois := &fakeWhois{rec: whoisenrich.Record{RawOK: true}}

	s := New(dns, whois, disabledFetcher{}, disabledCT{}, disabledHTTP{}, nil, Options{
		MaxWorkers: 4,
		FuzzOptions: fuzz.Options{},
		EnableRisk: true,
	})

	result, err := s.Scan(context.Background(), []string{"example.com"})
	require.NoError(t, err)

	for _, r := range result.Records {
		assert.True(t, r.Registered)
		assert.Equal(t, "example.com", r.Seed)
	}
	// The seed's own original-tag candidate is always registered in this
	// fake, so at least that one record must be present.
	found := false
	for _, r := range result.Records {
		if r.Domain == "example.com" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestScanPreservesSeedInputOrderAcrossSeeds(t *testing.T) {
	dns := &fakeDNS{registered: map[string]bool{"alpha.com": true, "beta.com": true}}
	whois := &fakeWhois{rec: whoisenrich.Record{RawOK: true}}

	s := New(dns, whois, disabledFetcher{}, disabledCT{}, disabledHTTP{}, nil, Options{MaxWorkers: 4})

	seeds := []string{"beta.com", "alpha.com"}
	result, err := s.Scan(context.Background(), seeds)
	require.NoError(t, err)

	// All of beta.com's records must precede all of alpha.com's, matching
	// the buffered across-seed ordering guarantee.
	sawAlpha := false
	for _, r := range result.Records {
		if r.Seed == "alpha.com" {
			sawAlpha = true
		}
		if r.Seed == "beta.com" {
			assert.False(t, sawAlpha, "a beta.com record appeared after an alpha.com record")
		}
	}
}

func TestScanWithNilWhoisAndFetchersStillEmitsRecords(t *testing.T) {
	dns := &fakeDNS{registered: map[string]bool{"example.com": true}}
	s := New(dns, nil, nil, nil, nil, nil, Options{MaxWorkers: 2})

	result, err := s.Scan(context.Background(), []string{"example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Records)
	for _, r := range result.Records {
		assert.Nil(t, r.WHOIS)
	}
}
