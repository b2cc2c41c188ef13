// Package fuzz implements the Permutation Generator (spec §4.1): a pure,
// deterministic function from a seed domain to the deduplicated union of
// candidate lookalikes, each tagged with the fuzzer that produced it.
//
// Grounded in the teacher's internal/subdomain/ai_permutation.go for
// structure (tokenize-then-generate, a seen-map for dedup, a capped
// output size) and in _examples/other_examples/Issif-cercat__bitsquatting.go
// for the bit-flip fuzzer; the optional fuzzers are grounded in
// _examples/original_source/src/enhanced_detection.py, re-expressed in Go.
package fuzz

import (
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// Candidate is a single generated lookalike domain tagged with its
// producing fuzzer (spec §3).
type Candidate struct {
	Domain string
	Fuzzer string
}

// Options selects the optional fuzzer families (spec §4.1.2-4.1.4); the
// classic fuzzers (§4.1.1) always run.
type Options struct {
	EnableCombosquatting bool
	EnableSoundalike     bool
	EnableIDNHomograph   bool
}

const maxLabelLen = 63

// Generate returns the deduplicated, sorted set of candidates for seed.
// It is a pure function: no I/O, no randomness, same seed+opts always
// produces the same slice (Property P1, P2).
//
// The "generator must be lazy or streaming" budget warning (spec §4.1) is
// honored by construction rather than by an iterator protocol: the
// expensive combo-squat/sound-alike/IDN-homograph families (the only ones
// capable of producing hundreds of candidates) are skipped entirely unless
// their Options flag is set, so the default call never pays their cost.
// The always-on classic fuzzers are bounded (a small multiple of the label
// length), so materializing them eagerly carries no meaningful allocation
// cost; this tradeoff is recorded in DESIGN.md.
func Generate(seed string, opts Options) []Candidate {
	normalized, ok := normalize(seed)
	if !ok {
		return nil
	}
	label, tld, ok := splitRegistrable(normalized)
	if !ok {
		return nil
	}

	// domain -> winning fuzzer; lexicographically-first fuzzer tag wins a
	// collision (spec §3 Candidate invariant), and the seed itself, if
	// regenerated, is always re-tagged "original".
	winners := make(map[string]string)
	record := func(domain, fuzzer string) {
		if !legalDomain(domain) {
			return
		}
		if existing, ok := winners[domain]; !ok || fuzzer < existing {
			winners[domain] = fuzzer
		}
	}

	record(normalized, "original")

	for _, c := range classicFuzzers(label, tld) {
		record(c.Domain, c.Fuzzer)
	}
	if opts.EnableCombosquatting {
		for _, c := range comboSquats(label, tld) {
			record(c.Domain, c.Fuzzer)
		}
	}
	if opts.EnableSoundalike {
		for _, c := range soundAlikes(label, tld) {
			record(c.Domain, c.Fuzzer)
		}
	}
	if opts.EnableIDNHomograph {
		for _, c := range idnHomographs(label, tld) {
			record(c.Domain, c.Fuzzer)
		}
	}
	// The seed always wins its own slot regardless of insertion order.
	winners[normalized] = "original"

	out := make([]Candidate, 0, len(winners))
	for domain, fuzzer := range winners {
		out = append(out, Candidate{Domain: domain, Fuzzer: fuzzer})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// normalize lower-cases and punycodes seed per spec's "Internationalized
// seeds are punycoded before permutation" edge policy.
func normalize(seed string) (string, bool) {
	seed = strings.TrimSpace(strings.ToLower(seed))
	if seed == "" {
		return "", false
	}
	ascii, err := idna.ToASCII(seed)
	if err != nil {
		// Fall back to the lower-cased original; punycode failures happen
		// on already-odd input and shouldn't drop the seed entirely.
		return seed, true
	}
	return ascii, true
}

// splitRegistrable splits a normalized domain into its leaf label and the
// remainder (the "tld", which may itself be multi-part, e.g. co.uk).
func splitRegistrable(domain string) (label, tld string, ok bool) {
	idx := strings.Index(domain, ".")
	if idx <= 0 || idx == len(domain)-1 {
		return "", "", false
	}
	return domain[:idx], domain[idx+1:], true
}

// legalDomain enforces the DNS-label-legal edge policy: every label
// between 1 and 63 characters, charset limited to a-z0-9-, and no
// leading/trailing hyphen on a label.
func legalDomain(domain string) bool {
	if domain == "" {
		return false
	}
	labels := strings.Split(domain, ".")
	for _, l := range labels {
		if len(l) == 0 || len(l) > maxLabelLen {
			return false
		}
		if l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
		for _, r := range l {
			if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
				return false
			}
		}
	}
	return true
}
