package threatintel

import "time"

// ScoreInput bundles exactly the fields the scorer needs, kept separate
// from the record assembly type (internal/record) so this package has no
// dependency on it — the risk scorer is a pure function over plain values.
type ScoreInput struct {
	Fuzzer                string
	URLScan               *URLScanResult
	CT                    *CTResult
	HTTPProbe             *HTTPProbeResult
	WHOISCreationDate     *time.Time
	WHOISUsesPrivacyProxy bool
	Now                   time.Time
}

// homographAndHomoglyphFuzzers and comboAndSubdomainFuzzers are the
// fuzzer-tag sets that earn a risk bonus per the §4.5 weight table.
var homographAndHomoglyphFuzzers = map[string]bool{"homoglyph": true, "idn-homograph": true}
var comboAndSubdomainFuzzers = map[string]bool{"combo": true, "subdomain": true}

// Score implements the §4.5 weight table exactly, clamped to [0,100].
// Deterministic: same inputs always produce the same score (Property P4).
func Score(in ScoreInput) int {
	score := 0

	if in.URLScan != nil {
		switch in.URLScan.Verdict {
		case "malicious":
			score += 25
		case "suspicious":
			score += 15
		}
	}

	if in.WHOISCreationDate != nil {
		now := in.Now
		if now.IsZero() {
			now = time.Now()
		}
		age := now.Sub(*in.WHOISCreationDate)
		if age <= 90*24*time.Hour {
			score += 15
			if age <= 30*24*time.Hour {
				score += 10
			}
		}
	}

	if in.HTTPProbe != nil && in.HTTPProbe.Active {
		score += 10
	}

	if in.CT != nil && in.CT.Count >= 1 {
		score += 5
	}

	if homographAndHomoglyphFuzzers[in.Fuzzer] {
		score += 10
	} else if comboAndSubdomainFuzzers[in.Fuzzer] {
		score += 5
	}

	if in.WHOISUsesPrivacyProxy {
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
