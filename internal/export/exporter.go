// Package export implements the Exporter interface contract (spec §6):
// each writer receives the ordered PermutationRecord sequence plus a
// ScanMeta and produces one output file. Only the JSON writer is built
// here — CSV/Excel/HTML are explicitly out of scope (spec §1's Non-goals
// pin the interface, not the implementations) but the column layout spec
// §6 documents for them is recorded here so a future writer has
// something concrete to implement against.
//
// Grounded on the teacher's internal/export ExportJSON (os.Create +
// json.Encoder with SetIndent, one file per export under an "exports"
// subdirectory), trimmed from its multi-format (CSV/Markdown/SARIF)
// surface down to the single format this spec requires.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rootsploit/typo-sniper/internal/record"
)

// ScanMeta accompanies every export: a run identifier, tool version, run
// window, the seed list, and which optional features were enabled for the
// run (spec §6).
type ScanMeta struct {
	ScanID         string    `json:"scan_id"`
	ToolVersion    string    `json:"tool_version"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Seeds          []string  `json:"seeds"`
	EnabledFuzzers []string  `json:"enabled_fuzzers"`
	EnabledML      bool      `json:"enabled_ml"`
}

// Document is the exact §3-mirroring JSON payload: meta plus the ordered
// record sequence, and the ML hook's active-learning review sidecar when
// present.
type Document struct {
	Meta          ScanMeta                   `json:"meta"`
	Records       []record.PermutationRecord `json:"records"`
	ReviewSidecar []record.PermutationRecord `json:"review_sidecar,omitempty"`
}

// WriteJSON writes Document to <outDir>/typo_sniper_results.json, matching
// the teacher's one-file-per-format convention.
func WriteJSON(outDir string, doc Document) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(outDir, "typo_sniper_results.json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}
	return path, nil
}

// CSVColumns documents the column order spec §6 fixes for a future
// CSV/HTML writer: seed, domain, fuzzer, risk_score, urlscan.verdict,
// ct.count, http.status_code, whois.creation_date, whois.registrar,
// dns.a (joined), ml.risk, ml.verdict. No writer is implemented against
// this here; it is out of this pipeline's scope per spec §1.
var CSVColumns = []string{
	"seed", "domain", "fuzzer", "risk_score",
	"urlscan.verdict", "ct.count", "http.status_code",
	"whois.creation_date", "whois.registrar", "dns.a",
	"ml.risk", "ml.verdict",
}
