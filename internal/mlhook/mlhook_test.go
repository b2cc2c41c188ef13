package mlhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rootsploit/typo-sniper/internal/record"
)

func TestDisabledHookLeavesMLNil(t *testing.T) {
	h := New(false, "", 0.5, false, 0.15, 0)
	records := []record.PermutationRecord{{RiskScore: 90}}
	reviewed := h.Score(records)
	assert.Nil(t, reviewed)
	assert.Nil(t, records[0].ML)
}

func TestScoreAnnotatesEveryRecord(t *testing.T) {
	h := New(true, "", 0.5, false, 0.15, 0)
	records := []record.PermutationRecord{
		{RiskScore: 0},
		{RiskScore: 50},
		{RiskScore: 100},
	}
	h.Score(records)

	for _, r := range records {
		require.NotNil(t, r.ML)
		assert.GreaterOrEqual(t, r.ML.Risk, 0)
		assert.LessOrEqual(t, r.ML.Risk, 100)
		assert.GreaterOrEqual(t, r.ML.Confidence, 0.5)
	}
	// risk_score 50 sits exactly at the logistic midpoint.
	assert.Equal(t, 50, records[1].ML.Risk)
	// Monotonic: a higher risk_score never yields a lower ML risk.
	assert.Less(t, records[0].ML.Risk, records[1].ML.Risk)
	assert.Less(t, records[1].ML.Risk, records[2].ML.Risk)
}

func TestActiveLearningSelectsOnlyNearBoundary(t *testing.T) {
	h := New(true, "", 0.5, true, 0.05, 0)
	records := []record.PermutationRecord{
		{Domain: "confident-low.com", RiskScore: 0},
		{Domain: "boundary.com", RiskScore: 50},
		{Domain: "confident-high.com", RiskScore: 100},
	}
	reviewed := h.Score(records)

	require.Len(t, reviewed, 1)
	assert.Equal(t, "boundary.com", reviewed[0].Domain)
}

func TestActiveLearningRespectsReviewBudget(t *testing.T) {
	h := New(true, "", 0.5, true, 1.0, 2)
	records := make([]record.PermutationRecord, 10)
	for i := range records {
		records[i] = record.PermutationRecord{RiskScore: 50}
	}
	reviewed := h.Score(records)
	assert.Len(t, reviewed, 2)
}

func TestScoreHandlesBatchBoundaryCleanly(t *testing.T) {
	h := New(true, "", 0.5, false, 0.15, 0)
	records := make([]record.PermutationRecord, maxBatchSize+10)
	for i := range records {
		records[i] = record.PermutationRecord{RiskScore: 75}
	}
	h.Score(records)
	for _, r := range records {
		require.NotNil(t, r.ML)
	}
}

func TestNilHookIsDisabled(t *testing.T) {
	var h *Hook
	assert.False(t, h.Enabled())
}
