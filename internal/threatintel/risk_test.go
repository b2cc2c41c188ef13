package threatintel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScoreZeroForEmptyInput(t *testing.T) {
	assert.Equal(t, 0, Score(ScoreInput{Now: time.Now()}))
}

func TestScoreURLScanMalicious(t *testing.T) {
	in := ScoreInput{URLScan: &URLScanResult{Verdict: "malicious"}, Now: time.Now()}
	assert.Equal(t, 25, Score(in))
}

func TestScoreURLScanSuspicious(t *testing.T) {
	in := ScoreInput{URLScan: &URLScanResult{Verdict: "suspicious"}, Now: time.Now()}
	assert.Equal(t, 15, Score(in))
}

func TestScoreRecentCreationStacksWithVeryRecent(t *testing.T) {
	now := time.Now()
	tenDaysAgo := now.Add(-10 * 24 * time.Hour)
	in := ScoreInput{WHOISCreationDate: &tenDaysAgo, Now: now}
	assert.Equal(t, 25, Score(in)) // 15 + 10
}

func TestScoreModeratelyRecentCreationOnlyBase(t *testing.T) {
	now := time.Now()
	sixtyDaysAgo := now.Add(-60 * 24 * time.Hour)
	in := ScoreInput{WHOISCreationDate: &sixtyDaysAgo, Now: now}
	assert.Equal(t, 15, Score(in))
}

func TestScoreOldCreationNoBonus(t *testing.T) {
	now := time.Now()
	yearAgo := now.Add(-365 * 24 * time.Hour)
	in := ScoreInput{WHOISCreationDate: &yearAgo, Now: now}
	assert.Equal(t, 0, Score(in))
}

func TestScoreHTTPProbeActive(t *testing.T) {
	in := ScoreInput{HTTPProbe: &HTTPProbeResult{Active: true}, Now: time.Now()}
	assert.Equal(t, 10, Score(in))
}

func TestScoreCTCountBonus(t *testing.T) {
	in := ScoreInput{CT: &CTResult{Count: 3}, Now: time.Now()}
	assert.Equal(t, 5, Score(in))
}

func TestScoreFuzzerBonusHomographBeatsCombo(t *testing.T) {
	in := ScoreInput{Fuzzer: "idn-homograph", Now: time.Now()}
	assert.Equal(t, 10, Score(in))

	in2 := ScoreInput{Fuzzer: "combo", Now: time.Now()}
	assert.Equal(t, 5, Score(in2))
}

func TestScorePrivacyProxyBonus(t *testing.T) {
	in := ScoreInput{WHOISUsesPrivacyProxy: true, Now: time.Now()}
	assert.Equal(t, 5, Score(in))
}

func TestScoreAllSignalsStaysWithin100(t *testing.T) {
	now := time.Now()
	tenDaysAgo := now.Add(-10 * 24 * time.Hour)
	in := ScoreInput{
		URLScan:               &URLScanResult{Verdict: "malicious"},
		WHOISCreationDate:     &tenDaysAgo,
		HTTPProbe:             &HTTPProbeResult{Active: true},
		CT:                    &CTResult{Count: 5},
		Fuzzer:                "idn-homograph",
		WHOISUsesPrivacyProxy: true,
		Now:                   now,
	}
	// 25 + 25 + 10 + 5 + 10 + 5 = 80, under 100 but verifies no overflow.
	assert.Equal(t, 80, Score(in))
	assert.LessOrEqual(t, Score(in), 100)
}

func TestClassifyVerdict(t *testing.T) {
	assert.Equal(t, "malicious", classifyVerdict(true, 0))
	assert.Equal(t, "malicious", classifyVerdict(false, 90))
	assert.Equal(t, "suspicious", classifyVerdict(false, 40))
	assert.Equal(t, "clean", classifyVerdict(false, 0))
}
