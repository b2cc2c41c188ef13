package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortWithinSeedOrdersByRiskThenDomain(t *testing.T) {
	records := []PermutationRecord{
		{Seed: "acme.com", Domain: "zacme.com", RiskScore: 10},
		{Seed: "acme.com", Domain: "aacme.com", RiskScore: 10},
		{Seed: "acme.com", Domain: "acme1.com", RiskScore: 90},
	}
	SortWithinSeed(records)

	assert.Equal(t, "acme1.com", records[0].Domain)
	assert.Equal(t, "aacme.com", records[1].Domain)
	assert.Equal(t, "zacme.com", records[2].Domain)
}

func TestSortWithinSeedIgnoresSeedGrouping(t *testing.T) {
	records := []PermutationRecord{
		{Seed: "beta.com", Domain: "b1.com", RiskScore: 5},
		{Seed: "alpha.com", Domain: "a1.com", RiskScore: 5},
	}
	SortWithinSeed(records)
	// With equal risk, the domain tiebreak ("a1.com" < "b1.com") sorts b1 after
	// a1 regardless of original seed grouping; callers that need seed grouping
	// preserved must sort within each seed's slice separately.
	assert.Equal(t, "a1.com", records[0].Domain)
}

func TestMonthsFilterZeroIsNoOp(t *testing.T) {
	old := time.Now().AddDate(-5, 0, 0)
	records := []PermutationRecord{
		{Domain: "old.com", WHOIS: &WHOISInfo{CreationDate: &old}},
	}
	out := MonthsFilter(records, 0, time.Now())
	assert.Len(t, out, 1)
}

func TestMonthsFilterDropsOldCreationDates(t *testing.T) {
	now := time.Now()
	old := now.AddDate(-1, 0, 0)
	recent := now.AddDate(0, -1, 0)
	records := []PermutationRecord{
		{Domain: "old.com", WHOIS: &WHOISInfo{CreationDate: &old}},
		{Domain: "recent.com", WHOIS: &WHOISInfo{CreationDate: &recent}},
	}
	out := MonthsFilter(records, 3, now)

	require := assert.New(t)
	require.Len(out, 1)
	require.Equal("recent.com", out[0].Domain)
}

func TestMonthsFilterKeepsRecordsWithUnknownCreationDate(t *testing.T) {
	records := []PermutationRecord{
		{Domain: "no-whois.com"},
		{Domain: "whois-but-no-date.com", WHOIS: &WHOISInfo{Registrar: "Example Registrar"}},
	}
	out := MonthsFilter(records, 6, time.Now())
	assert.Len(t, out, 2)
}
