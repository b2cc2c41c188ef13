package fuzz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIncludesOriginal(t *testing.T) {
	out := Generate("example.com", Options{})
	require.NotEmpty(t, out)

	found := false
	for _, c := range out {
		if c.Domain == "example.com" {
			assert.Equal(t, "original", c.Fuzzer)
			found = true
		}
	}
	assert.True(t, found, "seed domain must appear tagged original")
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := Generate("example.com", Options{EnableCombosquatting: true, EnableSoundalike: true, EnableIDNHomograph: true})
	b := Generate("example.com", Options{EnableCombosquatting: true, EnableSoundalike: true, EnableIDNHomograph: true})
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i], b[i])
	}
}

func TestGenerateIsSortedAndDeduplicated(t *testing.T) {
	out := Generate("example.com", Options{EnableCombosquatting: true})
	seen := make(map[string]bool)
	for i, c := range out {
		assert.False(t, seen[c.Domain], "duplicate domain %s", c.Domain)
		seen[c.Domain] = true
		if i > 0 {
			assert.LessOrEqual(t, out[i-1].Domain, c.Domain)
		}
	}
}

func TestGenerateOptionalFuzzersAreOptedIn(t *testing.T) {
	base := Generate("example.com", Options{})
	withCombo := Generate("example.com", Options{EnableCombosquatting: true})
	assert.Greater(t, len(withCombo), len(base))

	for _, c := range base {
		assert.NotEqual(t, "combo", c.Fuzzer)
		assert.NotEqual(t, "soundalike", c.Fuzzer)
		assert.NotEqual(t, "idn-homograph", c.Fuzzer)
	}
}

func TestGenerateRejectsEmptySeed(t *testing.T) {
	assert.Nil(t, Generate("", Options{}))
	assert.Nil(t, Generate("   ", Options{}))
}

func TestGenerateRejectsSeedWithoutTLD(t *testing.T) {
	assert.Nil(t, Generate("localhost", Options{}))
}

func TestGenerateNormalizesCase(t *testing.T) {
	out := Generate("ExAmple.COM", Options{})
	found := false
	for _, c := range out {
		if c.Domain == "example.com" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGenerateHandlesInternationalizedSeed(t *testing.T) {
	out := Generate("xn--mnchen-3ya.de", Options{})
	assert.NotEmpty(t, out)
}

func TestLegalDomainRejectsOverlongLabel(t *testing.T) {
	long := make([]byte, maxLabelLen+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, legalDomain(string(long)+".com"))
}

func TestLegalDomainRejectsLeadingHyphen(t *testing.T) {
	assert.False(t, legalDomain("-example.com"))
}

func TestSoundexMatchesKnownPairs(t *testing.T) {
	assert.Equal(t, soundex("robert"), soundex("rupert"))
	assert.Equal(t, soundex("smith"), soundex("smyth"))
}

func TestComboSquatsIncludesKeywordJoins(t *testing.T) {
	out := comboSquats("example", "com")
	found := false
	for _, c := range out {
		if c.Domain == "example-login.com" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestIDNHomographsAreValidPunycode(t *testing.T) {
	out := idnHomographs("example", "com")
	require.NotEmpty(t, out)
	for _, c := range out {
		assert.Equal(t, "idn-homograph", c.Fuzzer)
		assert.True(t, strings.HasPrefix(c.Domain, "xn--"), "expected punycode label, got %s", c.Domain)
	}
}

func TestIDNHomographsCappedAtMaxVariants(t *testing.T) {
	out := idnHomographs("aeiosxyc", "com")
	assert.LessOrEqual(t, len(out), maxHomographVariants)
}

func TestSplitRegistrableHandlesMultiPartTLD(t *testing.T) {
	label, tld, ok := splitRegistrable("example.co.uk")
	require.True(t, ok)
	assert.Equal(t, "example", label)
	assert.Equal(t, "co.uk", tld)
}
