package whoisenrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWhois = `
Domain Name: EXAMPLE.COM
Registrar: Example Registrar, LLC
Creation Date: 1995-08-14T04:00:00Z
Updated Date: 2023-08-14T07:01:33Z
Registry Expiry Date: 2024-08-13T04:00:00Z
Name Server: A.IANA-SERVERS.NET
Name Server: B.IANA-SERVERS.NET
Domain Status: clientDeleteProhibited
Domain Status: clientTransferProhibited
Registrar Abuse Contact Email: abuse@example-registrar.test
`

func TestParseExtractsAllFields(t *testing.T) {
	rec := parse(sampleWhois)
	assert.True(t, rec.RawOK)
	assert.Equal(t, "Example Registrar, LLC", rec.Registrar)
	require.NotNil(t, rec.CreationDate)
	assert.Equal(t, 1995, rec.CreationDate.Year())
	require.NotNil(t, rec.UpdatedDate)
	require.NotNil(t, rec.ExpirationDate)
	assert.ElementsMatch(t, []string{"a.iana-servers.net", "b.iana-servers.net"}, rec.NameServers)
	assert.ElementsMatch(t, []string{"clientDeleteProhibited", "clientTransferProhibited"}, rec.Status)
	assert.Equal(t, []string{"abuse@example-registrar.test"}, rec.Emails)
}

func TestParseToleratesUnparsableDate(t *testing.T) {
	rec := parse("Registrar: Foo\nCreation Date: not-a-date\n")
	assert.True(t, rec.RawOK)
	assert.Nil(t, rec.CreationDate)
	assert.Equal(t, "Foo", rec.Registrar)
}

func TestParseIgnoresCommentAndBlankLines(t *testing.T) {
	rec := parse("% this is a comment\n\n# also a comment\nRegistrar: Foo\n")
	assert.Equal(t, "Foo", rec.Registrar)
}

func TestUsesPrivacyProxyDetectsKnownMarkers(t *testing.T) {
	rec := Record{Registrar: "Domains By Proxy, LLC"}
	assert.True(t, rec.UsesPrivacyProxy())

	rec2 := Record{Registrar: "Example Registrar, LLC"}
	assert.False(t, rec2.UsesPrivacyProxy())
}

func TestUsesPrivacyProxyChecksEmails(t *testing.T) {
	rec := Record{Emails: []string{"owner@whoisguard.com"}}
	assert.True(t, rec.UsesPrivacyProxy())
}

func TestParseDateFallbackLayouts(t *testing.T) {
	cases := []string{
		"2024-01-02T15:04:05Z",
		"2024-01-02",
		"20240102",
		"02-Jan-2024",
	}
	for _, c := range cases {
		_, ok := parseDate(c)
		assert.True(t, ok, "expected %q to parse", c)
	}
}
