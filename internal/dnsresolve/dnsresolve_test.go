package dnsresolve

import (
	"errors"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func TestExtractValuesA(t *testing.T) {
	msg := new(dns.Msg)
	rr, err := dns.NewRR("example.com. 300 IN A 93.184.216.34")
	assert.NoError(t, err)
	msg.Answer = append(msg.Answer, rr)

	values := extractValues(msg, dns.TypeA)
	assert.Equal(t, []string{"93.184.216.34"}, values)
}

func TestExtractValuesMXTrimsTrailingDot(t *testing.T) {
	msg := new(dns.Msg)
	rr, err := dns.NewRR("example.com. 300 IN MX 10 mail.example.com.")
	assert.NoError(t, err)
	msg.Answer = append(msg.Answer, rr)

	values := extractValues(msg, dns.TypeMX)
	assert.Equal(t, []string{"mail.example.com"}, values)
}

func TestExtractValuesIgnoresOtherRecordTypes(t *testing.T) {
	msg := new(dns.Msg)
	rr, err := dns.NewRR("example.com. 300 IN TXT \"v=spf1\"")
	assert.NoError(t, err)
	msg.Answer = append(msg.Answer, rr)

	assert.Empty(t, extractValues(msg, dns.TypeA))
}

func TestIsTransientTreatsAnyErrorAsRetryable(t *testing.T) {
	assert.False(t, isTransient(nil))
	assert.True(t, isTransient(errors.New("i/o timeout")))
}

func TestNewFallsBackToDefaultServers(t *testing.T) {
	r := New(nil, 0, 2, nil)
	assert.NotEmpty(t, r.servers)
	assert.Equal(t, 3, r.retry.MaxAttempts)
}
