package secrets

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrefixedEnvWins(t *testing.T) {
	t.Setenv("TYPO_SNIPER_URLSCAN_API_KEY", "prefixed")
	t.Setenv("URLSCAN_API_KEY", "unprefixed")

	r := NewResolver(ConfigValues{"urlscan_api_key": "from-config"}, "")
	v, err := r.Get(context.Background(), "urlscan_api_key")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", v)
}

func TestGetFallsBackToUnprefixedEnv(t *testing.T) {
	os.Unsetenv("TYPO_SNIPER_URLSCAN_API_KEY")
	t.Setenv("URLSCAN_API_KEY", "unprefixed")

	r := NewResolver(ConfigValues{"urlscan_api_key": "from-config"}, "")
	v, err := r.Get(context.Background(), "urlscan_api_key")
	require.NoError(t, err)
	assert.Equal(t, "unprefixed", v)
}

func TestGetFallsBackToConfig(t *testing.T) {
	os.Unsetenv("TYPO_SNIPER_URLSCAN_API_KEY")
	os.Unsetenv("URLSCAN_API_KEY")

	r := NewResolver(ConfigValues{"urlscan_api_key": "from-config"}, "")
	v, err := r.Get(context.Background(), "urlscan_api_key")
	require.NoError(t, err)
	assert.Equal(t, "from-config", v)
}

func TestGetMissingEverywhereIsSilent(t *testing.T) {
	os.Unsetenv("TYPO_SNIPER_NOPE")
	os.Unsetenv("NOPE")

	r := NewResolver(ConfigValues{}, "")
	v, err := r.Get(context.Background(), "nope")
	assert.Empty(t, v)
	require.Error(t, err)
}
