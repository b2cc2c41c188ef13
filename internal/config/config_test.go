package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Auto, cfg.EnableURLScan)
	assert.Equal(t, 10, cfg.MaxWorkers)
}

func TestValidateRejectsBadWorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_workers")
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_workers: 25\nenable_urlscan: force_on\n"), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadYAML(path))

	assert.Equal(t, 25, cfg.MaxWorkers)
	assert.Equal(t, ForceOn, cfg.EnableURLScan)
	// Untouched fields keep their defaults.
	assert.Equal(t, 8, cfg.WhoisConcurrency)
}

func TestURLScanEnabledResolution(t *testing.T) {
	cfg := DefaultConfig()

	cfg.EnableURLScan = Auto
	cfg.URLScanAPIKey = ""
	assert.False(t, cfg.URLScanEnabled())

	cfg.URLScanAPIKey = "key"
	assert.True(t, cfg.URLScanEnabled())

	cfg.EnableURLScan = ForceOff
	assert.False(t, cfg.URLScanEnabled())

	cfg.URLScanAPIKey = ""
	cfg.EnableURLScan = ForceOn
	assert.True(t, cfg.URLScanEnabled())
}
