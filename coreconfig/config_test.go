package coreconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesDocumentedIntervals(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30*time.Second, cfg.Intervals.MembershipResend.Duration)
	assert.Equal(t, 10*time.Second, cfg.Intervals.DkgResend.Duration)
	assert.Equal(t, 2*time.Second, cfg.Intervals.AEProbeDedupe.Duration)
	assert.Equal(t, 120*time.Second, cfg.Intervals.AEBackgroundProbe.Duration)
	assert.Equal(t, uint8(0), cfg.Relocation.MaxAge)
	assert.Equal(t, 2, cfg.Handover.SplitThresholdMultiplier)
}

func TestLoadOverridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corenet.toml")
	contents := `
data_dir = "/var/lib/corenet"
in_memory_storage = true

[intervals]
membership_resend = "45s"

[relocation]
max_age = 64
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/corenet", cfg.DataDir)
	assert.True(t, cfg.InMemoryStorage)
	assert.Equal(t, 45*time.Second, cfg.Intervals.MembershipResend.Duration)
	assert.Equal(t, uint8(64), cfg.Relocation.MaxAge)
	// Fields the file doesn't override keep their default.
	assert.Equal(t, 10*time.Second, cfg.Intervals.DkgResend.Duration)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/corenet.toml")
	assert.Error(t, err)
}
