package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Planning.BucketDays)
	assert.Equal(t, 26, cfg.Planning.HorizonBuckets)
	assert.Equal(t, 3, cfg.Planning.CommitRetries)
	assert.Equal(t, 3, cfg.Actions.RescheduleThresholdDays)
	assert.Equal(t, "5", cfg.Matching.DefaultTolerancePercent.String())
	assert.Equal(t, 3, cfg.Matching.MaxRetries)
	assert.False(t, cfg.Matching.AutoReleaseMatched)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_FileAndEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mrp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
planning:
  bucket_days: 1
  horizon_buckets: 90
matching:
  default_tolerance_percent: "2.5"
`), 0o600))
	t.Setenv("MRP_PLANNING_PARALLELISM", "8")
	t.Setenv("MRP_MATCHING_AUTO_RELEASE_MATCHED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Planning.BucketDays)
	assert.Equal(t, 90, cfg.Planning.HorizonBuckets)
	assert.Equal(t, 8, cfg.Planning.Parallelism)
	assert.Equal(t, "2.5", cfg.Matching.DefaultTolerancePercent.String())
	assert.True(t, cfg.Matching.AutoReleaseMatched)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("MRP_PLANNING_BUCKET_DAYS", "0")

	_, err := Load("")
	assert.ErrorContains(t, err, "bucket_days")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
