package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Snapshot.Interval)
	assert.Equal(t, 2, cfg.Snapshot.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Detection.Interval)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, 7*24*time.Hour, cfg.Postgres.Retention)
	assert.Equal(t, time.Hour, cfg.Postgres.PruneInterval)
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstream:
  endpoint: http://vms:5000
snapshot:
  interval: 500ms
  concurrency: 4
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://vms:5000", cfg.Upstream.Endpoint)
	assert.Equal(t, 500*time.Millisecond, cfg.Snapshot.Interval)
	assert.Equal(t, 4, cfg.Snapshot.Concurrency)
	// Незатронутые поля остаются дефолтными
	assert.Equal(t, 2*time.Second, cfg.Detection.Interval)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("snapshot:\n  concurrency: 4\n"), 0o644))

	t.Setenv("SNAPSHOT_CONCURRENCY", "8")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Snapshot.Concurrency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}
