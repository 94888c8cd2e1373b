package taskpool

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-task-pool/core"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "taskpool", cfg.Name)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
	assert.Equal(t, core.LevelFilterInfo, cfg.MaxLevel)
	assert.Equal(t, 32, cfg.StealBatch)
	assert.Equal(t, 100, cfg.HistoryCapacity)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`
name = "ingest"
workers = 3
max_level = "debug"
steal_batch = 8
shutdown_timeout = "250ms"
`)
	require.NoError(t, err)
	assert.Equal(t, "ingest", cfg.Name)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, core.LevelFilterDebug, cfg.MaxLevel)
	assert.Equal(t, 8, cfg.StealBatch)
	assert.Equal(t, 100, cfg.HistoryCapacity)
	assert.Equal(t, 250*time.Millisecond, cfg.ShutdownTimeout)
}

func TestParseConfig_ZeroWorkersMeansGOMAXPROCS(t *testing.T) {
	cfg, err := ParseConfig(`workers = 0`)
	require.NoError(t, err)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"negative workers", `workers = -1`},
		{"too many workers", `workers = 100000`},
		{"negative steal batch", `steal_batch = -2`},
		{"negative history", `history_capacity = -1`},
		{"negative timeout", `shutdown_timeout = "-1s"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.doc)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := ParseConfig(`max_level = "shouty"`)
	assert.ErrorContains(t, err, "shouty")

	_, err = ParseConfig(`workers = `)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpool.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = \"from-file\"\nworkers = 2\nmax_level = \"warning\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, core.LevelFilterWarn, cfg.MaxLevel)
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpool.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = 2\nqueue_kind = \"priority\"\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "queue_kind")
}

func TestParseConfig_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig("workerz = 3\n")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "workerz")
}

func TestConfig_ResolveUnsetMaxLevel(t *testing.T) {
	cfg := Config{Name: "literal", Workers: 2}.Resolve()
	assert.Equal(t, core.DefaultLevelFilter, cfg.MaxLevel)

	pool := NewGoroutineThreadPoolWithConfig(Config{Name: "literal", Workers: 2}, nil)
	t.Cleanup(pool.Stop)
	logger, ok := pool.GetScheduler().GetLogger().(*core.DefaultLogger)
	require.True(t, ok)
	assert.Equal(t, core.LevelFilterInfo, logger.MaxLevel())

	off := Config{Name: "quiet", Workers: 1, MaxLevel: core.LevelFilterOff}.Resolve()
	assert.Equal(t, core.LevelFilterOff, off.MaxLevel)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestNewGoroutineThreadPoolWithConfig_AppliesConfig(t *testing.T) {
	cfg := quietConfig("configured", 3)
	cfg.StealBatch = 4
	pool := NewGoroutineThreadPoolWithConfig(cfg, nil)
	t.Cleanup(pool.Stop)

	assert.Equal(t, "configured", pool.ID())
	assert.Equal(t, 3, pool.WorkerCount())
	assert.Equal(t, 3, pool.GetScheduler().WorkerCount())

	logger, ok := pool.GetScheduler().GetLogger().(*core.DefaultLogger)
	require.True(t, ok)
	assert.Equal(t, core.LevelFilterOff, logger.MaxLevel())
}
