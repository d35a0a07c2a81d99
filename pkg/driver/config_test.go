package driver_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/driver"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := driver.DefaultConfig()
	require.NoError(t, cfg.Validate())
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
	assert.Equal(t, driver.RejectionsWarn, cfg.UnhandledRejections)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
queues: [TimerJobs]
max_jobs: 500
log_level: debug
trace_jobs: true
unhandled_rejections: strict
`), 0o644))

	cfg, err := driver.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"TimerJobs"}, cfg.Queues)
	assert.Equal(t, 500, cfg.MaxJobs)
	assert.True(t, cfg.TraceJobs)
	assert.Equal(t, driver.RejectionsStrict, cfg.UnhandledRejections)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
	// Unset fields keep their defaults.
	assert.Equal(t, driver.DefaultConfig().MaxCallDepth, cfg.MaxCallDepth)
}

func TestParseConfigEmptyDocumentGivesDefaults(t *testing.T) {
	cfg, err := driver.ParseConfig(strings.NewReader("\n  \n"))
	require.NoError(t, err)
	assert.Equal(t, driver.DefaultConfig(), cfg)
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := driver.ParseConfig(strings.NewReader("max_jobz: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_jobz")
}

func TestValidateCollectsAllIssues(t *testing.T) {
	cfg := driver.DefaultConfig()
	cfg.MaxJobs = -1
	cfg.LogLevel = "loud"
	cfg.UnhandledRejections = "panic"
	cfg.Queues = []string{"PromiseJobs", " "}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, driver.IsConfigError(err))
	var ce *driver.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.Issues, 5)
	assert.Contains(t, err.Error(), `duplicate queue "PromiseJobs"`)
	assert.Contains(t, err.Error(), "unhandled_rejections must be warn, strict or ignore")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := driver.LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtraQueuesAreRegistered(t *testing.T) {
	cfg := driver.DefaultConfig()
	cfg.Queues = []string{"TimerJobs"}
	e, err := driver.New(cfg)
	require.NoError(t, err)
	defer e.Close()
	assert.NotPanics(t, func() {
		e.Agent().EnqueueJob("TimerJobs", nil)
	})
	assert.Equal(t, 1, e.Agent().Pending())
}
