package runtimeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app_name: demo\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, TransportMemory, cfg.Transport)
	require.Equal(t, ":7711", cfg.Listen)
	require.Equal(t, 50, cfg.StepIntervalMillis)
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeConfig(t, "transport: tcp\nlisten: \":9000\"\nstep_interval_millis: 10\ndebug: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, TransportTCP, cfg.Transport)
	require.Equal(t, ":9000", cfg.Listen)
	require.Equal(t, 10, cfg.StepIntervalMillis)
	require.True(t, cfg.Debug)
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	path := writeConfig(t, "transport: carrier-pigeon\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsNegativeStepInterval(t *testing.T) {
	path := writeConfig(t, "step_interval_millis: -1\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestStepIntervalConvertsMillis(t *testing.T) {
	cfg := &Config{StepIntervalMillis: 250}
	require.Equal(t, "250ms", cfg.StepInterval().String())
}
