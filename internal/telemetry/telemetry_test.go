package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStdoutLogger(t *testing.T) {
	cfg := DefaultConfig()
	logger, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
}

func TestNewFileLoggerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.Path = dir

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())

	_, err = os.Stat(dir)
	require.NoError(t, err)
}

func TestLevelParsing(t *testing.T) {
	require.Equal(t, "debug", level("DEBUG").String())
	require.Equal(t, "warn", level("warning").String())
	require.Equal(t, "info", level("bogus").String())
}
