package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileSink(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{Level: "info", Directory: dir, ToFile: true})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Infow("loop starting", "iterations", 3)
	require.NoError(t, logger.Sync())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "ytloop_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".log"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "loop starting")
	assert.Contains(t, string(data), "INFO")
}

func TestNew_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{Level: "warn", Directory: dir, ToFile: true})
	require.NoError(t, err)

	logger.Infow("quiet")
	logger.Warnw("loud")
	require.NoError(t, logger.Sync())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestNew_UnknownLevelFallsBack(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{Level: "chatty", Directory: dir, ToFile: true})
	require.NoError(t, err)

	logger.Debugw("hidden")
	logger.Infow("visible")
	require.NoError(t, logger.Sync())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
}

func TestNew_AllSinksDisabled(t *testing.T) {
	logger, err := New(Config{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	// No sinks configured: logging must still be safe to call.
	logger.Infow("discarded")
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger, err := New(Config{Level: "info", Directory: dir, ToFile: true})
	require.NoError(t, err)
	require.NotNil(t, logger)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
