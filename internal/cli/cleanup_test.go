package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupCommand_NoArgs(t *testing.T) {
	assert.Equal(t, "cleanup", cleanupCmd.Use)

	require.NotNil(t, cleanupCmd.Args)
	assert.Error(t, cleanupCmd.Args(cleanupCmd, []string{"extra"}))
	assert.NoError(t, cleanupCmd.Args(cleanupCmd, nil))
}

func TestCleanupCommand_ConfigFlag(t *testing.T) {
	flag := cleanupCmd.Flags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "config.yaml", flag.DefValue)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestCleanupCommand_MissingCredentials(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "logging:\n  to_file: false\n  to_console: false\nyoutube:\n  credentials_file: " +
		filepath.Join(dir, "missing.json") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	orig := cleanupConfigPath
	cleanupConfigPath = cfgPath
	defer func() { cleanupConfigPath = orig }()

	err := runCleanup(cleanupCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read credentials file")
}
