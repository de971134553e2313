package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to a temp config.yaml and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Loop.Count)
	assert.Equal(t, 0.0, cfg.Loop.DurationHours)
	assert.True(t, cfg.Loop.ExpiresAt.IsZero())
	assert.Equal(t, DefaultRetryBackoffSeconds, cfg.Loop.RetryBackoffSeconds)
	assert.Equal(t, DefaultIterationDelaySeconds, cfg.Loop.IterationDelaySeconds)

	assert.Equal(t, DefaultOBSHost, cfg.OBS.Host)
	assert.Equal(t, DefaultOBSPort, cfg.OBS.Port)
	assert.Equal(t, DefaultApplySettingsMaxAttempts, cfg.OBS.ApplySettingsMaxAttempts)
	assert.Equal(t, DefaultStopWaitTimeoutSeconds, cfg.OBS.StopWaitTimeoutSeconds)
	assert.False(t, cfg.OBS.SourceRefresh.Enabled)

	assert.Equal(t, DefaultStreamDurationSeconds, cfg.Stream.DurationSeconds)

	assert.Equal(t, DefaultRTMPURL, cfg.YouTube.RTMPURL)
	assert.Equal(t, "private", cfg.YouTube.Broadcast.PrivacyStatus)
	assert.True(t, cfg.YouTube.Broadcast.EnableAutoStart)
	assert.True(t, cfg.YouTube.Broadcast.EnableAutoStop)
	assert.NotNil(t, cfg.YouTube.Location)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.ToConsole)
	assert.True(t, cfg.Logging.ToFile)

	assert.Empty(t, cfg.Warnings)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_FullFile(t *testing.T) {
	t.Parallel()

	content := `loop:
  count: 12
  duration_hours: 6.5
  retry_backoff_seconds: 5
  iteration_delay_seconds: 2
obs:
  host: 192.168.1.20
  port: 4456
  password: secret
  app_path: /usr/bin/obs
  source_refresh:
    enabled: true
    interval_seconds: 120
    sources:
      - overlay
      - chat
stream:
  duration_seconds: 1800
youtube:
  rtmp_url: rtmp://b.rtmp.youtube.com/live2
  timezone: UTC
  cleanup_before_create: true
  broadcast:
    title_format: "Night stream {date}"
    privacy_status: unlisted
    enable_auto_stop: false
    category_id: "20"
    tags: [gaming, live]
logging:
  level: debug
  to_console: false
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Loop.Count)
	assert.Equal(t, 6.5, cfg.Loop.DurationHours)
	assert.Equal(t, 5, cfg.Loop.RetryBackoffSeconds)
	assert.Equal(t, 2, cfg.Loop.IterationDelaySeconds)

	assert.Equal(t, "192.168.1.20", cfg.OBS.Host)
	assert.Equal(t, 4456, cfg.OBS.Port)
	assert.Equal(t, "secret", cfg.OBS.Password)
	assert.Equal(t, "/usr/bin/obs", cfg.OBS.AppPath)
	assert.True(t, cfg.OBS.SourceRefresh.Enabled)
	assert.Equal(t, 120, cfg.OBS.SourceRefresh.IntervalSeconds)
	assert.Equal(t, []string{"overlay", "chat"}, cfg.OBS.SourceRefresh.Sources)

	assert.Equal(t, 1800, cfg.Stream.DurationSeconds)

	assert.Equal(t, "rtmp://b.rtmp.youtube.com/live2", cfg.YouTube.RTMPURL)
	assert.True(t, cfg.YouTube.CleanupBeforeCreate)
	assert.Equal(t, time.UTC, cfg.YouTube.Location)
	assert.Equal(t, "Night stream {date}", cfg.YouTube.Broadcast.TitleFormat)
	assert.Equal(t, "unlisted", cfg.YouTube.Broadcast.PrivacyStatus)
	assert.False(t, cfg.YouTube.Broadcast.EnableAutoStop)
	// Unset siblings keep their defaults
	assert.True(t, cfg.YouTube.Broadcast.EnableAutoStart)
	assert.Equal(t, "20", cfg.YouTube.Broadcast.CategoryID)
	assert.Equal(t, []string{"gaming", "live"}, cfg.YouTube.Broadcast.Tags)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.ToConsole)
	assert.True(t, cfg.Logging.ToFile)
}

func TestLoad_PartialFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "loop:\n  count: 3\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Loop.Count)
	assert.Equal(t, DefaultRetryBackoffSeconds, cfg.Loop.RetryBackoffSeconds)
	assert.Equal(t, DefaultOBSPort, cfg.OBS.Port)
	assert.Equal(t, DefaultStreamDurationSeconds, cfg.Stream.DurationSeconds)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "loop: ["))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_Expiration(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(writeConfig(t, "loop:\n  expiration: \"20991231T235959\"\n"))
		require.NoError(t, err)

		want := time.Date(2099, 12, 31, 23, 59, 59, 0, time.Local)
		assert.Equal(t, want, cfg.Loop.ExpiresAt)
		assert.Empty(t, cfg.Warnings)
	})

	t.Run("malformed is tolerated", func(t *testing.T) {
		t.Parallel()

		cfg, err := Load(writeConfig(t, "loop:\n  expiration: \"2099-12-31\"\n"))
		require.NoError(t, err)

		assert.True(t, cfg.Loop.ExpiresAt.IsZero())
		require.Len(t, cfg.Warnings, 1)
		assert.Contains(t, cfg.Warnings[0], "invalid loop.expiration")
	})
}

func TestLoad_UnknownTimezone(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "youtube:\n  timezone: Mars/Olympus\n"))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "youtube.timezone")
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "negative loop count",
			content: "loop:\n  count: -1\n",
			field:   "loop.count",
		},
		{
			name:    "negative duration hours",
			content: "loop:\n  duration_hours: -2\n",
			field:   "loop.duration_hours",
		},
		{
			name:    "port too small",
			content: "obs:\n  port: 0\n",
			field:   "obs.port",
		},
		{
			name:    "port too large",
			content: "obs:\n  port: 70000\n",
			field:   "obs.port",
		},
		{
			name:    "zero apply attempts",
			content: "obs:\n  apply_settings_max_attempts: 0\n",
			field:   "obs.apply_settings_max_attempts",
		},
		{
			name:    "zero status poll interval",
			content: "obs:\n  status_poll_interval_seconds: 0\n",
			field:   "obs.status_poll_interval_seconds",
		},
		{
			name:    "refresh enabled without interval",
			content: "obs:\n  source_refresh:\n    enabled: true\n    interval_seconds: 0\n",
			field:   "obs.source_refresh.interval_seconds",
		},
		{
			name:    "zero stream duration",
			content: "stream:\n  duration_seconds: 0\n",
			field:   "stream.duration_seconds",
		},
		{
			name:    "empty rtmp url",
			content: "youtube:\n  rtmp_url: \"\"\n",
			field:   "youtube.rtmp_url",
		},
		{
			name:    "bogus privacy status",
			content: "youtube:\n  broadcast:\n    privacy_status: secret\n",
			field:   "youtube.broadcast.privacy_status",
		},
		{
			name:    "empty title format",
			content: "youtube:\n  broadcast:\n    title_format: \"\"\n",
			field:   "youtube.broadcast.title_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "expected ValidationError, got %v", err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
