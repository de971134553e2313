package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ExpirationLayout is the layout for loop.expiration values,
// e.g. 20260831T235900. Parsed in the local timezone.
const ExpirationLayout = "20060102T150405"

// Default values for Config.
const (
	DefaultRetryBackoffSeconds   = 60
	DefaultIterationDelaySeconds = 10

	DefaultOBSHost                  = "localhost"
	DefaultOBSPort                  = 4455
	DefaultConnectTimeoutSeconds    = 10
	DefaultLaunchWaitSeconds        = 15
	DefaultApplySettingsMaxAttempts = 3
	DefaultApplySettingsRetryDelay  = 5
	DefaultStopWaitTimeoutSeconds   = 30
	DefaultStatusPollSeconds        = 1
	DefaultStartTimeoutSeconds      = 60
	DefaultSourceRefreshSeconds     = 300

	DefaultStreamDurationSeconds = 3600

	DefaultRTMPURL                  = "rtmp://a.rtmp.youtube.com/live2"
	DefaultTimezone                 = "Asia/Tokyo"
	DefaultStartBufferSeconds       = 60
	DefaultScheduledDurationSeconds = 3600
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Loop: LoopConfig{
			RetryBackoffSeconds:   DefaultRetryBackoffSeconds,
			IterationDelaySeconds: DefaultIterationDelaySeconds,
		},
		OBS: OBSConfig{
			Host:                           DefaultOBSHost,
			Port:                           DefaultOBSPort,
			ConnectTimeoutSeconds:          DefaultConnectTimeoutSeconds,
			LaunchWaitSeconds:              DefaultLaunchWaitSeconds,
			ApplySettingsMaxAttempts:       DefaultApplySettingsMaxAttempts,
			ApplySettingsRetryDelaySeconds: DefaultApplySettingsRetryDelay,
			StopWaitTimeoutSeconds:         DefaultStopWaitTimeoutSeconds,
			StatusPollIntervalSeconds:      DefaultStatusPollSeconds,
			StartTimeoutSeconds:            DefaultStartTimeoutSeconds,
			SourceRefresh: SourceRefreshConfig{
				IntervalSeconds: DefaultSourceRefreshSeconds,
			},
		},
		Stream: StreamConfig{
			DurationSeconds: DefaultStreamDurationSeconds,
		},
		YouTube: YouTubeConfig{
			CredentialsFile: "client_secret.json",
			TokenFile:       "token.json",
			RTMPURL:         DefaultRTMPURL,
			Timezone:        DefaultTimezone,
			Broadcast: BroadcastConfig{
				TitleFormat:              "Live {date} {time} #{count}",
				PrivacyStatus:            "private",
				EnableAutoStart:          true,
				EnableAutoStop:           true,
				LatencyPreference:        "normal",
				EnableDVR:                true,
				RecordFromStart:          true,
				StartBufferSeconds:       DefaultStartBufferSeconds,
				ScheduledDurationSeconds: DefaultScheduledDurationSeconds,
				PlaylistTitleLayout:      "2006-01",
			},
			Stream: IngestConfig{
				TitleFormat:   "Ingest {datetime}",
				FrameRate:     "variable",
				Resolution:    "variable",
				IngestionType: "rtmp",
			},
			Playlist: PlaylistConfig{
				DescriptionFormat: "Archive for {playlist_title}",
				PrivacyStatus:     "private",
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Directory: "logs",
			ToConsole: true,
			ToFile:    true,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// Load reads and parses the config file at path.
// Applies defaults for any missing fields. A malformed loop.expiration
// is tolerated: it is recorded in Warnings and the bound is dropped.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Loop.Expiration != "" {
		t, err := time.ParseInLocation(ExpirationLayout, cfg.Loop.Expiration, time.Local)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf(
				"invalid loop.expiration %q (expected layout %s), running without expiration",
				cfg.Loop.Expiration, ExpirationLayout))
		} else {
			cfg.Loop.ExpiresAt = t
		}
	}

	loc, err := time.LoadLocation(cfg.YouTube.Timezone)
	if err != nil {
		return nil, ValidationError{Field: "youtube.timezone", Message: fmt.Sprintf("unknown timezone %q", cfg.YouTube.Timezone)}
	}
	cfg.YouTube.Location = loc

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that all config values are valid.
func Validate(cfg *Config) error {
	if cfg.Loop.Count < 0 {
		return ValidationError{Field: "loop.count", Message: "must not be negative"}
	}
	if cfg.Loop.DurationHours < 0 {
		return ValidationError{Field: "loop.duration_hours", Message: "must not be negative"}
	}
	if cfg.Loop.RetryBackoffSeconds < 0 {
		return ValidationError{Field: "loop.retry_backoff_seconds", Message: "must not be negative"}
	}
	if cfg.Loop.IterationDelaySeconds < 0 {
		return ValidationError{Field: "loop.iteration_delay_seconds", Message: "must not be negative"}
	}

	if cfg.OBS.Host == "" {
		return ValidationError{Field: "obs.host", Message: "required field is empty"}
	}
	if cfg.OBS.Port < 1 || cfg.OBS.Port > 65535 {
		return ValidationError{Field: "obs.port", Message: "must be between 1 and 65535"}
	}
	if cfg.OBS.ConnectTimeoutSeconds <= 0 {
		return ValidationError{Field: "obs.connect_timeout_seconds", Message: "must be positive"}
	}
	if cfg.OBS.LaunchWaitSeconds < 0 {
		return ValidationError{Field: "obs.launch_wait_seconds", Message: "must not be negative"}
	}
	if cfg.OBS.ApplySettingsMaxAttempts < 1 {
		return ValidationError{Field: "obs.apply_settings_max_attempts", Message: "must be at least 1"}
	}
	if cfg.OBS.ApplySettingsRetryDelaySeconds < 0 {
		return ValidationError{Field: "obs.apply_settings_retry_delay_seconds", Message: "must not be negative"}
	}
	if cfg.OBS.StopWaitTimeoutSeconds <= 0 {
		return ValidationError{Field: "obs.stop_wait_timeout_seconds", Message: "must be positive"}
	}
	if cfg.OBS.StatusPollIntervalSeconds <= 0 {
		return ValidationError{Field: "obs.status_poll_interval_seconds", Message: "must be positive"}
	}
	if cfg.OBS.StartTimeoutSeconds <= 0 {
		return ValidationError{Field: "obs.start_timeout_seconds", Message: "must be positive"}
	}
	if cfg.OBS.SourceRefresh.Enabled && cfg.OBS.SourceRefresh.IntervalSeconds <= 0 {
		return ValidationError{Field: "obs.source_refresh.interval_seconds", Message: "must be positive when refresh is enabled"}
	}

	if cfg.Stream.DurationSeconds <= 0 {
		return ValidationError{Field: "stream.duration_seconds", Message: "must be positive"}
	}

	if cfg.YouTube.CredentialsFile == "" {
		return ValidationError{Field: "youtube.credentials_file", Message: "required field is empty"}
	}
	if cfg.YouTube.TokenFile == "" {
		return ValidationError{Field: "youtube.token_file", Message: "required field is empty"}
	}
	if cfg.YouTube.RTMPURL == "" {
		return ValidationError{Field: "youtube.rtmp_url", Message: "required field is empty"}
	}
	if cfg.YouTube.Broadcast.TitleFormat == "" {
		return ValidationError{Field: "youtube.broadcast.title_format", Message: "required field is empty"}
	}
	if !validPrivacyStatus(cfg.YouTube.Broadcast.PrivacyStatus) {
		return ValidationError{Field: "youtube.broadcast.privacy_status", Message: "must be public, private or unlisted"}
	}
	if !validPrivacyStatus(cfg.YouTube.Playlist.PrivacyStatus) {
		return ValidationError{Field: "youtube.playlist.privacy_status", Message: "must be public, private or unlisted"}
	}
	if cfg.YouTube.Broadcast.StartBufferSeconds < 0 {
		return ValidationError{Field: "youtube.broadcast.start_buffer_seconds", Message: "must not be negative"}
	}
	if cfg.YouTube.Broadcast.ScheduledDurationSeconds <= 0 {
		return ValidationError{Field: "youtube.broadcast.scheduled_duration_seconds", Message: "must be positive"}
	}
	if cfg.YouTube.Broadcast.PlaylistTitleLayout == "" {
		return ValidationError{Field: "youtube.broadcast.playlist_title_layout", Message: "required field is empty"}
	}

	return nil
}

func validPrivacyStatus(s string) bool {
	switch s {
	case "public", "private", "unlisted":
		return true
	}
	return false
}
