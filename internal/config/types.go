package config

import "time"

// LoopConfig defines the bounds and pacing of the broadcast loop.
type LoopConfig struct {
	Count                 int     `yaml:"count"`
	DurationHours         float64 `yaml:"duration_hours"`
	Expiration            string  `yaml:"expiration"`
	RetryBackoffSeconds   int     `yaml:"retry_backoff_seconds"`
	IterationDelaySeconds int     `yaml:"iteration_delay_seconds"`

	// ExpiresAt is Expiration parsed against ExpirationLayout.
	// Zero means no absolute bound.
	ExpiresAt time.Time `yaml:"-"`
}

// SourceRefreshConfig controls periodic source reloads while a stream is live.
type SourceRefreshConfig struct {
	Enabled         bool     `yaml:"enabled"`
	IntervalSeconds int      `yaml:"interval_seconds"`
	Sources         []string `yaml:"sources"`
}

// OBSConfig defines how to reach and drive the local OBS instance.
type OBSConfig struct {
	Host                           string              `yaml:"host"`
	Port                           int                 `yaml:"port"`
	Password                       string              `yaml:"password"`
	AppPath                        string              `yaml:"app_path"`
	ConnectTimeoutSeconds          int                 `yaml:"connect_timeout_seconds"`
	LaunchWaitSeconds              int                 `yaml:"launch_wait_seconds"`
	ApplySettingsMaxAttempts       int                 `yaml:"apply_settings_max_attempts"`
	ApplySettingsRetryDelaySeconds int                 `yaml:"apply_settings_retry_delay_seconds"`
	StopWaitTimeoutSeconds         int                 `yaml:"stop_wait_timeout_seconds"`
	StatusPollIntervalSeconds      int                 `yaml:"status_poll_interval_seconds"`
	StartTimeoutSeconds            int                 `yaml:"start_timeout_seconds"`
	SourceRefresh                  SourceRefreshConfig `yaml:"source_refresh"`
}

// StreamConfig defines the per-iteration streaming session.
type StreamConfig struct {
	DurationSeconds int `yaml:"duration_seconds"`
}

// BroadcastConfig defines the YouTube broadcast created each iteration.
// TitleFormat supports {date}, {time} and {count} tokens.
type BroadcastConfig struct {
	TitleFormat              string   `yaml:"title_format"`
	Description              string   `yaml:"description"`
	PrivacyStatus            string   `yaml:"privacy_status"`
	MadeForKids              bool     `yaml:"made_for_kids"`
	EnableAutoStart          bool     `yaml:"enable_auto_start"`
	EnableAutoStop           bool     `yaml:"enable_auto_stop"`
	LatencyPreference        string   `yaml:"latency_preference"`
	EnableDVR                bool     `yaml:"enable_dvr"`
	RecordFromStart          bool     `yaml:"record_from_start"`
	CategoryID               string   `yaml:"category_id"`
	Tags                     []string `yaml:"tags"`
	StartBufferSeconds       int      `yaml:"start_buffer_seconds"`
	ScheduledDurationSeconds int      `yaml:"scheduled_duration_seconds"`
	PlaylistTitleLayout      string   `yaml:"playlist_title_layout"`
}

// IngestConfig defines the YouTube liveStream (CDN ingest) resource.
// TitleFormat supports a {datetime} token rendered in UTC.
type IngestConfig struct {
	TitleFormat   string `yaml:"title_format"`
	FrameRate     string `yaml:"frame_rate"`
	Resolution    string `yaml:"resolution"`
	IngestionType string `yaml:"ingestion_type"`
}

// PlaylistConfig defines the monthly archive playlist resource.
// DescriptionFormat supports a {playlist_title} token.
type PlaylistConfig struct {
	DescriptionFormat string `yaml:"description_format"`
	DefaultLanguage   string `yaml:"default_language"`
	PrivacyStatus     string `yaml:"privacy_status"`
}

// YouTubeConfig defines credentials and resource templates for the
// YouTube Data API.
type YouTubeConfig struct {
	CredentialsFile     string          `yaml:"credentials_file"`
	TokenFile           string          `yaml:"token_file"`
	RTMPURL             string          `yaml:"rtmp_url"`
	ServiceName         string          `yaml:"service_name"`
	CleanupBeforeCreate bool            `yaml:"cleanup_before_create"`
	Timezone            string          `yaml:"timezone"`
	Broadcast           BroadcastConfig `yaml:"broadcast"`
	Stream              IngestConfig    `yaml:"stream"`
	Playlist            PlaylistConfig  `yaml:"playlist"`

	// Location is Timezone resolved via time.LoadLocation.
	Location *time.Location `yaml:"-"`
}

// LoggingConfig controls log level and sinks.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Directory string `yaml:"directory"`
	ToConsole bool   `yaml:"to_console"`
	ToFile    bool   `yaml:"to_file"`
}

// Config represents the config.yaml file.
type Config struct {
	Loop    LoopConfig    `yaml:"loop"`
	OBS     OBSConfig     `yaml:"obs"`
	Stream  StreamConfig  `yaml:"stream"`
	YouTube YouTubeConfig `yaml:"youtube"`
	Logging LoggingConfig `yaml:"logging"`

	// Warnings collects non-fatal issues found during Load, for the
	// caller to log once a logger exists.
	Warnings []string `yaml:"-"`
}
