package config

// Config is the on-disk configuration (JSON or YAML). All durations are Go
// duration strings ("500ms", "10s", "1m"); an empty string selects the
// default documented on the field.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	CSFloat  CSFloatConfig  `json:"csfloat"`
	Tracker  TrackerConfig  `json:"tracker"`
	Notifier NotifierConfig `json:"notifier"`
	Storage  StorageConfig  `json:"storage"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// DefaultChatID is where notifications go until the first tracking
	// configuration sets its own channel.
	DefaultChatID   int64 `json:"default_chat_id"`
	DefaultThreadID int   `json:"default_thread_id,omitempty"`
	// PollTimeout is the long-poll timeout. Default "10s".
	PollTimeout string `json:"poll_timeout"`
	// GroupLog is "<chat_id>" or "<chat_id>:<thread_id>" for the log sink.
	GroupLog string `json:"group_log,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// CSFloatConfig controls the listing endpoint client.
//
// Defaults:
//   - base_url: "https://csfloat.com/api/v1/listings"
//   - timeout: "15s"
//   - rate_per_sec: 2 (negative disables client-side limiting)
type CSFloatConfig struct {
	BaseURL    string `json:"base_url,omitempty"`
	APIKey     string `json:"api_key,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// TrackerConfig controls the polling loop.
//
// Defaults:
//   - interval: "60s"
//   - jitter_max: "1s"
//   - max_per_cycle: 5
//   - seen_max_entries: 0 (unbounded)
//   - task_timeout: "0s" (no extra bound beyond the HTTP timeout)
//   - prime_on_track: true
type TrackerConfig struct {
	Interval       string `json:"interval,omitempty"`
	JitterMax      string `json:"jitter_max,omitempty"`
	MaxPerCycle    int    `json:"max_per_cycle,omitempty"`
	SeenMaxEntries int    `json:"seen_max_entries,omitempty"`
	TaskTimeout    string `json:"task_timeout,omitempty"`
	PrimeOnTrack   *bool  `json:"prime_on_track,omitempty"`
}

// NotifierConfig controls the async delivery pipeline.
//
// Defaults: workers 2, queue_size 256, rate_per_sec 1, retry_max 3,
// retry_base "500ms", retry_max_delay "10s".
type NotifierConfig struct {
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	SendTimeout   string `json:"send_timeout,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./floatwatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// PrimeEnabled reports tracker.prime_on_track, defaulting to true.
func (t TrackerConfig) PrimeEnabled() bool {
	return t.PrimeOnTrack == nil || *t.PrimeOnTrack
}
