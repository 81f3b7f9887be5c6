package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	HTTP     HTTPConfig     `json:"http"`
	Users    UsersConfig    `json:"users"`
	Relay    RelayConfig    `json:"relay"`
	Logging  LoggingConfig  `json:"logging"`

	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
	// Commands enables long polling for /start and /id.
	Commands bool `json:"commands"`
	// GroupLog is the operator chat id for the Telegram log sink.
	GroupLog string `json:"group_log"`
}

// HTTPConfig controls the webhook intake server.
//
// Defaults (when fields are omitted/zero):
//   - addr: ":8080"
//   - path: "/webhook"
//   - read_timeout: "10s"
//   - write_timeout: "10s"
//   - max_body_bytes: 1 MiB
type HTTPConfig struct {
	Addr string `json:"addr"`
	Path string `json:"path"`
	// Secret is the Taiga webhook key. When set, requests must carry a valid
	// X-TAIGA-WEBHOOK-SIGNATURE. Never logged.
	Secret       string `json:"secret,omitempty"`
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	MaxBodyBytes int64  `json:"max_body_bytes,omitempty"`
}

// UsersConfig points at the user directory file (YAML or JSON).
type UsersConfig struct {
	Path  string `json:"path"`
	Watch bool   `json:"watch"`
}

// RelayConfig selects the label table used for messages.
//
// Example:
//
//	"relay": { "locale": "ru", "status_labels": { "Blocked": "Заблокирована" } }
type RelayConfig struct {
	Locale       string            `json:"locale"`
	StatusLabels map[string]string `json:"status_labels,omitempty"`
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
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// NotifierConfig controls the async delivery pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// If the whole section is omitted, the notifier runs with defaults.
type NotifierConfig struct {
	Enabled         bool   `json:"enabled"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        int    `json:"retry_max"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
	PersistDedup    bool   `json:"persist_dedup,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./taigabot.db", "prune_schedule": "@hourly" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	// PruneSchedule is a cron expression for dropping expired dedup keys.
	PruneSchedule string `json:"prune_schedule,omitempty"`
}
