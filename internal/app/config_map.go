package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taigabot/internal/config"
	"taigabot/internal/notifier"
	"taigabot/internal/relay"
	"taigabot/internal/storage"
	"taigabot/internal/transport/telegram"
	"taigabot/internal/webhook"
	"taigabot/pkg/logx"
)

const defaultPruneSchedule = "@hourly"

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func pruneSchedule(cfg *config.Config) string {
	if cfg == nil || cfg.Storage == nil || strings.TrimSpace(cfg.Storage.PruneSchedule) == "" {
		return defaultPruneSchedule
	}
	return strings.TrimSpace(cfg.Storage.PruneSchedule)
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	nc := config.DefaultNotifier()
	if cfg != nil && cfg.Notifier != nil {
		nc = *cfg.Notifier
	}
	def := config.DefaultNotifier()

	retryBase, err := config.ParseDurationOrDefault("notifier.retry_base", nc.RetryBase, 500*time.Millisecond)
	if err != nil {
		return notifier.Config{}, err
	}
	retryMaxDelay, err := config.ParseDurationOrDefault("notifier.retry_max_delay", nc.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	dedupWindow, err := config.ParseDurationOrDefault("notifier.dedup_window", nc.DedupWindow, time.Minute)
	if err != nil {
		return notifier.Config{}, err
	}

	out := notifier.Config{
		Enabled:         nc.Enabled,
		Workers:         orInt(nc.Workers, def.Workers),
		QueueSize:       orInt(nc.QueueSize, def.QueueSize),
		RatePerSec:      orInt(nc.RatePerSec, def.RatePerSec),
		RetryMax:        nc.RetryMax,
		RetryBase:       retryBase,
		RetryMaxDelay:   retryMaxDelay,
		DedupWindow:     dedupWindow,
		DedupMaxEntries: orInt(nc.DedupMaxEntries, def.DedupMaxEntries),
		PersistDedup:    nc.PersistDedup,
	}
	if out.Workers < 0 || out.QueueSize < 0 || out.RatePerSec < 0 || out.RetryMax < 0 || out.DedupMaxEntries < 0 {
		return notifier.Config{}, fmt.Errorf("notifier: numeric fields must be >= 0")
	}
	return out, nil
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: poll,
		Commands:    cfg.Telegram.Commands,
	}, nil
}

func mapHTTPConfig(cfg *config.Config) (webhook.Config, error) {
	h := cfg.HTTP
	rt, err := config.ParseDurationOrDefault("http.read_timeout", h.ReadTimeout, webhook.DefaultTimeout)
	if err != nil {
		return webhook.Config{}, err
	}
	wt, err := config.ParseDurationOrDefault("http.write_timeout", h.WriteTimeout, webhook.DefaultTimeout)
	if err != nil {
		return webhook.Config{}, err
	}
	return webhook.Config{
		Addr:         h.Addr,
		Path:         h.Path,
		Secret:       h.Secret,
		ReadTimeout:  rt,
		WriteTimeout: wt,
		MaxBodyBytes: h.MaxBodyBytes,
	}, nil
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			ThreadID:   l.Telegram.ThreadID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

// groupLogChat returns the operator chat id, 0 when unset or invalid.
func groupLogChat(cfg *config.Config) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(cfg.Telegram.GroupLog), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// LabelsFor picks the label table named by relay.locale and layers
// relay.status_labels on top.
func LabelsFor(cfg *config.Config) (relay.Labels, error) {
	l, ok := relay.LookupLabels(cfg.Relay.Locale)
	if !ok {
		return relay.Labels{}, fmt.Errorf("relay.locale: unknown locale %q (have %s)", cfg.Relay.Locale, strings.Join(relay.Locales(), ", "))
	}
	return l.WithStatuses(cfg.Relay.StatusLabels), nil
}

// ValidateRuntime runs the checks that need component knowledge on top of
// config.Validate. It is used for the initial load and for every reload.
func ValidateRuntime(cfg *config.Config) error {
	if _, err := LabelsFor(cfg); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapHTTPConfig(cfg); err != nil {
		return err
	}
	return nil
}
