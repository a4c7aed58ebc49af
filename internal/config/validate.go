package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate reports every problem in cfg at once. A config that fails here is
// fatal at boot and rejected on hot reload.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add(fmt.Errorf("telegram.token is required (or set %s)", EnvTelegramToken))
	}
	if cfg.Telegram.DefaultChatID == 0 {
		add(fmt.Errorf("telegram.default_chat_id is required (or set %s)", EnvChannelID))
	}
	if _, _, err := ParseChatRef(cfg.Telegram.GroupLog); err != nil {
		add(fmt.Errorf("telegram.group_log: %w", err))
	}

	durations := map[string]string{
		"telegram.poll_timeout":    cfg.Telegram.PollTimeout,
		"csfloat.timeout":          cfg.CSFloat.Timeout,
		"tracker.interval":         cfg.Tracker.Interval,
		"tracker.jitter_max":       cfg.Tracker.JitterMax,
		"tracker.task_timeout":     cfg.Tracker.TaskTimeout,
		"notifier.retry_base":      cfg.Notifier.RetryBase,
		"notifier.retry_max_delay": cfg.Notifier.RetryMaxDelay,
		"notifier.send_timeout":    cfg.Notifier.SendTimeout,
		"storage.busy_timeout":     cfg.Storage.BusyTimeout,
	}
	for path, raw := range durations {
		_, err := ParseDurationField(path, raw)
		add(err)
	}

	if u := strings.TrimSpace(cfg.CSFloat.BaseURL); u != "" {
		if pu, err := url.Parse(u); err != nil || pu.Scheme == "" || pu.Host == "" {
			add(fmt.Errorf("csfloat.base_url: invalid url %q", u))
		}
	}
	if cfg.Tracker.MaxPerCycle < 0 {
		add(errors.New("tracker.max_per_cycle must be >= 0"))
	}
	if cfg.Tracker.SeenMaxEntries < 0 {
		add(errors.New("tracker.seen_max_entries must be >= 0"))
	}
	if cfg.Notifier.Workers < 0 || cfg.Notifier.QueueSize < 0 || cfg.Notifier.RetryMax < 0 {
		add(errors.New("notifier: workers, queue_size and retry_max must be >= 0"))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "none", "file", "sqlite", "sqlite3":
	default:
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	return errors.Join(errs...)
}
