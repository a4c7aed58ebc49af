package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"floatwatch/internal/config"
	"floatwatch/internal/csfloat"
	"floatwatch/internal/notifier"
	"floatwatch/internal/storage"
	"floatwatch/internal/tracker"
	"floatwatch/internal/transport"
	telegram "floatwatch/internal/transport/telegram/adapter"
	"floatwatch/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	chatID, threadID, _ := config.ParseChatRef(cfg.Telegram.GroupLog)
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     chatID,
			ThreadID:   threadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapAdapterConfig(cfg *config.Config) (telegram.Config, error) {
	pt, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{Token: cfg.Telegram.Token, PollTimeout: pt}, nil
}

func defaultDestination(cfg *config.Config) transport.ChatTarget {
	return transport.ChatTarget{ChatID: cfg.Telegram.DefaultChatID, ThreadID: cfg.Telegram.DefaultThreadID}
}

func mapCSFloatConfig(cfg *config.Config) (csfloat.Config, error) {
	c := cfg.CSFloat
	timeout, err := config.ParseDurationOrDefault("csfloat.timeout", c.Timeout, 15*time.Second)
	if err != nil {
		return csfloat.Config{}, err
	}
	return csfloat.Config{
		BaseURL:    strings.TrimSpace(c.BaseURL),
		APIKey:     c.APIKey,
		Timeout:    timeout,
		UserAgent:  c.UserAgent,
		RatePerSec: c.RatePerSec,
	}, nil
}

func mapTrackerOptions(cfg *config.Config) (tracker.Options, error) {
	t := cfg.Tracker
	// An explicit "0s" disables jitter; only an empty value takes the default.
	jitter := time.Second
	if strings.TrimSpace(t.JitterMax) != "" {
		d, err := config.ParseDurationField("tracker.jitter_max", t.JitterMax)
		if err != nil {
			return tracker.Options{}, err
		}
		jitter = d
	}
	return tracker.Options{
		DefaultDestination: defaultDestination(cfg),
		SeenMaxEntries:     t.SeenMaxEntries,
		JitterMax:          jitter,
		MaxPerCycle:        t.MaxPerCycle,
		PrimeOnTrack:       t.PrimeEnabled(),
	}, nil
}

// pollSchedule is how often the tracker cycles and how long one cycle may run.
type pollSchedule struct {
	Every   time.Duration
	Timeout time.Duration
}

func mapPollSchedule(cfg *config.Config) (pollSchedule, error) {
	every, err := config.ParseDurationAtLeast("tracker.interval", cfg.Tracker.Interval, 60*time.Second, time.Second)
	if err != nil {
		return pollSchedule{}, err
	}
	timeout, err := config.ParseDurationField("tracker.task_timeout", cfg.Tracker.TaskTimeout)
	if err != nil {
		return pollSchedule{}, err
	}
	return pollSchedule{Every: every, Timeout: timeout}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	base, err := config.ParseDurationOrDefault("notifier.retry_base", n.RetryBase, 500*time.Millisecond)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationOrDefault("notifier.retry_max_delay", n.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	sendTimeout, err := config.ParseDurationOrDefault("notifier.send_timeout", n.SendTimeout, 10*time.Second)
	if err != nil {
		return notifier.Config{}, err
	}
	if maxDelay < base {
		return notifier.Config{}, errors.New("notifier.retry_max_delay must be >= notifier.retry_base")
	}
	retryMax := n.RetryMax
	if retryMax == 0 {
		retryMax = 3
	}
	return notifier.Config{
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      max(retryMax, 0),
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
		SendTimeout:   sendTimeout,
	}, nil
}

// mapStorageConfig reports enabled=false for an empty or "none" driver.
func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "file":
		if path == "" {
			path = "./floatwatch"
		}
		return storage.Config{Driver: driver, Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			path = "./floatwatch.db"
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

// validateMapped runs every mapper so a hot reload is rejected before any
// component sees it.
func validateMapped(cfg *config.Config) error {
	var errs []error
	_, err := mapAdapterConfig(cfg)
	errs = append(errs, err)
	_, err = mapCSFloatConfig(cfg)
	errs = append(errs, err)
	_, err = mapTrackerOptions(cfg)
	errs = append(errs, err)
	_, err = mapPollSchedule(cfg)
	errs = append(errs, err)
	_, err = mapNotifierConfig(cfg)
	errs = append(errs, err)
	_, _, err = mapStorageConfig(cfg)
	errs = append(errs, err)
	return errors.Join(errs...)
}
