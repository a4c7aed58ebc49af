package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables that override the file. Secrets and the target
// channel usually live here.
const (
	EnvTelegramToken = "TELEGRAM_TOKEN"
	EnvChannelID     = "CHANNEL_ID"
	EnvCSFloatAPIKey = "CSFLOAT_API_KEY"
)

// ApplyEnv overlays non-empty environment values onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if cfg == nil || getenv == nil {
		return nil
	}
	if v := strings.TrimSpace(getenv(EnvTelegramToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvCSFloatAPIKey)); v != "" {
		cfg.CSFloat.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvChannelID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid chat id %q: %w", EnvChannelID, v, err)
		}
		cfg.Telegram.DefaultChatID = id
	}
	return nil
}

// ParseChatRef parses "<chat_id>" or "<chat_id>:<thread_id>". An empty
// string yields zeros.
func ParseChatRef(s string) (chatID int64, threadID int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	head, tail, hasThread := strings.Cut(s, ":")
	chatID, err = strconv.ParseInt(strings.TrimSpace(head), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid chat id %q", head)
	}
	if hasThread {
		threadID, err = strconv.Atoi(strings.TrimSpace(tail))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid thread id %q", tail)
		}
	}
	return chatID, threadID, nil
}
