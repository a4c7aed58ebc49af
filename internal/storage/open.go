package storage

import (
	"fmt"
	"strings"

	"floatwatch/pkg/logx"
)

// Open initializes the configured store. It returns (nil, nil) when storage
// is disabled; callers treat a nil Store as "nothing to persist".
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "none":
		return nil, nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}
