package config

import "reflect"

// ChangedSections lists the top-level sections that differ between two
// configs. Values are never included, so the result is safe to log.
func ChangedSections(oldCfg, newCfg *Config) []string {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	sections := []struct {
		name     string
		old, new any
	}{
		{"telegram", oldCfg.Telegram, newCfg.Telegram},
		{"logging", oldCfg.Logging, newCfg.Logging},
		{"csfloat", oldCfg.CSFloat, newCfg.CSFloat},
		{"tracker", oldCfg.Tracker, newCfg.Tracker},
		{"notifier", oldCfg.Notifier, newCfg.Notifier},
		{"storage", oldCfg.Storage, newCfg.Storage},
	}
	var out []string
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			out = append(out, s.name)
		}
	}
	return out
}
