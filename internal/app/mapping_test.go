package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floatwatch/internal/config"
	"floatwatch/internal/csfloat"
)

func baseConfig() *config.Config {
	return &config.Config{Telegram: config.TelegramConfig{Token: "t", DefaultChatID: -100}}
}

func TestMappingDefaults(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	require.NoError(t, validateMapped(cfg))

	ad, err := mapAdapterConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, ad.PollTimeout)

	cc, err := mapCSFloatConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cc.Timeout)
	assert.Empty(t, cc.BaseURL)

	to, err := mapTrackerOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.Second, to.JitterMax)
	assert.True(t, to.PrimeOnTrack)
	assert.Equal(t, int64(-100), to.DefaultDestination.ChatID)

	ps, err := mapPollSchedule(cfg)
	require.NoError(t, err)
	assert.Equal(t, pollSchedule{Every: time.Minute}, ps)

	nc, err := mapNotifierConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, nc.RetryMax)
	assert.Equal(t, 500*time.Millisecond, nc.RetryBase)
	assert.Equal(t, 10*time.Second, nc.SendTimeout)

	_, enabled, err := mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestMappingOverrides(t *testing.T) {
	t.Parallel()

	off := false
	cfg := baseConfig()
	cfg.Telegram.GroupLog = "-200:7"
	cfg.CSFloat = config.CSFloatConfig{BaseURL: " " + csfloat.DefaultBaseURL + " ", Timeout: "5s", RatePerSec: -1}
	cfg.Tracker = config.TrackerConfig{Interval: "30s", JitterMax: "0s", TaskTimeout: "45s", PrimeOnTrack: &off}
	cfg.Storage = config.StorageConfig{Driver: "SQLite"}

	lc := mapLogConfig(cfg)
	assert.Equal(t, int64(-200), lc.Telegram.ChatID)
	assert.Equal(t, 7, lc.Telegram.ThreadID)

	cc, _ := mapCSFloatConfig(cfg)
	assert.Equal(t, csfloat.DefaultBaseURL, cc.BaseURL)
	assert.Equal(t, -1, cc.RatePerSec)

	ps, _ := mapPollSchedule(cfg)
	assert.Equal(t, pollSchedule{Every: 30 * time.Second, Timeout: 45 * time.Second}, ps)

	to, _ := mapTrackerOptions(cfg)
	assert.Zero(t, to.JitterMax)
	assert.False(t, to.PrimeOnTrack)

	sc, enabled, err := mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, "./floatwatch.db", sc.Path)
	assert.Equal(t, time.Second, sc.BusyTimeout)
}

func TestValidateMappedRejects(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Tracker.Interval = "100ms"
	cfg.Notifier = config.NotifierConfig{RetryBase: "5s", RetryMaxDelay: "1s"}
	cfg.Storage.Driver = "badger"

	err := validateMapped(cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "tracker.interval")
	assert.ErrorContains(t, err, "retry_max_delay")
	assert.ErrorContains(t, err, "storage.driver")
}
