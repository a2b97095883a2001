package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{name: "zero config", config: Config{}},
		{name: "bounded", config: Config{MaxEntries: 100, MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute}},
		{name: "known strategy", config: Config{Strategy: StrategyPriority}},
		{name: "negative entries", config: Config{MaxEntries: -1}, expectError: true},
		{name: "negative size", config: Config{MaxSizeBytes: -1}, expectError: true},
		{name: "negative ttl", config: Config{DefaultTTL: -time.Second}, expectError: true},
		{name: "unknown strategy", config: Config{Strategy: "mru"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	config := Config{}
	config.SetDefaults()
	assert.Equal(t, StrategyLRU, config.Strategy)

	config = Config{Strategy: StrategyFIFO}
	config.SetDefaults()
	assert.Equal(t, StrategyFIFO, config.Strategy)
}

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		expired bool
	}{
		{
			name:  "no ttl never expires",
			entry: Entry{CreatedAt: time.Now().Add(-24 * time.Hour)},
		},
		{
			name:  "within ttl",
			entry: Entry{CreatedAt: time.Now(), TTL: time.Hour},
		},
		{
			name:    "past ttl",
			entry:   Entry{CreatedAt: time.Now().Add(-2 * time.Hour), TTL: time.Hour},
			expired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.entry.IsExpired())
		})
	}
}

func TestEntrySize(t *testing.T) {
	assert.Equal(t, int64(8), entrySize("key", []byte("value")))
	assert.Equal(t, int64(3), entrySize("key", nil))
}
