package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	for _, key := range []string{"GAME_BOT_ID", "DATABASE_PATH", "SCHEDULER_INTERVAL_SECONDS", "GROUP_STALE_SECONDS", "SEND_RATE_PER_SECOND", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT", "REMOVE_COMMANDS_ON_SHUTDOWN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EpicRPGBotID, cfg.GameBotID)
	assert.Equal(t, 5*time.Second, cfg.SchedulerInterval)
	assert.Equal(t, 5*time.Minute, cfg.GroupStaleAfter)
	assert.Equal(t, 5.0, cfg.SendRatePerSecond)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.False(t, cfg.RemoveCommandsOnShutdown)
}

func TestLoad_RemoveCommandsOnShutdown(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("REMOVE_COMMANDS_ON_SHUTDOWN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.RemoveCommandsOnShutdown)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing token", map[string]string{"DISCORD_BOT_TOKEN": ""}},
		{"bad interval", map[string]string{"SCHEDULER_INTERVAL_SECONDS": "soon"}},
		{"zero interval", map[string]string{"SCHEDULER_INTERVAL_SECONDS": "0"}},
		{"bad stale window", map[string]string{"GROUP_STALE_SECONDS": "-1"}},
		{"bad rate", map[string]string{"SEND_RATE_PER_SECOND": "fast"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"bad remove commands flag", map[string]string{"REMOVE_COMMANDS_ON_SHUTDOWN": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DISCORD_BOT_TOKEN", "token")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
