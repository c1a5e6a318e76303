package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EpicRPGBotID is the user id of the Epic RPG game bot
const EpicRPGBotID = "555955826880413696"

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken string
	GameBotID    string

	// Delete the global slash commands on shutdown
	RemoveCommandsOnShutdown bool

	// Database
	DatabasePath string

	// Scheduler
	SchedulerInterval time.Duration
	GroupStaleAfter   time.Duration
	SendRatePerSecond float64

	// Metrics, disabled when empty
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken: os.Getenv("DISCORD_BOT_TOKEN"),
		GameBotID:    getEnvOrDefault("GAME_BOT_ID", EpicRPGBotID),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", "./data/reminder.db"),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:    getEnvOrDefault("LOG_FORMAT", "console"),
	}

	interval, err := strconv.Atoi(getEnvOrDefault("SCHEDULER_INTERVAL_SECONDS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL_SECONDS: %w", err)
	}
	cfg.SchedulerInterval = time.Duration(interval) * time.Second

	stale, err := strconv.Atoi(getEnvOrDefault("GROUP_STALE_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid GROUP_STALE_SECONDS: %w", err)
	}
	cfg.GroupStaleAfter = time.Duration(stale) * time.Second

	cfg.SendRatePerSecond, err = strconv.ParseFloat(getEnvOrDefault("SEND_RATE_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_RATE_PER_SECOND: %w", err)
	}

	cfg.RemoveCommandsOnShutdown, err = strconv.ParseBool(getEnvOrDefault("REMOVE_COMMANDS_ON_SHUTDOWN", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMOVE_COMMANDS_ON_SHUTDOWN: %w", err)
	}

	// Validate required fields
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if cfg.SchedulerInterval <= 0 {
		return nil, fmt.Errorf("SCHEDULER_INTERVAL_SECONDS must be positive")
	}
	if cfg.GroupStaleAfter <= 0 {
		return nil, fmt.Errorf("GROUP_STALE_SECONDS must be positive")
	}
	if cfg.SendRatePerSecond <= 0 {
		return nil, fmt.Errorf("SEND_RATE_PER_SECOND must be positive")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
