package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Registration trigger strategies.
const (
	TriggerMention = "mention" // register when the bot is mentioned in a group
	TriggerCommand = "command" // register via the /register command
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken       string
	DatabaseURL         string
	AllowedMasterIDs    []int64 // supervisors allowed to register chats
	Timezone            string
	Location            *time.Location
	LogLevel            string
	Environment         string
	RegistrationTrigger string
	StrictCallbacks     bool // reject button presses that don't match the expected question
}

// IsAllowedMaster reports whether the given Telegram user is on the
// configured master allow-list.
func (c *AppConfig) IsAllowedMaster(userID int64) bool {
	for _, id := range c.AllowedMasterIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	mastersStr := os.Getenv("ALLOWED_MASTER_IDS")
	if strings.TrimSpace(mastersStr) == "" {
		return nil, fmt.Errorf("ALLOWED_MASTER_IDS is not set")
	}
	cfg.AllowedMasterIDs, err = parseMasterIDs(mastersStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_MASTER_IDS: %w", err)
	}

	cfg.Timezone = os.Getenv("TIMEZONE")
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Kolkata" // Default timezone for fire times
	}
	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.RegistrationTrigger = strings.ToLower(os.Getenv("REGISTRATION_TRIGGER"))
	if cfg.RegistrationTrigger == "" {
		cfg.RegistrationTrigger = TriggerMention // Default: mention in a group registers it
	}
	if cfg.RegistrationTrigger != TriggerMention && cfg.RegistrationTrigger != TriggerCommand {
		return nil, fmt.Errorf("invalid REGISTRATION_TRIGGER %q: must be %q or %q",
			cfg.RegistrationTrigger, TriggerMention, TriggerCommand)
	}

	cfg.StrictCallbacks = true // Default: stale button presses are rejected
	if strictStr := os.Getenv("STRICT_CALLBACKS"); strictStr != "" {
		cfg.StrictCallbacks, err = strconv.ParseBool(strictStr)
		if err != nil {
			return nil, fmt.Errorf("invalid STRICT_CALLBACKS: %w", err)
		}
	}

	return cfg, nil
}

func parseMasterIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("master ID %q is not a number", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no master IDs found")
	}
	return ids, nil
}
