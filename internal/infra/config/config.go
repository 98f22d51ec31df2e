package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"
	_ "time/tzdata" // REMINDER_TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken      string
	DatabaseURL        string // Checked on first store use, see database.Session
	AdminTelegramID    int64
	LogLevel           string
	Environment        string
	IntroductionChatID int64 // Chat whose messages are recorded as introductions
	CommunityChatID    int64 // Main group: member tracking, presence lookups, reminders

	ReportCooldown   time.Duration
	ReportListLimit  int
	DBMinConns       int
	DBMaxConns       int
	DBCommandTimeout time.Duration

	CronSpecDailyReminder string
	ReminderLocation      *time.Location
	ReminderMaxMentions   int
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}
	var err error

	if cfg.AdminTelegramID, err = getInt64("ADMIN_TELEGRAM_ID", 0); err != nil {
		return nil, err
	}
	if cfg.IntroductionChatID, err = getInt64("INTRODUCTION_CHAT_ID", 0); err != nil {
		return nil, err
	}
	if cfg.CommunityChatID, err = getInt64("COMMUNITY_CHAT_ID", 0); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cooldownSeconds, err := getInt("REPORT_COOLDOWN_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	cfg.ReportCooldown = time.Duration(cooldownSeconds) * time.Second

	if cfg.ReportListLimit, err = getInt("REPORT_LIST_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.DBMinConns, err = getInt("DB_MIN_CONNS", 1); err != nil {
		return nil, err
	}
	if cfg.DBMaxConns, err = getInt("DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}
	timeoutSeconds, err := getInt("DB_COMMAND_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.DBCommandTimeout = time.Duration(timeoutSeconds) * time.Second

	cfg.CronSpecDailyReminder = os.Getenv("CRON_SPEC_DAILY_REMINDER")
	if cfg.CronSpecDailyReminder == "" {
		cfg.CronSpecDailyReminder = "0 10 * * *" // Default: 10:00 AM daily
	}

	tz := os.Getenv("REMINDER_TIMEZONE")
	if tz == "" {
		tz = "Asia/Tokyo"
	}
	if cfg.ReminderLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE: %w", err)
	}

	if cfg.ReminderMaxMentions, err = getInt("REMINDER_MAX_MENTIONS", 10); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.ReportCooldown < 0 {
		return fmt.Errorf("REPORT_COOLDOWN_SECONDS must not be negative")
	}
	if c.ReportListLimit <= 0 {
		return fmt.Errorf("REPORT_LIST_LIMIT must be positive")
	}
	if c.DBMinConns < 1 {
		return fmt.Errorf("DB_MIN_CONNS must be at least 1")
	}
	if c.DBMaxConns < 2 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 2, the reminder lock holds one connection while the reminder queries run")
	}
	if c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must not be lower than DB_MIN_CONNS (%d)", c.DBMaxConns, c.DBMinConns)
	}
	if c.DBCommandTimeout <= 0 {
		return fmt.Errorf("DB_COMMAND_TIMEOUT_SECONDS must be positive")
	}
	if c.ReminderMaxMentions <= 0 {
		return fmt.Errorf("REMINDER_MAX_MENTIONS must be positive")
	}
	return nil
}

// RequireBot checks the settings only the long-running bot needs.
func (c *AppConfig) RequireBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	if c.AdminTelegramID == 0 {
		return fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	if c.CommunityChatID == 0 {
		return fmt.Errorf("COMMUNITY_CHAT_ID is not set")
	}
	return nil
}

func getInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getInt64(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
