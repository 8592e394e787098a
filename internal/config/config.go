package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// PlaceholderToken is the value shipped in sample configs; the bot refuses to run with it.
	PlaceholderToken = "PUT_YOUR_TOKEN_HERE"

	// NoAdmin disables every admin-only command.
	NoAdmin int64 = 0

	DefaultFreeDailyLimit         = 3
	DefaultMaxFileSizeBytes int64 = 50 * 1024 * 1024
	DefaultMaxDownloads           = 2
	DefaultDownloadFormat         = "best"
	DefaultDataDir                = "./data"
	DefaultLogDir                 = "logs"

	DefaultBuyText = `💎 To become Premium:
1) Pay ₹99 to UPI: your-upi@bank
2) After payment, contact admin.
Admin will add you using /add_premium <user_id>.`
)

type Config struct {
	TelegramBotToken string
	AdminUserID      int64
	FreeDailyLimit   int
	MaxFileSizeBytes int64

	DataDir    string
	ScratchDir string

	MaxConcurrentDownloads int
	DownloadFormat         string
	YTDLPAutoInstall       bool

	BuyText string

	// Optional document store backend; file store is used when empty
	PostgreDSN string

	// Optional Prometheus listener, e.g. ":9090"
	MetricsAddr string

	LogLevel string
	LogDir   string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		TelegramBotToken: firstEnv(PlaceholderToken, "TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"),
		DataDir:          getEnvOrDefault("DATA_DIR", DefaultDataDir),
		ScratchDir:       getEnvOrDefault("TMP_DIR", filepath.Join(os.TempDir(), "tg_downloader")),
		DownloadFormat:   getEnvOrDefault("DOWNLOAD_FORMAT", DefaultDownloadFormat),
		BuyText:          getEnvOrDefault("BUY_TEXT", DefaultBuyText),
		PostgreDSN:       os.Getenv("POSTGRE_DSN"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogDir:           getEnvOrDefault("LOG_DIR", DefaultLogDir),
	}

	var err error
	if cfg.AdminUserID, err = getEnvInt64("ADMIN_USER_ID", NoAdmin); err != nil {
		return nil, err
	}
	if cfg.FreeDailyLimit, err = getEnvInt("FREE_DAILY_LIMIT", DefaultFreeDailyLimit); err != nil {
		return nil, err
	}
	if cfg.MaxFileSizeBytes, err = getEnvInt64("MAX_FILESIZE_BYTES", DefaultMaxFileSizeBytes); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentDownloads, err = getEnvInt("MAX_CONCURRENT_DOWNLOADS", DefaultMaxDownloads); err != nil {
		return nil, err
	}
	if cfg.YTDLPAutoInstall, err = getEnvBool("YTDLP_AUTO_INSTALL", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("required environment variable TELEGRAM_TOKEN is not set")
	}
	if c.FreeDailyLimit < 0 {
		return fmt.Errorf("FREE_DAILY_LIMIT must not be negative, got %d", c.FreeDailyLimit)
	}
	if c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("MAX_FILESIZE_BYTES must be positive, got %d", c.MaxFileSizeBytes)
	}
	if c.MaxConcurrentDownloads < 1 {
		return fmt.Errorf("MAX_CONCURRENT_DOWNLOADS must be at least 1, got %d", c.MaxConcurrentDownloads)
	}
	if c.DataDir == "" || c.ScratchDir == "" {
		return fmt.Errorf("DATA_DIR and TMP_DIR must not be empty")
	}
	return nil
}

// IsPlaceholderToken reports whether the bot token was never configured.
func (c *Config) IsPlaceholderToken() bool {
	return strings.TrimSpace(c.TelegramBotToken) == PlaceholderToken
}

func (c *Config) HasAdmin() bool {
	return c.AdminUserID != NoAdmin
}

// IsAdmin reports whether userID may run admin commands. With no admin configured nobody can.
func (c *Config) IsAdmin(userID int64) bool {
	return c.HasAdmin() && userID == c.AdminUserID
}

func (c *Config) HasDatabaseConfig() bool {
	return c.PostgreDSN != ""
}

func (c *Config) HasMetricsConfig() bool {
	return c.MetricsAddr != ""
}

// getEnvOrDefault returns the environment variable value or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the first non-empty variable among keys
func firstEnv(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}
