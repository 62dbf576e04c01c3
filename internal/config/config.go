package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	BotToken      string
	AdminUsername string

	// Game server
	ServerBaseURL string
	BotAPIKey     string

	// Admin chat binding
	AdminStatePath string

	// Health check
	HealthPort int

	// Notifications
	NotifyInterval time.Duration
}

func Load() *Config {
	return &Config{
		// Telegram
		BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminUsername: NormalizeUsername(getEnv("BOT_ADMIN_USERNAME", "")),

		// Game server
		ServerBaseURL: strings.TrimSuffix(getEnv("SERVER_BASE_URL", "http://127.0.0.1:3001"), "/"),
		BotAPIKey:     getEnv("BOT_API_KEY", ""),

		// Admin chat binding
		AdminStatePath: getEnv("ADMIN_STATE_PATH", "./bot_admin_state.json"),

		// Health check
		HealthPort: getEnvInt("PORT", 0),

		// Notifications
		NotifyInterval: getEnvDuration("NOTIFY_INTERVAL", 5*time.Second),
	}
}

// NormalizeUsername lowercases a telegram handle and strips a leading @.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
