// Package config holds runtime configuration: infrastructure settings read
// from environment variables and the user-adjustable trading thresholds
// loaded from a YAML file.
package config

import (
	"os"
	"strings"
)

// Config holds infrastructure configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Notification
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string

	// Trading thresholds file (YAML). Empty = built-in defaults.
	TradingConfigPath string

	// Symbols the live engine evaluates
	Symbols string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/market.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8081"),

		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		TradingConfigPath: getEnv("TRADING_CONFIG", ""),

		Symbols: getEnv("SYMBOLS", "BTCUSDT,ETHUSDT"),
	}
}

// ParseSymbols splits the Symbols value into a clean slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	syms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		syms = append(syms, p)
	}
	return syms
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
