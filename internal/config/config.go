package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	DatabaseURL      string
	JWTSecret        string
	AllowOrigins     []string
	LogstashTCPAddr  string
	SessionTTL       string
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	WhatsAppAPIURL   string
	WhatsAppAPIToken string
	WhatsAppSender   string
	PasswordResetTTL time.Duration
	ResetRateLimit   int
	ResetRateWindow  time.Duration
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	resetTTL := 10 * time.Minute
	if v, err := time.ParseDuration(getenv("PASSWORD_RESET_TTL", "10m")); err == nil && v > 0 {
		resetTTL = v
	}

	rateLimit := 5
	if v, err := strconv.Atoi(getenv("RESET_RATE_LIMIT", "5")); err == nil && v > 0 {
		rateLimit = v
	}

	rateWindow := time.Minute
	if v, err := time.ParseDuration(getenv("RESET_RATE_WINDOW", "1m")); err == nil && v > 0 {
		rateWindow = v
	}

	return Config{
		Port:             getenv("PORT", "8080"),
		Env:              getenv("APP_ENV", "development"),
		DatabaseURL:      must("DATABASE_URL"),
		JWTSecret:        must("JWT_SECRET"),
		AllowOrigins:     splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr:  getenv("LOGSTASH_TCP_ADDR", ""),
		SessionTTL:       getenv("SESSION_TTL", "24h"),
		SMTPHost:         getenv("SMTP_HOST", ""),
		SMTPPort:         getenv("SMTP_PORT", ""),
		SMTPUsername:     getenv("SMTP_USERNAME", ""),
		SMTPPassword:     getenv("SMTP_PASSWORD", ""),
		SMTPFrom:         getenv("SMTP_FROM", ""),
		WhatsAppAPIURL:   getenv("WHATSAPP_API_URL", ""),
		WhatsAppAPIToken: getenv("WHATSAPP_API_TOKEN", ""),
		WhatsAppSender:   getenv("WHATSAPP_SENDER", ""),
		PasswordResetTTL: resetTTL,
		ResetRateLimit:   rateLimit,
		ResetRateWindow:  rateWindow,
	}
}

// IsProduction gates diagnostic behavior such as echoing reset codes back in
// API responses.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
