package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogFile  string
	AppURL   string
	Database string

	AuthSecret     string
	CronSecret     string
	ExternalAPIKey string

	AllowedOrigins  []string
	AllowAllOrigins bool

	BaseCurrency string
	RatesAPIKey  string
	RatesAPIURL  string
	RatesTTL     time.Duration

	ResendAPIKey string
	MailFrom     string

	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	RedisAddr string
	RedisPW   string
	RedisDB   string
}

// Load reads an optional .env file then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	ttl := time.Hour
	if v := os.Getenv("RATES_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("RATES_TTL is invalid: %w", err)
		}
		ttl = d
	}

	return &Config{
		Port:     env("PORT", "8081"),
		LogFile:  env("LOG_FILE", "app.error_logger"),
		AppURL:   env("APP_URL", "http://localhost:3000"),
		Database: os.Getenv("DATABASE_URL"),

		AuthSecret:     os.Getenv("AUTH_SECRET"),
		CronSecret:     os.Getenv("CRON_SECRET"),
		ExternalAPIKey: os.Getenv("EXTERNAL_API_KEY"),

		AllowedOrigins:  list(os.Getenv("ALLOWED_ORIGINS")),
		AllowAllOrigins: os.Getenv("ALLOW_ALL_ORIGINS") == "true",

		BaseCurrency: strings.ToUpper(env("BASE_CURRENCY", "MDL")),
		RatesAPIKey:  os.Getenv("EXCHANGE_RATE_API_KEY"),
		RatesAPIURL:  env("RATES_API_URL", "https://v6.exchangerate-api.com/v6"),
		RatesTTL:     ttl,

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		MailFrom:     env("MAIL_FROM", "Investments <notifications@example.com>"),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    env("S3_REGION", "eu-central-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPW:   os.Getenv("REDIS_PW"),
		RedisDB:   os.Getenv("REDIS_DB"),
	}, nil
}

// Require returns an error naming every empty variable.
func (c *Config) Require(names ...string) error {
	values := map[string]string{
		"DATABASE_URL":     c.Database,
		"AUTH_SECRET":      c.AuthSecret,
		"CRON_SECRET":      c.CronSecret,
		"EXTERNAL_API_KEY": c.ExternalAPIKey,
		"RESEND_API_KEY":   c.ResendAPIKey,
		"S3_BUCKET":        c.S3Bucket,
	}
	var missing []string
	for _, n := range names {
		if values[n] == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s environment variable not set", strings.Join(missing, ", "))
	}
	return nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func list(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
