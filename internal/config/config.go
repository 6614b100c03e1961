package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string         // DB_DSN (пусто = хранилище в памяти)
	Environment   string         // ENV (default "development")
	HTTPAddr      string         // HTTP_ADDR (default ":8080")
	NATSURL       string         // NATS_URL (пусто = события только внутри процесса)
	TelegramToken string         // TELEGRAM_TOKEN (пусто = без уведомлений в Telegram)
	MigrationsDir string         // MIGRATIONS_DIR (пусто = встроенные миграции)
	Location      *time.Location // TIMEZONE (default "UTC")
	JoinTimeout   time.Duration  // JOIN_TIMEOUT (default 5s)
	SweepInterval time.Duration  // SWEEP_INTERVAL (default 1m, 0 = выключено)
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения без .env
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		Environment:   envOrDefault("ENV", "development"),
		HTTPAddr:      envOrDefault("HTTP_ADDR", ":8080"),
		NATSURL:       os.Getenv("NATS_URL"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),
	}

	loc, err := time.LoadLocation(envOrDefault("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.JoinTimeout, err = envDuration("JOIN_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.JoinTimeout <= 0 {
		return nil, fmt.Errorf("JOIN_TIMEOUT must be positive")
	}
	if cfg.SweepInterval, err = envDuration("SWEEP_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction включает JSON логи
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
