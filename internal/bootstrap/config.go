// Package bootstrap loads configuration and wires the application together.
package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the app reads from the environment.
type Config struct {
	AppEnv     string // development or production
	LogLevel   string
	ServerPort string

	DBDriver   string // sqlite (default) or mysql
	DBPath     string // sqlite file
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	SessionSecret      string
	SessionExpiryHours int

	SnapshotPath  string
	TemplatesGlob string

	RateLimitMax    int
	RateLimitWindow time.Duration
}

// LoadConfig reads the environment, preferring a .env file when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:     os.Getenv("APP_ENV"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		ServerPort: os.Getenv("SERVER_PORT"),

		DBDriver:   os.Getenv("DB_DRIVER"),
		DBPath:     os.Getenv("DB_PATH"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:     os.Getenv("REDIS_KEY_PREFIX"),

		SessionSecret: os.Getenv("SESSION_SECRET"),

		SnapshotPath:  os.Getenv("SNAPSHOT_PATH"),
		TemplatesGlob: os.Getenv("TEMPLATES_GLOB"),

		RateLimitMax:    100,
		RateLimitWindow: time.Second,
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	cfg.SessionExpiryHours, _ = strconv.Atoi(os.Getenv("SESSION_EXPIRY_HOURS"))

	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/chatroom.db"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chat:"
	}
	if cfg.SessionExpiryHours <= 0 {
		cfg.SessionExpiryHours = 24
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = "data/users.json"
	}
	if cfg.TemplatesGlob == "" {
		cfg.TemplatesGlob = "web/templates/*.html"
	}

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("environment variable SESSION_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
