package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	defaultPort               = "8002"
	defaultBodyLimitMB        = 20
	defaultRetentionDays      = 30
	defaultMerchantName       = "FreshCart"
	defaultRedisAddr          = "localhost:6379"
	defaultCloudinaryFolder   = "grocery"
	defaultSMTPPort           = 587
	defaultCORSOrigins        = "http://localhost:5173"
	defaultDBPort             = 5432
	defaultNotificationPrefix = "notifications"
	defaultPurgeCron          = "15 3 * * *"
	defaultLogLevel           = "info"
)

// Config looks up a single key from the environment, loading .env on first use.
func Config(key string) string {
	loadDotEnv()
	return os.Getenv(key)
}

var dotEnvLoaded bool

func loadDotEnv() {
	if dotEnvLoaded {
		return
	}
	dotEnvLoaded = true
	// .env is optional; real deployments inject variables directly.
	_ = godotenv.Load(".env")
}

// Settings is the typed view of the environment used to wire the application.
type Settings struct {
	Port        string
	BodyLimitMB int
	CORSOrigins string
	JWTSecret   string

	Database   DatabaseSettings
	Cloudinary CloudinarySettings
	Redis      RedisSettings
	SMTP       SMTPSettings
	Merchant   MerchantSettings

	NotificationRetention time.Duration
	NotificationChannel   string
	// NotificationPurgeCron is a standard five-field cron expression.
	NotificationPurgeCron string
	LogLevel              string
}

type DatabaseSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// DSN renders the postgres connection string in the form gorm's postgres driver expects.
func (d DatabaseSettings) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

type CloudinarySettings struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

func (c CloudinarySettings) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type RedisSettings struct {
	Addr     string
	Password string
}

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTPSettings) Enabled() bool {
	return s.Host != "" && s.From != ""
}

// MerchantSettings identifies the payee used for manual UPI payments.
type MerchantSettings struct {
	UPIID string
	Name  string
}

// Load reads every setting, applying defaults for optional keys.
func Load() (Settings, error) {
	dbPort, err := intOr("DB_PORT", defaultDBPort)
	if err != nil {
		return Settings{}, err
	}
	smtpPort, err := intOr("SMTP_PORT", defaultSMTPPort)
	if err != nil {
		return Settings{}, err
	}
	bodyLimit, err := intOr("BODY_LIMIT_MB", defaultBodyLimitMB)
	if err != nil {
		return Settings{}, err
	}
	retentionDays, err := intOr("NOTIFICATION_RETENTION_DAYS", defaultRetentionDays)
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		Port:        stringOr("PORT", defaultPort),
		BodyLimitMB: bodyLimit,
		CORSOrigins: stringOr("CORS_ORIGINS", defaultCORSOrigins),
		JWTSecret:   Config("JWT_SECRET"),
		Database: DatabaseSettings{
			Host:     stringOr("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     Config("DB_USER"),
			Password: Config("DB_PASSWORD"),
			Name:     Config("DB_NAME"),
		},
		Cloudinary: CloudinarySettings{
			CloudName: Config("CLOUDINARY_CLOUD_NAME"),
			APIKey:    Config("CLOUDINARY_API_KEY"),
			APISecret: Config("CLOUDINARY_API_SECRET"),
			Folder:    stringOr("CLOUDINARY_FOLDER", defaultCloudinaryFolder),
		},
		Redis: RedisSettings{
			Addr:     stringOr("REDIS_ADDR", defaultRedisAddr),
			Password: Config("REDIS_PASSWORD"),
		},
		SMTP: SMTPSettings{
			Host:     Config("SMTP_HOST"),
			Port:     smtpPort,
			Username: Config("SMTP_USERNAME"),
			Password: Config("SMTP_PASSWORD"),
			From:     Config("SMTP_FROM"),
		},
		Merchant: MerchantSettings{
			UPIID: strings.TrimSpace(Config("MERCHANT_UPI_ID")),
			Name:  stringOr("MERCHANT_NAME", defaultMerchantName),
		},
		NotificationRetention: time.Duration(retentionDays) * 24 * time.Hour,
		NotificationChannel:   stringOr("NOTIFICATION_CHANNEL_PREFIX", defaultNotificationPrefix),
		NotificationPurgeCron: stringOr("NOTIFICATION_PURGE_CRON", defaultPurgeCron),
		LogLevel:              stringOr("LOG_LEVEL", defaultLogLevel),
	}

	if s.JWTSecret == "" {
		return Settings{}, fmt.Errorf("config: JWT_SECRET is required")
	}
	if _, err := cron.ParseStandard(s.NotificationPurgeCron); err != nil {
		return Settings{}, fmt.Errorf("config: NOTIFICATION_PURGE_CRON: %w", err)
	}
	return s, nil
}

func stringOr(key, fallback string) string {
	if v := strings.TrimSpace(Config(key)); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(Config(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number: %w", key, err)
	}
	return v, nil
}
