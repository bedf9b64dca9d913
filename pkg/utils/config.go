package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	Events   EventsConfig
	Worker   WorkerConfig
}

type AppConfig struct {
	Name          string
	Port          string
	Debug         bool
	LogPath       string
	FrontendURL   string
	PublicBaseURL string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PaymentConfig struct {
	Driver          string
	BaseURL         string
	ClientID        string
	ClientSecret    string
	WebhookSecret   string
	Currency        string
	Timeout         time.Duration
	OmisePublicKey  string
	OmiseSecretKey  string
	OmiseSourceType string
}

type EventsConfig struct {
	Driver       string
	AMQPURL      string
	AMQPExchange string
	KafkaBrokers []string
	KafkaTopic   string
}

type WorkerConfig struct {
	SweepInterval  time.Duration
	SweepRetention time.Duration
	PollInterval   time.Duration
	PollMinAge     time.Duration
}

// LoadConfig reads path (a .env file) when it exists, then overlays the process environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "scrim-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PAYMENT_DRIVER", "rest")
	v.SetDefault("PAYMENT_CURRENCY", "INR")
	v.SetDefault("PAYMENT_TIMEOUT", "15s")
	v.SetDefault("OMISE_SOURCE_TYPE", "promptpay")
	v.SetDefault("EVENTS_DRIVER", "none")
	v.SetDefault("AMQP_EXCHANGE", "scrim.events")
	v.SetDefault("KAFKA_TOPIC", "scrim-events")
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("SWEEP_RETENTION", "168h")
	v.SetDefault("POLL_INTERVAL", "1m")
	v.SetDefault("POLL_MIN_AGE", "2m")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:          v.GetString("APP_NAME"),
			Port:          v.GetString("PORT"),
			Debug:         v.GetBool("DEBUG"),
			LogPath:       v.GetString("LOG_PATH"),
			FrontendURL:   strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
			PublicBaseURL: strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Payment: PaymentConfig{
			Driver:          v.GetString("PAYMENT_DRIVER"),
			BaseURL:         strings.TrimRight(v.GetString("PAYMENT_BASE_URL"), "/"),
			ClientID:        v.GetString("PAYMENT_CLIENT_ID"),
			ClientSecret:    v.GetString("PAYMENT_CLIENT_SECRET"),
			WebhookSecret:   v.GetString("PAYMENT_WEBHOOK_SECRET"),
			Currency:        v.GetString("PAYMENT_CURRENCY"),
			Timeout:         v.GetDuration("PAYMENT_TIMEOUT"),
			OmisePublicKey:  v.GetString("OMISE_PUBLIC_KEY"),
			OmiseSecretKey:  v.GetString("OMISE_SECRET_KEY"),
			OmiseSourceType: v.GetString("OMISE_SOURCE_TYPE"),
		},
		Events: EventsConfig{
			Driver:       v.GetString("EVENTS_DRIVER"),
			AMQPURL:      v.GetString("AMQP_URL"),
			AMQPExchange: v.GetString("AMQP_EXCHANGE"),
			KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
			KafkaTopic:   v.GetString("KAFKA_TOPIC"),
		},
		Worker: WorkerConfig{
			SweepInterval:  v.GetDuration("SWEEP_INTERVAL"),
			SweepRetention: v.GetDuration("SWEEP_RETENTION"),
			PollInterval:   v.GetDuration("POLL_INTERVAL"),
			PollMinAge:     v.GetDuration("POLL_MIN_AGE"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate rejects durations that would panic a ticker or disable a timeout.
func (c *Config) validate() error {
	positive := map[string]time.Duration{
		"PAYMENT_TIMEOUT": c.Payment.Timeout,
		"SWEEP_INTERVAL":  c.Worker.SweepInterval,
		"SWEEP_RETENTION": c.Worker.SweepRetention,
		"POLL_INTERVAL":   c.Worker.PollInterval,
	}
	for key, d := range positive {
		if d <= 0 {
			return fmt.Errorf("config %s must be positive, got %s", key, d)
		}
	}
	if c.Worker.PollMinAge < 0 {
		return fmt.Errorf("config POLL_MIN_AGE must not be negative, got %s", c.Worker.PollMinAge)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
