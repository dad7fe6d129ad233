package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	StorageDriver           string   `mapstructure:"STORAGE_DRIVER"` // "postgres" or "memory"
	DatabaseURL             string   `mapstructure:"DATABASE_URL"`
	MaxRetries              int      `mapstructure:"MAX_RETRIES"`
	DeliveryBackoffBaseMs   int      `mapstructure:"DELIVERY_BACKOFF_BASE_DELAY_MS"`
	RedeliveryBackoffMs     int      `mapstructure:"REDELIVERY_BACKOFF_BASE_DELAY_MS"`
	ConsumerMaxRedeliveries int      `mapstructure:"CONSUMER_MAX_REDELIVERIES"`
	HTTPServerAddress       string   `mapstructure:"HTTP_SERVER_ADDRESS"`
	KafkaBrokers            []string `mapstructure:"KAFKA_BROKERS"`
	KafkaCommandTopic       string   `mapstructure:"KAFKA_COMMAND_TOPIC"`
	KafkaGroupID            string   `mapstructure:"KAFKA_GROUP_ID"`
	KafkaDLQTopic           string   `mapstructure:"KAFKA_DLQ_TOPIC"`
	KafkaEventTopic         string   `mapstructure:"KAFKA_EVENT_TOPIC"`
	EmailDriver             string   `mapstructure:"EMAIL_DRIVER"`
	EmailHost               string   `mapstructure:"EMAIL_HOST"`
	EmailPort               int      `mapstructure:"EMAIL_PORT"`
	EmailUsername           string   `mapstructure:"EMAIL_USERNAME"`
	EmailPassword           string   `mapstructure:"EMAIL_PASSWORD"`
	EmailFromAddress        string   `mapstructure:"EMAIL_FROM_ADDRESS"`
	EmailFromName           string   `mapstructure:"EMAIL_FROM_NAME"`
	ServiceDisplayName      string   `mapstructure:"SERVICE_DISPLAY_NAME"`
	VerificationLinkBase    string   `mapstructure:"VERIFICATION_LINK_BASE"`
	PasswordResetLinkBase   string   `mapstructure:"PASSWORD_RESET_LINK_BASE"`
	MetricsServerAddress    string   `mapstructure:"METRICS_SERVER_ADDRESS"`
	OtelEndpoint            string   `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelInsecure            bool     `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OtelServiceName         string   `mapstructure:"OTEL_SERVICE_NAME"`}

// EmailConf groups the SMTP settings consumed by the email provider.
type EmailConf struct {
	Driver      string
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

var cfg *Config

func NewConfig(path string) (*Config, error) {
	relativeUrl, err := GetBasePath(path)
	if err != nil {
		return nil, fmt.Errorf("error getting base path: %v", err)
	}

	vip := viper.New()
	vip.SetConfigType("env")
	vip.SetConfigName(".env")
	vip.AddConfigPath(relativeUrl)
	vip.AutomaticEnv()

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	vip.BindEnv("STORAGE_DRIVER")
	vip.BindEnv("DATABASE_URL")
	vip.BindEnv("MAX_RETRIES")
	vip.BindEnv("DELIVERY_BACKOFF_BASE_DELAY_MS")
	vip.BindEnv("REDELIVERY_BACKOFF_BASE_DELAY_MS")
	vip.BindEnv("CONSUMER_MAX_REDELIVERIES")
	vip.BindEnv("HTTP_SERVER_ADDRESS")
	vip.BindEnv("KAFKA_BROKERS")
	vip.BindEnv("KAFKA_COMMAND_TOPIC")
	vip.BindEnv("KAFKA_GROUP_ID")
	vip.BindEnv("KAFKA_DLQ_TOPIC")
	vip.BindEnv("KAFKA_EVENT_TOPIC")
	vip.BindEnv("EMAIL_DRIVER")
	vip.BindEnv("EMAIL_HOST")
	vip.BindEnv("EMAIL_PORT")
	vip.BindEnv("EMAIL_USERNAME")
	vip.BindEnv("EMAIL_PASSWORD")
	vip.BindEnv("EMAIL_FROM_ADDRESS")
	vip.BindEnv("EMAIL_FROM_NAME")
	vip.BindEnv("SERVICE_DISPLAY_NAME")
	vip.BindEnv("VERIFICATION_LINK_BASE")
	vip.BindEnv("PASSWORD_RESET_LINK_BASE")
	vip.BindEnv("METRICS_SERVER_ADDRESS")
	vip.BindEnv("OTEL_EXPORTER_OTLP_ENDPOINT")
	vip.BindEnv("OTEL_EXPORTER_OTLP_INSECURE")
	vip.BindEnv("OTEL_SERVICE_NAME")

	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %v", err)
	}

	if !vip.IsSet("otel_exporter_otlp_insecure") {
		cfg.OtelInsecure = false
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = "postgres"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.OtelServiceName == "" {
		cfg.OtelServiceName = "notification-service"
	}
	if cfg.ServiceDisplayName == "" {
		cfg.ServiceDisplayName = "Chadland"
	}

	return cfg, nil
}

func GetBasePath(path string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return filepath.Join(cwd, path), nil
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			return "", errors.New("go.mod not found")
		}
		cwd = parent
	}
}

func GetConfig() *Config {
	return cfg
}

func GetEmailConf() *EmailConf {
	if cfg == nil {
		return &EmailConf{}
	}

	return &EmailConf{
		Driver:      cfg.EmailDriver,
		Host:        cfg.EmailHost,
		Port:        cfg.EmailPort,
		Username:    cfg.EmailUsername,
		Password:    cfg.EmailPassword,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
	}
}

// SetTestConfig allows tests to set the global config variable directly.
func SetTestConfig(testCfg *Config) {
	cfg = testCfg
}
