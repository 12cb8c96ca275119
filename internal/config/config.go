package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rentx-marketplace/service-rental/internal/platform/config"
)

// PaymentConfig holds payment provider credentials.
type PaymentConfig struct {
	KeyID     string
	KeySecret string
}

// NotificationConfig holds email and SMS provider credentials. A channel
// with no API credentials is disabled.
type NotificationConfig struct {
	SendGridAPIKey   string
	FromEmail        string
	FromName         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	FrontendURL      string
}

// ServiceConfig holds all configuration for the rental service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	AllowedOrigins []string
	USDToINRRate   decimal.Decimal
	DBConfig       config.DatabaseConfig
	JWTConfig      config.JWTConfig
	KafkaConfig    config.KafkaConfig
	RedisConfig    config.RedisConfig
	PaymentConfig  PaymentConfig
	NotifyConfig   NotificationConfig
	MigrationsDir  string
}

// Load reads configuration from RENTAL_* environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("RENTAL")
	if err != nil {
		return nil, err
	}
	v.SetDefault("DB_NAME", "rentx")
	v.SetDefault("USD_TO_INR_RATE", "83")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("MAIL_FROM_NAME", "RentX")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")

	rate, err := decimal.NewFromString(v.GetString("USD_TO_INR_RATE"))
	if err != nil || !rate.IsPositive() {
		return nil, fmt.Errorf("invalid USD_TO_INR_RATE %q", v.GetString("USD_TO_INR_RATE"))
	}

	jwtCfg := config.LoadJWTConfig(v)
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("RENTAL_JWT_SECRET is required")
	}

	var origins []string
	for _, o := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &ServiceConfig{
		Port:           config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:         config.GetAppEnv(v),
		AllowedOrigins: origins,
		USDToINRRate:   rate,
		DBConfig:       config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:      jwtCfg,
		KafkaConfig:    config.LoadKafkaConfig(v),
		RedisConfig:    config.LoadRedisConfig(v),
		PaymentConfig: PaymentConfig{
			KeyID:     v.GetString("RAZORPAY_KEY_ID"),
			KeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
		},
		NotifyConfig: NotificationConfig{
			SendGridAPIKey:   v.GetString("SENDGRID_API_KEY"),
			FromEmail:        v.GetString("MAIL_FROM_ADDRESS"),
			FromName:         v.GetString("MAIL_FROM_NAME"),
			TwilioAccountSID: v.GetString("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  v.GetString("TWILIO_AUTH_TOKEN"),
			TwilioFromNumber: v.GetString("TWILIO_PHONE_NUMBER"),
			FrontendURL:      v.GetString("FRONTEND_URL"),
		},
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
	}, nil
}
