// Package config loads runtime configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/congo-pay/onboarding/internal/otp"
)

const envDevelopment = "development"

// Config captures application runtime configuration.
type Config struct {
	AppName        string        `mapstructure:"APP_NAME"`
	AppEnv         string        `mapstructure:"APP_ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	ShutdownPeriod time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	IdempotencyTTL time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	MigrateOnStart bool          `mapstructure:"MIGRATE_ON_START"`

	// CredentialPepper is mixed into every password, PIN and issued secret hash.
	CredentialPepper string `mapstructure:"CREDENTIAL_PEPPER"`
	// OTPSecret keys the challenge digest.
	OTPSecret string `mapstructure:"OTP_SECRET"`

	OTPLength            int           `mapstructure:"OTP_LENGTH"`
	OTPExpiry            time.Duration `mapstructure:"OTP_EXPIRY"`
	OTPResendCooldown    time.Duration `mapstructure:"OTP_RESEND_COOLDOWN"`
	OTPWindow            time.Duration `mapstructure:"OTP_WINDOW"`
	OTPMaxInWindow       int64         `mapstructure:"OTP_MAX_IN_WINDOW"`
	OTPDailyLimit        int64         `mapstructure:"OTP_DAILY_LIMIT"`
	OTPVerifyMaxAttempts int           `mapstructure:"OTP_VERIFY_MAX_ATTEMPTS"`
	OTPVerifyWindow      time.Duration `mapstructure:"OTP_VERIFY_WINDOW"`
	OTPLockoutTTL        time.Duration `mapstructure:"OTP_LOCKOUT_TTL"`
	OTPStoreTimeout      time.Duration `mapstructure:"OTP_STORE_TIMEOUT"`
	// OTPAtomicRateLimit runs the rate limit checks as one Redis script.
	// Off by default: the plain sequence lets two concurrent requests for one
	// phone both pass before the cooldown is written.
	OTPAtomicRateLimit bool   `mapstructure:"OTP_ATOMIC_RATE_LIMIT"`
	DefaultCountryCode string `mapstructure:"DEFAULT_COUNTRY_CODE"`

	LimitedDailyLimit int64 `mapstructure:"LIMITED_DAILY_LIMIT"`
	RiskMaxOTPRetries int   `mapstructure:"RISK_MAX_OTP_RETRIES"`
	RiskMinAge        int   `mapstructure:"RISK_MIN_AGE"`

	AdminToken            string `mapstructure:"ADMIN_TOKEN"`
	SignupIPMaxPerMinute  int    `mapstructure:"SIGNUP_IP_MAX_PER_MINUTE"`
	KafkaBrokers          string `mapstructure:"KAFKA_BROKERS"`
	OnboardingEventsTopic string `mapstructure:"ONBOARDING_EVENTS_TOPIC"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	SMSQueue              string `mapstructure:"SMS_QUEUE"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
	KYCBucket      string `mapstructure:"KYC_BUCKET"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`
}

var defaults = map[string]any{
	"APP_NAME":                    "CongoPay Onboarding",
	"APP_ENV":                     envDevelopment,
	"PORT":                        "8080",
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "json",
	"DATABASE_URL":                "",
	"REDIS_URL":                   "",
	"SHUTDOWN_TIMEOUT":            "10s",
	"IDEMPOTENCY_TTL":             "24h",
	"MIGRATE_ON_START":            false,
	"CREDENTIAL_PEPPER":           "",
	"OTP_SECRET":                  "",
	"OTP_LENGTH":                  otp.DefaultCodeLength,
	"OTP_EXPIRY":                  "5m",
	"OTP_RESEND_COOLDOWN":         "30s",
	"OTP_WINDOW":                  "5m",
	"OTP_MAX_IN_WINDOW":           3,
	"OTP_DAILY_LIMIT":             10,
	"OTP_VERIFY_MAX_ATTEMPTS":     5,
	"OTP_VERIFY_WINDOW":           "15m",
	"OTP_LOCKOUT_TTL":             "1h",
	"OTP_STORE_TIMEOUT":           "2s",
	"OTP_ATOMIC_RATE_LIMIT":       false,
	"DEFAULT_COUNTRY_CODE":        otp.DefaultCountryCode,
	"LIMITED_DAILY_LIMIT":         10000,
	"RISK_MAX_OTP_RETRIES":        3,
	"RISK_MIN_AGE":                18,
	"ADMIN_TOKEN":                 "",
	"SIGNUP_IP_MAX_PER_MINUTE":    20,
	"KAFKA_BROKERS":               "",
	"ONBOARDING_EVENTS_TOPIC":     "onboarding-events",
	"RABBITMQ_URL":                "",
	"SMS_QUEUE":                   "sms_outbound",
	"MINIO_ENDPOINT":              "",
	"MINIO_ACCESS_KEY":            "",
	"MINIO_SECRET_KEY":            "",
	"MINIO_USE_SSL":               false,
	"KYC_BUCKET":                  "kyc-documents",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"OTEL_SERVICE_NAME":           "onboarding",
}

// Load reads .env (if present) and the environment. Environment variables
// win over .env.
func Load() (Config, error) {
	return load(".env")
}

func load(envFile string) (Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig()
	}
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.CredentialPepper == "" {
		return errors.New("config: CREDENTIAL_PEPPER must be set")
	}
	if c.OTPSecret == "" {
		return errors.New("config: OTP_SECRET must be set")
	}
	if !c.IsDevelopment() {
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set")
		}
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set")
		}
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return errors.New("config: OTP_LENGTH must be between 4 and 10")
	}
	if c.OTPMaxInWindow <= 0 || c.OTPDailyLimit <= 0 || c.OTPVerifyMaxAttempts <= 0 {
		return errors.New("config: OTP limits must be positive")
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"OTP_EXPIRY", c.OTPExpiry},
		{"OTP_RESEND_COOLDOWN", c.OTPResendCooldown},
		{"OTP_WINDOW", c.OTPWindow},
		{"OTP_VERIFY_WINDOW", c.OTPVerifyWindow},
		{"OTP_LOCKOUT_TTL", c.OTPLockoutTTL},
		{"OTP_STORE_TIMEOUT", c.OTPStoreTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("config: %s must be positive", d.name)
		}
	}
	if c.ShutdownPeriod <= 0 {
		return errors.New("config: SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == envDevelopment
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// OTP converts the OTP settings into the otp package configuration.
func (c Config) OTP() otp.Config {
	return otp.Config{
		CodeLength:        c.OTPLength,
		Expiry:            c.OTPExpiry,
		CountryCode:       c.DefaultCountryCode,
		MaxVerifyAttempts: c.OTPVerifyMaxAttempts,
		VerifyWindow:      c.OTPVerifyWindow,
		LockoutTTL:        c.OTPLockoutTTL,
		AtomicRateLimit:   c.OTPAtomicRateLimit,
		Limits: otp.Limits{
			ResendCooldown: c.OTPResendCooldown,
			Window:         c.OTPWindow,
			MaxInWindow:    c.OTPMaxInWindow,
			DailyLimit:     c.OTPDailyLimit,
			DailyTTL:       24 * time.Hour,
		},
	}
}

// KafkaBrokerList splits KAFKA_BROKERS on commas.
func (c Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
