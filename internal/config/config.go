package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/reconciler/internal/types"
	"github.com/flexprice/reconciler/internal/validator"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment  DeploymentConfig  `mapstructure:"deployment" validate:"required"`
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Logging     LoggingConfig     `mapstructure:"logging" validate:"required"`
	Postgres    PostgresConfig    `mapstructure:"postgres" validate:"required"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	Supabase    SupabaseConfig    `mapstructure:"supabase"`
	TokenLedger TokenLedgerConfig `mapstructure:"token_ledger"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Billing     BillingConfig     `mapstructure:"billing" validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address" validate:"required"`
	// MaxBodyBytes caps the webhook request body
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string        `mapstructure:"host"`
	Port                   int           `mapstructure:"port"`
	User                   string        `mapstructure:"user"`
	Password               string        `mapstructure:"password"`
	DBName                 string        `mapstructure:"dbname"`
	SSLMode                string        `mapstructure:"sslmode"`
	MaxOpenConns           int           `mapstructure:"max_open_conns"`
	MaxIdleConns           int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int           `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool          `mapstructure:"auto_migrate"`
	StatementTimeout       time.Duration `mapstructure:"statement_timeout"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type SupabaseConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ServiceKey string `mapstructure:"service_key"`
	// AppURL is the public site that sign-in links redirect to
	AppURL     string `mapstructure:"app_url"`
}

type TokenLedgerConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RetryMax int           `mapstructure:"retry_max"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// BillingConfig holds the business constants of the entitlement flows
type BillingConfig struct {
	ActivationWindow       time.Duration `mapstructure:"activation_window" validate:"required"`
	ContinuityTrialDays    int           `mapstructure:"continuity_trial_days" validate:"required,gt=0"`
	DefaultContinuityTier  string        `mapstructure:"default_continuity_tier"`
	HouseholdMaxMembers    int           `mapstructure:"household_max_members" validate:"required,gt=0"`
	SoloMaxMembers         int           `mapstructure:"solo_max_members" validate:"required,gt=0"`
	DefaultIntensiveAmount int64         `mapstructure:"default_intensive_amount"`
	IntensiveProductKey    string        `mapstructure:"intensive_product_key"`
	TokenPackProductKey    string        `mapstructure:"token_pack_product_key"`
	DefaultCurrency        string        `mapstructure:"default_currency"`
}

// ContinuityTrial returns the trial length of continuity subscriptions
func (b BillingConfig) ContinuityTrial() time.Duration {
	return time.Duration(b.ContinuityTrialDays) * 24 * time.Hour
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/reconciler")

	// RECONCILER_POSTGRES_HOST overrides postgres.host
	v.SetEnvPrefix("RECONCILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the config file
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("postgres.auto_migrate", d.Postgres.AutoMigrate)
	v.SetDefault("postgres.statement_timeout", d.Postgres.StatementTimeout)
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("supabase.base_url", "")
	v.SetDefault("supabase.service_key", "")
	v.SetDefault("supabase.app_url", d.Supabase.AppURL)
	v.SetDefault("token_ledger.base_url", "")
	v.SetDefault("token_ledger.api_key", "")
	v.SetDefault("token_ledger.timeout", d.TokenLedger.Timeout)
	v.SetDefault("token_ledger.retry_max", d.TokenLedger.RetryMax)
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
	v.SetDefault("sentry.sample_rate", d.Sentry.SampleRate)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("billing.activation_window", d.Billing.ActivationWindow)
	v.SetDefault("billing.continuity_trial_days", d.Billing.ContinuityTrialDays)
	v.SetDefault("billing.default_continuity_tier", d.Billing.DefaultContinuityTier)
	v.SetDefault("billing.household_max_members", d.Billing.HouseholdMaxMembers)
	v.SetDefault("billing.solo_max_members", d.Billing.SoloMaxMembers)
	v.SetDefault("billing.default_intensive_amount", d.Billing.DefaultIntensiveAmount)
	v.SetDefault("billing.intensive_product_key", d.Billing.IntensiveProductKey)
	v.SetDefault("billing.token_pack_product_key", d.Billing.TokenPackProductKey)
	v.SetDefault("billing.default_currency", d.Billing.DefaultCurrency)
}

// Validate checks the struct tags and reports each failing field as a
// validation detail
func (c Configuration) Validate() error {
	return validator.ValidateRequest(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server: ServerConfig{
			Address:      ":8080",
			MaxBodyBytes: 1 << 20,
		},
		Logging: LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "reconciler",
			DBName:                 "reconciler",
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
		},
		Supabase: SupabaseConfig{AppURL: "http://localhost:3000"},
		TokenLedger: TokenLedgerConfig{
			Timeout:  10 * time.Second,
			RetryMax: 3,
		},
		Sentry: SentryConfig{SampleRate: 1.0},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Billing: BillingConfig{
			ActivationWindow:       72 * time.Hour,
			ContinuityTrialDays:    56,
			DefaultContinuityTier:  "vision_pro_28day",
			HouseholdMaxMembers:    6,
			SoloMaxMembers:         1,
			DefaultIntensiveAmount: 49900,
			IntensiveProductKey:    "intensive",
			TokenPackProductKey:    "token_pack",
			DefaultCurrency:        "usd",
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// GetMigrateURL returns the URL form golang-migrate expects
func (c PostgresConfig) GetMigrateURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
	)
}
