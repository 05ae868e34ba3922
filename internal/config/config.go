package config

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	ierr "github.com/responsiv/subscribe-plugin/internal/errors"
	"github.com/responsiv/subscribe-plugin/internal/types"
)

// Configuration holds every runtime setting for the subscription core.
type Configuration struct {
	Logging      LoggingConfig      `mapstructure:"logging"`
	Server       ServerConfig       `mapstructure:"server"`
	Cron         CronConfig         `mapstructure:"cron"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Worker       WorkerConfig       `mapstructure:"worker"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type CronConfig struct {
	// Schedule is a cron expression for the periodic worker sweep.
	Schedule string `mapstructure:"schedule"`
}

// SubscriptionConfig carries the plan-overridable billing defaults.
type SubscriptionConfig struct {
	MembershipPrice    decimal.Decimal `mapstructure:"membership_price"`
	TrialDays          int             `mapstructure:"trial_days"`
	GraceDays          int             `mapstructure:"grace_days"`
	IsTrialInclusive   bool            `mapstructure:"is_trial_inclusive"`
	RequireCardUpfront bool            `mapstructure:"require_card_upfront"`
	InvoiceAdvanceDays int             `mapstructure:"invoice_advance_days"`
}

// WorkerConfig tunes the batch sweep.
type WorkerConfig struct {
	MembershipBatchSize int           `mapstructure:"membership_batch_size"`
	BillingBatchSize    int           `mapstructure:"billing_batch_size"`
	StalenessWindow     time.Duration `mapstructure:"staleness_window"`
}

// NewConfig loads configuration from config.yaml plus environment overrides.
func NewConfig() (*Configuration, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("SUBSCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read config file").
				Mark(ierr.ErrValidation)
		}
	}

	var cfg Configuration
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		decimalDecodeHook(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrValidation)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("cron.schedule", "*/5 * * * *")
	v.SetDefault("subscription.membership_price", "0")
	v.SetDefault("subscription.trial_days", 0)
	v.SetDefault("subscription.grace_days", 14)
	v.SetDefault("subscription.is_trial_inclusive", false)
	v.SetDefault("subscription.require_card_upfront", false)
	v.SetDefault("subscription.invoice_advance_days", 0)
	v.SetDefault("worker.membership_batch_size", 100)
	v.SetDefault("worker.billing_batch_size", 10)
	v.SetDefault("worker.staleness_window", "4h")
}

func (c *Configuration) Validate() error {
	if c.Worker.MembershipBatchSize <= 0 {
		return ierr.NewError("worker membership_batch_size must be positive").
			Mark(ierr.ErrValidation)
	}
	if c.Worker.BillingBatchSize <= 0 {
		return ierr.NewError("worker billing_batch_size must be positive").
			Mark(ierr.ErrValidation)
	}
	if c.Worker.StalenessWindow < 0 {
		return ierr.NewError("worker staleness_window cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if c.Subscription.InvoiceAdvanceDays < 0 {
		return ierr.NewError("subscription invoice_advance_days cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDefaultConfig returns the built-in defaults, used by tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Logging: LoggingConfig{Level: types.LogLevelInfo},
		Server:  ServerConfig{Address: ":8080"},
		Cron:    CronConfig{Schedule: "*/5 * * * *"},
		Subscription: SubscriptionConfig{
			MembershipPrice:    decimal.Zero,
			TrialDays:          0,
			GraceDays:          14,
			IsTrialInclusive:   false,
			RequireCardUpfront: false,
			InvoiceAdvanceDays: 0,
		},
		Worker: WorkerConfig{
			MembershipBatchSize: 100,
			BillingBatchSize:    10,
			StalenessWindow:     4 * time.Hour,
		},
	}
}
