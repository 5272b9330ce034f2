package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcoot/caseclicker-orchestrator/internal/factory"
	"github.com/mcoot/caseclicker-orchestrator/internal/logging"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/engine"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/workunit"
	filestorage "github.com/mcoot/caseclicker-orchestrator/internal/storage/file"
	redisstorage "github.com/mcoot/caseclicker-orchestrator/internal/storage/redis"
)

// Config holds CLI configuration
type Config struct {
	StorageType  string
	StateFile    string
	RedisURL     string
	AccountsFile string
	BaseURL      string

	LogLevel  string
	LogFormat string
	Output    string

	// Listen enables the control API on the given address
	Listen           string
	ControlTokenHash string

	SellThreshold string
	SellCurrency  string
	MaxFailures   int

	// Pacing and batch tuning
	ClickDelay          time.Duration
	LoopDelay           time.Duration
	ErrorCooldown       time.Duration
	CaseID              string
	CaseBatchSize       int
	FreezeMaxConcurrent int
	FreezeDuration      time.Duration

	RetryAttempts   int
	RetryDelay      time.Duration
	RateLimitStatus int

	// SettingsFile holds the auto-open settings; empty keeps the defaults
	SettingsFile string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	engineDefaults := engine.DefaultConfig()
	retryDefaults := remote.DefaultConfig().Retry
	return &Config{
		StorageType:      getEnvOrDefault("STORAGE_TYPE", factory.StorageTypeFile),
		StateFile:        getEnvOrDefault("STATE_FILE", filestorage.DefaultConfig().Path),
		RedisURL:         os.Getenv("REDIS_URL"),
		AccountsFile:     getEnvOrDefault("ACCOUNTS_FILE", "accounts.json"),
		BaseURL:          getEnvOrDefault("GAME_API_URL", remote.DefaultConfig().BaseURL),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvOrDefault("LOG_FORMAT", "json"),
		Output:           "text",
		Listen:           os.Getenv("LISTEN_ADDR"),
		ControlTokenHash: os.Getenv("CONTROL_TOKEN_HASH"),
		SellThreshold:    getEnvOrDefault("SELL_THRESHOLD", "0"),
		SellCurrency:     getEnvOrDefault("SELL_CURRENCY", string(remote.CurrencyMoney)),
		MaxFailures:      getEnvIntOrDefault("MAX_CONSECUTIVE_FAILURES", engineDefaults.MaxConsecutiveFailures),

		ClickDelay:          getEnvDurationOrDefault("CLICK_DELAY", workunit.DefaultClickerConfig().ClickDelay),
		LoopDelay:           getEnvDurationOrDefault("LOOP_DELAY", engineDefaults.LoopDelay),
		ErrorCooldown:       getEnvDurationOrDefault("ERROR_COOLDOWN", engineDefaults.ErrorCooldown),
		CaseID:              getEnvOrDefault("CASE_ID", engineDefaults.Cycle.CaseID),
		CaseBatchSize:       getEnvIntOrDefault("CASE_BATCH_SIZE", engineDefaults.Cycle.BatchSize),
		FreezeMaxConcurrent: getEnvIntOrDefault("CLICK_FREEZE_MAX_CONCURRENT", engineDefaults.ClickFreezeMaxConcurrent),
		FreezeDuration:      getEnvDurationOrDefault("CLICK_FREEZE_DURATION", engineDefaults.ClickFreezeDuration),

		RetryAttempts:   getEnvIntOrDefault("RETRY_ATTEMPTS", retryDefaults.RetryAttempts),
		RetryDelay:      getEnvDurationOrDefault("RETRY_DELAY", retryDefaults.BaseDelay),
		RateLimitStatus: getEnvIntOrDefault("RATE_LIMIT_STATUS", retryDefaults.RateLimitStatus),

		SettingsFile: os.Getenv("SETTINGS_FILE"),
	}
}

// FactoryConfig translates the CLI settings into the application factory config
func (c *Config) FactoryConfig(ring *logging.Ring) (factory.Config, error) {
	cfg := factory.Config{
		Logger:       newLogger(c, ring),
		Ring:         ring,
		StorageType:  c.StorageType,
		FileConfig:   filestorage.Config{Path: c.StateFile},
		AccountsFile: c.AccountsFile,
	}

	if c.StorageType == factory.StorageTypeRedis {
		if c.RedisURL == "" {
			return factory.Config{}, fmt.Errorf("REDIS_URL required when storage is %s", factory.StorageTypeRedis)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		cfg.RedisConfig = &redisCfg
	}

	if err := c.validateTuning(); err != nil {
		return factory.Config{}, err
	}

	cfg.Remote = remote.DefaultConfig()
	cfg.Remote.BaseURL = c.BaseURL
	cfg.Remote.Retry.RetryAttempts = c.RetryAttempts
	cfg.Remote.Retry.BaseDelay = c.RetryDelay
	cfg.Remote.Retry.RateLimitStatus = c.RateLimitStatus

	engineCfg := engine.DefaultConfig()
	engineCfg.MaxConsecutiveFailures = c.MaxFailures
	engineCfg.LoopDelay = c.LoopDelay
	engineCfg.ErrorCooldown = c.ErrorCooldown
	engineCfg.ClickFreezeDuration = c.FreezeDuration
	engineCfg.ClickFreezeMaxConcurrent = c.FreezeMaxConcurrent
	engineCfg.Cycle.CaseID = c.CaseID
	engineCfg.Cycle.BatchSize = c.CaseBatchSize
	threshold, currency, err := c.sellSettings()
	if err != nil {
		return factory.Config{}, err
	}
	engineCfg.SellThreshold = threshold
	engineCfg.SellCurrency = currency
	if c.SettingsFile != "" {
		autoOpen, err := loadSettingsFile(c.SettingsFile)
		if err != nil {
			return factory.Config{}, err
		}
		engineCfg.Cycle.AutoOpen = autoOpen
	}
	cfg.Engine = engineCfg

	cfg.Clicker = workunit.DefaultClickerConfig()
	cfg.Clicker.ClickDelay = c.ClickDelay

	return cfg, nil
}

func (c *Config) validateTuning() error {
	var errs []error
	if c.ClickDelay < 0 || c.LoopDelay < 0 || c.ErrorCooldown < 0 || c.RetryDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if c.FreezeDuration <= 0 {
		errs = append(errs, fmt.Errorf("click freeze duration must be positive, got %s", c.FreezeDuration))
	}
	if c.FreezeMaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("click freeze max concurrent must not be negative, got %d", c.FreezeMaxConcurrent))
	}
	if c.CaseBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("case batch size must be positive, got %d", c.CaseBatchSize))
	}
	if c.CaseID == "" {
		errs = append(errs, errors.New("case id is required"))
	}
	if c.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("retry attempts must not be negative, got %d", c.RetryAttempts))
	}
	return errors.Join(errs...)
}

func (c *Config) sellSettings() (decimal.Decimal, remote.Currency, error) {
	threshold, err := decimal.NewFromString(c.SellThreshold)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("invalid sell threshold %q: %w", c.SellThreshold, err)
	}
	if threshold.IsNegative() {
		return decimal.Zero, "", fmt.Errorf("sell threshold must not be negative, got %s", threshold)
	}
	currency, err := remote.ParseCurrency(c.SellCurrency)
	if err != nil {
		return decimal.Zero, "", err
	}
	return threshold, currency, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
