package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/caseclicker-orchestrator/internal/credentials"
	"github.com/mcoot/caseclicker-orchestrator/internal/dependencies/clock"
	"github.com/mcoot/caseclicker-orchestrator/internal/logging"
	"github.com/mcoot/caseclicker-orchestrator/internal/metrics"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
	"github.com/mcoot/caseclicker-orchestrator/internal/remote"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/engine"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/session"
	"github.com/mcoot/caseclicker-orchestrator/internal/services/workunit"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage"
	filestorage "github.com/mcoot/caseclicker-orchestrator/internal/storage/file"
	"github.com/mcoot/caseclicker-orchestrator/internal/storage/memory"
	redisstorage "github.com/mcoot/caseclicker-orchestrator/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeFile   = "file"
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock       clock.Clock
	Credentials credentials.Store

	// Observability
	Logger   *slog.Logger
	Ring     *logging.Ring
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Services
	Sessions  *session.Manager
	Admission *engine.Admission

	engineCfg  engine.Config
	clickerCfg workunit.ClickerConfig
	closers    []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// Ring receives recent log lines for the status view (optional)
	Ring *logging.Ring
	// StorageType selects the storage backend ("file", "memory" or "redis")
	// If empty, defaults to "file"
	StorageType string
	// FileConfig locates the state document when StorageType is "file"
	FileConfig filestorage.Config
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// AccountsFile is the credential file; ignored when Credentials is set
	AccountsFile string
	// Credentials overrides the file-backed credential store (optional)
	Credentials credentials.Store
	// Remote configures the game API client
	// If zero value, defaults to remote.DefaultConfig()
	Remote remote.Config
	// Engine holds the phase engine settings
	// If zero value, defaults to engine.DefaultConfig()
	Engine engine.Config
	// Clicker holds click loop settings
	// If zero value, defaults to workunit.DefaultClickerConfig()
	Clicker workunit.ClickerConfig
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	clk := clock.New()

	// Create storage based on type
	var store storage.Storage
	var closers []io.Closer
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeFile
	}

	switch storageType {
	case StorageTypeFile:
		fileCfg := cfg.FileConfig
		if fileCfg.Path == "" {
			fileCfg = filestorage.DefaultConfig()
		}
		fileStore, err := filestorage.New(fileCfg, clk)
		if err != nil {
			return nil, err
		}
		store = fileStore
	case StorageTypeMemory:
		store = memory.New(clk)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig, clk)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore)
	default:
		return nil, errors.New("invalid StorageType: must be 'file', 'memory' or 'redis'")
	}

	creds := cfg.Credentials
	if creds == nil {
		creds = credentials.NewFileStore(cfg.AccountsFile)
	}

	remoteCfg := cfg.Remote
	if remoteCfg.BaseURL == "" {
		remoteCfg = remote.DefaultConfig()
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	transport := remote.NewHTTPTransport(remoteCfg)
	newAPI := func(token string) remote.GameAPI {
		client := remote.NewClient(transport, token, remoteCfg.Retry, clk, logger, m)
		return remote.NewAPI(client, remoteCfg.ClickPath)
	}

	app := newWithDependencies(store, clk, creds, newAPI, cfg, logger, m)
	app.Gatherer = reg
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	creds credentials.Store,
	newAPI session.APIFactory,
	cfg Config,
	logger *slog.Logger,
	m *metrics.Metrics,
) *App {
	engineCfg := cfg.Engine
	if engineCfg.ClickFreezeDuration == 0 {
		engineCfg = engine.DefaultConfig()
	}
	clickerCfg := cfg.Clicker
	if clickerCfg == (workunit.ClickerConfig{}) {
		clickerCfg = workunit.DefaultClickerConfig()
	}

	return &App{
		Storage:     store,
		Clock:       clk,
		Credentials: creds,
		Logger:      logger,
		Ring:        cfg.Ring,
		Metrics:     m,
		Sessions:    session.NewManager(store, creds, newAPI, clk, logger),
		Admission:   engine.NewAdmission(store, clk, engineCfg.ClickFreezeMaxConcurrent, logger),
		engineCfg:   engineCfg,
		clickerCfg:  clickerCfg,
	}
}

// EngineConfig returns the engine settings in use
func (a *App) EngineConfig() engine.Config {
	return a.engineCfg
}

// NewEngine builds the phase engine for one account
func (a *App) NewEngine(id model.AccountID) *engine.Engine {
	units := engine.WorkUnits{
		Clicker:   workunit.NewClicker(a.clickerCfg, a.Clock, a.Logger, a.Metrics),
		CaseCycle: workunit.NewCaseCycle(a.Logger, a.Metrics),
		Seller:    workunit.NewBulkSeller(a.Logger, a.Metrics),
		Auxiliary: workunit.NewAuxiliary(a.Logger),
	}
	return engine.New(id, a.engineCfg, a.Storage, a.Sessions, a.Admission, units, a.Clock, a.Logger, a.Metrics, a.Ring)
}

// NewSeller builds a standalone bulk seller for one-shot sells
func (a *App) NewSeller() *workunit.BulkSeller {
	return workunit.NewBulkSeller(a.Logger, a.Metrics)
}

// Close releases backend connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
