package cli

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/caseclicker-orchestrator/internal/api"
	"github.com/mcoot/caseclicker-orchestrator/internal/logging"
	"github.com/mcoot/caseclicker-orchestrator/internal/model"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <account-id>",
		Short: "Run the progression engine for an account",
		Long: `Run drives the account until it reaches the target rank, the process receives
SIGINT or SIGTERM, or too many iterations fail in a row.

With --listen the status and control API is served while the engine runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runEngine(ctx, model.AccountID(args[0]))
		},
	}

	cmd.Flags().StringVar(&cfg.Listen, "listen", cfg.Listen, "Serve the control API on this address, e.g. :8090 (env: LISTEN_ADDR)")
	cmd.Flags().StringVar(&cfg.ControlTokenHash, "control-token-hash", cfg.ControlTokenHash, "bcrypt hash required as bearer token on the control API (env: CONTROL_TOKEN_HASH)")
	cmd.Flags().StringVar(&cfg.SellThreshold, "sell-threshold", cfg.SellThreshold, "Bulk sell items under this value after every cycle; 0 disables (env: SELL_THRESHOLD)")
	cmd.Flags().StringVar(&cfg.SellCurrency, "sell-currency", cfg.SellCurrency, "Currency for bulk sells: money, tokens (env: SELL_CURRENCY)")
	cmd.Flags().IntVar(&cfg.MaxFailures, "max-failures", cfg.MaxFailures, "Give up after this many failed iterations in a row; 0 never gives up (env: MAX_CONSECUTIVE_FAILURES)")
	cmd.Flags().DurationVar(&cfg.ClickDelay, "click-delay", cfg.ClickDelay, "Pause between clicks in the click freeze window (env: CLICK_DELAY)")
	cmd.Flags().DurationVar(&cfg.LoopDelay, "loop-delay", cfg.LoopDelay, "Pause between case cycles (env: LOOP_DELAY)")
	cmd.Flags().DurationVar(&cfg.ErrorCooldown, "error-cooldown", cfg.ErrorCooldown, "Pause after a failed iteration (env: ERROR_COOLDOWN)")
	cmd.Flags().StringVar(&cfg.CaseID, "case-id", cfg.CaseID, "Case bought and opened each cycle (env: CASE_ID)")
	cmd.Flags().IntVar(&cfg.CaseBatchSize, "batch-size", cfg.CaseBatchSize, "Cases bought and opened per cycle (env: CASE_BATCH_SIZE)")
	cmd.Flags().IntVar(&cfg.FreezeMaxConcurrent, "freeze-max-concurrent", cfg.FreezeMaxConcurrent, "Accounts allowed in their click freeze window at once; 0 is unlimited (env: CLICK_FREEZE_MAX_CONCURRENT)")
	cmd.Flags().DurationVar(&cfg.FreezeDuration, "freeze-duration", cfg.FreezeDuration, "Length of the click freeze window (env: CLICK_FREEZE_DURATION)")
	cmd.Flags().StringVar(&cfg.SettingsFile, "settings-file", cfg.SettingsFile, "JSON file with autosell and auto-favorite settings (env: SETTINGS_FILE)")

	return cmd
}

// runEngine initializes the account, optionally serves the control API, and runs the engine until it returns
func runEngine(ctx context.Context, id model.AccountID) error {
	ring := logging.NewRing(logging.DefaultRingSize)
	app, err := newApp(ring)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	logger := app.Logger.With(slog.String("account_id", string(id)))

	if _, err := app.Sessions.Initialize(ctx, id); err != nil {
		logger.Error("failed to initialize account", slog.String("error", err.Error()))
		return err
	}

	eng := app.NewEngine(id)

	var server *api.Server
	serverErr := make(chan error, 1)
	if cfg.Listen != "" {
		serverCfg := api.DefaultServerConfig()
		serverCfg.Addr = cfg.Listen
		server = api.NewServer(api.NewRouter(api.RouterConfig{
			Logger:    app.Logger,
			Engine:    eng,
			TokenHash: cfg.ControlTokenHash,
			Gatherer:  app.Gatherer,
		}), serverCfg, app.Logger)

		go func() {
			serverErr <- server.Start()
		}()
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- eng.Run(ctx)
	}()

	select {
	case err = <-runErr:
	case err = <-serverErr:
		if err == nil {
			err = errors.New("control API stopped unexpectedly")
		}
		logger.Error("control API failed", slog.String("error", err.Error()))
	}

	if server != nil {
		if shutdownErr := server.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Warn("control API shutdown failed", slog.String("error", shutdownErr.Error()))
		}
	}

	if err != nil {
		logger.Error("engine stopped", slog.String("error", err.Error()))
		return err
	}
	logger.Info("engine exited")
	return nil
}
