package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"TrendAllocator/internal/advisor"
	"TrendAllocator/internal/collector"
	"TrendAllocator/internal/config"
	"TrendAllocator/internal/logger"
	"TrendAllocator/internal/metrics"
	"TrendAllocator/internal/notifier"
	"TrendAllocator/internal/scheduler"
)

type options struct {
	configPath string
	dryRun     bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{configPath: "configs/config.yaml"}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		opts.configPath = v
	}

	root := &cobra.Command{
		Use:   "allocator",
		Short: "Moving-average allocation advisor",
		Long: `allocator ranks a ticker's short, medium and long moving averages,
looks the ordering up in an allocation policy and mails the recommendation.
Without a subcommand it performs a single run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", opts.configPath, "path to the YAML config file")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "print the report without delivering it")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run once and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOnce(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Stay running and trigger runs from the configured cron expression",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runScheduled(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "policy",
			Short: "Print the configured allocation policy",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printPolicy(cmd, opts)
			},
		},
	)
	return root
}

// setup loads configuration and wires every component.
func setup(opts *options) (*config.Config, *advisor.Advisor, zerolog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("config validation: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	for _, row := range cfg.OutOfRangeAllocations() {
		log.Warn().Int("row", row).Float64("allocation", cfg.Policy[row].Allocation).Msg("policy allocation outside [0, 1]")
	}

	policy, err := cfg.PolicyTable()
	if err != nil {
		return nil, nil, log, err
	}

	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.Timeout)
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.Timeout)
	}
	log.Info().Str("source", fetcher.Name()).Str("ticker", cfg.Ticker).Msg("data source ready")

	col := collector.NewCollector(fetcher, cfg.Ticker, cfg.DataSource.LookbackDays)
	adv := advisor.New(cfg.Ticker, col, cfg.IndicatorParams(), policy, log)
	adv.DryRun = opts.dryRun
	adv.Notifiers = []notifier.Notifier{
		notifier.NewEmailNotifier(cfg.Email.Host, cfg.Email.Port, cfg.Email.Sender, cfg.Email.Password, cfg.Email.Recipients, cfg.Email.Timeout),
	}
	if cfg.Telegram.BotToken != "" {
		adv.Notifiers = append(adv.Notifiers, notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.Timeout))
	}
	adv.Metrics = metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, cfg.Metrics.Timeout)

	return cfg, adv, log, nil
}

func runOnce(ctx context.Context, opts *options) error {
	_, adv, _, err := setup(opts)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	adv.Run(ctx)
	return nil
}

func runScheduled(ctx context.Context, opts *options) error {
	cfg, adv, log, err := setup(opts)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.NewScheduler(ctx, adv, cfg.Location(), log)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, running now")
		sched.RunNow()
	}
	sched.Start()
	defer sched.Stop()

	log.Info().Str("cron", cfg.Schedule.Cron).Msg("allocator is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}

func printPolicy(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	policy, err := cfg.PolicyTable()
	if err != nil {
		return err
	}
	labels := cfg.IndicatorParams().Labels()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s policy (%d entries, unmapped states allocate 0%%)\n", cfg.Ticker, policy.Len())
	for _, e := range policy.Entries() {
		fmt.Fprintf(out, "- %-25s: %s\n", e.State.Label(labels), notifier.FormatPercent(e.Allocation))
	}
	return nil
}
