package dispatcher

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/eventrelay/eventrelay/internal/clients"
	"github.com/eventrelay/eventrelay/internal/config"
	"github.com/eventrelay/eventrelay/internal/dispatcher"
	"github.com/eventrelay/eventrelay/internal/log"
	"github.com/eventrelay/eventrelay/internal/secrets"
	"github.com/eventrelay/eventrelay/internal/store"
	"github.com/eventrelay/eventrelay/internal/store/dynamo"
	"github.com/eventrelay/eventrelay/internal/store/memory"
	"github.com/eventrelay/eventrelay/internal/telemetry"
)

// run executes a single dispatch batch and exits. Scheduling repeated runs
// is the operator's concern (cron, a Kubernetes CronJob or similar).
func run(ctx context.Context, cfg *config.Config) error {
	log.InitAsDefault(cfg.Logger)

	log.Debug(ctx, "Starting the dispatcher", slog.Any("config", cfg))

	eventStore, err := newEventStore(ctx, cfg.Store)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating event store")
	}

	secretSource, err := newSecretSource(ctx, cfg.Secrets)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating secret source")
	}

	sink, err := newSink(ctx, cfg.Telemetry)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating telemetry sink")
	}

	deliverer := dispatcher.NewDeliverer(dispatcher.RetryConfig{
		Attempts: cfg.Dispatcher.MaxRetries,
		Delay:    cfg.Dispatcher.InitialBackoff,
		MaxDelay: cfg.Dispatcher.MaxBackoff,
	}, cfg.Dispatcher.CallTimeout)

	d := dispatcher.New(
		dispatcher.Config{
			SecretID:  cfg.Secrets.SecretID,
			Username:  cfg.Auth.Username,
			BatchSize: cfg.Dispatcher.BatchSize,
		},
		dispatcher.NewClient(cfg.Dispatcher.APIBaseURL, cfg.Dispatcher.CallTimeout),
		eventStore,
		secretSource,
		deliverer,
		sink,
	)

	report, err := d.Run(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "dispatch run failed")
	}

	log.Info(ctx, "Dispatch run complete",
		slog.Int("totalEvents", report.TotalEvents),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("totalRetries", report.TotalRetries),
		slog.Int("acknowledged", report.Acknowledged),
	)

	return nil
}

func newEventStore(ctx context.Context, cfg config.Store) (store.EventStore, error) {
	if cfg.Backend == config.StoreBackendMemory {
		return memory.New(), nil
	}

	client, err := clients.NewDynamoDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return dynamo.New(client, cfg.TableName), nil
}

func newSecretSource(ctx context.Context, cfg config.Secrets) (dispatcher.SecretSource, error) {
	if cfg.Inline != nil {
		return secrets.Static{Values: *secrets.FromInline(cfg.Inline)}, nil
	}

	client, err := clients.NewSecretsManager(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	return secrets.NewCache(client), nil
}

func newSink(ctx context.Context, cfg config.Telemetry) (telemetry.Sink, error) {
	if !cfg.Enabled {
		return telemetry.Noop{}, nil
	}

	client, err := clients.NewCloudWatch(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}

	return telemetry.NewCloudWatchSink(client, cfg.Namespace), nil
}

func Cmd(buildInfo string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "dispatcher",
		Short: "Event Relay Dispatcher",
		Long:  "Drains pending events from the relay inbox and delivers them to the configured webhook.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to load config")
			}

			err = run(cmd.Context(), cfg)
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to run the dispatcher")
			}

			return err
		},
	}

	return cmd
}
