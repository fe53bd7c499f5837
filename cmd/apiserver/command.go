package apiserver

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/eventrelay/eventrelay/internal/config"
	"github.com/eventrelay/eventrelay/internal/daemon"
	"github.com/eventrelay/eventrelay/internal/log"
)

// - Resolves the event store and the operational secret
// - Starts the relay API server
func run(ctx context.Context, cfg *config.Config) error {
	log.InitAsDefault(cfg.Logger)

	log.Debug(ctx, "Starting the application", slog.Any("config", cfg))

	s, err := daemon.NewServer(ctx, cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating relay server")
	}

	err = s.Start(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "starting relay api server")
	}

	<-ctx.Done()

	err = s.Close(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "closing server")
	}

	return nil
}

func Cmd(buildInfo string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "api-server",
		Short: "Event Relay API Server",
		Long:  "Serves event ingestion, inbox polling, acknowledgment, metrics reads and the token exchange.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to load config")
			}

			err = run(cmd.Context(), cfg)
			if err != nil {
				return oops.In("main").Wrapf(err, "failed to run the api server")
			}

			return err
		},
	}

	return cmd
}
