package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/eventrelay/eventrelay/cmd/apiserver"
	"github.com/eventrelay/eventrelay/cmd/dispatcher"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "dev"

	isVersionCmd            bool
	gracefulShutdownSec     int64
	gracefulShutdownMessage string
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventrelay",
		Short: "Event Relay",
		Long:  `Event Relay persists application events and delivers them to subscriber webhooks with at-least-once semantics.`,
	}

	cmd.PersistentFlags().Int64Var(&gracefulShutdownSec, "graceful-shutdown", 1, "graceful shutdown seconds")
	cmd.PersistentFlags().StringVar(&gracefulShutdownMessage, "graceful-shutdown-message", "Graceful shutdown in %d seconds",
		"graceful shutdown message")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Event Relay Version",
			RunE: func(cmd *cobra.Command, args []string) error {
				isVersionCmd = true
				fmt.Println(BuildInfo)
				return nil
			},
		},
		apiserver.Cmd(BuildInfo),
		dispatcher.Cmd(BuildInfo),
	)

	return cmd
}

func main() {
	ctx, cancelOnSignal := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer cancelOnSignal()

	err := rootCmd().ExecuteContext(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to start the application", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// graceful shutdown so running goroutines may finish
	if !isVersionCmd {
		_, _ = fmt.Fprintln(os.Stderr, fmt.Sprintf(gracefulShutdownMessage, gracefulShutdownSec))
		time.Sleep(time.Duration(gracefulShutdownSec) * time.Second)
	}
}
