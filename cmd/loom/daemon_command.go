package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"loom/internal/daemon"
	"loom/internal/ipc"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/workflow"
)

// newDaemonRunCommand runs the daemon in the foreground. The start command
// launches this as a detached process.
func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "daemon",
		Short:        "Run the loom daemon (internal)",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			mgr := workflow.NewManager(cfg, store, logger)
			d, err := daemon.New(cfg, store, logger, mgr)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv, err := ipc.NewServer(runCtx, ctx.socketPath(), d, logger)
			if err != nil {
				return fmt.Errorf("create ipc server: %w", err)
			}
			srv.Serve()
			defer srv.Close()

			if err := d.Start(runCtx); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			logger.Info("loom daemon ready",
				logging.String("socket", ctx.socketPath()),
				logging.String(logging.FieldEventType, "daemon_ready"))

			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}
}
