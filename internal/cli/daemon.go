package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/metrics"
	"github.com/cperrin88/reposync/pkg/orchestrator"
	"github.com/cperrin88/reposync/pkg/worker"
)

const shutdownTimeout = 5 * time.Second

// NewDaemonCmd creates the daemon command.
func NewDaemonCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Update repositories periodically",
		Long: `Run update passes every update_interval until interrupted. Failed passes are
retried with exponential backoff. Prometheus metrics are served on metrics_addr when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return withApp(ctx, logEvent, func(a *app) error {
				if interval == 0 {
					interval = a.cfg.Settings.UpdateInterval
				}
				if addr := a.cfg.Settings.MetricsAddr; addr != "" {
					srv := metrics.SetupMetricsEndpoint(addr)
					logger.Info("Serving metrics", logger.Fields{"addr": addr})
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
						defer cancel()
						_ = srv.Shutdown(shutdownCtx)
					}()
				}

				w := worker.New(a.manager, worker.Options{Interval: interval, Checks: a.catalog})
				err := w.Run(ctx)
				logger.Info("Daemon stopped")
				return err
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Override update_interval")

	return cmd
}

func logEvent(e orchestrator.Event) {
	fields := logger.Fields{"phase": e.Phase}
	if e.ID != "" {
		fields["repo"] = e.ID
	}
	switch e.Phase {
	case orchestrator.PhaseError:
		logger.Warn(e.Msg, fields)
	case orchestrator.PhaseDownloading, orchestrator.PhaseCommitting:
		logger.Debug(e.Msg, fields)
	default:
		if e.Msg != "" {
			logger.Info(e.Msg, fields)
		}
	}
}
