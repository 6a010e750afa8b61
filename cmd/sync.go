package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/afttdata/aftt-sync/internal/config"
	"github.com/afttdata/aftt-sync/internal/driver"
	"github.com/afttdata/aftt-sync/internal/logging"
	"github.com/afttdata/aftt-sync/internal/metrics"
	"github.com/afttdata/aftt-sync/internal/registry"
	"github.com/afttdata/aftt-sync/internal/scrape"
)

// newSyncCmd creates the one-shot crawl command.
func newSyncCmd() *cobra.Command {
	var (
		divisions []int
		weeks     []int
		clubs     []string
	)

	cmd := &cobra.Command{
		Use:   "sync [rankings|rosters|tournaments]",
		Short: "Runs one sync job to completion",
		Long: `Runs a single sync job for the given family and waits for it to finish.
The first interrupt requests a cooperative cancel; the job stops at the
next work item boundary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncCommand(cmd, args[0], driver.Filters{
				Divisions: divisions,
				Weeks:     weeks,
				Clubs:     clubs,
			})
		},
	}

	cmd.Flags().IntSliceVar(&divisions, "divisions", nil, "restrict rankings to these division indexes")
	cmd.Flags().IntSliceVar(&weeks, "weeks", nil, "restrict rankings to these weeks")
	cmd.Flags().StringSliceVar(&clubs, "clubs", nil, "restrict rosters to these club codes")
	return cmd
}

func runSyncCommand(cmd *cobra.Command, familyArg string, filters driver.Filters) error {
	family, err := scrape.ParseFamily(familyArg)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	job, err := svc.driver.Start(family, "cli", filters)
	if err != nil {
		return fmt.Errorf("start sync: %w", err)
	}
	logger.Info("job started",
		zap.String("job_id", job.ID.String()),
		zap.String("family", string(family)),
	)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	interrupted := ctx.Done()
	for {
		select {
		case <-interrupted:
			// A nil channel blocks, so the cancel fires once.
			interrupted = nil
			logger.Info("cancel requested, waiting for the current work item")
			if cerr := svc.registry.Cancel(job.ID); cerr != nil {
				logger.Warn("cancel job", zap.Error(cerr))
			}
		case <-ticker.C:
		}

		current, err := svc.registry.Get(job.ID)
		if err != nil {
			return fmt.Errorf("read job state: %w", err)
		}
		if current.Status.Terminal() {
			return reportResult(logger, current)
		}
		logger.Info("progress",
			zap.Int("completed", current.CompletedUnits),
			zap.Int("total", current.TotalUnits),
			zap.String("current", current.CurrentUnit),
			zap.Int("errors", current.ErrorCount),
		)
	}
}

func reportResult(logger *zap.Logger, job registry.Job) error {
	logger.Info("job finished",
		zap.String("status", string(job.Status)),
		zap.Int("completed", job.CompletedUnits),
		zap.Int("total", job.TotalUnits),
		zap.Int("errors", job.ErrorCount),
		zap.String("last_success", job.LastSuccess),
	)
	if job.Status == registry.StatusFailed {
		return fmt.Errorf("sync failed: %d errors", len(job.Errors))
	}
	return nil
}
