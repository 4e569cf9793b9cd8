package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/cmd/shredsync/opts"
	"github.com/walteh/shredsync/pkg/catalog"
	"github.com/walteh/shredsync/pkg/config"
	"github.com/walteh/shredsync/pkg/history"
	"github.com/walteh/shredsync/pkg/log"
	"github.com/walteh/shredsync/pkg/operation"
	"github.com/walteh/shredsync/pkg/selection"
	"github.com/walteh/shredsync/pkg/status"
	"github.com/walteh/shredsync/pkg/transfer"
)

// NewRunCmd creates the run command
func NewRunCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <list|sync> [delete|nodelete] [verify]",
		Short: "List or sync eligible backup folders",
		Long: `run scans the source, selects folders by age and either lists them or syncs them.

  list               show eligible folders; nothing is transferred or recorded
  sync nodelete      copy eligible folders and keep the source
  sync delete        copy eligible folders and delete each source after a successful copy
  ... verify         ignore the history and transfer every eligible folder again

The command exits non-zero when any folder fails to transfer or delete.`,
		Example: `  shredsync run list
  shredsync run sync nodelete
  shredsync -c /etc/shredsync.yaml run sync delete verify`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			runArgs, err := config.ParseRunArgs(args)
			if err != nil {
				return err
			}
			runArgs.DryRun = opts.DryRun

			ctx = zerolog.Ctx(ctx).With().Str("command", "run").Str("mode", runArgs.String()).Logger().WithContext(ctx)
			logger := log.FromContext(ctx)
			logger.Header(runArgs.String() + "  " + opts.Config.String())

			store, err := history.Open(ctx, opts.Config.History)
			if err != nil {
				return errors.Errorf("opening history: %w", err)
			}
			defer store.Close()

			scanner, err := catalog.FromConfig(opts.Config, opts.Runner)
			if err != nil {
				return errors.Errorf("creating catalog: %w", err)
			}
			criteria, err := selection.FromConfig(opts.Config.Selection)
			if err != nil {
				return errors.Errorf("creating selection: %w", err)
			}
			executor, err := transfer.FromConfig(opts.Config, opts.Runner)
			if err != nil {
				return errors.Errorf("creating transfer executor: %w", err)
			}

			opOpts := operation.Options{
				Scanner:  scanner,
				Criteria: criteria,
				History:  store,
				Executor: executor,
				Action:   opts.Config.Transfer.Action,
				DryRun:   opts.DryRun,
			}

			var (
				op     operation.Operation
				report *status.Report
			)
			switch runArgs.Mode {
			case config.ModeList:
				listOp, err := operation.NewListOperation(ctx, opOpts)
				if err != nil {
					return errors.Errorf("creating list operation: %w", err)
				}
				op, report = listOp, listOp.Report()
			case config.ModeSync:
				syncOp, err := operation.NewSyncOperation(ctx, opOpts, runArgs)
				if err != nil {
					return errors.Errorf("creating sync operation: %w", err)
				}
				op, report = syncOp, syncOp.Report()
			}

			runErr := operation.NewRunner(zerolog.Ctx(ctx), opts.Async).Run(ctx, op)

			for _, o := range report.Outcomes() {
				logger.LogFolder(o)
			}
			summary := report.Summary()
			logger.Summary(summary)

			if runErr != nil {
				return errors.Errorf("running %s: %w", runArgs.Mode, runErr)
			}

			switch {
			case summary.NothingEligible():
				logger.Info("nothing eligible")
			case summary.DryRun > 0:
				logger.Infof("dry run, %d folders would be transferred", summary.DryRun)
			case summary.Warnings > 0:
				logger.Warningf("%d source folders were skipped, see the log", summary.Warnings)
			case runArgs.Mode == config.ModeSync && !summary.HasFailures() && summary.Attempted() > 0:
				logger.Successf("%d folders archived", summary.Attempted())
			}
			return report.Err()
		},
	}

	return cmd
}
