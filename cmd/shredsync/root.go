package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/cmd/shredsync/opts"
	"github.com/walteh/shredsync/pkg/config"
	"github.com/walteh/shredsync/pkg/log"
	"github.com/walteh/shredsync/pkg/shell"
)

const skipSetup = "shredsync/skip-setup"

var (
	// Flags
	configFile string
	debug      bool
	dryRun     bool
	action     string
	async      bool
)

// app owns what outlives a single command, the run log file
type app struct {
	opts   *opts.RootOpts
	runLog *log.RunLog
	logger *log.Logger
}

func (a *app) close() {
	if a.runLog != nil {
		_ = a.runLog.Close()
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shredsync",
		Short: "Archive dated backup folders once they are old enough",
		Long: `shredsync lists dated backup folders on a local or ssh source, picks the ones
past an age threshold or inside a date window, copies them into a dated archive
layout and optionally deletes the source. A history of processed folders keeps
repeated runs from transferring the same folder twice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" || cmd.Name() == "help" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	addRootFlags(cmd)
	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	defaultConfig := os.Getenv("SHREDSYNC_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "shredsync.yaml"
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfig, "config file path (yaml, json or hcl)")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would change without transferring, deleting or recording")
	cmd.PersistentFlags().StringVar(&action, "action", "", "override transfer.action (copy or move)")
	cmd.PersistentFlags().BoolVar(&async, "async", false, "run the operation in the background so interrupts are reported while the current folder finishes")
}

// setup loads the config, opens the run log and applies the umask
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(ctx, configFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	if action != "" {
		if err := config.ValidateAction(action); err != nil {
			return err
		}
		cfg.Transfer.Action = action
		if err := cfg.Validate(); err != nil {
			return errors.Errorf("validating config: %w", err)
		}
	}

	logOpts, err := log.OptionsFromConfig(cfg.Log, os.Stderr, debug)
	if err != nil {
		return err
	}
	runLog, err := log.Setup(logOpts)
	if err != nil {
		return errors.Errorf("setting up logging: %w", err)
	}
	a.runLog = runLog

	ctx = runLog.Logger.WithContext(ctx)
	logger := log.New(os.Stdout, runLog.Logger)
	ctx = log.NewContext(ctx, logger)

	if cfg.Umask != "" {
		prev, err := applyUmask(cfg.Umask)
		if err != nil {
			return errors.Errorf("applying umask: %w", err)
		}
		runLog.Logger.Debug().Str("umask", cfg.Umask).Str("previous", fmt.Sprintf("%04o", prev)).Msg("umask applied")
	}

	runLog.Logger.Debug().
		Str("config", cfg.Location()).
		Str("run", cfg.String()).
		Str("log_file", runLog.Path).
		Msg("configuration loaded")

	a.logger = logger
	a.opts.Config = cfg
	a.opts.Runner = shell.NewExecRunner()
	a.opts.DryRun = dryRun
	a.opts.Async = async

	cmd.SetContext(ctx)
	return nil
}
