package opts

import (
	"github.com/walteh/shredsync/pkg/config"
	"github.com/walteh/shredsync/pkg/shell"
)

// RootOpts contains shared options used by all commands. It is filled in by
// the root command before any subcommand runs; the console logger travels in
// the command context.
type RootOpts struct {
	Config *config.Config
	Runner shell.Runner
	DryRun bool
	Async  bool
}
