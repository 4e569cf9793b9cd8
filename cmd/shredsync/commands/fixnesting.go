package commands

import (
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/cmd/shredsync/opts"
	"github.com/walteh/shredsync/pkg/operation"
)

// NewFixNestingCmd creates the fix-nesting command
func NewFixNestingCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix-nesting",
		Short: "Collapse archive folders nested inside a folder of the same name",
		Long: `fix-nesting walks the destination and moves the contents of every X/X folder up
one level. Pairs whose contents would overwrite an existing entry are reported
and left alone. Use --dry-run to only report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			op, err := operation.NewFixNestingOperation(opts.Config.Destination.Path, opts.DryRun)
			if err != nil {
				return errors.Errorf("creating fix-nesting operation: %w", err)
			}
			if err := operation.NewRunner(zerolog.Ctx(ctx), false).Run(ctx, op); err != nil {
				return errors.Errorf("fixing nesting: %w", err)
			}

			fixes := op.Fixes()
			if len(fixes) == 0 {
				pterm.Success.Println("no nested folders found")
				return nil
			}

			var skipped int
			for _, f := range fixes {
				switch {
				case f.Applied:
					pterm.Success.Printfln("%s: moved %d entries up", f.Outer, f.Moved)
				case f.Reason != "":
					skipped++
					pterm.Warning.Printfln("%s: left alone, %s", f.Outer, f.Reason)
				default:
					pterm.Info.Printfln("%s: would move %d entries up", f.Outer, f.Moved)
				}
			}

			if skipped > 0 {
				return errors.Errorf("%d nested folders could not be collapsed", skipped)
			}
			return nil
		},
	}

	return cmd
}
