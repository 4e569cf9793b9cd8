package commands

import (
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/cmd/shredsync/opts"
	"github.com/walteh/shredsync/pkg/history"
)

// NewHistoryCmd creates the history command and its subcommands
func NewHistoryCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or seed the processed-folder history",
	}

	cmd.AddCommand(newHistoryListCmd(opts), newHistoryImportCmd(opts))
	return cmd
}

func newHistoryListCmd(opts *opts.RootOpts) *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every recorded folder and its last outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := history.Open(ctx, opts.Config.History)
			if err != nil {
				return errors.Errorf("opening history: %w", err)
			}
			defer store.Close()

			data := pterm.TableData{{"Folder", "Outcome", "Processed", "Action", "Deleted", "Attempts", "Error"}}
			for _, e := range store.Entries() {
				if failedOnly && e.Succeeded() && !e.DeletePending {
					continue
				}
				deleted := strconv.FormatBool(e.Deleted)
				if e.DeletePending {
					deleted = "pending"
				}
				data = append(data, []string{
					e.Folder,
					string(e.Outcome),
					e.ProcessedAt.Local().Format(time.DateTime),
					e.Action,
					deleted,
					strconv.Itoa(e.Attempts),
					e.Error,
				})
			}

			if len(data) == 1 {
				pterm.Info.Printfln("no entries in %s", opts.Config.History.Path)
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only show failed folders and pending deletes")
	return cmd
}

func newHistoryImportCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Seed the history from a plain list of folder names, one per line",
		Long: `import records every folder named in the file as successfully copied, so a
first run does not re-transfer folders archived before shredsync was set up.
Blank lines and lines starting with # are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Errorf("opening legacy list: %w", err)
			}
			defer f.Close()

			store, err := history.Open(ctx, opts.Config.History)
			if err != nil {
				return errors.Errorf("opening history: %w", err)
			}
			defer store.Close()

			if opts.DryRun {
				pterm.Warning.Println("dry run, history left unchanged")
				return nil
			}

			n, err := history.ImportLegacy(ctx, store, f, time.Now())
			if err != nil {
				return errors.Errorf("importing %s: %w", args[0], err)
			}

			pterm.Success.WithPrefix(pterm.Prefix{Text: "📜"}).Printfln("imported %d folders into %s", n, opts.Config.History.Path)
			return nil
		},
	}

	return cmd
}
