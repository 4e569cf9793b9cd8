package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/shredsync/cmd/shredsync/opts"
	"github.com/walteh/shredsync/pkg/config"
	"github.com/walteh/shredsync/pkg/history"
	"github.com/walteh/shredsync/pkg/log"
	"github.com/walteh/shredsync/pkg/shell"
)

type fixture struct {
	source  string
	archive string
	opts    *opts.RootOpts
	console *bytes.Buffer
}

func newFixture(t *testing.T, action string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		source:  filepath.Join(dir, "source"),
		archive: filepath.Join(dir, "archive"),
		console: &bytes.Buffer{},
	}
	require.NoError(t, os.MkdirAll(f.source, 0o755))

	cfg := &config.Config{
		Source:      config.Source{Path: f.source},
		Destination: config.Destination{Path: f.archive},
		Selection:   config.Selection{DaysThreshold: config.IntPtr(60)},
		Transfer:    config.Transfer{Action: action},
		History:     config.History{Path: filepath.Join(dir, "history.json")},
	}
	require.NoError(t, cfg.Validate())

	f.opts = &opts.RootOpts{
		Config: cfg,
		Runner: shell.NewExecRunner(),
	}
	return f
}

func (f *fixture) folder(t *testing.T, name string) {
	t.Helper()
	p := filepath.Join(f.source, name)
	require.NoError(t, os.MkdirAll(p, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p, "photo.jpg"), []byte("jpeg"), 0o644))
}

func (f *fixture) execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	zlog := zerolog.New(zerolog.TestWriter{T: t})
	ctx := zlog.WithContext(context.Background())
	ctx = log.NewContext(ctx, log.New(f.console, zlog))
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(ctx)
}

func TestRunCmd(t *testing.T) {
	t.Run("rejects_bad_arguments", func(t *testing.T) {
		f := newFixture(t, config.ActionMove)
		err := f.execute(t, NewRunCmd(f.opts), "sync")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete")

		err = f.execute(t, NewRunCmd(f.opts), "copy")
		require.Error(t, err)
	})

	t.Run("list_does_not_touch_anything", func(t *testing.T) {
		f := newFixture(t, config.ActionMove)
		f.folder(t, "2020-01-01_trip")

		require.NoError(t, f.execute(t, NewRunCmd(f.opts), "list"))

		assert.DirExists(t, filepath.Join(f.source, "2020-01-01_trip"))
		assert.NoFileExists(t, f.opts.Config.History.Path)
		assert.Contains(t, f.console.String(), "2020-01-01_trip")
	})

	t.Run("sync_moves_into_dated_layout", func(t *testing.T) {
		f := newFixture(t, config.ActionMove)
		f.folder(t, "2020-01-01_trip")
		f.folder(t, "recent-unnamed")

		require.NoError(t, f.execute(t, NewRunCmd(f.opts), "sync", "nodelete"))

		assert.FileExists(t, filepath.Join(f.archive, "2020", "01-January", "01-Wednesday", "trip", "2020-01-01_trip", "photo.jpg"))
		assert.NoDirExists(t, filepath.Join(f.source, "2020-01-01_trip"))

		store, err := history.Open(context.Background(), f.opts.Config.History)
		require.NoError(t, err)
		defer store.Close()
		e, found := store.Get("2020-01-01_trip")
		require.True(t, found)
		assert.True(t, e.Succeeded())
		assert.True(t, e.Deleted, "a move consumes the source")
		assert.Contains(t, f.console.String(), "success")
	})

	t.Run("dry_run_keeps_source", func(t *testing.T) {
		f := newFixture(t, config.ActionMove)
		f.folder(t, "2020-01-01_trip")
		f.opts.DryRun = true

		require.NoError(t, f.execute(t, NewRunCmd(f.opts), "sync", "delete"))

		assert.DirExists(t, filepath.Join(f.source, "2020-01-01_trip"))
		assert.NoDirExists(t, f.archive)
		assert.NoFileExists(t, f.opts.Config.History.Path)
	})

	t.Run("missing_source_fails", func(t *testing.T) {
		f := newFixture(t, config.ActionMove)
		require.NoError(t, os.RemoveAll(f.source))

		err := f.execute(t, NewRunCmd(f.opts), "list")
		require.Error(t, err)
	})
}

func TestHistoryCmd(t *testing.T) {
	f := newFixture(t, config.ActionCopy)
	legacy := filepath.Join(t.TempDir(), "processed.txt")
	require.NoError(t, os.WriteFile(legacy, []byte(strings.Join([]string{"# archived by hand", "2019-05-01_a", "", "2019-06-01_b"}, "\n")), 0o644))

	require.NoError(t, f.execute(t, NewHistoryCmd(f.opts), "import", legacy))

	store, err := history.Open(context.Background(), f.opts.Config.History)
	require.NoError(t, err)
	assert.Len(t, store.Entries(), 2)
	assert.True(t, store.IsProcessed("2019-05-01_a"))
	require.NoError(t, store.Close())

	require.NoError(t, f.execute(t, NewHistoryCmd(f.opts), "list"))
	require.NoError(t, f.execute(t, NewHistoryCmd(f.opts), "list", "--failed"))

	err = f.execute(t, NewHistoryCmd(f.opts), "import", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestFixNestingCmd(t *testing.T) {
	f := newFixture(t, config.ActionCopy)
	nested := filepath.Join(f.archive, "2020", "01-January", "01-Wednesday", "trip", "trip")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "photo.jpg"), []byte("jpeg"), 0o644))

	f.opts.DryRun = true
	require.NoError(t, f.execute(t, NewFixNestingCmd(f.opts)))
	assert.FileExists(t, filepath.Join(nested, "photo.jpg"))

	f.opts.DryRun = false
	require.NoError(t, f.execute(t, NewFixNestingCmd(f.opts)))
	assert.FileExists(t, filepath.Join(filepath.Dir(nested), "photo.jpg"))
	assert.NoDirExists(t, nested)
}
