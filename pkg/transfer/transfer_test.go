package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/catalog"
	"github.com/walteh/shredsync/pkg/config"
	"github.com/walteh/shredsync/pkg/shell"
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

type mockTransferer struct {
	mock.Mock
}

func (m *mockTransferer) Transfer(ctx context.Context, req Request) (Stats, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Stats), args.Error(1)
}

type mockRemover struct {
	mock.Mock
}

func (m *mockRemover) Remove(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) (shell.Output, error) {
	called := m.Called(ctx, name, args)
	return called.Get(0).(shell.Output), called.Error(1)
}

func testRecord() catalog.FolderRecord {
	return catalog.FolderRecord{
		ID:    "import-cam-202403151230-0f8fad5b-d9cb-469f-a165-70867728950e",
		Name:  "import-cam-202403151230-0f8fad5b-d9cb-469f-a165-70867728950e",
		Path:  "/srv/backups/import-cam-202403151230-0f8fad5b-d9cb-469f-a165-70867728950e",
		Label: "cam",
		Date:  catalog.Age{Time: time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC), Source: catalog.AgeFromName},
		Size:  -1,
	}
}

func TestLayouts(t *testing.T) {
	rec := testRecord()

	assert.Equal(t, filepath.Join("/archive", "2024", "03-March", "15-Friday", "cam", rec.Name), DatedLayout{}.Destination("/archive", rec))
	assert.Equal(t, filepath.Join("/archive", rec.ID), FlatLayout{}.Destination("/archive", rec))

	unlabelled := catalog.FolderRecord{ID: "2024-03-15", Name: "2024-03-15", Label: "2024-03-15", Date: rec.Date}
	assert.Equal(t, filepath.Join("/archive", "2024", "03-March", "15-Friday", "2024-03-15"), DatedLayout{}.Destination("/archive", unlabelled))

	nested := catalog.FolderRecord{ID: "cams/2024-01-01", Name: "2024-01-01"}
	assert.Equal(t, filepath.Join("/archive", "cams", "2024-01-01"), DatedLayout{}.Destination("/archive", nested), "undated records fall back to flat")

	l, err := LayoutFor(config.LayoutFlat)
	require.NoError(t, err)
	assert.IsType(t, FlatLayout{}, l)
	_, err = LayoutFor("sideways")
	require.Error(t, err)
}

func TestDatedLayoutKeepsSameDayImportsApart(t *testing.T) {
	morning := catalog.FolderRecord{
		ID:    "import-GoPro-202401151000-7d444840-9dc0-11d1-b245-5ffdce74fad2",
		Name:  "import-GoPro-202401151000-7d444840-9dc0-11d1-b245-5ffdce74fad2",
		Label: "GoPro",
		Date:  catalog.Age{Time: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), Source: catalog.AgeFromName},
	}
	afternoon := catalog.FolderRecord{
		ID:    "import-GoPro-202401151400-0f8fad5b-d9cb-469f-a165-70867728950e",
		Name:  "import-GoPro-202401151400-0f8fad5b-d9cb-469f-a165-70867728950e",
		Label: "GoPro",
		Date:  catalog.Age{Time: time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC), Source: catalog.AgeFromName},
	}

	a := DatedLayout{}.Destination("/archive", morning)
	b := DatedLayout{}.Destination("/archive", afternoon)
	assert.NotEqual(t, a, b)
	assert.Equal(t, filepath.Dir(a), filepath.Dir(b), "both imports share the label directory")
	assert.Equal(t, filepath.Join("/archive", "2024", "01-January", "15-Monday", "GoPro"), filepath.Dir(a))
}

func TestExecutor(t *testing.T) {
	ctx := setupTestLogger(t)
	rec := testRecord()

	newExecutor := func(t *testing.T) (*Executor, *mockTransferer, *mockRemover) {
		tr := &mockTransferer{}
		rm := &mockRemover{}
		x, err := New(Options{Transferer: tr, Remover: rm, DestinationRoot: "/archive"})
		require.NoError(t, err)
		return x, tr, rm
	}

	t.Run("transfer_then_delete", func(t *testing.T) {
		x, tr, rm := newExecutor(t)
		tr.On("Transfer", mock.Anything, Request{Folder: rec.ID, Source: rec.Path, Destination: x.Destination(rec)}).
			Return(Stats{Files: 3, Bytes: 300}, nil)
		rm.On("Remove", mock.Anything, rec.Path).Return(nil)

		res := x.Execute(ctx, rec, true)
		assert.True(t, res.Transferred)
		assert.Equal(t, DeleteDone, res.Delete)
		assert.True(t, res.OK())
		assert.Equal(t, 3, res.Files)
		assert.Equal(t, int64(300), res.Bytes)
		tr.AssertExpectations(t)
		rm.AssertExpectations(t)
	})

	t.Run("nodelete_keeps_source", func(t *testing.T) {
		x, tr, rm := newExecutor(t)
		tr.On("Transfer", mock.Anything, mock.Anything).Return(Stats{}, nil)

		res := x.Execute(ctx, rec, false)
		assert.True(t, res.OK())
		assert.Equal(t, DeleteSkipped, res.Delete)
		rm.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	})

	t.Run("failed_transfer_never_deletes", func(t *testing.T) {
		x, tr, rm := newExecutor(t)
		tr.On("Transfer", mock.Anything, mock.Anything).Return(Stats{}, errors.New("rsync exited with code 23"))

		res := x.Execute(ctx, rec, true)
		assert.False(t, res.Transferred)
		assert.False(t, res.OK())
		assert.Equal(t, DeleteSkipped, res.Delete)
		var te *TransferError
		require.True(t, errors.As(res.TransferErr, &te))
		assert.Equal(t, rec.ID, te.Folder)
		rm.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	})

	t.Run("delete_failure_is_distinct", func(t *testing.T) {
		x, tr, rm := newExecutor(t)
		tr.On("Transfer", mock.Anything, mock.Anything).Return(Stats{}, nil)
		rm.On("Remove", mock.Anything, rec.Path).Return(errors.New("permission denied"))

		res := x.Execute(ctx, rec, true)
		assert.True(t, res.Transferred)
		assert.Equal(t, DeleteFailed, res.Delete)
		assert.NoError(t, res.TransferErr)
		var de *DeleteError
		require.True(t, errors.As(res.DeleteErr, &de))
		assert.Equal(t, rec.Path, de.Path)
		assert.False(t, res.OK())
	})

	t.Run("delete_only", func(t *testing.T) {
		x, tr, rm := newExecutor(t)
		rm.On("Remove", mock.Anything, rec.Path).Return(nil)

		res := x.DeleteOnly(ctx, rec)
		assert.True(t, res.Transferred)
		assert.Equal(t, DeleteDone, res.Delete)
		tr.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
	})

	t.Run("requires_collaborators", func(t *testing.T) {
		_, err := New(Options{Remover: &mockRemover{}, DestinationRoot: "/a"})
		require.Error(t, err)
		_, err = New(Options{Transferer: &mockTransferer{}, DestinationRoot: "/a"})
		require.Error(t, err)
		_, err = New(Options{Transferer: &mockTransferer{}, Remover: &mockRemover{}})
		require.Error(t, err)
	})
}

func TestRsync(t *testing.T) {
	ctx := setupTestLogger(t)

	t.Run("remote_args_and_stats", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "2024", "03-March", "15-Friday", "cam")
		runner := &mockRunner{}
		ssh := &shell.SSH{Path: "ssh", Host: "nas", User: "backup", IdentityFile: "/keys/id"}
		r := NewRsync("rsync", []string{"-a", "--stats"}, ssh, runner)

		want := []string{"-a", "--stats", "-e", "ssh -i /keys/id", "backup@nas:/srv/backups/x/", dest + string(filepath.Separator)}
		runner.On("Run", mock.Anything, "rsync", want).Return(shell.Output{Stdout: `
Number of files: 14 (reg: 12, dir: 2)
Number of regular files transferred: 12
Total file size: 1,234,567 bytes
Total transferred file size: 1,234,567 bytes
`}, nil)

		stats, err := r.Transfer(ctx, Request{Folder: "x", Source: "/srv/backups/x", Destination: dest})
		require.NoError(t, err)
		assert.Equal(t, Stats{Files: 12, Bytes: 1234567}, stats)
		runner.AssertExpectations(t)

		info, err := os.Stat(filepath.Dir(dest))
		require.NoError(t, err, "destination parent is created")
		assert.True(t, info.IsDir())
	})

	t.Run("local_args", func(t *testing.T) {
		r := NewRsync("", []string{"-a"}, nil, &mockRunner{})
		assert.Equal(t, []string{"-a", "/src/x/", "/dst/x" + string(filepath.Separator)}, r.Args(Request{Source: "/src/x/", Destination: "/dst/x"}))
	})

	t.Run("non_zero_exit_is_failure", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, "rsync", mock.Anything).
			Return(shell.Output{ExitCode: 23}, &shell.ExitError{Command: "rsync", ExitCode: 23})

		_, err := NewRsync("rsync", nil, nil, runner).Transfer(ctx, Request{Folder: "x", Source: "/s/x", Destination: filepath.Join(t.TempDir(), "x")})
		require.Error(t, err)
		var exitErr *shell.ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 23, exitErr.ExitCode)
	})

	t.Run("in_flight_copy_outlives_interrupt", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		runner := &mockRunner{}
		runner.On("Run", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), "rsync", mock.Anything).
			Return(shell.Output{Stdout: "Number of regular files transferred: 3\n"}, nil)

		stats, err := NewRsync("rsync", nil, nil, runner).Transfer(cancelled, Request{Folder: "x", Source: "/s/x", Destination: filepath.Join(t.TempDir(), "x")})
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Files)
		runner.AssertExpectations(t)
	})

	t.Run("stats_missing", func(t *testing.T) {
		assert.Equal(t, Stats{}, parseStats("sent 100 bytes  received 20 bytes"))
	})

	t.Run("stats_digit_groups", func(t *testing.T) {
		assert.Equal(t, Stats{Files: 1200, Bytes: 9876543210}, parseStats(
			"Number of regular files transferred: 1,200\nTotal transferred file size: 9,876,543,210 bytes\n"))
	})

	t.Run("stats_human_readable_is_not_misread", func(t *testing.T) {
		stats := parseStats("Number of regular files transferred: 12\nTotal transferred file size: 1.23M bytes\n")
		assert.Equal(t, 12, stats.Files)
		assert.Zero(t, stats.Bytes, "1.23M must not become 123")
	})
}

func TestMove(t *testing.T) {
	ctx := setupTestLogger(t)

	t.Run("moves_folder", func(t *testing.T) {
		root := t.TempDir()
		src := filepath.Join(root, "src", "2024-01-01")
		require.NoError(t, os.MkdirAll(src, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(src, "a.jpg"), make([]byte, 10), 0o644))
		dest := filepath.Join(root, "dst", "2024", "2024-01-01")

		stats, err := NewMove().Transfer(ctx, Request{Folder: "2024-01-01", Source: src, Destination: dest})
		require.NoError(t, err)
		assert.Equal(t, Stats{Files: 1, Bytes: 10}, stats)
		assert.NoDirExists(t, src)
		assert.FileExists(t, filepath.Join(dest, "a.jpg"))
	})

	t.Run("existing_destination_is_error", func(t *testing.T) {
		root := t.TempDir()
		src := filepath.Join(root, "src")
		dest := filepath.Join(root, "dst")
		require.NoError(t, os.MkdirAll(src, 0o755))
		require.NoError(t, os.MkdirAll(dest, 0o755))

		_, err := NewMove().Transfer(ctx, Request{Source: src, Destination: dest})
		require.Error(t, err)
		assert.DirExists(t, src)
	})

	t.Run("executor_reports_source_consumed", func(t *testing.T) {
		root := t.TempDir()
		src := filepath.Join(root, "src", "2024-01-01")
		require.NoError(t, os.MkdirAll(src, 0o755))

		rm := &mockRemover{}
		x, err := New(Options{Transferer: NewMove(), Remover: rm, Layout: FlatLayout{}, DestinationRoot: filepath.Join(root, "dst")})
		require.NoError(t, err)

		res := x.Execute(ctx, catalog.FolderRecord{ID: "2024-01-01", Path: src}, false)
		assert.True(t, res.OK())
		assert.Equal(t, DeleteDone, res.Delete)
		rm.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	})
}

func TestRemovers(t *testing.T) {
	ctx := setupTestLogger(t)

	t.Run("local", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "gone")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "inner"), 0o755))
		require.NoError(t, NewLocalRemover().Remove(ctx, dir))
		assert.NoDirExists(t, dir)

		require.Error(t, NewLocalRemover().Remove(ctx, "/"))
		require.Error(t, NewLocalRemover().Remove(ctx, ""))
	})

	t.Run("ssh", func(t *testing.T) {
		runner := &mockRunner{}
		runner.On("Run", mock.Anything, "ssh", []string{"-o", "BatchMode=yes", "nas", "rm -rf -- '/srv/my backups/x'"}).
			Return(shell.Output{}, nil)

		require.NoError(t, NewSSHRemover(shell.SSH{Host: "nas"}, runner).Remove(ctx, "/srv/my backups/x"))
		runner.AssertExpectations(t)
	})

	t.Run("ssh_delete_outlives_interrupt", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		runner := &mockRunner{}
		runner.On("Run", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), "ssh", mock.Anything).
			Return(shell.Output{}, nil)

		require.NoError(t, NewSSHRemover(shell.SSH{Host: "nas"}, runner).Remove(cancelled, "/srv/backups/x"))
		runner.AssertExpectations(t)
	})
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		Source:      config.Source{Path: "/srv/backups", Host: "nas"},
		Destination: config.Destination{Path: "/archive", Layout: config.LayoutFlat},
		Selection:   config.Selection{DaysThreshold: config.IntPtr(60)},
		History:     config.History{Path: "/var/lib/shredsync/history.json"},
	}
	require.NoError(t, cfg.Validate())

	x, err := FromConfig(cfg, &mockRunner{})
	require.NoError(t, err)
	assert.IsType(t, &Rsync{}, x.opts.Transferer)
	assert.IsType(t, &SSHRemover{}, x.opts.Remover)
	assert.IsType(t, FlatLayout{}, x.opts.Layout)

	cfg.Source.Host = ""
	cfg.Transfer.Action = config.ActionMove
	x, err = FromConfig(cfg, &mockRunner{})
	require.NoError(t, err)
	assert.IsType(t, &Move{}, x.opts.Transferer)
	assert.IsType(t, &LocalRemover{}, x.opts.Remover)

	cfg.Source.Host = "nas"
	_, err = FromConfig(cfg, &mockRunner{})
	require.Error(t, err)
}

func TestCheckSpace(t *testing.T) {
	ctx := setupTestLogger(t)
	dest := filepath.Join(t.TempDir(), "not", "yet", "there")

	require.NoError(t, checkSpace(dest, -1), "unknown size passes")
	require.NoError(t, checkSpace(dest, 1))

	err := checkSpace(dest, 1<<62)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientSpace))

	tr := &mockTransferer{}
	x, err := New(Options{Transferer: tr, Remover: &mockRemover{}, Layout: FlatLayout{}, DestinationRoot: dest, CheckSpace: true})
	require.NoError(t, err)

	res := x.Execute(ctx, catalog.FolderRecord{ID: "huge", Path: "/src/huge", Size: 1 << 62}, true)
	assert.False(t, res.Transferred)
	assert.True(t, errors.Is(res.TransferErr, ErrInsufficientSpace))
	tr.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}
