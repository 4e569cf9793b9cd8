package catalog

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/shell"
)

// 📄 Entry is one directory reported by a Lister
type Entry struct {
	RelPath string // relative to the root, forward slashes
	Path    string // full path on the source
	ModTime time.Time
}

// 📋 Lister enumerates directories under a source root
type Lister interface {
	// Root returns the source root, for messages
	Root() string
	// List returns the immediate subdirectories, or every directory below the root when recursive
	List(ctx context.Context, recursive bool) ([]Entry, error)
}

// 📏 Sizer measures the total size of a folder
type Sizer interface {
	Size(ctx context.Context, e Entry) (int64, error)
}

// 💾 LocalLister lists a directory on a mounted filesystem
type LocalLister struct {
	root string
}

// 🏭 NewLocalLister creates a lister for a local root
func NewLocalLister(root string) *LocalLister {
	return &LocalLister{root: filepath.Clean(root)}
}

func (l *LocalLister) Root() string {
	return l.root
}

// List implements Lister
func (l *LocalLister) List(ctx context.Context, recursive bool) ([]Entry, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		return nil, errors.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("source root %s is not a directory", l.root)
	}

	if !recursive {
		dirents, err := os.ReadDir(l.root)
		if err != nil {
			return nil, errors.Errorf("reading source root: %w", err)
		}
		entries := make([]Entry, 0, len(dirents))
		for _, d := range dirents {
			if !d.IsDir() {
				continue
			}
			fi, err := d.Info()
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("folder", d.Name()).Msg("skipping folder that vanished during listing")
				continue
			}
			entries = append(entries, Entry{
				RelPath: d.Name(),
				Path:    filepath.Join(l.root, d.Name()),
				ModTime: fi.ModTime(),
			})
		}
		return entries, nil
	}

	var entries []Entry
	err = filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() || p == l.root {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			RelPath: filepath.ToSlash(rel),
			Path:    p,
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking source root: %w", err)
	}
	return entries, nil
}

// Size implements Sizer by summing regular file sizes
func (l *LocalLister) Size(ctx context.Context, e Entry) (int64, error) {
	var total int64
	err := filepath.WalkDir(e.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.Type().IsRegular() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
		}
		return nil
	})
	if err != nil {
		return -1, errors.Errorf("measuring %s: %w", e.RelPath, err)
	}
	return total, nil
}

// 🔐 SSHLister lists a directory on a remote host through ssh and find(1)
type SSHLister struct {
	ssh      shell.SSH
	root     string
	findPath string
	runner   shell.Runner
}

// 🏭 NewSSHLister creates a remote lister; findPath is the find binary on the remote (e.g. gfind on macOS)
func NewSSHLister(ssh shell.SSH, root, findPath string, runner shell.Runner) *SSHLister {
	if findPath == "" {
		findPath = "find"
	}
	return &SSHLister{ssh: ssh, root: root, findPath: findPath, runner: runner}
}

func (l *SSHLister) Root() string {
	return l.ssh.Target() + ":" + l.root
}

// List implements Lister. Each output line is `<relpath>|<mtime epoch>`.
func (l *SSHLister) List(ctx context.Context, recursive bool) ([]Entry, error) {
	depth := ""
	if !recursive {
		depth = " -maxdepth 1"
	}
	remoteCmd := l.findPath + " " + shellescape.Quote(l.root) + " -mindepth 1" + depth + ` -type d -printf '%P|%T@\n'`

	out, err := l.runner.Run(ctx, l.sshPath(), l.ssh.Args(remoteCmd)...)
	if err != nil {
		return nil, errors.Errorf("listing remote folders: %w", err)
	}

	return parseFindOutput(ctx, l.root, out.Stdout), nil
}

// Size implements Sizer with du -sk on the remote
func (l *SSHLister) Size(ctx context.Context, e Entry) (int64, error) {
	out, err := l.runner.Run(ctx, l.sshPath(), l.ssh.Args("du -sk "+shellescape.Quote(e.Path))...)
	if err != nil {
		return -1, errors.Errorf("measuring %s: %w", e.RelPath, err)
	}
	fields := strings.Fields(out.Stdout)
	if len(fields) == 0 {
		return -1, errors.Errorf("measuring %s: empty du output", e.RelPath)
	}
	kb, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return -1, errors.Errorf("measuring %s: %w", e.RelPath, err)
	}
	return kb * 1024, nil
}

func (l *SSHLister) sshPath() string {
	if l.ssh.Path == "" {
		return "ssh"
	}
	return l.ssh.Path
}

func parseFindOutput(ctx context.Context, root, stdout string) []Entry {
	logger := zerolog.Ctx(ctx)

	var entries []Entry
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, "|")
		if idx <= 0 {
			logger.Warn().Str("line", line).Msg("unexpected line format in remote listing")
			continue
		}
		rel, stamp := line[:idx], line[idx+1:]
		secs, err := strconv.ParseFloat(stamp, 64)
		if err != nil {
			logger.Warn().Str("line", line).Err(err).Msg("unparseable mtime in remote listing")
			continue
		}
		whole := int64(secs)
		entries = append(entries, Entry{
			RelPath: rel,
			Path:    path.Join(root, rel),
			ModTime: time.Unix(whole, int64((secs-float64(whole))*1e9)),
		})
	}
	return entries
}
