package transfer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/shell"
)

func checkRemovable(path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" || clean == "/" || clean == "." || clean == "~" {
		return errors.Errorf("refusing to delete %q", path)
	}
	return nil
}

// 💾 LocalRemover deletes folders on a mounted filesystem
type LocalRemover struct{}

// 🏭 NewLocalRemover creates a local remover
func NewLocalRemover() *LocalRemover {
	return &LocalRemover{}
}

// Remove implements Remover
func (r *LocalRemover) Remove(ctx context.Context, path string) error {
	if err := checkRemovable(path); err != nil {
		return err
	}
	if filepath.Clean(path) == string(filepath.Separator) {
		return errors.Errorf("refusing to delete %q", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return errors.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// 🔐 SSHRemover deletes folders on the remote host with rm -rf
type SSHRemover struct {
	ssh    shell.SSH
	runner shell.Runner
}

// 🏭 NewSSHRemover creates a remote remover
func NewSSHRemover(ssh shell.SSH, runner shell.Runner) *SSHRemover {
	return &SSHRemover{ssh: ssh, runner: runner}
}

// Remove implements Remover
func (r *SSHRemover) Remove(ctx context.Context, path string) error {
	if err := checkRemovable(path); err != nil {
		return err
	}
	bin := r.ssh.Path
	if bin == "" {
		bin = "ssh"
	}
	// an interrupt stops the run between folders, never halfway through a delete
	if _, err := r.runner.Run(context.WithoutCancel(ctx), bin, r.ssh.Args("rm -rf -- "+shellescape.Quote(path))...); err != nil {
		return errors.Errorf("removing %s on %s: %w", path, r.ssh.Target(), err)
	}
	return nil
}
