package transfer

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/shell"
)

// 🔁 Rsync copies with rsync(1), pulling over ssh when the source is remote
type Rsync struct {
	path   string
	flags  []string
	ssh    *shell.SSH
	runner shell.Runner
}

// 🏭 NewRsync creates an rsync transferer; ssh is nil for a local source
func NewRsync(path string, flags []string, ssh *shell.SSH, runner shell.Runner) *Rsync {
	if path == "" {
		path = "rsync"
	}
	return &Rsync{path: path, flags: flags, ssh: ssh, runner: runner}
}

// Args is the rsync argument list for req
func (r *Rsync) Args(req Request) []string {
	args := append([]string{}, r.flags...)
	src := strings.TrimRight(req.Source, "/") + "/"
	if r.ssh != nil {
		args = append(args, "-e", r.ssh.RsyncShell())
		src = r.ssh.Target() + ":" + src
	}
	return append(args, src, strings.TrimRight(req.Destination, string(filepath.Separator))+string(filepath.Separator))
}

// Transfer implements Transferer; success is a zero exit status
func (r *Rsync) Transfer(ctx context.Context, req Request) (Stats, error) {
	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return Stats{}, errors.Errorf("creating destination parent: %w", err)
	}

	// an interrupt stops the run between folders, never halfway through a copy
	out, err := r.runner.Run(context.WithoutCancel(ctx), r.path, r.Args(req)...)
	if err != nil {
		return Stats{}, errors.Errorf("rsync %s: %w", req.Folder, err)
	}

	stats := parseStats(out.Stdout)
	zerolog.Ctx(ctx).Debug().Int("files", stats.Files).Int64("bytes", stats.Bytes).Msg("rsync finished")
	return stats, nil
}

var (
	statsFilesRe = regexp.MustCompile(`(?m)^Number of (?:regular )?files transferred:\s*([\d,.]+)`)
	statsBytesRe = regexp.MustCompile(`(?m)^Total transferred file size:\s*([\d,.]+)`)
)

// parseStats reads the --stats summary; missing fields stay zero
func parseStats(stdout string) Stats {
	var s Stats
	if m := statsFilesRe.FindStringSubmatch(stdout); m != nil {
		n, _ := strconv.Atoi(stripDigitGroups(m[1]))
		s.Files = n
	}
	if m := statsBytesRe.FindStringSubmatch(stdout); m != nil {
		n, _ := strconv.ParseInt(stripDigitGroups(m[1]), 10, 64)
		s.Bytes = n
	}
	return s
}

func stripDigitGroups(s string) string {
	return strings.ReplaceAll(s, ",", "")
}
