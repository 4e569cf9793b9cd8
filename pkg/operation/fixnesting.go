package operation

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🪆 NestingFix is one X/X pair found under the destination
type NestingFix struct {
	Outer   string
	Inner   string
	Moved   int
	Applied bool
	Reason  string // why the pair was left alone
}

// 🪆 FixNestingOperation collapses folders nested inside a folder of the same
// name, a leftover of transfers that ran with a missing trailing slash
type FixNestingOperation struct {
	root   string
	dryRun bool
	fixes  []NestingFix
	rename func(oldpath, newpath string) error
}

// 🏭 NewFixNestingOperation creates a fix-nesting operation rooted at the destination
func NewFixNestingOperation(root string, dryRun bool) (*FixNestingOperation, error) {
	if root == "" {
		return nil, errors.Errorf("destination root is required")
	}
	return &FixNestingOperation{root: filepath.Clean(root), dryRun: dryRun, rename: os.Rename}, nil
}

// Fixes returns the pairs found by the last Execute
func (op *FixNestingOperation) Fixes() []NestingFix {
	return op.fixes
}

// 🏃 Execute finds X/X pairs, deepest first, and moves the inner contents up
func (op *FixNestingOperation) Execute(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	op.fixes = nil

	var dirs []string
	err := filepath.WalkDir(op.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != op.root {
			dirs = append(dirs, p)
		}
		return nil
	})
	if err != nil {
		return errors.Errorf("walking destination: %w", err)
	}

	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], string(filepath.Separator)), strings.Count(dirs[j], string(filepath.Separator))
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	for _, inner := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		outer := filepath.Dir(inner)
		if outer == op.root || filepath.Base(outer) != filepath.Base(inner) {
			continue
		}
		if _, err := os.Stat(inner); err != nil {
			// removed by an earlier, deeper collapse
			continue
		}

		fix := op.collapse(ctx, outer, inner)
		op.fixes = append(op.fixes, fix)
		ev := logger.Info()
		if fix.Reason != "" {
			ev = logger.Warn().Str("reason", fix.Reason)
		}
		ev.Str("outer", outer).Str("inner", inner).Int("moved", fix.Moved).Bool("applied", fix.Applied).Msg("nested folder")
	}

	return nil
}

func (op *FixNestingOperation) collapse(ctx context.Context, outer, inner string) NestingFix {
	fix := NestingFix{Outer: outer, Inner: inner}

	children, err := os.ReadDir(inner)
	if err != nil {
		fix.Reason = err.Error()
		return fix
	}

	for _, c := range children {
		if c.Name() == filepath.Base(inner) {
			continue
		}
		if _, err := os.Lstat(filepath.Join(outer, c.Name())); err == nil {
			fix.Reason = "conflict on " + c.Name()
			return fix
		}
	}

	if op.dryRun {
		fix.Moved = len(children)
		return fix
	}

	// the inner folder may itself hold an entry with the shared name; park it first
	parked := ""
	for _, c := range children {
		if c.Name() != filepath.Base(inner) {
			continue
		}
		tmp, err := os.MkdirTemp(outer, ".shredsync-nest-*")
		if err != nil {
			fix.Reason = err.Error()
			return fix
		}
		parked = filepath.Join(tmp, c.Name())
		if err := op.rename(filepath.Join(inner, c.Name()), parked); err != nil {
			fix.Reason = err.Error()
			_ = os.Remove(tmp)
			return fix
		}
	}

	var moved []string
	for _, c := range children {
		if c.Name() == filepath.Base(inner) {
			continue
		}
		if err := op.rename(filepath.Join(inner, c.Name()), filepath.Join(outer, c.Name())); err != nil {
			fix.Reason = op.undo(outer, inner, moved, parked, err)
			fix.Moved = 0
			return fix
		}
		moved = append(moved, c.Name())
		fix.Moved++
	}

	if err := os.Remove(inner); err != nil {
		fix.Reason = op.undo(outer, inner, moved, parked, err)
		fix.Moved = 0
		return fix
	}

	if parked != "" {
		if err := op.rename(parked, inner); err != nil {
			fix.Reason = op.undo(outer, inner, moved, parked, err)
			fix.Moved = 0
			return fix
		}
		_ = os.Remove(filepath.Dir(parked))
		fix.Moved++
	}

	fix.Applied = true
	zerolog.Ctx(ctx).Debug().Str("folder", outer).Msg("collapsed nested folder")
	return fix
}

// undo puts a half-done collapse back under inner; the reason names whatever
// could not be restored
func (op *FixNestingOperation) undo(outer, inner string, moved []string, parked string, cause error) string {
	reason := cause.Error()
	if err := os.MkdirAll(inner, 0o755); err != nil {
		reason += "; recreating " + inner + ": " + err.Error()
		if parked != "" {
			reason += "; parked folder left at " + parked
		}
		return reason
	}
	for _, name := range moved {
		if err := op.rename(filepath.Join(outer, name), filepath.Join(inner, name)); err != nil {
			reason += "; " + name + " left in " + outer
		}
	}
	if parked != "" {
		if err := op.rename(parked, filepath.Join(inner, filepath.Base(parked))); err != nil {
			return reason + "; parked folder left at " + parked
		}
		_ = os.Remove(filepath.Dir(parked))
	}
	return reason
}
