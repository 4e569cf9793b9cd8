package transfer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrCrossDevice is wrapped when a move would cross filesystems
var ErrCrossDevice = errors.Base("source and destination are on different filesystems")

// 📦 Move renames a local folder into the destination. The source is gone afterwards.
type Move struct{}

// 🏭 NewMove creates a move transferer
func NewMove() *Move {
	return &Move{}
}

// ConsumesSource reports that nothing is left to delete after a move
func (m *Move) ConsumesSource() bool {
	return true
}

// Transfer implements Transferer
func (m *Move) Transfer(ctx context.Context, req Request) (Stats, error) {
	if _, err := os.Lstat(req.Destination); err == nil {
		return Stats{}, errors.Errorf("destination %s already exists", req.Destination)
	} else if !os.IsNotExist(err) {
		return Stats{}, errors.Errorf("checking destination: %w", err)
	}

	stats, err := countTree(req.Source)
	if err != nil {
		return Stats{}, errors.Errorf("reading source: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return Stats{}, errors.Errorf("creating destination parent: %w", err)
	}

	if err := os.Rename(req.Source, req.Destination); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return Stats{}, errors.Errorf("%w: %s -> %s", ErrCrossDevice, req.Source, req.Destination)
		}
		return Stats{}, errors.Errorf("renaming folder: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("from", req.Source).Str("to", req.Destination).Msg("folder moved")
	return stats, nil
}

func countTree(root string) (Stats, error) {
	var s Stats
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			s.Files++
			s.Bytes += fi.Size()
		}
		return nil
	})
	return s, err
}
