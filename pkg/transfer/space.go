package transfer

import (
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// ErrInsufficientSpace is wrapped when a folder will not fit on the destination
var ErrInsufficientSpace = errors.Base("not enough free space on destination")

// checkSpace fails when need bytes do not fit under dest; unknown sizes pass
func checkSpace(dest string, need int64) error {
	if need <= 0 {
		return nil
	}
	dir := existingAncestor(dest)
	free, err := freeBytes(dir)
	if err != nil {
		return errors.Errorf("checking free space on %s: %w", dir, err)
	}
	if uint64(need) > free {
		return errors.Errorf("%w: need %d bytes, %d available on %s", ErrInsufficientSpace, need, free, dir)
	}
	return nil
}

func existingAncestor(p string) string {
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
