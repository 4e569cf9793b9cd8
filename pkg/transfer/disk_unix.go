//go:build !windows

package transfer

import (
	"golang.org/x/sys/unix"
)

// freeBytes is the space available to unprivileged users on path's filesystem
func freeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
