//go:build !windows

package main

import (
	"golang.org/x/sys/unix"

	"github.com/walteh/shredsync/pkg/config"
)

// applyUmask sets the process umask so transferred files get the configured permissions
func applyUmask(mask string) (int, error) {
	m, err := config.ParseMode(mask)
	if err != nil {
		return 0, err
	}
	return unix.Umask(int(m)), nil
}
