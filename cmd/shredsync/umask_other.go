//go:build windows

package main

import (
	"gitlab.com/tozd/go/errors"
)

func applyUmask(mask string) (int, error) {
	return 0, errors.Errorf("umask %s is not supported on windows", mask)
}
