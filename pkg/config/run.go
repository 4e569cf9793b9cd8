package config

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🎛️ Mode is the top-level run mode
type Mode string

const (
	ModeList Mode = "list"
	ModeSync Mode = "sync"
)

// 🏁 RunArgs are the per-invocation modifiers: `<list|sync> [delete|nodelete] [verify]`
type RunArgs struct {
	Mode   Mode
	Delete bool
	Verify bool
	DryRun bool
}

// ParseRunArgs parses the positional run tokens.
// list ignores delete/verify; sync requires an explicit delete or nodelete.
func ParseRunArgs(args []string) (RunArgs, error) {
	if len(args) == 0 {
		return RunArgs{}, errors.New("no mode provided: use 'list', 'sync delete' or 'sync nodelete'")
	}

	var run RunArgs
	switch Mode(strings.ToLower(args[0])) {
	case ModeList:
		run.Mode = ModeList
	case ModeSync:
		run.Mode = ModeSync
	default:
		return RunArgs{}, errors.Errorf("unknown mode %q: use 'list' or 'sync'", args[0])
	}

	var sawDelete, sawNoDelete bool
	for _, tok := range args[1:] {
		switch strings.ToLower(tok) {
		case "delete":
			sawDelete = true
		case "nodelete":
			sawNoDelete = true
		case "verify":
			run.Verify = true
		default:
			return RunArgs{}, errors.Errorf("unknown argument %q: expected delete, nodelete or verify", tok)
		}
	}

	if sawDelete && sawNoDelete {
		return RunArgs{}, errors.New("delete and nodelete are mutually exclusive")
	}

	if run.Mode == ModeList {
		return RunArgs{Mode: ModeList}, nil
	}

	if !sawDelete && !sawNoDelete {
		return RunArgs{}, errors.New("sync requires 'delete' or 'nodelete'")
	}
	run.Delete = sawDelete

	return run, nil
}

// String renders the args back into their positional form
func (r RunArgs) String() string {
	parts := []string{string(r.Mode)}
	if r.Mode == ModeSync {
		if r.Delete {
			parts = append(parts, "delete")
		} else {
			parts = append(parts, "nodelete")
		}
		if r.Verify {
			parts = append(parts, "verify")
		}
	}
	return strings.Join(parts, " ")
}
