// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transfer copies or moves one folder to the destination and
// optionally deletes the source afterwards.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/catalog"
	"github.com/walteh/shredsync/pkg/config"
	"github.com/walteh/shredsync/pkg/shell"
)

// 📦 Request is one folder to bring over
type Request struct {
	Folder      string // history key, for messages
	Source      string // path on the source, local or remote
	Destination string // local destination folder
}

// 📊 Stats is what a transferer reports about a finished copy
type Stats struct {
	Files int
	Bytes int64
}

// 🚚 Transferer copies a folder to its destination
type Transferer interface {
	Transfer(ctx context.Context, req Request) (Stats, error)
}

// sourceConsumer is implemented by transferers that leave nothing behind on the source
type sourceConsumer interface {
	ConsumesSource() bool
}

// 🗑️ Remover deletes a folder from the source
type Remover interface {
	Remove(ctx context.Context, path string) error
}

// 🏷️ DeleteState is the outcome of the delete phase
type DeleteState string

const (
	DeleteSkipped DeleteState = "skipped"
	DeleteDone    DeleteState = "deleted"
	DeleteFailed  DeleteState = "failed"
)

// 📋 Result is the two-phase outcome of one folder
type Result struct {
	Folder      string
	Destination string
	Transferred bool
	Delete      DeleteState
	TransferErr error
	DeleteErr   error
	Files       int
	Bytes       int64
	Duration    time.Duration
}

// OK reports whether every requested phase succeeded
func (r Result) OK() bool {
	return r.Transferred && r.Delete != DeleteFailed
}

// ❌ TransferError is a failed copy or move
type TransferError struct {
	Folder string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transferring %s: %v", e.Folder, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// ❌ DeleteError is a failed source delete after a successful transfer
type DeleteError struct {
	Folder string
	Path   string
	Err    error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("deleting source %s: %v", e.Path, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}

// 🔧 Options configures an Executor
type Options struct {
	Transferer      Transferer
	Remover         Remover
	Layout          Layout
	DestinationRoot string
	// CheckSpace refuses folders whose measured size exceeds the free space on the destination
	CheckSpace bool
}

// 🏃 Executor runs the transfer and delete phases for one folder at a time
type Executor struct {
	opts Options
}

// 🏭 New creates an executor
func New(opts Options) (*Executor, error) {
	if opts.Transferer == nil {
		return nil, errors.Errorf("transferer is required")
	}
	if opts.Remover == nil {
		return nil, errors.Errorf("remover is required")
	}
	if opts.DestinationRoot == "" {
		return nil, errors.Errorf("destination root is required")
	}
	if opts.Layout == nil {
		opts.Layout = DatedLayout{}
	}
	return &Executor{opts: opts}, nil
}

// 🏭 FromConfig builds the executor for cfg; runner executes rsync and ssh
func FromConfig(cfg *config.Config, runner shell.Runner) (*Executor, error) {
	layout, err := LayoutFor(cfg.Destination.Layout)
	if err != nil {
		return nil, err
	}

	var ssh *shell.SSH
	if cfg.Source.IsRemote() {
		ssh = &shell.SSH{
			Path:         cfg.Transfer.SSHPath,
			Host:         cfg.Source.Host,
			User:         cfg.Source.User,
			IdentityFile: cfg.Source.IdentityFile,
		}
	}

	var transferer Transferer
	switch cfg.Transfer.Action {
	case config.ActionMove:
		if ssh != nil {
			return nil, errors.Errorf("move requires a local source")
		}
		transferer = NewMove()
	case config.ActionCopy, "":
		transferer = NewRsync(cfg.Transfer.RsyncPath, cfg.Transfer.RsyncFlags, ssh, runner)
	default:
		return nil, errors.Errorf("unknown transfer action %q", cfg.Transfer.Action)
	}

	var remover Remover = NewLocalRemover()
	if ssh != nil {
		remover = NewSSHRemover(*ssh, runner)
	}

	return New(Options{
		Transferer:      transferer,
		Remover:         remover,
		Layout:          layout,
		DestinationRoot: cfg.Destination.Path,
		CheckSpace:      cfg.Source.MeasureSize && cfg.Transfer.Action != config.ActionMove,
	})
}

// Destination is where rec lands under the destination root
func (x *Executor) Destination(rec catalog.FolderRecord) string {
	return x.opts.Layout.Destination(x.opts.DestinationRoot, rec)
}

// 🚀 Execute transfers rec and, when deleteSource is set and the transfer
// succeeded, removes it from the source. A move consumes the source, so
// its delete phase always reports DeleteDone.
func (x *Executor) Execute(ctx context.Context, rec catalog.FolderRecord, deleteSource bool) Result {
	logger := zerolog.Ctx(ctx).With().Str("folder", rec.ID).Logger()
	start := time.Now()

	res := Result{
		Folder:      rec.ID,
		Destination: x.Destination(rec),
		Delete:      DeleteSkipped,
	}

	logger.Info().Str("source", rec.Path).Str("destination", res.Destination).Msg("transferring folder")

	if x.opts.CheckSpace {
		if err := checkSpace(res.Destination, rec.Size); err != nil {
			res.TransferErr = &TransferError{Folder: rec.ID, Err: err}
			res.Duration = time.Since(start)
			logger.Error().Err(err).Msg("skipping transfer")
			return res
		}
	}

	stats, err := x.opts.Transferer.Transfer(ctx, Request{
		Folder:      rec.ID,
		Source:      rec.Path,
		Destination: res.Destination,
	})
	if err != nil {
		res.TransferErr = &TransferError{Folder: rec.ID, Err: err}
		res.Duration = time.Since(start)
		logger.Error().Err(err).Msg("transfer failed, source left in place")
		return res
	}
	res.Transferred = true
	res.Files = stats.Files
	res.Bytes = stats.Bytes

	if c, ok := x.opts.Transferer.(sourceConsumer); ok && c.ConsumesSource() {
		res.Delete = DeleteDone
	} else if deleteSource {
		x.deletePhase(ctx, rec, &res)
	}

	res.Duration = time.Since(start)
	logger.Debug().
		Int("files", res.Files).
		Int64("bytes", res.Bytes).
		Str("delete", string(res.Delete)).
		Dur("duration", res.Duration).
		Msg("folder done")
	return res
}

// 🗑️ DeleteOnly retries the delete phase for a folder whose transfer already succeeded
func (x *Executor) DeleteOnly(ctx context.Context, rec catalog.FolderRecord) Result {
	start := time.Now()
	res := Result{
		Folder:      rec.ID,
		Destination: x.Destination(rec),
		Transferred: true,
		Delete:      DeleteSkipped,
	}
	x.deletePhase(ctx, rec, &res)
	res.Duration = time.Since(start)
	return res
}

func (x *Executor) deletePhase(ctx context.Context, rec catalog.FolderRecord, res *Result) {
	logger := zerolog.Ctx(ctx)
	if err := x.opts.Remover.Remove(ctx, rec.Path); err != nil {
		res.Delete = DeleteFailed
		res.DeleteErr = &DeleteError{Folder: rec.ID, Path: rec.Path, Err: err}
		logger.Error().Err(err).Str("folder", rec.ID).Msg("deleting source failed")
		return
	}
	res.Delete = DeleteDone
	logger.Info().Str("folder", rec.ID).Msg("source deleted")
}
