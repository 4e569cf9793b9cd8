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

package operation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/catalog"
	"github.com/walteh/shredsync/pkg/config"
	"github.com/walteh/shredsync/pkg/history"
	"github.com/walteh/shredsync/pkg/status"
	"github.com/walteh/shredsync/pkg/transfer"
)

// 🔄 SyncOperation transfers eligible folders and records their outcomes
type SyncOperation struct {
	BaseOperation
	args config.RunArgs
}

// 🏭 NewSyncOperation creates a sync operation for args
func NewSyncOperation(ctx context.Context, opts Options, args config.RunArgs) (*SyncOperation, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Executor == nil {
		return nil, errors.Errorf("executor is required")
	}
	if args.Mode != config.ModeSync {
		return nil, errors.Errorf("sync operation cannot run in %s mode", args.Mode)
	}
	if opts.Action == "" {
		opts.Action = config.ActionCopy
	}
	opts.DryRun = opts.DryRun || args.DryRun
	return &SyncOperation{
		BaseOperation: NewBaseOperation(ctx, opts, status.ModeSync),
		args:          args,
	}, nil
}

// 🏃 Execute runs the sync. Per-folder failures land in the report; the
// returned error is reserved for scan failures, cancellation and history writes.
func (op *SyncOperation) Execute(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	sel, now, err := op.scanAndSelect(ctx)
	if err != nil {
		return err
	}

	view := history.NewView(op.History, op.args.Verify)
	if view.Verify() {
		logger.Info().Msg("verify run, previously processed folders are transferred again")
	}

	op.report.StartOperation(ctx, len(sel.Eligible))
	defer op.report.FinishOperation(ctx)

	for i, rec := range sel.Eligible {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("sync interrupted after %d of %d folders: %w", i, len(sel.Eligible), err)
		}

		if err := op.syncFolder(ctx, view, rec, now); err != nil {
			return err
		}
		op.report.UpdateProgress(ctx, i+1)
	}

	logger.Debug().Msg("sync complete")
	return nil
}

func (op *SyncOperation) syncFolder(ctx context.Context, view *history.View, rec catalog.FolderRecord, now time.Time) error {
	o := outcomeFor(rec, now)
	o.Destination = op.Executor.Destination(rec)

	if view.IsProcessed(rec.ID) {
		prev, _ := view.Get(rec.ID)
		if op.args.Delete && prev.DeletePending && !op.DryRun {
			return op.retryDelete(ctx, view, rec, prev, o)
		}
		o.Status = status.StatusSkipped
		o.Deleted = prev.Deleted
		op.report.Track(ctx, o)
		return nil
	}

	if op.DryRun {
		o.Status = status.StatusDryRun
		op.report.Track(ctx, o)
		return nil
	}

	res := op.Executor.Execute(ctx, rec, op.args.Delete)
	o.Files = res.Files
	o.Bytes = res.Bytes
	o.Duration = res.Duration
	o.Deleted = res.Delete == transfer.DeleteDone

	entry := history.Entry{
		Folder:        rec.ID,
		ProcessedAt:   op.Now(),
		Action:        op.Action,
		Deleted:       o.Deleted,
		DeletePending: res.Delete == transfer.DeleteFailed,
	}
	switch {
	case res.OK():
		entry.Outcome = history.OutcomeSuccess
		o.Status = status.StatusTransferred
	case !res.Transferred:
		entry.Outcome = history.OutcomeFailure
		entry.Error = res.TransferErr.Error()
		o.Status = status.StatusFailed
		o.Err = res.TransferErr
	default:
		entry.Outcome = history.OutcomeSuccess
		entry.Error = res.DeleteErr.Error()
		o.Status = status.StatusDeleteFailed
		o.Err = res.DeleteErr
	}

	op.report.Track(ctx, o)

	if err := view.Commit(ctx, entry); err != nil {
		return errors.Errorf("recording outcome of %s: %w", rec.ID, err)
	}
	return nil
}

func (op *SyncOperation) retryDelete(ctx context.Context, view *history.View, rec catalog.FolderRecord, prev history.Entry, o status.FolderOutcome) error {
	zerolog.Ctx(ctx).Info().Str("folder", rec.ID).Msg("retrying source delete for a transferred folder")

	res := op.Executor.DeleteOnly(ctx, rec)
	o.Duration = res.Duration

	entry := history.Entry{
		Folder:      rec.ID,
		ProcessedAt: op.Now(),
		Outcome:     history.OutcomeSuccess,
		Action:      prev.Action,
	}
	if res.Delete == transfer.DeleteDone {
		entry.Deleted = true
		o.Deleted = true
		o.Status = status.StatusPendingDeleted
	} else {
		entry.DeletePending = true
		entry.Error = res.DeleteErr.Error()
		o.Status = status.StatusDeleteFailed
		o.Err = res.DeleteErr
	}

	op.report.Track(ctx, o)

	if err := view.Commit(ctx, entry); err != nil {
		return errors.Errorf("recording outcome of %s: %w", rec.ID, err)
	}
	return nil
}
