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
	"github.com/walteh/shredsync/pkg/history"
	"github.com/walteh/shredsync/pkg/selection"
	"github.com/walteh/shredsync/pkg/status"
	"github.com/walteh/shredsync/pkg/transfer"
)

// 🎯 Operation is one unit of work the runner executes
type Operation interface {
	Execute(ctx context.Context) error
}

// 🔍 Scanner lists candidate folders
type Scanner interface {
	Scan(ctx context.Context) (*catalog.Result, error)
}

// 🚚 Executor runs the transfer and delete phases for a folder
type Executor interface {
	Execute(ctx context.Context, rec catalog.FolderRecord, deleteSource bool) transfer.Result
	DeleteOnly(ctx context.Context, rec catalog.FolderRecord) transfer.Result
	Destination(rec catalog.FolderRecord) string
}

// 🔧 Options contains the collaborators of an operation
type Options struct {
	// Scanner enumerates the source
	Scanner Scanner
	// Criteria decides eligibility
	Criteria selection.Criteria
	// History is a loaded store
	History history.Store
	// Executor performs transfers; only sync needs it
	Executor Executor
	// Action is recorded with each entry (copy or move)
	Action string
	// DryRun logs what sync would do without touching anything
	DryRun bool
	// Now is the run's clock, time.Now when nil
	Now func() time.Time
}

func (o Options) validate() error {
	if o.Scanner == nil {
		return errors.Errorf("scanner is required")
	}
	if o.Criteria == nil {
		return errors.Errorf("selection criteria are required")
	}
	if o.History == nil {
		return errors.Errorf("history store is required")
	}
	return nil
}

// 📦 BaseOperation holds what every folder operation shares
type BaseOperation struct {
	Options
	report *status.Report
}

// 🏭 NewBaseOperation creates a base operation reporting in mode
func NewBaseOperation(ctx context.Context, opts Options, mode status.Mode) BaseOperation {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return BaseOperation{
		Options: opts,
		report:  status.NewReport(mode, zerolog.Ctx(ctx)),
	}
}

// Report returns the outcomes gathered so far
func (op *BaseOperation) Report() *status.Report {
	return op.report
}

// scanAndSelect runs the catalog and the filter; scan errors are fatal
func (op *BaseOperation) scanAndSelect(ctx context.Context) (selection.Selection, time.Time, error) {
	now := op.Now()

	res, err := op.Scanner.Scan(ctx)
	if err != nil {
		return selection.Selection{}, now, errors.Errorf("scanning source: %w", err)
	}
	op.report.SetScan(len(res.Records), len(res.Warnings))

	sel := selection.Select(ctx, res.Records, op.Criteria, now)
	op.report.SetSelection(len(sel.Eligible), len(sel.Rejected))

	zerolog.Ctx(ctx).Info().
		Int("scanned", len(res.Records)).
		Int("eligible", len(sel.Eligible)).
		Str("criteria", op.Criteria.String()).
		Msg("selection ready")

	return sel, now, nil
}

func outcomeFor(rec catalog.FolderRecord, now time.Time) status.FolderOutcome {
	return status.FolderOutcome{
		Folder:  rec.ID,
		Date:    rec.Date.Time,
		AgeDays: rec.AgeDays(now),
		Size:    rec.Size,
	}
}
