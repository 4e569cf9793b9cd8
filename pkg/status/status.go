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

package status

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 FolderStatus is what happened to one folder in a run
type FolderStatus int

const (
	StatusUnknown       FolderStatus = iota
	StatusEligible                   // listed, would be transferred
	StatusSkipped                    // already processed
	StatusTransferred                // transferred, and deleted when asked
	StatusFailed                     // transfer failed, source untouched
	StatusDeleteFailed               // transferred, source delete failed
	StatusPendingDeleted             // earlier delete failure retried successfully
	StatusDryRun                     // would be transferred
)

// String returns a string representation of FolderStatus
func (s FolderStatus) String() string {
	switch s {
	case StatusEligible:
		return "eligible"
	case StatusSkipped:
		return "skipped"
	case StatusTransferred:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusDeleteFailed:
		return "delete_failed"
	case StatusPendingDeleted:
		return "pending_delete"
	case StatusDryRun:
		return "dry_run"
	default:
		return "unknown"
	}
}

// Failure reports whether the status counts against the exit code
func (s FolderStatus) Failure() bool {
	return s == StatusFailed || s == StatusDeleteFailed
}

// 🏷️ Mode is the run mode a report belongs to
type Mode string

const (
	ModeList Mode = "list"
	ModeSync Mode = "sync"
)

// 📄 FolderOutcome is one folder's line in the report
type FolderOutcome struct {
	Folder      string
	Destination string
	Status      FolderStatus
	Date        time.Time
	AgeDays     int
	Size        int64 // -1 when not measured
	Files       int
	Bytes       int64
	Deleted     bool
	Duration    time.Duration
	Err         error
}

// 📈 Summary is the tally of a run
type Summary struct {
	Mode     Mode
	Scanned  int
	Warnings int
	Eligible int
	Rejected int

	Listed        int
	Transferred   int
	Deleted       int
	Failed        int
	DeleteFailed  int
	Skipped       int
	PendingDelete int
	DryRun        int
}

// Attempted is the number of folders a transfer or delete was tried on
func (s Summary) Attempted() int {
	return s.Transferred + s.Failed + s.DeleteFailed + s.PendingDelete
}

// NothingEligible reports a run that had nothing to do
func (s Summary) NothingEligible() bool {
	return s.Eligible == 0
}

// AllFailed reports a run where every attempted folder failed to transfer
func (s Summary) AllFailed() bool {
	return s.Attempted() > 0 && s.Failed == s.Attempted()
}

// HasFailures reports whether any folder failed in either phase
func (s Summary) HasFailures() bool {
	return s.Failed+s.DeleteFailed > 0
}

// 🔧 Report tracks folder outcomes for one run
type Report struct {
	mode      Mode
	logger    *zerolog.Logger
	formatter Formatter

	mu       sync.RWMutex
	outcomes []FolderOutcome
	scanned  int
	warnings int
	eligible int
	rejected int

	total     int
	processed int
}

// 🏭 NewReport creates a report; a nil logger discards progress messages
func NewReport(mode Mode, logger *zerolog.Logger) *Report {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Report{
		mode:      mode,
		logger:    logger,
		formatter: NewDefaultFormatter(),
	}
}

// SetScan records the size of the scan
func (r *Report) SetScan(scanned, warnings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanned = scanned
	r.warnings = warnings
}

// SetSelection records the size of the eligible and rejected sets
func (r *Report) SetSelection(eligible, rejected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eligible = eligible
	r.rejected = rejected
}

// Track adds a folder outcome and logs it
func (r *Report) Track(ctx context.Context, o FolderOutcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()

	ev := r.logger.Info()
	if o.Status.Failure() {
		ev = r.logger.Error().Str("error", r.formatter.FormatError(o.Err))
	}
	ev.Str("folder", o.Folder).Str("status", o.Status.String()).Msg(r.formatter.FormatOutcome(o))
}

// Outcomes returns the tracked outcomes in order
func (r *Report) Outcomes() []FolderOutcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FolderOutcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Summary tallies the tracked outcomes
func (r *Report) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{
		Mode:     r.mode,
		Scanned:  r.scanned,
		Warnings: r.warnings,
		Eligible: r.eligible,
		Rejected: r.rejected,
	}
	for _, o := range r.outcomes {
		switch o.Status {
		case StatusEligible:
			s.Listed++
		case StatusSkipped:
			s.Skipped++
		case StatusTransferred:
			s.Transferred++
			if o.Deleted {
				s.Deleted++
			}
		case StatusFailed:
			s.Failed++
		case StatusDeleteFailed:
			s.DeleteFailed++
		case StatusPendingDeleted:
			s.PendingDelete++
			s.Deleted++
		case StatusDryRun:
			s.DryRun++
		}
	}
	return s
}

// Err is non-nil when the run should exit non-zero
func (r *Report) Err() error {
	s := r.Summary()
	if !s.HasFailures() {
		return nil
	}
	if s.AllFailed() {
		return errors.Errorf("all %d folders failed to transfer", s.Failed)
	}
	return errors.Errorf("%d folders failed to transfer, %d failed to delete", s.Failed, s.DeleteFailed)
}

// StartOperation announces how many folders will be worked on
func (r *Report) StartOperation(ctx context.Context, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	r.processed = 0
	r.logger.Info().Int("total", total).Msg(r.formatter.FormatProgress(0, total))
}

// UpdateProgress logs how many folders are done
func (r *Report) UpdateProgress(ctx context.Context, processed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processed = processed
	r.logger.Debug().
		Int("processed", processed).
		Int("total", r.total).
		Msg(r.formatter.FormatProgress(processed, r.total))
}

// FinishOperation logs the final progress line
func (r *Report) FinishOperation(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info().
		Int("processed", r.processed).
		Int("total", r.total).
		Msg(r.formatter.FormatProgress(r.processed, r.total))
}
