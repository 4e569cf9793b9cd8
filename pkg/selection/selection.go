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

// Package selection decides which catalogued folders are eligible for transfer.
package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/catalog"
	"github.com/walteh/shredsync/pkg/config"
)

// 🎯 Criteria is either a Threshold or a Window
type Criteria interface {
	// Match reports whether a valid folder date qualifies, and why not when it does not
	Match(date, now time.Time) (bool, Reason)
	String() string
}

// 🏷️ Reason explains a rejection
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonInvalidDate Reason = "invalid_date"
	ReasonTooRecent   Reason = "too_recent"
	ReasonBeforeRange Reason = "before_window"
	ReasonAfterRange  Reason = "after_window"
)

// ⏳ Threshold selects folders at least Days calendar days old
type Threshold struct {
	Days int
}

// Match implements Criteria; the boundary is inclusive
func (c Threshold) Match(date, now time.Time) (bool, Reason) {
	if catalog.CalendarDays(date, now) >= c.Days {
		return true, ReasonNone
	}
	return false, ReasonTooRecent
}

func (c Threshold) String() string {
	return fmt.Sprintf("older than %d days", c.Days)
}

// 🗓️ Window selects folders dated between today-PriorDays and today+AfterDays, by calendar day
type Window struct {
	PriorDays int
	AfterDays int
}

// Match implements Criteria; both ends are inclusive
func (c Window) Match(date, now time.Time) (bool, Reason) {
	day := startOfDay(date.In(now.Location()))
	today := startOfDay(now)
	if day.Before(today.AddDate(0, 0, -c.PriorDays)) {
		return false, ReasonBeforeRange
	}
	if day.After(today.AddDate(0, 0, c.AfterDays)) {
		return false, ReasonAfterRange
	}
	return true, ReasonNone
}

func (c Window) String() string {
	return fmt.Sprintf("dated from %d days before to %d days after today", c.PriorDays, c.AfterDays)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// 🚫 Rejected is a folder the filter left out
type Rejected struct {
	Record catalog.FolderRecord
	Reason Reason
}

// 📦 Selection is the outcome of filtering one scan
type Selection struct {
	Eligible []catalog.FolderRecord
	Rejected []Rejected
}

// 🔍 Select splits records into eligible and rejected, preserving input order.
// A record without a valid date is rejected and logged, never fatal.
func Select(ctx context.Context, records []catalog.FolderRecord, criteria Criteria, now time.Time) Selection {
	logger := zerolog.Ctx(ctx)

	var sel Selection
	for _, rec := range records {
		if !rec.Date.Valid() {
			logger.Warn().Str("folder", rec.ID).Msg("folder has no valid date, not eligible")
			sel.Rejected = append(sel.Rejected, Rejected{Record: rec, Reason: ReasonInvalidDate})
			continue
		}
		ok, reason := criteria.Match(rec.Date.Time, now)
		if !ok {
			logger.Debug().Str("folder", rec.ID).Str("reason", string(reason)).Msg("folder not eligible")
			sel.Rejected = append(sel.Rejected, Rejected{Record: rec, Reason: reason})
			continue
		}
		sel.Eligible = append(sel.Eligible, rec)
	}

	logger.Debug().
		Str("criteria", criteria.String()).
		Int("eligible", len(sel.Eligible)).
		Int("rejected", len(sel.Rejected)).
		Msg("selection complete")

	return sel
}

// 🏭 FromConfig builds the criteria configured in sel; a missing window bound counts as zero days
func FromConfig(sel config.Selection) (Criteria, error) {
	switch {
	case sel.DaysThreshold != nil && sel.IsWindow():
		return nil, errors.Errorf("threshold and window are mutually exclusive")
	case sel.DaysThreshold != nil:
		if *sel.DaysThreshold < 0 {
			return nil, errors.Errorf("days threshold must not be negative: got %d", *sel.DaysThreshold)
		}
		return Threshold{Days: *sel.DaysThreshold}, nil
	case sel.IsWindow():
		w := Window{}
		if sel.PriorDays != nil {
			w.PriorDays = *sel.PriorDays
		}
		if sel.AfterDays != nil {
			w.AfterDays = *sel.AfterDays
		}
		if w.PriorDays < 0 || w.AfterDays < 0 {
			return nil, errors.Errorf("window bounds must not be negative")
		}
		return w, nil
	default:
		return nil, errors.Errorf("no selection criteria configured")
	}
}
