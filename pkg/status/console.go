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
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// 🎨 Display configuration
const (
	folderIndent = 4  // spaces to indent folder lines
	nameWidth    = 48 // width for the folder name
	ageWidth     = 8  // width for the age column
	statusWidth  = 15 // width for the status text
)

// 🎯 FormatFolderLine formats one outcome for the console
func FormatFolderLine(o FolderOutcome) string {
	var prefix string
	switch o.Status {
	case StatusTransferred, StatusPendingDeleted:
		prefix = color.GreenString("✓")
	case StatusEligible, StatusDryRun:
		prefix = color.CyanString("→")
	case StatusDeleteFailed:
		prefix = color.YellowString("!")
	case StatusFailed:
		prefix = color.RedString("✗")
	default:
		prefix = color.HiBlackString("-")
	}

	age := "-"
	if o.AgeDays >= 0 && !o.Date.IsZero() {
		age = fmt.Sprintf("%dd", o.AgeDays)
	}

	line := fmt.Sprintf("%s%s %-*s %-*s %-*s",
		strings.Repeat(" ", folderIndent),
		prefix,
		nameWidth, o.Folder,
		ageWidth, age,
		statusWidth, o.Status.String(),
	)
	if o.Err != nil {
		line += " " + color.RedString(o.Err.Error())
	}
	return strings.TrimRight(line, " ")
}

// 📝 FormatSummary formats the closing summary line
func FormatSummary(s Summary) string {
	if s.NothingEligible() {
		return fmt.Sprintf("nothing eligible (%d scanned, %d rejected, %d warnings)", s.Scanned, s.Rejected, s.Warnings)
	}
	if s.Mode == ModeList {
		return fmt.Sprintf("%d eligible of %d scanned (%d rejected, %d warnings)", s.Eligible, s.Scanned, s.Rejected, s.Warnings)
	}

	parts := []string{
		color.GreenString("%d success", s.Transferred),
		fmt.Sprintf("%d deleted", s.Deleted),
		fmt.Sprintf("%d skipped", s.Skipped),
	}
	if s.PendingDelete > 0 {
		parts = append(parts, fmt.Sprintf("%d pending deletes", s.PendingDelete))
	}
	if s.DryRun > 0 {
		parts = append(parts, fmt.Sprintf("%d dry-run", s.DryRun))
	}
	if s.Failed > 0 {
		parts = append(parts, color.RedString("%d failed", s.Failed))
	}
	if s.DeleteFailed > 0 {
		parts = append(parts, color.YellowString("%d delete failed", s.DeleteFailed))
	}
	line := strings.Join(parts, ", ")
	if s.AllFailed() {
		line = color.RedString("all folders failed") + ": " + line
	}
	return line
}
