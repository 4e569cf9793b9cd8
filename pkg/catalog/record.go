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

package catalog

import (
	"fmt"
	"time"
)

// 🏷️ AgeSource tells where a folder's date came from
type AgeSource string

const (
	AgeFromName  AgeSource = "name"
	AgeFromMtime AgeSource = "mtime"
)

// 📅 Age is the date signal of a folder
type Age struct {
	Time   time.Time
	Source AgeSource
}

// Valid reports whether a date was established
func (a Age) Valid() bool {
	return !a.Time.IsZero()
}

// 📁 FolderRecord is one candidate folder found on the source
type FolderRecord struct {
	ID      string    // path relative to the source root, forward slashes; the history key
	Name    string    // base name
	Path    string    // full path on the source (local or remote)
	Label   string    // human part of the name, used by the dated destination layout
	Date    Age       // parsed or mtime-derived date
	ModTime time.Time // last modification time as reported by the lister
	Size    int64     // bytes, -1 when not measured
}

// AgeDays is the number of calendar days between the folder date and now
func (r FolderRecord) AgeDays(now time.Time) int {
	if !r.Date.Valid() {
		return -1
	}
	return CalendarDays(r.Date.Time, now)
}

// CalendarDays counts midnights crossed from date to now, both read in now's location
func CalendarDays(date, now time.Time) int {
	dy, dm, dd := date.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	from := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}

// ⚠️ WarningKind classifies non-fatal scan problems
type WarningKind string

const (
	// FolderParseWarning marks a folder whose name carried no usable date
	FolderParseWarning WarningKind = "folder_parse"
)

// ⚠️ Warning is a skipped folder and the reason
type Warning struct {
	Kind   WarningKind
	Folder string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (%s)", w.Kind, w.Folder, w.Reason)
}

// ❌ ScanError is returned when the source cannot be listed at all
type ScanError struct {
	Source string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s: %v", e.Source, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
