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

package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/config"
)

// SchemaVersion is written into every JSON history document
const SchemaVersion = "1.0.0"

// 🏷️ Outcome is the result of the last attempt on a folder
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// 📝 Entry is the stored state of one folder
type Entry struct {
	Folder        string    `json:"folder"`
	ProcessedAt   time.Time `json:"processed_at"`
	Outcome       Outcome   `json:"outcome"`
	Action        string    `json:"action,omitempty"`
	Deleted       bool      `json:"deleted"`
	DeletePending bool      `json:"delete_pending,omitempty"` // transfer succeeded, source delete failed
	Error         string    `json:"error,omitempty"`
	Attempts      int       `json:"attempts"`
	LastSuccessAt time.Time `json:"last_success_at,omitempty"`
}

// Succeeded reports whether the last attempt transferred the folder
func (e Entry) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// 📚 Store is a keyed outcome store with explicit load and flush
type Store interface {
	// Load reads the persisted state; a missing store is empty, a corrupt one is a *LoadError
	Load(ctx context.Context) error
	Get(folder string) (Entry, bool)
	// IsProcessed reports whether the folder has a success entry
	IsProcessed(folder string) bool
	// Record replaces the folder's entry, carrying over attempts and the last success time
	Record(ctx context.Context, e Entry) error
	// Flush makes every recorded entry durable
	Flush(ctx context.Context) error
	// Entries returns all entries ordered by folder
	Entries() []Entry
	Close() error
}

// ❌ LoadError is returned when a store exists but cannot be read
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading history %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// merge folds a new outcome into the previous entry for the same folder
func merge(prev Entry, hadPrev bool, next Entry) Entry {
	if next.ProcessedAt.IsZero() {
		next.ProcessedAt = time.Now()
	}
	next.Attempts = 1
	if hadPrev {
		next.Attempts = prev.Attempts + 1
		next.LastSuccessAt = prev.LastSuccessAt
	}
	if next.Succeeded() {
		next.LastSuccessAt = next.ProcessedAt
	}
	if next.Deleted {
		next.DeletePending = false
	}
	return next
}

func validateEntry(e Entry) error {
	if e.Folder == "" {
		return errors.New("entry has no folder")
	}
	if e.Outcome != OutcomeSuccess && e.Outcome != OutcomeFailure {
		return errors.Errorf("entry %s has unknown outcome %q", e.Folder, e.Outcome)
	}
	return nil
}

func sortedEntries(m map[string]Entry) []Entry {
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Folder < out[j].Folder })
	return out
}

// 🏭 Open creates the configured store and loads it
func Open(ctx context.Context, cfg config.History) (Store, error) {
	var store Store
	switch cfg.Format {
	case config.HistoryFormatJSON, "":
		store = NewFileStore(cfg.Path)
	case config.HistoryFormatSQLite:
		store = NewSQLiteStore(cfg.Path)
	default:
		return nil, errors.Errorf("unknown history format %q", cfg.Format)
	}
	if err := store.Load(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// 👁️ View is a run's window onto the store. With verify set every folder
// reads as unprocessed while stored entries stay untouched until a new
// outcome is committed.
type View struct {
	store  Store
	verify bool
}

// 🏭 NewView wraps a loaded store for one run
func NewView(store Store, verify bool) *View {
	return &View{store: store, verify: verify}
}

// Verify reports whether the view ignores prior successes
func (v *View) Verify() bool {
	return v.verify
}

// IsProcessed reports whether the folder should be skipped this run
func (v *View) IsProcessed(folder string) bool {
	if v.verify {
		return false
	}
	return v.store.IsProcessed(folder)
}

// Get returns the stored entry regardless of verify
func (v *View) Get(folder string) (Entry, bool) {
	return v.store.Get(folder)
}

// 💾 Commit records an outcome and flushes it before returning
func (v *View) Commit(ctx context.Context, e Entry) error {
	if err := v.store.Record(ctx, e); err != nil {
		return errors.Errorf("recording %s: %w", e.Folder, err)
	}
	if err := v.store.Flush(ctx); err != nil {
		return errors.Errorf("flushing history: %w", err)
	}
	return nil
}
