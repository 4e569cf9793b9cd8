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

// Package catalog enumerates candidate backup folders on a source and dates them.
package catalog

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/shredsync/pkg/config"
	"github.com/walteh/shredsync/pkg/shell"
)

const defaultSizeConcurrency = 4

// 🔧 Options configures a Catalog
type Options struct {
	Lister          Lister
	Parser          *NameParser
	DateSource      string // config.DateSource*
	Recursive       bool
	Exclude         []string // doublestar globs matched against the relative path and the base name
	MeasureSize     bool
	SizeConcurrency int
}

// 📚 Catalog scans a source for dated folders
type Catalog struct {
	opts Options
}

// 📦 Result is one scan's snapshot
type Result struct {
	Records  []FolderRecord
	Warnings []Warning
}

// 🏭 New creates a catalog
func New(opts Options) (*Catalog, error) {
	if opts.Lister == nil {
		return nil, errors.Errorf("lister is required")
	}
	if opts.Parser == nil {
		opts.Parser = NewNameParser(time.Local)
	}
	switch opts.DateSource {
	case "":
		opts.DateSource = config.DateSourceName
	case config.DateSourceName, config.DateSourceMtime, config.DateSourceNameOrMtime:
	default:
		return nil, errors.Errorf("unknown date source %q", opts.DateSource)
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if opts.SizeConcurrency <= 0 {
		opts.SizeConcurrency = defaultSizeConcurrency
	}
	return &Catalog{opts: opts}, nil
}

// 🏭 FromConfig builds the catalog for the configured source
func FromConfig(cfg *config.Config, runner shell.Runner) (*Catalog, error) {
	var lister Lister
	if cfg.Source.IsRemote() {
		lister = NewSSHLister(shell.SSH{
			Path:         cfg.Transfer.SSHPath,
			Host:         cfg.Source.Host,
			User:         cfg.Source.User,
			IdentityFile: cfg.Source.IdentityFile,
		}, cfg.Source.Path, cfg.Source.FindPath, runner)
	} else {
		lister = NewLocalLister(cfg.Source.Path)
	}
	return New(Options{
		Lister:      lister,
		DateSource:  cfg.Source.DateSource,
		Recursive:   cfg.Source.Recursive,
		Exclude:     cfg.Source.Exclude,
		MeasureSize: cfg.Source.MeasureSize,
	})
}

// 🔍 Scan lists the source and builds folder records. It has no side effects and can be repeated.
// An unreachable source yields a *ScanError; an undatable folder is skipped with a Warning.
func (c *Catalog) Scan(ctx context.Context) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("source", c.opts.Lister.Root()).Bool("recursive", c.opts.Recursive).Msg("scanning source")

	entries, err := c.opts.Lister.List(ctx, c.opts.Recursive)
	if err != nil {
		return nil, &ScanError{Source: c.opts.Lister.Root(), Err: err}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })

	leaves := leafSet(entries)
	res := &Result{}
	var emitted, pruned []string

	for _, e := range entries {
		if underAny(e.RelPath, pruned) {
			continue
		}
		if c.excluded(e.RelPath) {
			logger.Debug().Str("folder", e.RelPath).Msg("folder excluded by pattern")
			pruned = append(pruned, e.RelPath)
			continue
		}
		if underAny(e.RelPath, emitted) {
			continue
		}

		rec, warn, ok := c.record(e)
		if !ok {
			// in recursive mode only leaves are reported; intermediate directories are just containers
			if !c.opts.Recursive || leaves[e.RelPath] {
				logger.Warn().Str("folder", e.RelPath).Str("reason", warn.Reason).Msg("skipping folder")
				res.Warnings = append(res.Warnings, warn)
			}
			continue
		}
		if c.opts.Recursive && rec.Date.Source == AgeFromMtime && !leaves[e.RelPath] {
			continue
		}

		res.Records = append(res.Records, rec)
		emitted = append(emitted, e.RelPath)
	}

	if c.opts.MeasureSize {
		c.measure(ctx, res.Records)
	}

	logger.Info().
		Int("folders", len(res.Records)).
		Int("warnings", len(res.Warnings)).
		Msg("scan complete")

	return res, nil
}

func (c *Catalog) record(e Entry) (FolderRecord, Warning, bool) {
	name := path.Base(e.RelPath)
	rec := FolderRecord{
		ID:      e.RelPath,
		Name:    name,
		Path:    e.Path,
		Label:   name,
		ModTime: e.ModTime,
		Size:    -1,
	}

	if c.opts.DateSource == config.DateSourceMtime {
		return withMtime(rec, e)
	}

	parsed := c.opts.Parser.Parse(name)
	if parsed.OK() {
		rec.Date = Age{Time: parsed.Time, Source: AgeFromName}
		rec.Label = parsed.Label
		return rec, Warning{}, true
	}

	if c.opts.DateSource == config.DateSourceNameOrMtime {
		return withMtime(rec, e)
	}

	return rec, Warning{Kind: FolderParseWarning, Folder: e.RelPath, Reason: parsed.Err.Error()}, false
}

func withMtime(rec FolderRecord, e Entry) (FolderRecord, Warning, bool) {
	if e.ModTime.IsZero() {
		return rec, Warning{Kind: FolderParseWarning, Folder: e.RelPath, Reason: "no modification time"}, false
	}
	rec.Date = Age{Time: e.ModTime, Source: AgeFromMtime}
	return rec, Warning{}, true
}

func (c *Catalog) excluded(rel string) bool {
	for _, pattern := range c.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, path.Base(rel)); ok {
			return true
		}
	}
	return false
}

// measure fills in record sizes; a folder that cannot be measured keeps Size -1
func (c *Catalog) measure(ctx context.Context, records []FolderRecord) {
	logger := zerolog.Ctx(ctx)
	sizer, ok := c.opts.Lister.(Sizer)
	if !ok {
		logger.Debug().Msg("lister cannot measure sizes")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.SizeConcurrency)
	for i := range records {
		i := i
		g.Go(func() error {
			size, err := sizer.Size(gctx, Entry{RelPath: records[i].ID, Path: records[i].Path})
			if err != nil {
				logger.Warn().Err(err).Str("folder", records[i].ID).Msg("could not measure folder size")
				return nil
			}
			records[i].Size = size
			return nil
		})
	}
	_ = g.Wait()
}

// leafSet marks entries with no descendant directory in the listing
func leafSet(entries []Entry) map[string]bool {
	leaves := make(map[string]bool, len(entries))
	for _, e := range entries {
		if _, seen := leaves[e.RelPath]; !seen {
			leaves[e.RelPath] = true
		}
		for parent := path.Dir(e.RelPath); parent != "." && parent != "/"; parent = path.Dir(parent) {
			leaves[parent] = false
		}
	}
	return leaves
}

func underAny(rel string, parents []string) bool {
	for _, p := range parents {
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}
