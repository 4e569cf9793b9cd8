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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse decodes the raw config bytes, without validating
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// Date sources understood by the catalog
const (
	DateSourceName        = "name"
	DateSourceMtime       = "mtime"
	DateSourceNameOrMtime = "name_or_mtime"
)

// Transfer actions
const (
	ActionCopy = "copy"
	ActionMove = "move"
)

// Destination layouts
const (
	LayoutDated = "dated"
	LayoutFlat  = "flat"
)

// History store formats
const (
	HistoryFormatJSON   = "json"
	HistoryFormatSQLite = "sqlite"
)

// 📂 Source describes where backup folders are listed from
type Source struct {
	Path         string   `json:"path" yaml:"path"`
	Host         string   `json:"host,omitempty" yaml:"host,omitempty"`
	User         string   `json:"user,omitempty" yaml:"user,omitempty"`
	IdentityFile string   `json:"identity_file,omitempty" yaml:"identity_file,omitempty"`
	Recursive    bool     `json:"recursive,omitempty" yaml:"recursive,omitempty"`
	DateSource   string   `json:"date_source,omitempty" yaml:"date_source,omitempty"`
	Exclude      []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	MeasureSize  bool     `json:"measure_size,omitempty" yaml:"measure_size,omitempty"`
	FindPath     string   `json:"find_path,omitempty" yaml:"find_path,omitempty"`
}

// IsRemote reports whether the source is reached over ssh
func (s Source) IsRemote() bool {
	return s.Host != ""
}

// 📥 Destination is the local archive root
type Destination struct {
	Path   string `json:"path" yaml:"path"`
	Layout string `json:"layout,omitempty" yaml:"layout,omitempty"`
}

// 🗓️ Selection holds either a days threshold or a prior/after window
type Selection struct {
	DaysThreshold *int `json:"days_threshold,omitempty" yaml:"days_threshold,omitempty"`
	PriorDays     *int `json:"prior_days,omitempty" yaml:"prior_days,omitempty"`
	AfterDays     *int `json:"after_days,omitempty" yaml:"after_days,omitempty"`
}

// IsWindow reports whether windowed selection is configured
func (s Selection) IsWindow() bool {
	return s.PriorDays != nil || s.AfterDays != nil
}

// 🚚 Transfer configures the copy mechanism
type Transfer struct {
	Action     string   `json:"action,omitempty" yaml:"action,omitempty"`
	RsyncPath  string   `json:"rsync_path,omitempty" yaml:"rsync_path,omitempty"`
	RsyncFlags []string `json:"rsync_flags,omitempty" yaml:"rsync_flags,omitempty"`
	SSHPath    string   `json:"ssh_path,omitempty" yaml:"ssh_path,omitempty"`
}

// 📜 History configures the processed-folder store
type History struct {
	Path   string `json:"path" yaml:"path"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// 📝 Log configures the per-run log file
type Log struct {
	Path           string `json:"path,omitempty" yaml:"path,omitempty"`
	FileFormat     string `json:"file_format,omitempty" yaml:"file_format,omitempty"`
	DirPermission  string `json:"dir_permission,omitempty" yaml:"dir_permission,omitempty"`
	FilePermission string `json:"file_permission,omitempty" yaml:"file_permission,omitempty"`
	Level          string `json:"level,omitempty" yaml:"level,omitempty"`
	MaxSizeMB      int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Source      Source      `json:"source" yaml:"source"`
	Destination Destination `json:"destination" yaml:"destination"`
	Selection   Selection   `json:"selection" yaml:"selection"`
	Transfer    Transfer    `json:"transfer,omitempty" yaml:"transfer,omitempty"`
	History     History     `json:"history" yaml:"history"`
	Log         Log         `json:"log,omitempty" yaml:"log,omitempty"`
	Umask       string      `json:"umask,omitempty" yaml:"umask,omitempty"`

	location string
}

// Location is the file the config was loaded from, if any
func (cfg *Config) Location() string {
	return cfg.location
}

// 🎯 LoadConfig loads and validates the configuration from a file.
// The format is picked by extension; files without a known extension are tried as YAML then HCL.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg *Config
	if p := GetParser(path); p != nil {
		cfg, err = p.Parse(ctx, data)
		if err != nil {
			return nil, errors.Errorf("parsing config: %w", err)
		}
	} else {
		cfg, err = (&YAMLParser{}).Parse(ctx, data)
		if err != nil {
			var hclErr error
			cfg, hclErr = (&HCLParser{}).Parse(ctx, data)
			if hclErr != nil {
				return nil, errors.Errorf("failed to parse %s as YAML or HCL: %w", filepath.Base(path), err)
			}
		}
	}

	cfg.location = path
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *Config) Validate() error {
	if cfg.Source.Path == "" {
		return errors.Errorf("source.path is required")
	}
	if cfg.Destination.Path == "" {
		return errors.Errorf("destination.path is required")
	}
	if cfg.History.Path == "" {
		return errors.Errorf("history.path is required")
	}

	cfg.Source.Path = cleanPath(cfg.Source.Path, cfg.Source.IsRemote())
	cfg.Source.IdentityFile = expandHome(cfg.Source.IdentityFile)
	cfg.Destination.Path = filepath.Clean(expandHome(cfg.Destination.Path))
	cfg.History.Path = filepath.Clean(expandHome(cfg.History.Path))

	if cfg.Source.FindPath == "" {
		cfg.Source.FindPath = "find"
	}
	if cfg.Source.DateSource == "" {
		cfg.Source.DateSource = DateSourceName
	}
	switch cfg.Source.DateSource {
	case DateSourceName, DateSourceMtime, DateSourceNameOrMtime:
	default:
		return errors.Errorf("source.date_source must be one of %s, %s, %s: got %q",
			DateSourceName, DateSourceMtime, DateSourceNameOrMtime, cfg.Source.DateSource)
	}

	if cfg.Destination.Layout == "" {
		cfg.Destination.Layout = LayoutDated
	}
	if cfg.Destination.Layout != LayoutDated && cfg.Destination.Layout != LayoutFlat {
		return errors.Errorf("destination.layout must be %s or %s: got %q", LayoutDated, LayoutFlat, cfg.Destination.Layout)
	}

	if err := cfg.Selection.validate(); err != nil {
		return err
	}

	if cfg.Transfer.Action == "" {
		cfg.Transfer.Action = ActionCopy
	}
	if err := ValidateAction(cfg.Transfer.Action); err != nil {
		return err
	}
	if cfg.Transfer.Action == ActionMove && cfg.Source.IsRemote() {
		return errors.Errorf("transfer.action %q requires a local source", ActionMove)
	}
	if cfg.Transfer.RsyncPath == "" {
		cfg.Transfer.RsyncPath = "rsync"
	}
	if cfg.Transfer.SSHPath == "" {
		cfg.Transfer.SSHPath = "ssh"
	}
	if cfg.Transfer.RsyncFlags == nil {
		cfg.Transfer.RsyncFlags = []string{"-a", "-s", "--partial", "--stats"}
	}

	if cfg.History.Format == "" {
		cfg.History.Format = HistoryFormatJSON
	}
	if cfg.History.Format != HistoryFormatJSON && cfg.History.Format != HistoryFormatSQLite {
		return errors.Errorf("history.format must be %s or %s: got %q", HistoryFormatJSON, HistoryFormatSQLite, cfg.History.Format)
	}

	if cfg.Log.FileFormat == "" {
		cfg.Log.FileFormat = "shredsync-20060102-150405.log"
	}
	if cfg.Log.DirPermission == "" {
		cfg.Log.DirPermission = "0755"
	}
	if cfg.Log.FilePermission == "" {
		cfg.Log.FilePermission = "0644"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return errors.Errorf("log.level: %w", err)
	}
	if cfg.Log.Path != "" {
		cfg.Log.Path = filepath.Clean(expandHome(cfg.Log.Path))
	}
	if _, err := ParseMode(cfg.Log.DirPermission); err != nil {
		return errors.Errorf("log.dir_permission: %w", err)
	}
	if _, err := ParseMode(cfg.Log.FilePermission); err != nil {
		return errors.Errorf("log.file_permission: %w", err)
	}

	if cfg.Umask != "" {
		if _, err := ParseMode(cfg.Umask); err != nil {
			return errors.Errorf("umask: %w", err)
		}
	}

	return nil
}

func (s Selection) validate() error {
	if s.DaysThreshold != nil && s.IsWindow() {
		return errors.Errorf("selection: days_threshold cannot be combined with prior_days/after_days")
	}
	if s.DaysThreshold == nil && !s.IsWindow() {
		return errors.Errorf("selection: one of days_threshold or prior_days/after_days is required")
	}
	for name, v := range map[string]*int{"days_threshold": s.DaysThreshold, "prior_days": s.PriorDays, "after_days": s.AfterDays} {
		if v != nil && *v < 0 {
			return errors.Errorf("selection.%s must not be negative: got %d", name, *v)
		}
	}
	return nil
}

// ValidateAction checks a transfer action name
func ValidateAction(action string) error {
	if action != ActionCopy && action != ActionMove {
		return errors.Errorf("transfer.action must be %s or %s: got %q", ActionCopy, ActionMove, action)
	}
	return nil
}

// 🔢 ParseMode parses an octal permission or umask string such as "0755" or "022"
func ParseMode(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "0o"), 8, 32)
	if err != nil {
		return 0, errors.Errorf("invalid octal value %q: %w", s, err)
	}
	if v > 0o777 {
		return 0, errors.Errorf("octal value %q out of range", s)
	}
	return os.FileMode(v), nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	src := cfg.Source.Path
	if cfg.Source.IsRemote() {
		src = cfg.Source.Host + ":" + src
	}
	return fmt.Sprintf("%s -> %s (%s)", src, cfg.Destination.Path, cfg.Transfer.Action)
}

func cleanPath(p string, remote bool) string {
	if remote {
		if trimmed := strings.TrimRight(p, "/"); trimmed != "" {
			return trimmed
		}
		return "/"
	}
	return filepath.Clean(expandHome(p))
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// IntPtr is a helper for building selections in code
func IntPtr(v int) *int {
	return &v
}
