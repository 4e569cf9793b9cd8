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
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func writeConfig(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "writing config file")
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid_yaml",
			file: "shredsync.yaml",
			config: `
source:
  path: /Volumes/shred/backups
  host: shred-nas
  user: backup
  identity_file: /home/backup/.ssh/id_ed25519
  exclude: [".*"]
destination:
  path: /spindles/shred/archive
selection:
  days_threshold: 60
transfer:
  rsync_flags: ["-a", "--stats"]
history:
  path: /var/lib/shredsync/history.json
log:
  path: /var/log/shredsync
  file_permission: "0640"
umask: "022"
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/Volumes/shred/backups", cfg.Source.Path)
				assert.True(t, cfg.Source.IsRemote())
				assert.Equal(t, DateSourceName, cfg.Source.DateSource, "date source default")
				assert.Equal(t, LayoutDated, cfg.Destination.Layout, "layout default")
				require.NotNil(t, cfg.Selection.DaysThreshold)
				assert.Equal(t, 60, *cfg.Selection.DaysThreshold)
				assert.False(t, cfg.Selection.IsWindow())
				assert.Equal(t, ActionCopy, cfg.Transfer.Action, "action default")
				assert.Equal(t, []string{"-a", "--stats"}, cfg.Transfer.RsyncFlags)
				assert.Equal(t, "rsync", cfg.Transfer.RsyncPath)
				assert.Equal(t, HistoryFormatJSON, cfg.History.Format)
				assert.Equal(t, "0640", cfg.Log.FilePermission)
				assert.Equal(t, "0755", cfg.Log.DirPermission)
				assert.Equal(t, "022", cfg.Umask)
				assert.Equal(t, "shred-nas:/Volumes/shred/backups -> /spindles/shred/archive (copy)", cfg.String())
			},
		},
		{
			name: "valid_json_window",
			file: "shredsync.json",
			config: `{
  "source": {"path": "/srv/logs/", "recursive": true, "date_source": "name_or_mtime"},
  "destination": {"path": "/archive/logs", "layout": "flat"},
  "selection": {"prior_days": 3, "after_days": 1},
  "transfer": {"action": "move"},
  "history": {"path": "/var/lib/shredsync/history.db", "format": "sqlite"}
}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/logs", cfg.Source.Path, "local path is cleaned")
				assert.True(t, cfg.Source.Recursive)
				assert.True(t, cfg.Selection.IsWindow())
				assert.Equal(t, 3, *cfg.Selection.PriorDays)
				assert.Equal(t, 1, *cfg.Selection.AfterDays)
				assert.Equal(t, ActionMove, cfg.Transfer.Action)
				assert.Equal(t, HistoryFormatSQLite, cfg.History.Format)
				assert.Equal(t, LayoutFlat, cfg.Destination.Layout)
				assert.Equal(t, []string{"-a", "-s", "--partial", "--stats"}, cfg.Transfer.RsyncFlags, "remote paths with spaces are passed with --protect-args")
			},
		},
		{
			name: "valid_hcl",
			file: "shredsync.hcl",
			config: `
source {
  path    = "/srv/backups"
  exclude = ["tmp-*"]
}

destination {
  path = "/archive"
}

selection {
  days_threshold = 30
}

history {
  path = "/var/lib/shredsync/history.json"
}

umask = "027"
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/backups", cfg.Source.Path)
				assert.Equal(t, []string{"tmp-*"}, cfg.Source.Exclude)
				assert.Equal(t, 30, *cfg.Selection.DaysThreshold)
				assert.Equal(t, "027", cfg.Umask)
			},
		},
		{
			name: "unknown_extension_falls_back_to_yaml",
			file: ".shredsync",
			config: `
source: {path: /a}
destination: {path: /b}
selection: {days_threshold: 1}
history: {path: /c/history.json}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/a", cfg.Source.Path)
			},
		},
		{
			name:        "unknown_yaml_field",
			file:        "bad.yaml",
			config:      "source: {path: /a}\nbogus: true\n",
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name: "missing_destination",
			file: "bad.yaml",
			config: `
source: {path: /a}
selection: {days_threshold: 1}
history: {path: /c}
`,
			wantErr:     true,
			errContains: "destination.path is required",
		},
		{
			name: "threshold_and_window",
			file: "bad.yaml",
			config: `
source: {path: /a}
destination: {path: /b}
selection: {days_threshold: 1, prior_days: 2}
history: {path: /c}
`,
			wantErr:     true,
			errContains: "cannot be combined",
		},
		{
			name: "no_selection",
			file: "bad.yaml",
			config: `
source: {path: /a}
destination: {path: /b}
history: {path: /c}
`,
			wantErr:     true,
			errContains: "is required",
		},
		{
			name: "negative_days",
			file: "bad.yaml",
			config: `
source: {path: /a}
destination: {path: /b}
selection: {days_threshold: -4}
history: {path: /c}
`,
			wantErr:     true,
			errContains: "must not be negative",
		},
		{
			name: "move_with_remote_source",
			file: "bad.yaml",
			config: `
source: {path: /a, host: nas}
destination: {path: /b}
selection: {days_threshold: 1}
transfer: {action: move}
history: {path: /c}
`,
			wantErr:     true,
			errContains: "requires a local source",
		},
		{
			name: "bad_umask",
			file: "bad.yaml",
			config: `
source: {path: /a}
destination: {path: /b}
selection: {days_threshold: 1}
history: {path: /c}
umask: "099"
`,
			wantErr:     true,
			errContains: "umask",
		},
		{
			name: "bad_history_format",
			file: "bad.yaml",
			config: `
source: {path: /a}
destination: {path: /b}
selection: {days_threshold: 1}
history: {path: /c, format: csv}
`,
			wantErr:     true,
			errContains: "history.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestLogger(t)
			path := writeConfig(t, tt.file, tt.config)

			cfg, err := LoadConfig(ctx, path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, path, cfg.Location())
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(setupTestLogger(t), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    os.FileMode
		wantErr bool
	}{
		{"0755", 0o755, false},
		{"022", 0o022, false},
		{"0o640", 0o640, false},
		{"rwx", 0, true},
		{"1777", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
