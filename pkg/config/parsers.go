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
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

func init() {
	Register(&YAMLParser{})
	Register(&JSONParser{})
	Register(&HCLParser{})
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *YAMLParser) CanParse(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// 📝 Parse parses the config from YAML
func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// 🔧 JSONParser implements the Parser interface for JSON files
type JSONParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *JSONParser) CanParse(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}

// 📝 Parse parses the config from JSON bytes
func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &cfg, nil
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".hcl")
}

// HCL schema; blocks are pointers so that omitted blocks decode to nil
type hclConfig struct {
	Source      *hclSource      `hcl:"source,block"`
	Destination *hclDestination `hcl:"destination,block"`
	Selection   *hclSelection   `hcl:"selection,block"`
	Transfer    *hclTransfer    `hcl:"transfer,block"`
	History     *hclHistory     `hcl:"history,block"`
	Log         *hclLog         `hcl:"log,block"`
	Umask       string          `hcl:"umask,optional"`
}

type hclSource struct {
	Path         string   `hcl:"path"`
	Host         string   `hcl:"host,optional"`
	User         string   `hcl:"user,optional"`
	IdentityFile string   `hcl:"identity_file,optional"`
	Recursive    bool     `hcl:"recursive,optional"`
	DateSource   string   `hcl:"date_source,optional"`
	Exclude      []string `hcl:"exclude,optional"`
	MeasureSize  bool     `hcl:"measure_size,optional"`
	FindPath     string   `hcl:"find_path,optional"`
}

type hclDestination struct {
	Path   string `hcl:"path"`
	Layout string `hcl:"layout,optional"`
}

type hclSelection struct {
	DaysThreshold *int `hcl:"days_threshold,optional"`
	PriorDays     *int `hcl:"prior_days,optional"`
	AfterDays     *int `hcl:"after_days,optional"`
}

type hclTransfer struct {
	Action     string   `hcl:"action,optional"`
	RsyncPath  string   `hcl:"rsync_path,optional"`
	RsyncFlags []string `hcl:"rsync_flags,optional"`
	SSHPath    string   `hcl:"ssh_path,optional"`
}

type hclHistory struct {
	Path   string `hcl:"path"`
	Format string `hcl:"format,optional"`
}

type hclLog struct {
	Path           string `hcl:"path,optional"`
	FileFormat     string `hcl:"file_format,optional"`
	DirPermission  string `hcl:"dir_permission,optional"`
	FilePermission string `hcl:"file_permission,optional"`
	Level          string `hcl:"level,optional"`
	MaxSizeMB      int    `hcl:"max_size_mb,optional"`
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "shredsync.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{Umask: raw.Umask}
	if s := raw.Source; s != nil {
		cfg.Source = Source{
			Path:         s.Path,
			Host:         s.Host,
			User:         s.User,
			IdentityFile: s.IdentityFile,
			Recursive:    s.Recursive,
			DateSource:   s.DateSource,
			Exclude:      s.Exclude,
			MeasureSize:  s.MeasureSize,
			FindPath:     s.FindPath,
		}
	}
	if d := raw.Destination; d != nil {
		cfg.Destination = Destination{Path: d.Path, Layout: d.Layout}
	}
	if s := raw.Selection; s != nil {
		cfg.Selection = Selection{DaysThreshold: s.DaysThreshold, PriorDays: s.PriorDays, AfterDays: s.AfterDays}
	}
	if t := raw.Transfer; t != nil {
		cfg.Transfer = Transfer{Action: t.Action, RsyncPath: t.RsyncPath, RsyncFlags: t.RsyncFlags, SSHPath: t.SSHPath}
	}
	if h := raw.History; h != nil {
		cfg.History = History{Path: h.Path, Format: h.Format}
	}
	if l := raw.Log; l != nil {
		cfg.Log = Log{
			Path:           l.Path,
			FileFormat:     l.FileFormat,
			DirPermission:  l.DirPermission,
			FilePermission: l.FilePermission,
			Level:          l.Level,
			MaxSizeMB:      l.MaxSizeMB,
		}
	}

	return cfg, nil
}
