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

// Package shell runs the external programs shredsync delegates to (ssh, rsync).
package shell

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📤 Output is what a finished command left behind
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// 🏃 Runner executes a command to completion
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
}

// ❌ ExitError reports a command that ran but exited non-zero
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return e.Command + " exited with code " + strconv.Itoa(e.ExitCode)
	}
	return e.Command + " exited with code " + strconv.Itoa(e.ExitCode) + ": " + msg
}

// 🔧 ExecRunner runs commands with os/exec and streams stdout lines to the debug log
type ExecRunner struct{}

// 🏭 NewExecRunner creates a runner backed by os/exec
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("command", name).Strs("args", args).Msg("executing command")

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return Output{}, errors.Errorf("opening stdout pipe: %w", err)
	}
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Output{}, errors.Errorf("starting %s: %w", name, err)
	}

	scanner := bufio.NewScanner(io.TeeReader(pipe, &stdout))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.Trace().Str("command", name).Msg(scanner.Text())
	}

	err = cmd.Wait()
	out := Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, &ExitError{Command: name, ExitCode: exitErr.ExitCode(), Stderr: out.Stderr}
		}
		return out, errors.Errorf("running %s: %w", name, err)
	}

	return out, nil
}

// 🔐 SSH describes how to reach a remote host
type SSH struct {
	Path         string // ssh binary
	Host         string
	User         string
	IdentityFile string
}

// Target returns user@host, or just host when no user is set
func (s SSH) Target() string {
	if s.User == "" {
		return s.Host
	}
	return s.User + "@" + s.Host
}

// Args builds the ssh argument list for running remoteCmd on the host
func (s SSH) Args(remoteCmd string) []string {
	args := []string{}
	if s.IdentityFile != "" {
		args = append(args, "-i", s.IdentityFile)
	}
	args = append(args, "-o", "BatchMode=yes", s.Target(), remoteCmd)
	return args
}

// RsyncShell is the value for rsync's -e flag
func (s SSH) RsyncShell() string {
	bin := s.Path
	if bin == "" {
		bin = "ssh"
	}
	if s.IdentityFile == "" {
		return bin
	}
	return bin + " -i " + shellescape.Quote(s.IdentityFile)
}
