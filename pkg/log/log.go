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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/walteh/shredsync/pkg/status"
)

// 🎯 Logger prints human-facing lines to the console and mirrors them to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context, or a logger that discards everything
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return New(io.Discard, zerolog.Nop())
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 LogFolder prints one folder outcome
func (l *Logger) LogFolder(o status.FolderOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console, status.FormatFolderLine(o))
}

// 📝 Summary prints the closing summary of a run
func (l *Logger) Summary(s status.Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()

	symbol := color.New(color.FgGreen).Sprint("◆")
	if s.HasFailures() {
		symbol = color.New(color.FgRed).Sprint("◆")
	}
	fmt.Fprintf(l.console, "\n%s %s\n", symbol, status.FormatSummary(s))

	l.zlog.Info().
		Str("mode", string(s.Mode)).
		Int("scanned", s.Scanned).
		Int("eligible", s.Eligible).
		Int("success", s.Transferred).
		Int("deleted", s.Deleted).
		Int("failed", s.Failed).
		Int("delete_failed", s.DeleteFailed).
		Int("skipped", s.Skipped).
		Int("pending_delete", s.PendingDelete).
		Msg("run summary")
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("shredsync")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

func (l *Logger) emit(icon string, c color.Attribute, ev *zerolog.Event, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "%s %s\n", icon, color.New(c).Sprint(msg))
	ev.Msg(msg)
}

// Success prints a green check line
func (l *Logger) Success(msg string) { l.emit("✅", color.FgGreen, l.zlog.Info(), msg) }

// Warning prints a yellow warning line
func (l *Logger) Warning(msg string) { l.emit("⚠️ ", color.FgYellow, l.zlog.Warn(), msg) }

// Error prints a red error line
func (l *Logger) Error(msg string) { l.emit("❌", color.FgRed, l.zlog.Error(), msg) }

// Info prints a cyan info line
func (l *Logger) Info(msg string) { l.emit("ℹ️ ", color.FgCyan, l.zlog.Info(), msg) }

func (l *Logger) Successf(format string, args ...any) { l.Success(fmt.Sprintf(format, args...)) }
func (l *Logger) Warningf(format string, args ...any) { l.Warning(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any)   { l.Error(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)    { l.Info(fmt.Sprintf(format, args...)) }
