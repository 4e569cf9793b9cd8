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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/walteh/shredsync/cmd/shredsync/commands"
	"github.com/walteh/shredsync/cmd/shredsync/opts"
	"github.com/walteh/shredsync/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// bootstrap logger until the config tells us where the run log goes
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	ctx = boot.WithContext(ctx)

	rootOpts := &opts.RootOpts{}
	session := &app{opts: rootOpts}

	rootCmd := newRootCmd(session)
	rootCmd.AddCommand(
		commands.NewRunCmd(rootOpts),
		commands.NewHistoryCmd(rootOpts),
		commands.NewFixNestingCmd(rootOpts),
		newVersionCmd(),
	)

	err := rootCmd.ExecuteContext(ctx)
	defer session.close()

	if err != nil {
		logger := session.logger
		if logger == nil {
			logger = log.New(os.Stderr, boot)
		}
		logger.Errorf("shredsync failed: %v", err)
		return 1
	}
	return 0
}
