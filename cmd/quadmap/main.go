// Copyright 2024 The Cockroach Authors
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

// Command quadmap replays a script of inserts, searches and removes against
// a quadmap.Map and prints the table after each mutation. Without a script
// it runs a short demonstration on a table of 7 slots.
//
//	quadmap [-v] [-log-file path] [script.toml]
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	logFile := flag.String("log-file", "", "write logs to `path`, rotated by size, instead of stderr")
	verbose := flag.Bool("v", false, "log every operation and resize")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [script.toml]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := newLogger(*logFile, *verbose)
	defer func() { _ = logger.Sync() }()

	s := demoScript
	if flag.NArg() > 0 {
		var err error
		if s, err = loadScript(flag.Arg(0)); err != nil {
			exit(logger, err)
		}
	}
	if err := run(os.Stdout, s, logger); err != nil {
		exit(logger, err)
	}
}

func exit(logger *zap.Logger, err error) {
	logger.Error("quadmap failed", zap.Error(err))
	_ = logger.Sync()
	fmt.Fprintf(os.Stderr, "quadmap: %v\n", err)
	os.Exit(1)
}

// newLogger returns a console logger writing to stderr, or to logFile
// through a size based rotator if one is given.
func newLogger(logFile string, verbose bool) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		level.SetLevel(zap.DebugLevel)
	}

	sink := zapcore.Lock(os.Stderr)
	if logFile != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    64, // megabytes
			MaxBackups: 3,
		})
	}

	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, sink, level))
}
