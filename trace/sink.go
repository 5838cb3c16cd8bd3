// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package trace carries the text output of motes: the lines a mote program prints through its debug
// port, and the events of scripted motes.
package trace

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/motesim/motesim/logger"
	. "github.com/motesim/motesim/types"
)

// Sink receives complete trace lines of motes. Implementations are safe for concurrent use.
type Sink interface {
	WriteLine(node NodeId, tick uint64, text string) error
}

// LoggerSink writes trace lines to the logger. Lines that start with a level tag, e.g. "[WARN]", are
// logged at that level; other lines at the sink's Level.
type LoggerSink struct {
	Level logger.Level
}

func NewLoggerSink() *LoggerSink {
	return &LoggerSink{Level: logger.InfoLevel}
}

func (ls *LoggerSink) WriteLine(node NodeId, tick uint64, text string) error {
	level := ls.Level
	if tagged, lv, rest := logger.ParseTaggedLine(text); tagged {
		level, text = lv, rest
	}
	logger.Logf(level, "Mote<%d> @%d - %s", []interface{}{node, tick, text})
	return nil
}

// FileSink appends trace lines to a size-rotated file.
type FileSink struct {
	mu  sync.Mutex
	out *lumberjack.Logger
}

// NewFileSink creates a sink writing to path. The file is rotated when it exceeds maxSizeMb
// megabytes; maxBackups rotated files are kept.
func NewFileSink(path string, maxSizeMb int, maxBackups int) (*FileSink, error) {
	if path == "" {
		return nil, errors.New("trace file path is empty")
	}
	if maxSizeMb <= 0 {
		maxSizeMb = 100
	}
	return &FileSink{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMb,
			MaxBackups: maxBackups,
		},
	}, nil
}

func (fs *FileSink) WriteLine(node NodeId, tick uint64, text string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, err := fmt.Fprintf(fs.out, "%5d %12d  %s\n", node, tick, text)
	return err
}

// Rotate closes the current file and starts a new one.
func (fs *FileSink) Rotate() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.out.Rotate()
}

func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.out.Close()
}

// MultiSink writes each line to all of its sinks. The first error is returned after all sinks were
// written.
type MultiSink []Sink

func (ms MultiSink) WriteLine(node NodeId, tick uint64, text string) error {
	var firstErr error
	for _, s := range ms {
		if err := s.WriteLine(node, tick, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DiscardSink drops all lines.
type DiscardSink struct{}

func (DiscardSink) WriteLine(NodeId, uint64, string) error {
	return nil
}
