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

// Package logger is the leveled logger of the simulator. It writes through zap to stderr and,
// optionally, to a rotated log file. Messages at PanicLevel and FatalLevel are always written.
package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int8

const (
	TraceLevel   Level = 6
	DebugLevel   Level = 5
	InfoLevel    Level = 4
	NoteLevel    Level = 3
	WarnLevel    Level = 2
	ErrorLevel   Level = 1
	PanicLevel   Level = 0
	FatalLevel   Level = -1
	OffLevel     Level = -2
	MinLevel           = OffLevel
	DefaultLevel       = WarnLevel

	timeLayout = "2006-01-02 15:04:05.000"
)

// StdoutCallback is notified after the logger wrote to the terminal, so that an interactive
// prompt can be redrawn.
type StdoutCallback interface {
	OnStdout()
}

var (
	mu           sync.Mutex
	zl           *zap.Logger
	currentLevel = DefaultLevel
	toTerminal   bool
	cbStdout     StdoutCallback
	logFile      *lumberjack.Logger

	// indexed by Level-MinLevel; OffLevel is never a message level
	zapLevels = []zapcore.Level{zapcore.FatalLevel + 1, zapcore.FatalLevel, zapcore.PanicLevel,
		zapcore.ErrorLevel, zapcore.WarnLevel, zapcore.InfoLevel, zapcore.InfoLevel, zapcore.DebugLevel,
		zapcore.DebugLevel}
)

func init() {
	if fi, err := os.Stdout.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		toTerminal = true
	}
	rebuild()
}

func newEncoder() zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	return zapcore.NewConsoleEncoder(ec)
}

// rebuild creates the zap logger for the current outputs. Must hold mu, except from init.
func rebuild() {
	out := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if logFile != nil {
		out = append(out, zapcore.AddSync(logFile))
	}
	core := zapcore.NewCore(newEncoder(), zapcore.NewMultiWriteSyncer(out...), zapcore.DebugLevel)
	if zl != nil {
		_ = zl.Sync()
	}
	zl = zap.New(core)
}

func SetLevel(lv Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = lv
}

func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return currentLevel
}

func SetStdoutCallback(cb StdoutCallback) {
	mu.Lock()
	defer mu.Unlock()
	cbStdout = cb
}

// SetLogFile also writes the log to path, rotated once it reaches maxSizeMb. An empty path stops
// writing to the current file.
func SetLogFile(path string, maxSizeMb int, maxBackups int) error {
	mu.Lock()
	defer mu.Unlock()
	if err := closeLogFile(); err != nil {
		return err
	}
	if len(path) > 0 {
		logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMb,
			MaxBackups: maxBackups,
		}
	}
	rebuild()
	return nil
}

// Close flushes the log and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	_ = zl.Sync()
	err := closeLogFile()
	rebuild()
	return err
}

func closeLogFile() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func formatMessage(format string, args []interface{}) string {
	switch {
	case len(args) == 0:
		return format
	case format != "":
		return fmt.Sprintf(format, args...)
	case len(args) == 1:
		if s, ok := args[0].(string); ok {
			return s
		}
	}
	return fmt.Sprint(args...)
}

// Logf logs at the given level. Messages at PanicLevel panic after being logged; messages at
// FatalLevel exit the program.
func Logf(level Level, format string, args []interface{}) {
	mu.Lock()
	if level > currentLevel && level > PanicLevel {
		mu.Unlock()
		return
	}
	if toTerminal {
		_, _ = fmt.Fprint(os.Stdout, "\033[2K\r") // clear the prompt line
	}
	logger, cb := zl, cbStdout
	mu.Unlock()

	logger.Log(zapLevels[level-MinLevel], formatMessage(format, args))
	if toTerminal && cb != nil {
		cb.OnStdout()
	}
}

func Tracef(format string, args ...interface{}) {
	Logf(TraceLevel, format, args)
}

func Debugf(format string, args ...interface{}) {
	Logf(DebugLevel, format, args)
}

func Infof(format string, args ...interface{}) {
	Logf(InfoLevel, format, args)
}

func Notef(format string, args ...interface{}) {
	Logf(NoteLevel, format, args)
}

func Warnf(format string, args ...interface{}) {
	Logf(WarnLevel, format, args)
}

func Errorf(format string, args ...interface{}) {
	Logf(ErrorLevel, format, args)
}

func Panicf(format string, args ...interface{}) {
	Logf(PanicLevel, format, args)
}

func Fatalf(format string, args ...interface{}) {
	Logf(FatalLevel, format, args)
}

func PanicIfError(err error, args ...interface{}) {
	if err == nil {
		return
	}
	if len(args) == 0 {
		args = []interface{}{err}
	}
	Logf(PanicLevel, "", args)
}

func FatalfIfError(err error, format string, args ...interface{}) {
	if err != nil {
		Fatalf(format, args...)
	}
}

// assertLogger turns failed assertions into panics.
type assertLogger struct{}

func (assertLogger) Errorf(format string, args ...interface{}) {
	Panicf(format, args...)
}

func AssertEqual(expected, actual interface{}, msgAndArgs ...interface{}) bool {
	return assert.Equal(assertLogger{}, expected, actual, msgAndArgs...)
}

func AssertNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.Nil(assertLogger{}, object, msgAndArgs...)
}

func AssertNotNil(object interface{}, msgAndArgs ...interface{}) bool {
	return assert.NotNil(assertLogger{}, object, msgAndArgs...)
}

func AssertTrue(value bool, msgAndArgs ...interface{}) bool {
	return assert.True(assertLogger{}, value, msgAndArgs...)
}

func AssertFalse(value bool, msgAndArgs ...interface{}) bool {
	return assert.False(assertLogger{}, value, msgAndArgs...)
}

func AssertTruef(value bool, msg string, args ...interface{}) bool {
	return assert.Truef(assertLogger{}, value, msg, args...)
}
