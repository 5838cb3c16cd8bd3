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

package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/motesim/motesim/logger"
)

// Handler executes the command lines read by the console.
type Handler interface {
	HandleCommand(cmd string, output io.Writer) error
	GetPrompt() string
}

type Options struct {
	EchoInput   bool
	HistoryFile string // empty keeps the history in memory only
	Stdin       *os.File
	Stdout      *os.File
}

func DefaultOptions() *Options {
	return &Options{}
}

func (o *Options) withDefaults() *Options {
	opts := DefaultOptions()
	if o != nil {
		*opts = *o
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return opts
}

// Console reads command lines from a terminal or a pipe. There is one console per process.
type Console struct {
	Started chan struct{}
	Options *Options

	rl     *readline.Instance
	closed chan struct{}
}

var Cli = newConsole()

func newConsole() *Console {
	return &Console{
		Started: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

// OnStdout redraws the prompt after log output was written to stdout.
func (c *Console) OnStdout() {
	if c.rl != nil {
		c.rl.Refresh()
	}
}

// Stop ends a running console and waits until Run has returned.
func (c *Console) Stop() {
	<-c.Started
	// readline's Close can block, so Run closes it: send ETX and close stdin to wake it up.
	_, _ = c.Options.Stdin.WriteString("\003\n")
	_ = c.Options.Stdin.Close()
	logger.Tracef("waiting for console to stop")
	<-c.closed
	logger.Tracef("console stopped")
}

// keepTermState restores the terminal state of f when the returned func is called.
func keepTermState(f *os.File) (func(), error) {
	fd := int(f.Fd())
	if !readline.IsTerminal(fd) {
		return func() {}, nil
	}
	st, err := readline.GetState(fd)
	if err != nil {
		return nil, err
	}
	return func() { _ = readline.Restore(fd, st) }, nil
}

func (c *Console) newReadline(prompt string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:            prompt,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistoryFile:       c.Options.HistoryFile,
		HistorySearchFold: true,
		Stdin:             c.Options.Stdin,
		Stdout:            c.Options.Stdout,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			// no job control
			return r, r != readline.CharCtrlZ
		},
	})
}

// Run reads and handles command lines until the input ends, the user interrupts on an empty
// line, or the handler fails.
func (c *Console) Run(handler Handler, options *Options) error {
	defer logger.Debugf("console exit")
	defer close(c.closed)

	c.Options = options.withDefaults()
	started := false
	defer func() {
		if !started {
			close(c.Started)
		}
	}()

	for _, f := range []*os.File{c.Options.Stdin, c.Options.Stdout} {
		restore, err := keepTermState(f)
		if err != nil {
			return err
		}
		defer restore()
	}

	rl, err := c.newReadline(handler.GetPrompt())
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()
	c.rl = rl
	started = true
	close(c.Started)

	return c.readLoop(rl, handler)
}

func (c *Console) readLoop(rl *readline.Instance, handler Handler) error {
	stdout := c.Options.Stdout
	defer func() {
		_ = stdout.Sync()
	}()

	for {
		rl.SetPrompt(handler.GetPrompt())
		line, err := rl.Readline()

		switch {
		case len(line) > 0 && line[0] == readline.CharInterrupt:
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			if len(line) == 0 {
				return nil
			}
			continue // only drops the line being edited
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if c.Options.EchoInput {
			if _, err := stdout.WriteString(line + "\n"); err != nil {
				return err
			}
		}

		if cmd := strings.TrimSpace(line); len(cmd) > 0 {
			if err := handler.HandleCommand(cmd, rl.Stdout()); err != nil {
				return err
			}
		}
		_ = stdout.Sync()
	}
}
