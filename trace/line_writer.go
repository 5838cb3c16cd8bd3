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

package trace

import (
	"strings"
	"sync"

	. "github.com/motesim/motesim/types"
)

// LineWriter splits the byte stream written by a mote into lines and passes each complete line to a
// Sink, stamped with the tick given by clock at the time the line completed.
type LineWriter struct {
	node  NodeId
	clock func() uint64
	sink  Sink

	mu      sync.Mutex
	linebuf string
}

func NewLineWriter(node NodeId, clock func() uint64, sink Sink) *LineWriter {
	return &LineWriter{node: node, clock: clock, sink: sink}
}

func (lw *LineWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.linebuf += string(p)
	for {
		idx := strings.IndexByte(lw.linebuf, '\n')
		if idx == -1 {
			return len(p), nil
		}
		line := strings.TrimRight(lw.linebuf[:idx], "\r")
		lw.linebuf = lw.linebuf[idx+1:]
		if err := lw.sink.WriteLine(lw.node, lw.clock(), line); err != nil {
			return len(p), err
		}
	}
}

// Flush writes out a pending incomplete line.
func (lw *LineWriter) Flush() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.linebuf == "" {
		return nil
	}
	line := lw.linebuf
	lw.linebuf = ""
	return lw.sink.WriteLine(lw.node, lw.clock(), line)
}
