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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motesim/motesim/logger"
	. "github.com/motesim/motesim/types"
)

type line struct {
	node NodeId
	tick uint64
	text string
}

type recordSink struct {
	lines []line
	err   error
}

func (rs *recordSink) WriteLine(node NodeId, tick uint64, text string) error {
	rs.lines = append(rs.lines, line{node, tick, text})
	return rs.err
}

func (rs *recordSink) texts() []string {
	var res []string
	for _, l := range rs.lines {
		res = append(res, l.text)
	}
	return res
}

const base = 0x20

func newRAM(cmdArgs ...byte) RAM {
	ram := make(RAM, 256)
	copy(ram[base+1:], cmdArgs)
	return ram
}

func TestPrinterNumbers(t *testing.T) {
	sink := &recordSink{}
	p := NewPrinter(3, base, 64, sink)

	require.NoError(t, p.OnWrite(newRAM(0xcd, 0xab), 10, PrintHex16))
	require.NoError(t, p.OnWrite(newRAM(0x39, 0x30), 11, PrintInt16))
	require.NoError(t, p.OnWrite(newRAM(0x78, 0x56, 0x34, 0x12), 12, PrintHex32))
	require.NoError(t, p.OnWrite(newRAM(0xff, 0xff, 0xff, 0xff), 13, PrintInt32))
	require.NoError(t, p.OnWrite(newRAM(0x00, 0x00, 0x00, 0x80), 14, PrintInt32))
	require.NoError(t, p.OnWrite(newRAM(0x39, 0x30, 0x00, 0x00), 15, PrintInt32))
	require.NoError(t, p.OnWrite(newRAM(0xff, 0xff), 16, PrintInt16))

	assert.Equal(t, []string{"ABCD", "12345", "12345678", "-1", "-2147483648", "12345", "65535"}, sink.texts())
	assert.Equal(t, line{3, 10, "ABCD"}, sink.lines[0])
}

func TestParsePrintCommand(t *testing.T) {
	c, ok := ParsePrintCommand("")
	assert.True(t, ok)
	assert.Equal(t, PrintString, c)
	c, ok = ParsePrintCommand("int32")
	assert.True(t, ok)
	assert.Equal(t, PrintInt32, c)
	c, ok = ParsePrintCommand("hexdump")
	assert.True(t, ok)
	assert.Equal(t, PrintHexDump, c)
	_, ok = ParsePrintCommand("float")
	assert.False(t, ok)
}

func TestPrinterStrings(t *testing.T) {
	sink := &recordSink{}
	p := NewPrinter(1, base, 64, sink)

	ram := newRAM([]byte("hello\nworld\x00")...)
	require.NoError(t, p.OnWrite(ram, 0, PrintString))
	require.NoError(t, p.OnWrite(ram, 0, 0x42))

	// string pointer to 0x80
	ram = newRAM(0x80, 0x00)
	copy(ram[0x80:], "via pointer\x00")
	require.NoError(t, p.OnWrite(ram, 0, PrintStringPtr))

	// a string starting with a newline prints nothing
	require.NoError(t, p.OnWrite(newRAM('\n', 'x', 0), 0, PrintString))
	require.NoError(t, p.OnWrite(newRAM(0), 0, PrintString))

	assert.Equal(t, []string{"helloworld", "helloworld", "via pointer"}, sink.texts())
}

func TestPrinterMaxLength(t *testing.T) {
	sink := &recordSink{}
	p := NewPrinter(1, base, 3, sink)
	require.NoError(t, p.OnWrite(newRAM([]byte("abcdefgh")...), 0, PrintString))
	assert.Equal(t, []string{"abcd"}, sink.texts())
}

func TestPrinterHexDump(t *testing.T) {
	sink := &recordSink{}
	p := NewPrinter(1, base, 64, sink)

	ram := newRAM(0x80, 0x00, 0x03, 0x00)
	copy(ram[0x80:], []byte{0x01, 0xab, 0xff})
	require.NoError(t, p.OnWrite(ram, 0, PrintHexDump))

	// empty dump prints nothing
	require.NoError(t, p.OnWrite(newRAM(0x80, 0x00, 0x00, 0x00), 0, PrintHexDump))
	assert.Equal(t, []string{"01 AB FF"}, sink.texts())
}

func TestLineWriter(t *testing.T) {
	sink := &recordSink{}
	tick := uint64(5)
	lw := NewLineWriter(2, func() uint64 { return tick }, sink)

	_, err := lw.Write([]byte("first li"))
	require.NoError(t, err)
	assert.Empty(t, sink.lines)
	tick = 6
	_, err = lw.Write([]byte("ne\r\nsecond\n\nthi"))
	require.NoError(t, err)
	tick = 7
	require.NoError(t, lw.Flush())
	require.NoError(t, lw.Flush())

	assert.Equal(t, []line{{2, 6, "first line"}, {2, 6, "second"}, {2, 6, ""}, {2, 7, "thi"}}, sink.lines)
}

func TestLineWriterError(t *testing.T) {
	sink := &recordSink{err: errors.New("full")}
	lw := NewLineWriter(2, func() uint64 { return 0 }, sink)
	_, err := lw.Write([]byte("x\n"))
	assert.Error(t, err)
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{err: errors.New("broken")}
	s2 := &recordSink{}
	ms := MultiSink{s1, s2, DiscardSink{}}
	assert.Error(t, ms.WriteLine(1, 2, "x"))
	assert.Equal(t, []string{"x"}, s1.texts())
	assert.Equal(t, []string{"x"}, s2.texts())
	assert.NoError(t, MultiSink{s2}.WriteLine(1, 3, "y"))
}

func TestLoggerSink(t *testing.T) {
	lv := logger.GetLevel()
	defer logger.SetLevel(lv)
	logger.SetLevel(logger.OffLevel)

	ls := NewLoggerSink()
	assert.Equal(t, logger.InfoLevel, ls.Level)
	assert.NoError(t, ls.WriteLine(1, 2, "[WARN] low battery"))
	assert.NoError(t, ls.WriteLine(1, 2, "plain"))
}

func TestFileSink(t *testing.T) {
	_, err := NewFileSink("", 1, 0)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "trace.log")
	fs, err := NewFileSink(path, 1, 2)
	require.NoError(t, err)
	require.NoError(t, fs.WriteLine(1, 100, "hello"))
	require.NoError(t, fs.WriteLine(12, 2000, "world"))
	require.NoError(t, fs.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "    1          100  hello", lines[0])
	assert.Equal(t, "   12         2000  world", lines[1])
}
