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
	"fmt"
	"strings"

	. "github.com/motesim/motesim/types"
)

// debug port commands
const (
	PrintHex16     byte = 0x1
	PrintString    byte = 0x2
	PrintInt16     byte = 0x3
	PrintHex32     byte = 0x4
	PrintInt32     byte = 0x5
	PrintStringPtr byte = 0x6
	PrintHexDump   byte = 0x7
)

var printCommands = map[string]byte{
	"hex16":   PrintHex16,
	"string":  PrintString,
	"int16":   PrintInt16,
	"hex32":   PrintHex32,
	"int32":   PrintInt32,
	"strptr":  PrintStringPtr,
	"hexdump": PrintHexDump,
}

// ParsePrintCommand gets the debug port command named kind, e.g. "hex16". An empty kind is "string".
func ParsePrintCommand(kind string) (byte, bool) {
	if kind == "" {
		return PrintString, true
	}
	c, ok := printCommands[kind]
	return c, ok
}

// Memory is the data memory of a mote as seen from its debug port.
type Memory interface {
	DataByte(addr int) byte
}

// RAM is a flat data memory. Reads outside of it return 0.
type RAM []byte

func (r RAM) DataByte(addr int) byte {
	if addr < 0 || addr >= len(r) {
		return 0
	}
	return r[addr]
}

// Printer decodes writes of a mote program to its debug port. The byte written to Base selects how the
// bytes following Base are interpreted; every decoded value becomes one trace line.
type Printer struct {
	Node NodeId
	Base int
	Max  int // longest string read from memory

	sink Sink
}

func NewPrinter(node NodeId, base int, max int, sink Sink) *Printer {
	return &Printer{Node: node, Base: base, Max: max, sink: sink}
}

// OnWrite handles the write of command to the debug port at bit tick tick.
func (p *Printer) OnWrite(mem Memory, tick uint64, command byte) error {
	text, ok := p.Decode(mem, command)
	if !ok {
		return nil
	}
	return p.sink.WriteLine(p.Node, tick, text)
}

// Decode gets the text for command. It returns false if there is nothing to print.
func (p *Printer) Decode(mem Memory, command byte) (string, bool) {
	var sb strings.Builder
	switch command {
	case PrintHex16:
		fmt.Fprintf(&sb, "%04X", p.int16At(mem, p.Base+1))
	case PrintInt16:
		fmt.Fprintf(&sb, "%d", p.int16At(mem, p.Base+1))
	case PrintHex32:
		fmt.Fprintf(&sb, "%08X", p.int32At(mem, p.Base+1))
	case PrintInt32:
		fmt.Fprintf(&sb, "%d", int32(p.int32At(mem, p.Base+1)))
	case PrintStringPtr:
		return p.stringAt(mem, int(p.int16At(mem, p.Base+1)))
	case PrintHexDump:
		addr := int(p.int16At(mem, p.Base+1))
		n := int(p.int16At(mem, p.Base+3))
		for i := 0; i < n; i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%02X", mem.DataByte(addr+i))
		}
	default:
		// already formatted text, e.g. from a printf on the mote
		return p.stringAt(mem, p.Base+1)
	}
	return sb.String(), sb.Len() > 0
}

func (p *Printer) int16At(mem Memory, addr int) uint16 {
	return uint16(mem.DataByte(addr)) | uint16(mem.DataByte(addr+1))<<8
}

func (p *Printer) int32At(mem Memory, addr int) uint32 {
	return uint32(mem.DataByte(addr)) | uint32(mem.DataByte(addr+1))<<8 |
		uint32(mem.DataByte(addr+2))<<16 | uint32(mem.DataByte(addr+3))<<24
}

// stringAt reads a NUL terminated string. A string that starts with a newline only ends a line and
// prints nothing; other newlines are dropped.
func (p *Printer) stringAt(mem Memory, addr int) (string, bool) {
	var sb strings.Builder
	for i := 0; i <= p.Max; i++ {
		b := mem.DataByte(addr + i)
		if b == 0 {
			break
		}
		if b == '\n' {
			if i == 0 {
				return "", false
			}
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String(), sb.Len() > 0
}
