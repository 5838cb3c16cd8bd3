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

package mote

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/motesim/motesim/trace"
	. "github.com/motesim/motesim/types"
)

const (
	DefaultHz               = 7372800 // Mica2 CPU clock
	DefaultTxPowerDbm       = 0.0
	DefaultRxSensitivityDbm = -100.0
	DefaultStepsPerSecond   = 1000
	debugPortBase           = 0x20
	debugPortMax            = 255
	debugBufBase            = debugPortBase + debugPortMax + 2 // strings and dumps referenced by address
	ccaMaxBackoffBytes      = 8
)

// Send is a transmission scheduled at cycle At of the mote's local clock.
type Send struct {
	At   uint64
	Data []byte
}

// Print is a write of the mote program to its debug port at cycle At. Command is one of the trace
// Print* commands; zero prints Text as a string.
type Print struct {
	At      uint64
	Command byte
	Text    string // PrintString, PrintStringPtr
	Value   uint32 // PrintHex16, PrintInt16, PrintHex32, PrintInt32
	Data    []byte // PrintHexDump
}

func (p *Print) command() byte {
	if p.Command == 0 {
		return trace.PrintString
	}
	return p.Command
}

type Config struct {
	Id               NodeId
	Hz               uint64
	Channel          ChannelId
	TxPowerDbm       DbValue
	RxSensitivityDbm DbValue
	Sends            []Send
	Prints           []Print

	// CcaThresholdDbm enables a clear channel assessment before each send: the send backs off while
	// the channel RSSI is at or above the threshold. UndefinedDbValue disables it. The check waits
	// for all motes to reach the send tick, so it needs all motes running concurrently.
	CcaThresholdDbm DbValue

	// Step is the number of cycles the mote runs between progress reports to the medium. Zero
	// means Hz/DefaultStepsPerSecond.
	Step uint64

	// Trace receives the text output of the mote. Nil discards it.
	Trace trace.Sink
}

func DefaultConfig(id NodeId) *Config {
	return &Config{
		Id:               id,
		Hz:               DefaultHz,
		TxPowerDbm:       DefaultTxPowerDbm,
		RxSensitivityDbm: DefaultRxSensitivityDbm,
		CcaThresholdDbm:  UndefinedDbValue,
	}
}

func (cfg *Config) validate() error {
	if cfg.Id <= InvalidNodeId || cfg.Id > MaxNodeId {
		return errors.Errorf("invalid mote id: %d", cfg.Id)
	}
	if cfg.Hz == 0 {
		return errors.Errorf("mote %d: clock frequency must be positive", cfg.Id)
	}
	for _, s := range cfg.Sends {
		if len(s.Data) == 0 {
			return errors.Errorf("mote %d: empty send at cycle %d", cfg.Id, s.At)
		}
	}
	for _, p := range cfg.Prints {
		switch c := p.command(); c {
		case trace.PrintHex16, trace.PrintInt16:
			if p.Value > math.MaxUint16 {
				return errors.Errorf("mote %d: print at cycle %d: value %d exceeds 16 bits", cfg.Id, p.At, p.Value)
			}
		case trace.PrintString, trace.PrintStringPtr, trace.PrintHex32, trace.PrintInt32:
		case trace.PrintHexDump:
			if len(p.Data) > debugPortMax {
				return errors.Errorf("mote %d: print at cycle %d: dump exceeds %d bytes", cfg.Id, p.At, debugPortMax)
			}
		default:
			return errors.Errorf("mote %d: print at cycle %d: unknown command %d", cfg.Id, p.At, c)
		}
	}
	if math.IsInf(cfg.CcaThresholdDbm, 0) {
		return errors.Errorf("mote %d: cca threshold must be finite", cfg.Id)
	}
	return nil
}

func (cfg *Config) step() uint64 {
	if cfg.Step > 0 {
		return cfg.Step
	}
	if s := cfg.Hz / DefaultStepsPerSecond; s > 0 {
		return s
	}
	return 1
}

// action is a scheduled step of the mote program: a transmission of data, or a print.
type action struct {
	at    uint64
	data  []byte
	print *Print
}

func buildActions(cfg *Config) []*action {
	var res []*action
	for _, s := range cfg.Sends {
		res = append(res, &action{at: s.At, data: append([]byte(nil), s.Data...)})
	}
	for i := range cfg.Prints {
		p := cfg.Prints[i]
		p.Data = append([]byte(nil), p.Data...)
		res = append(res, &action{at: p.At, print: &p})
	}
	sortActions(res)
	return res
}

func sortActions(actions []*action) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].at < actions[j].at
	})
}
