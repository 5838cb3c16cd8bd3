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

// Package mote implements scripted motes: simulated nodes with an independent local clock and a radio
// on the shared medium, whose program is a fixed schedule of transmissions and debug-port prints.
package mote

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/motesim/motesim/logger"
	"github.com/motesim/motesim/prng"
	"github.com/motesim/motesim/radio"
	"github.com/motesim/motesim/trace"
	. "github.com/motesim/motesim/types"
)

// Stats counts the radio activity of a mote.
type Stats struct {
	Cycles         uint64 `yaml:"cycles"`
	Tick           uint64 `yaml:"tick"`
	Sent           int    `yaml:"sent"`
	Deferred       int    `yaml:"deferred"`
	CcaBusy        int    `yaml:"cca-busy"`
	BytesSent      int    `yaml:"bytes-sent"`
	BytesReceived  int    `yaml:"bytes-received"`
	CollidedBytes  int    `yaml:"collided-bytes"`
	CorruptedBytes int    `yaml:"corrupted-bytes"`
	Rssi           int8   `yaml:"rssi"` // of the last received byte, RssiInvalid before the first
}

// Mote is a simulated node. Its clock only moves forward in its own goroutine (Run or Advance), while
// its state can be read from any goroutine.
type Mote struct {
	Id    NodeId
	Clock Clock

	medium  *radio.Medium
	tx      *radio.Transmitter
	rx      *radio.Receiver
	step    uint64
	cca     DbValue
	rnd     *rand.Rand
	out     *trace.LineWriter
	printer *trace.Printer
	ram     trace.RAM

	cycles atomic.Uint64

	mu       sync.Mutex
	actions  []*action
	received []byte
	stats    Stats
}

// New creates a mote with a radio on medium. The receiver is switched on at the medium's current
// horizon.
func New(medium *radio.Medium, cfg *Config) (*Mote, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sink := cfg.Trace
	if sink == nil {
		sink = trace.DiscardSink{}
	}

	m := &Mote{
		Id:      cfg.Id,
		Clock:   Clock{Hz: cfg.Hz, BitRate: medium.Config().BitRate},
		medium:  medium,
		step:    cfg.step(),
		cca:     cfg.CcaThresholdDbm,
		rnd:     rand.New(rand.NewSource(int64(prng.NewMoteRandomSeed()))),
		printer: trace.NewPrinter(cfg.Id, debugPortBase, debugPortMax, sink),
		ram:     make(trace.RAM, debugBufBase+debugPortMax+1),
		actions: buildActions(cfg),
	}
	m.out = trace.NewLineWriter(cfg.Id, m.Tick, sink)

	var err error
	if m.tx, err = medium.NewTransmitter(cfg.Id, cfg.Channel, cfg.TxPowerDbm); err != nil {
		return nil, errors.Wrapf(err, "mote %d", cfg.Id)
	}
	if m.rx, err = medium.NewReceiver(cfg.Id, cfg.Channel, cfg.RxSensitivityDbm, m); err != nil {
		medium.RemoveRadio(cfg.Id)
		return nil, errors.Wrapf(err, "mote %d", cfg.Id)
	}

	// a mote joins at the current horizon; its clock starts there.
	start := medium.Progress(cfg.Id)
	m.cycles.Store(m.Clock.TicksToCycles(start))
	m.rx.On(start)
	return m, nil
}

func (m *Mote) String() string {
	return fmt.Sprintf("Mote<%d>", m.Id)
}

// Cycles gets the local clock of the mote.
func (m *Mote) Cycles() uint64 {
	return m.cycles.Load()
}

// Tick gets the local clock of the mote in bit ticks.
func (m *Mote) Tick() uint64 {
	return m.Clock.CyclesToTicks(m.Cycles())
}

func (m *Mote) Receiver() *radio.Receiver {
	return m.rx
}

func (m *Mote) Transmitter() *radio.Transmitter {
	return m.tx
}

// RadioState gets RadioTx while a transmission of the mote is on the air at its clock, otherwise the
// state of its receiver.
func (m *Mote) RadioState() RadioStates {
	if m.tx.BusyUntil() > m.Tick() {
		return RadioTx
	}
	return m.rx.State()
}

// Send schedules data for transmission as soon as the mote runs again.
func (m *Mote) Send(data []byte) error {
	if len(data) == 0 {
		return radio.ErrEmptyTransmission
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, &action{at: m.cycles.Load(), data: append([]byte(nil), data...)})
	sortActions(m.actions)
	return nil
}

// Received gets all bytes the mote's receiver delivered so far.
func (m *Mote) Received() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.received...)
}

func (m *Mote) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Cycles = m.cycles.Load()
	s.Tick = m.Clock.CyclesToTicks(s.Cycles)
	s.Rssi = radio.ClipRssi(m.rx.Stats().LastRssiDbm)
	return s
}

// OnByte receives the bytes observed by the mote's receiver.
func (m *Mote) OnByte(rx *radio.Receiver, bit uint64, merge radio.Merge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, merge.Value)
	m.stats.BytesReceived++
	if merge.IsCollision() {
		m.stats.CollidedBytes++
	}
	if merge.Corrupted != 0 {
		m.stats.CorruptedBytes++
		logger.Debugf("%v: corrupted byte at %d: %v", m, bit, merge)
	}
}

// Run runs the mote until its clock reaches bit tick until, or ctx is done. The mote runs in steps of
// a jittered number of cycles and reports its progress to the medium after each step.
func (m *Mote) Run(ctx context.Context, until uint64) error {
	target := m.Clock.TicksToCycles(until)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cycles := m.Cycles()
		if cycles >= target {
			return nil
		}
		next := cycles + m.step/2 + uint64(m.rnd.Int63n(int64(m.step)))
		if next <= cycles {
			next = cycles + 1
		}
		if next > target {
			next = target
		}
		if err := m.advance(ctx, next); err != nil {
			return err
		}
	}
}

// Advance runs the mote program up to (excluding) cycle target and reports the progress to the
// medium.
func (m *Mote) Advance(target uint64) error {
	return m.advance(context.Background(), target)
}

func (m *Mote) advance(ctx context.Context, target uint64) error {
	m.mu.Lock()
	if cycles := m.cycles.Load(); target < cycles {
		m.mu.Unlock()
		return errors.Errorf("%v: cannot go back from cycle %d to %d", m, cycles, target)
	}
	for len(m.actions) > 0 && m.actions[0].at < target {
		a := m.actions[0]
		if err := m.runActionLocked(ctx, a); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	m.cycles.Store(target)
	m.mu.Unlock()

	m.medium.Advance(m.Id, m.Clock.CyclesToTicks(target))
	return nil
}

func (m *Mote) runActionLocked(ctx context.Context, a *action) error {
	if a.at > m.cycles.Load() {
		m.cycles.Store(a.at)
	}
	tick := m.Tick()

	if a.print != nil {
		m.removeActionLocked(a)
		m.writeDebugPort(a.print, tick)
		return nil
	}

	if !math.IsNaN(m.cca) && m.tx.BusyUntil() <= tick {
		free, err := m.clearChannelLocked(ctx, tick)
		if err != nil {
			return err
		}
		if !free {
			backoff := uint64(1+m.rnd.Intn(ccaMaxBackoffBytes)) * m.medium.Config().BitsPerByte
			a.at = m.cycles.Load() + m.Clock.TicksToCycles(backoff)
			sortActions(m.actions)
			m.stats.CcaBusy++
			logger.Debugf("%v: channel busy at %d, backoff to cycle %d", m, tick, a.at)
			return nil
		}
	}

	_, err := m.tx.Transmit(tick, a.data)
	if errors.Cause(err) == radio.ErrTransmitterBusy {
		a.at = m.Clock.TicksToCycles(m.tx.BusyUntil())
		sortActions(m.actions)
		m.stats.Deferred++
		logger.Debugf("%v: transmitter busy at %d, deferred to cycle %d", m, tick, a.at)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "%v", m)
	}

	m.removeActionLocked(a)
	m.stats.Sent++
	m.stats.BytesSent += len(a.data)
	_, err = fmt.Fprintf(m.out, "[INFO] tx %d bytes at %d\n", len(a.data), tick)
	return err
}

// clearChannelLocked reports progress up to tick, waits until every mote got there and then
// assesses the channel. m.mu is released while waiting.
func (m *Mote) clearChannelLocked(ctx context.Context, tick uint64) (bool, error) {
	m.mu.Unlock()
	defer m.mu.Lock()
	m.medium.Advance(m.Id, tick)
	if err := m.medium.WaitHorizon(ctx, tick); err != nil {
		return false, err
	}
	return m.medium.IsChannelClear(m.rx, tick, m.cca), nil
}

func (m *Mote) removeActionLocked(a *action) {
	for i, b := range m.actions {
		if b == a {
			m.actions = append(m.actions[:i], m.actions[i+1:]...)
			return
		}
	}
}

// writeDebugPort emulates the mote program writing the arguments of p to RAM and its command to the
// debug port.
func (m *Mote) writeDebugPort(p *Print, tick uint64) {
	command := p.command()
	args := m.ram[debugPortBase+1:]
	switch command {
	case trace.PrintHex16, trace.PrintInt16:
		binary.LittleEndian.PutUint16(args, uint16(p.Value))
	case trace.PrintHex32, trace.PrintInt32:
		binary.LittleEndian.PutUint32(args, p.Value)
	case trace.PrintStringPtr:
		m.writeString(debugBufBase, p.Text)
		binary.LittleEndian.PutUint16(args, debugBufBase)
	case trace.PrintHexDump:
		n := copy(m.ram[debugBufBase:debugBufBase+debugPortMax], p.Data)
		binary.LittleEndian.PutUint16(args, debugBufBase)
		binary.LittleEndian.PutUint16(args[2:], uint16(n))
	default:
		m.writeString(debugPortBase+1, p.Text)
	}
	m.ram[debugPortBase] = command
	if err := m.printer.OnWrite(m.ram, tick, command); err != nil {
		logger.Warnf("%v: trace output failed: %v", m, err)
	}
}

func (m *Mote) writeString(addr int, text string) {
	n := copy(m.ram[addr:addr+debugPortMax], text)
	m.ram[addr+n] = 0
}

// Close removes the mote's radio from the medium.
func (m *Mote) Close() error {
	if err := m.out.Flush(); err != nil {
		logger.Warnf("%v: trace output failed: %v", m, err)
	}
	m.medium.RemoveRadio(m.Id)
	return nil
}
