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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motesim/motesim/radio"
	"github.com/motesim/motesim/radiomodel"
	"github.com/motesim/motesim/trace"
	"github.com/motesim/motesim/topology"
	. "github.com/motesim/motesim/types"
)

// cyclesPerTick at DefaultHz and DefaultBitRate
const cyclesPerTick = DefaultHz / DefaultBitRate

type line struct {
	node NodeId
	tick uint64
	text string
}

type recordingSink struct {
	mu    sync.Mutex
	lines []line
}

func (rs *recordingSink) WriteLine(node NodeId, tick uint64, text string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.lines = append(rs.lines, line{node, tick, text})
	return nil
}

type testSim struct {
	topo   *topology.Topology
	medium *radio.Medium
	motes  []*Mote
}

func newTestSim(t *testing.T) *testSim {
	rm, err := radiomodel.NewRadiusModel(1, 10)
	require.NoError(t, err)
	topo := topology.New()
	medium, err := radio.NewMedium(nil, rm, topo)
	require.NoError(t, err)
	return &testSim{topo: topo, medium: medium}
}

func (ts *testSim) add(t *testing.T, cfg *Config, x float64) *Mote {
	ts.topo.SetRadioPosition(cfg.Id, Position{X: x})
	m, err := New(ts.medium, cfg)
	require.NoError(t, err)
	ts.motes = append(ts.motes, m)
	return m
}

// advance runs all motes in turn until tick.
func (ts *testSim) advance(t *testing.T, tick uint64) {
	for _, m := range ts.motes {
		require.NoError(t, m.Advance(m.Clock.TicksToCycles(tick)))
	}
}

func TestClock(t *testing.T) {
	c := Clock{Hz: DefaultHz, BitRate: DefaultBitRate}
	assert.Equal(t, uint64(0), c.CyclesToTicks(cyclesPerTick-1))
	assert.Equal(t, uint64(1), c.CyclesToTicks(cyclesPerTick))
	assert.Equal(t, uint64(cyclesPerTick), c.TicksToCycles(1))
	assert.Equal(t, uint64(DefaultBitRate*1000000), c.CyclesToTicks(DefaultHz*1000000))
	assert.Equal(t, "7372800Hz@19200bps", c.String())

	odd := Clock{Hz: 1000, BitRate: 3}
	assert.Equal(t, uint64(334), odd.TicksToCycles(1))
	assert.Equal(t, uint64(0), odd.CyclesToTicks(333))
	assert.Equal(t, uint64(1), odd.CyclesToTicks(334))
	for tick := uint64(0); tick < 100; tick++ {
		assert.Equal(t, tick, odd.CyclesToTicks(odd.TicksToCycles(tick)))
	}
}

func TestNew(t *testing.T) {
	ts := newTestSim(t)

	_, err := New(ts.medium, DefaultConfig(InvalidNodeId))
	assert.Error(t, err)

	cfg := DefaultConfig(1)
	cfg.Hz = 0
	_, err = New(ts.medium, cfg)
	assert.Error(t, err)

	cfg = DefaultConfig(1)
	cfg.Sends = []Send{{At: 0}}
	_, err = New(ts.medium, cfg)
	assert.Error(t, err)

	m := ts.add(t, DefaultConfig(1), 0)
	assert.Equal(t, "Mote<1>", m.String())
	assert.Equal(t, RadioRx, m.Receiver().State())
	assert.Equal(t, uint64(0), m.Cycles())

	_, err = New(ts.medium, DefaultConfig(1))
	assert.Error(t, err)
}

func TestSendReceive(t *testing.T) {
	ts := newTestSim(t)
	cfg := DefaultConfig(1)
	cfg.Sends = []Send{{At: 0, Data: []byte("hi")}}
	sender := ts.add(t, cfg, 0)
	receiver := ts.add(t, DefaultConfig(2), 5)
	far := ts.add(t, DefaultConfig(3), 50)

	ts.advance(t, 100)
	assert.Equal(t, uint64(100), ts.medium.Horizon())
	assert.Equal(t, []byte("hi"), receiver.Received())
	assert.Empty(t, sender.Received())
	assert.Empty(t, far.Received())

	st := sender.Stats()
	assert.Equal(t, 1, st.Sent)
	assert.Equal(t, 2, st.BytesSent)
	assert.Equal(t, uint64(100), st.Tick)
	assert.Equal(t, 2, receiver.Stats().BytesReceived)
	assert.Equal(t, 0, receiver.Stats().CollidedBytes)
	assert.Equal(t, int8(0), receiver.Stats().Rssi)
	assert.Equal(t, int8(RssiInvalid), far.Stats().Rssi)
}

func TestRadioState(t *testing.T) {
	ts := newTestSim(t)
	cfg := DefaultConfig(1)
	cfg.Sends = []Send{{At: 0, Data: []byte("hi")}}
	sender := ts.add(t, cfg, 0)
	receiver := ts.add(t, DefaultConfig(2), 5)

	ts.advance(t, 10)
	assert.Equal(t, RadioTx, sender.RadioState())
	assert.Equal(t, RadioRx, receiver.RadioState())

	ts.advance(t, 100)
	assert.Equal(t, RadioRx, sender.RadioState())
}

func TestSendDeferredWhileBusy(t *testing.T) {
	ts := newTestSim(t)
	cfg := DefaultConfig(1)
	cfg.Sends = []Send{
		{At: 0, Data: []byte("ab")},
		{At: cyclesPerTick, Data: []byte("cd")},
	}
	sender := ts.add(t, cfg, 0)
	receiver := ts.add(t, DefaultConfig(2), 1)

	ts.advance(t, 100)
	st := sender.Stats()
	assert.Equal(t, 2, st.Sent)
	assert.Equal(t, 1, st.Deferred)
	assert.Equal(t, []byte("abcd"), receiver.Received())
	assert.Equal(t, 0, receiver.Stats().CorruptedBytes)
}

func TestSendAtRuntime(t *testing.T) {
	ts := newTestSim(t)
	sender := ts.add(t, DefaultConfig(1), 0)
	receiver := ts.add(t, DefaultConfig(2), 1)

	ts.advance(t, 10)
	assert.Equal(t, radio.ErrEmptyTransmission, sender.Send(nil))
	require.NoError(t, sender.Send([]byte{0x42}))
	ts.advance(t, 40)
	assert.Equal(t, []byte{0x42}, receiver.Received())
	assert.Equal(t, uint64(18), sender.Transmitter().BusyUntil())
}

func TestCollision(t *testing.T) {
	ts := newTestSim(t)
	cfg1 := DefaultConfig(1)
	cfg1.Sends = []Send{{At: 0, Data: []byte{0xAA}}}
	cfg3 := DefaultConfig(3)
	cfg3.Sends = []Send{{At: 0, Data: []byte{0x55}}}
	ts.add(t, cfg1, 0)
	receiver := ts.add(t, DefaultConfig(2), 2)
	ts.add(t, cfg3, 4)

	ts.advance(t, 20)
	assert.Equal(t, []byte{0xFF}, receiver.Received())
	st := receiver.Stats()
	assert.Equal(t, 1, st.CollidedBytes)
	assert.Equal(t, 1, st.CorruptedBytes)
}

func TestAdvanceBackwards(t *testing.T) {
	ts := newTestSim(t)
	m := ts.add(t, DefaultConfig(1), 0)
	require.NoError(t, m.Advance(1000))
	assert.Error(t, m.Advance(999))
	assert.Equal(t, uint64(1000), m.Cycles())
}

func TestDebugPortPrint(t *testing.T) {
	ts := newTestSim(t)
	sink := &recordingSink{}
	cfg := DefaultConfig(7)
	cfg.Trace = sink
	cfg.Prints = []Print{
		{At: 2 * cyclesPerTick, Text: "hello"},
		{At: 3 * cyclesPerTick, Text: "\n"},
		{At: 5 * cyclesPerTick, Text: "world\n"},
	}
	cfg.Sends = []Send{{At: 9 * cyclesPerTick, Data: []byte{1, 2}}}
	ts.add(t, cfg, 0)

	ts.advance(t, 50)
	assert.Equal(t, []line{
		{7, 2, "hello"},
		{7, 5, "world"},
		{7, 9, "[INFO] tx 2 bytes at 9"},
	}, sink.lines)
}

func TestDebugPortCommands(t *testing.T) {
	ts := newTestSim(t)
	sink := &recordingSink{}
	cfg := DefaultConfig(4)
	cfg.Trace = sink
	cfg.Prints = []Print{
		{At: 1 * cyclesPerTick, Command: trace.PrintHex16, Value: 0xBEEF},
		{At: 2 * cyclesPerTick, Command: trace.PrintInt16, Value: 12345},
		{At: 3 * cyclesPerTick, Command: trace.PrintHex32, Value: 0x12345678},
		{At: 4 * cyclesPerTick, Command: trace.PrintInt32, Value: 0xFFFFFFFF},
		{At: 5 * cyclesPerTick, Command: trace.PrintStringPtr, Text: "via pointer"},
		{At: 6 * cyclesPerTick, Command: trace.PrintHexDump, Data: []byte{0x01, 0xab}},
		{At: 7 * cyclesPerTick, Command: trace.PrintString, Text: "plain"},
	}
	ts.add(t, cfg, 0)

	ts.advance(t, 50)
	assert.Equal(t, []line{
		{4, 1, "BEEF"},
		{4, 2, "12345"},
		{4, 3, "12345678"},
		{4, 4, "-1"},
		{4, 5, "via pointer"},
		{4, 6, "01 AB"},
		{4, 7, "plain"},
	}, sink.lines)
}

func TestDebugPortCommandsInvalid(t *testing.T) {
	ts := newTestSim(t)
	cfg := DefaultConfig(1)
	cfg.Prints = []Print{{Command: trace.PrintHex16, Value: 0x10000}}
	_, err := New(ts.medium, cfg)
	assert.Error(t, err)

	cfg.Prints = []Print{{Command: 0x42}}
	_, err = New(ts.medium, cfg)
	assert.Error(t, err)

	cfg.Prints = []Print{{Command: trace.PrintHexDump, Data: make([]byte, debugPortMax+1)}}
	_, err = New(ts.medium, cfg)
	assert.Error(t, err)
}

// runAll runs all motes concurrently until tick.
func (ts *testSim) runAll(t *testing.T, tick uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var wg sync.WaitGroup
	for _, m := range ts.motes {
		wg.Add(1)
		go func(m *Mote) {
			defer wg.Done()
			assert.NoError(t, m.Run(ctx, tick))
		}(m)
	}
	wg.Wait()
}

func TestClearChannelAssessment(t *testing.T) {
	run := func(cca DbValue) (Stats, Stats) {
		ts := newTestSim(t)
		cfg1 := DefaultConfig(1)
		cfg1.Sends = []Send{{At: 0, Data: []byte("abcd")}}
		cfg3 := DefaultConfig(3)
		cfg3.Sends = []Send{{At: 4 * cyclesPerTick, Data: []byte("xyz")}}
		cfg3.CcaThresholdDbm = cca
		ts.add(t, cfg1, 0)
		receiver := ts.add(t, DefaultConfig(2), 3)
		sender := ts.add(t, cfg3, 6)

		ts.runAll(t, 300)
		assert.Equal(t, uint64(300), ts.medium.Horizon())
		return sender.Stats(), receiver.Stats()
	}

	sender, receiver := run(UndefinedDbValue)
	assert.Equal(t, 0, sender.CcaBusy)
	assert.True(t, receiver.CollidedBytes > 0)

	sender, receiver = run(-50)
	assert.True(t, sender.CcaBusy > 0)
	assert.Equal(t, 1, sender.Sent)
	assert.Equal(t, 7, receiver.BytesReceived)
	assert.Equal(t, 0, receiver.CollidedBytes)
	for i := 0; i < 3; i++ {
		s, r := run(-50)
		assert.Equal(t, sender, s)
		assert.Equal(t, receiver, r)
	}

	// a threshold above the signal power never backs off
	sender, _ = run(10)
	assert.Equal(t, 0, sender.CcaBusy)
}

func TestRunSmallStep(t *testing.T) {
	for _, mod := range []func(*Config){
		func(cfg *Config) { cfg.Hz = 500 },
		func(cfg *Config) { cfg.Step = 1 },
	} {
		ts := newTestSim(t)
		cfg := DefaultConfig(1)
		mod(cfg)
		m := ts.add(t, cfg, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		require.NoError(t, m.Run(ctx, 10))
		cancel()
		assert.Equal(t, m.Clock.TicksToCycles(10), m.Cycles())
		assert.True(t, m.Tick() >= 10)
		assert.Equal(t, m.Tick(), ts.medium.Horizon())
	}
}

func TestRunConcurrently(t *testing.T) {
	run := func() map[NodeId][]byte {
		ts := newTestSim(t)
		cfg1 := DefaultConfig(1)
		cfg1.Sends = []Send{{At: 0, Data: []byte("abc")}}
		cfg3 := DefaultConfig(3)
		cfg3.Sends = []Send{{At: 4 * cyclesPerTick / 2, Data: []byte("xyz")}}
		cfg3.Hz = DefaultHz / 2
		ts.add(t, cfg1, 0)
		ts.add(t, DefaultConfig(2), 3)
		ts.add(t, cfg3, 6)

		var wg sync.WaitGroup
		for _, m := range ts.motes {
			wg.Add(1)
			go func(m *Mote) {
				defer wg.Done()
				assert.NoError(t, m.Run(context.Background(), 200))
			}(m)
		}
		wg.Wait()

		assert.Equal(t, uint64(200), ts.medium.Horizon())
		res := map[NodeId][]byte{}
		for _, m := range ts.motes {
			res[m.Id] = m.Received()
		}
		return res
	}

	first := run()
	assert.Len(t, first[2], 4)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run())
	}
}

func TestRunCanceled(t *testing.T) {
	ts := newTestSim(t)
	m := ts.add(t, DefaultConfig(1), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, m.Run(ctx, 100))
	assert.Equal(t, uint64(0), m.Cycles())
}

func TestClose(t *testing.T) {
	ts := newTestSim(t)
	m := ts.add(t, DefaultConfig(1), 0)
	other := ts.add(t, DefaultConfig(2), 1)
	require.NoError(t, m.Close())
	assert.Equal(t, []NodeId{2}, ts.medium.Nodes())

	require.NoError(t, other.Advance(other.Clock.TicksToCycles(30)))
	assert.Equal(t, uint64(30), ts.medium.Horizon())
}
