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

package radio

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motesim/motesim/logger"
	. "github.com/motesim/motesim/types"
)

type testEnv map[EndpointId]Position

func (env testEnv) Position(endpoint EndpointId) (Position, bool) {
	p, ok := env[endpoint]
	return p, ok
}

func (env testEnv) place(node NodeId, x float64) {
	env[TransmitterOf(node)] = Position{X: x}
	env[ReceiverOf(node)] = Position{X: x}
}

// discArbitrator locks within a fixed range and merges with wired-OR.
type discArbitrator struct {
	rangeSq float64
}

func (a *discArbitrator) Noise(channel ChannelId) DbValue {
	return -90
}

func (a *discArbitrator) ReceivedPower(env Env, tx *Transmission, rx *Receiver, timeMs int64) DbValue {
	return PowerUnsupported
}

func (a *discArbitrator) LockTransmission(env Env, rx *Receiver, tx *Transmission, timeMs int64) bool {
	p1, ok1 := env.Position(rx.Id)
	p2, ok2 := env.Position(tx.Origin.Id)
	return ok1 && ok2 && p1.DistanceSqTo(p2) <= a.rangeSq
}

func (a *discArbitrator) MergeTransmissions(env Env, rx *Receiver, txs []*Transmission, bit uint64, timeMs int64) Merge {
	var m Merge
	for _, tx := range txs {
		if !a.LockTransmission(env, rx, tx, timeMs) {
			continue
		}
		b := tx.ByteAt(bit)
		if m.Locked == 0 {
			m.Value = b
		} else {
			m.Corrupted |= b ^ m.Value
			m.Value |= b
		}
		m.Locked++
	}
	if m.Locked == 0 {
		logger.Panicf("merge without a locking transmission")
	}
	return m
}

// powerArbitrator reports a fixed received power for every signal in range.
type powerArbitrator struct {
	discArbitrator
	powerDbm DbValue
}

func (a *powerArbitrator) ModelsPower() bool {
	return true
}

func (a *powerArbitrator) ReceivedPower(env Env, tx *Transmission, rx *Receiver, timeMs int64) DbValue {
	if !a.LockTransmission(env, rx, tx, timeMs) {
		return RssiMinusInfinity
	}
	return a.powerDbm
}

type received struct {
	bit   uint64
	merge Merge
}

type recorder struct {
	mu    sync.Mutex
	bytes map[NodeId][]received
}

func newRecorder() *recorder {
	return &recorder{bytes: map[NodeId][]received{}}
}

func (r *recorder) OnByte(rx *Receiver, bit uint64, m Merge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes[rx.Id.Node] = append(r.bytes[rx.Id.Node], received{bit, m})
}

func (r *recorder) values(node NodeId) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []byte
	for _, b := range r.bytes[node] {
		res = append(res, b.merge.Value)
	}
	return res
}

type captured struct {
	t  *Transmission
	us uint64
}

type captureRecorder struct {
	frames []captured
}

func (c *captureRecorder) CaptureTransmission(t *Transmission, timestampUs uint64) error {
	c.frames = append(c.frames, captured{t, timestampUs})
	return nil
}

func newTestMedium(t *testing.T, cfg *Config) (*Medium, testEnv, *recorder) {
	env := testEnv{}
	m, err := NewMedium(cfg, &discArbitrator{rangeSq: 100}, env)
	require.NoError(t, err)
	return m, env, newRecorder()
}

func mustTx(t *testing.T, m *Medium, node NodeId) *Transmitter {
	tx, err := m.NewTransmitter(node, 0, 0)
	require.NoError(t, err)
	return tx
}

func mustRx(t *testing.T, m *Medium, node NodeId, sink ByteSink) *Receiver {
	rx, err := m.NewReceiver(node, 0, -100, sink)
	require.NoError(t, err)
	return rx
}

func TestNewMedium(t *testing.T) {
	_, err := NewMedium(&Config{BitRate: 0, BitsPerByte: 8}, &discArbitrator{}, testEnv{})
	assert.Error(t, err)
	_, err = NewMedium(nil, nil, testEnv{})
	assert.Error(t, err)
	_, err = NewMedium(nil, &discArbitrator{}, nil)
	assert.Error(t, err)

	m, err := NewMedium(nil, &discArbitrator{}, testEnv{})
	require.NoError(t, err)
	assert.Equal(t, uint64(DefaultBitRate), m.Config().BitRate)
}

func TestMedium_NewRadio(t *testing.T) {
	m, _, rec := newTestMedium(t, nil)
	_, err := m.NewTransmitter(InvalidNodeId, 0, 0)
	assert.Error(t, err)
	_, err = m.NewTransmitter(1, MaxChannelNumber+1, 0)
	assert.Error(t, err)
	_, err = m.NewReceiver(1, 0, -100, nil)
	assert.Error(t, err)

	tx := mustTx(t, m, 1)
	_, err = m.NewTransmitter(1, 0, 0)
	assert.Error(t, err)
	rx := mustRx(t, m, 1, rec)
	_, err = m.NewReceiver(1, 0, -100, rec)
	assert.Error(t, err)

	assert.Equal(t, tx, m.Transmitter(1))
	assert.Equal(t, rx, m.Receiver(1))
	assert.Equal(t, []NodeId{1}, m.Nodes())
	assert.Equal(t, RadioDisabled, rx.State())
	assert.Equal(t, NodeId(1), tx.Node())
	assert.Equal(t, NodeId(1), rx.Node())
}

func TestMedium_SingleTransmitter(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 5)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)
	rx.On(0)

	tr, err := tx.Transmit(0, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, uint64(16), tr.End)
	assert.Len(t, m.Live(), 1)

	m.RunUntil(16)
	assert.Equal(t, []byte("hi"), rec.values(2))
	for _, b := range rec.bytes[2] {
		assert.Equal(t, 1, b.merge.Locked)
		assert.Equal(t, byte(0), b.merge.Corrupted)
	}
	assert.Empty(t, m.Live())
	assert.Equal(t, uint64(0), tx.BusyUntil())

	st := rx.Stats()
	assert.Equal(t, uint64(2), st.BytesReceived)
	assert.Equal(t, uint64(2), st.Samples)
	assert.Equal(t, uint64(0), st.Collisions)
}

func TestMedium_SampleGrid(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 1)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)
	rx.On(3)

	_, err := tx.Transmit(3, []byte{0x11, 0x22})
	require.NoError(t, err)
	m.RunUntil(100)

	require.Len(t, rec.bytes[2], 2)
	assert.Equal(t, uint64(8), rec.bytes[2][0].bit)
	assert.Equal(t, uint64(16), rec.bytes[2][1].bit)
	assert.Equal(t, []byte{0x11, 0x22}, rec.values(2))
}

func TestMedium_OutOfRange(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 11)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)
	rx.On(0)

	_, err := tx.Transmit(0, []byte("abc"))
	require.NoError(t, err)
	m.RunUntil(100)
	assert.Empty(t, rec.values(2))
	assert.True(t, rx.Stats().Samples > 0)
	assert.Equal(t, uint64(0), rx.Stats().BytesReceived)
}

func TestMedium_UnknownPosition(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)
	rx.On(0)

	_, err := tx.Transmit(0, []byte("abc"))
	require.NoError(t, err)
	m.RunUntil(100)
	assert.Empty(t, rec.values(2))
}

func TestMedium_Collision(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 2)
	env.place(3, 1)
	tx1 := mustTx(t, m, 1)
	tx2 := mustTx(t, m, 2)
	rx := mustRx(t, m, 3, rec)
	rx.On(0)

	_, err := tx1.Transmit(0, []byte{0xAA})
	require.NoError(t, err)
	_, err = tx2.Transmit(0, []byte{0x55})
	require.NoError(t, err)
	m.RunUntil(8)

	require.Len(t, rec.bytes[3], 1)
	mr := rec.bytes[3][0].merge
	assert.Equal(t, byte(0xFF), mr.Value)
	assert.Equal(t, byte(0xFF), mr.Corrupted)
	assert.Equal(t, 2, mr.Locked)
	assert.True(t, mr.IsCollision())
	assert.Equal(t, uint16(0xFFFF), mr.Packed())
	assert.Equal(t, uint64(1), rx.Stats().Collisions)
	assert.Equal(t, uint64(1), m.Stats().Collisions)
}

func TestMedium_OwnTransmissionNotHeard(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 1, rec)
	rx.On(0)

	_, err := tx.Transmit(0, []byte("abc"))
	require.NoError(t, err)
	m.RunUntil(100)
	assert.Empty(t, rec.values(1))
}

func TestMedium_ChannelMismatch(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 0)
	tx, err := m.NewTransmitter(1, 5, 0)
	require.NoError(t, err)
	rx := mustRx(t, m, 2, rec)
	rx.On(0)

	_, err = tx.Transmit(0, []byte("abc"))
	require.NoError(t, err)
	m.RunUntil(100)
	assert.Empty(t, rec.values(2))
}

func TestMedium_TransmitErrors(t *testing.T) {
	m, env, _ := newTestMedium(t, nil)
	env.place(1, 0)
	tx := mustTx(t, m, 1)

	_, err := tx.Transmit(0, nil)
	assert.Equal(t, ErrEmptyTransmission, err)
	_, err = tx.TransmitFunc(0, 0, func(uint64) byte { return 0 })
	assert.Equal(t, ErrEmptyTransmission, err)

	_, err = tx.Transmit(0, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, uint64(24), tx.BusyUntil())
	_, err = tx.Transmit(10, []byte("d"))
	assert.Equal(t, ErrTransmitterBusy, errors.Cause(err))
	_, err = tx.Transmit(24, []byte("d"))
	assert.NoError(t, err)

	m.Advance(1, 100)
	assert.Panics(t, func() {
		_, _ = tx.Transmit(50, []byte("e"))
	})
}

func TestMedium_TransmitFunc(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 0)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)
	rx.On(0)

	tr, err := tx.TransmitFunc(0, 32, func(offset uint64) byte {
		return byte(offset)
	})
	require.NoError(t, err)
	assert.Nil(t, tr.Data())
	assert.Equal(t, uint64(32), tr.Duration())
	assert.Panics(t, func() {
		tr.ByteAt(32)
	})

	m.RunUntil(32)
	assert.Equal(t, []byte{0, 8, 16, 24}, rec.values(2))
}

func TestMedium_HorizonWaitsForSlowestMote(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 1)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)
	rx.On(0)

	_, err := tx.Transmit(0, []byte("ab"))
	require.NoError(t, err)

	m.Advance(1, 100)
	assert.Equal(t, uint64(0), m.Horizon())
	assert.Empty(t, rec.values(2))
	assert.Len(t, m.Live(), 1)

	m.Advance(2, 5)
	assert.Equal(t, uint64(5), m.Horizon())
	assert.Equal(t, []byte("a"), rec.values(2))

	// progress never goes backwards
	m.Advance(2, 3)
	assert.Equal(t, uint64(5), m.Progress(2))

	m.Advance(2, 100)
	assert.Equal(t, []byte("ab"), rec.values(2))
	assert.Empty(t, m.Live())

	assert.Panics(t, func() {
		m.Advance(42, 10)
	})
}

func TestMedium_RegisterHoldsHorizon(t *testing.T) {
	m, _, _ := newTestMedium(t, nil)
	m.RunUntil(50)
	assert.Equal(t, uint64(50), m.Horizon())

	m.Register(7)
	assert.Equal(t, uint64(50), m.Progress(7))
	mustTx(t, m, 1)
	m.Advance(1, 80)
	assert.Equal(t, uint64(50), m.Horizon())

	m.RemoveRadio(7)
	assert.Equal(t, uint64(80), m.Horizon())
}

func TestMedium_RemoveRadio(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 1)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)
	rx.On(0)

	_, err := tx.Transmit(0, []byte("abc"))
	require.NoError(t, err)
	m.Advance(1, 100)
	m.RemoveRadio(2)
	assert.Nil(t, m.Receiver(2))
	assert.Equal(t, uint64(100), m.Horizon())
	assert.Empty(t, rec.values(2))
	assert.Empty(t, m.Live())

	// a removed transmitter can no longer put anything on the air
	m.RemoveRadio(1)
	_, err = tx.Transmit(200, []byte("x"))
	assert.Error(t, err)
}

func TestMedium_ReceiverOff(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 1)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)
	rx.On(0)
	assert.Equal(t, RadioRx, rx.State())

	_, err := tx.Transmit(0, []byte("abcd"))
	require.NoError(t, err)
	m.RunUntil(12)
	rx.Off()
	assert.Equal(t, RadioDisabled, rx.State())
	m.RunUntil(100)
	assert.Equal(t, []byte("ab"), rec.values(2))
}

func TestMedium_SampleRssi(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 1)
	tx := mustTx(t, m, 1)
	rx := mustRx(t, m, 2, rec)

	assert.Equal(t, DbValue(-90), m.SampleRssi(rx, 0))
	assert.True(t, m.IsChannelClear(rx, 0, -70))

	_, err := tx.Transmit(0, []byte("ab"))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, m.SampleRssi(rx, 4), 0.01)
	assert.False(t, m.IsChannelClear(rx, 4, -70))
	assert.True(t, m.IsChannelClear(rx, 16, -70))
}

func TestMedium_SampleRssiStartedBefore(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 1)
	tx, err := m.NewTransmitter(1, 0, -30)
	require.NoError(t, err)
	rx := mustRx(t, m, 2, rec)

	_, err = tx.Transmit(4, []byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, DbValue(-90), m.SampleRssi(rx, 4))
	assert.InDelta(t, -30.0, m.SampleRssi(rx, 5), 0.01)
	assert.True(t, m.IsChannelClear(rx, 4, -70))
	assert.False(t, m.IsChannelClear(rx, 5, -70))
}

func TestMedium_SampleRssiPowerModel(t *testing.T) {
	env := testEnv{}
	arb := &powerArbitrator{discArbitrator: discArbitrator{rangeSq: 100}, powerDbm: 0}
	m, err := NewMedium(nil, arb, env)
	require.NoError(t, err)
	env.place(1, 0)
	env.place(2, 1)
	env.place(3, 50)
	tx, err := m.NewTransmitter(1, 0, -30)
	require.NoError(t, err)
	rx := mustRx(t, m, 2, newRecorder())
	far := mustRx(t, m, 3, newRecorder())

	_, err = tx.Transmit(0, []byte("ab"))
	require.NoError(t, err)
	// a computed 0 dBm is kept, not replaced by the transmit power
	assert.InDelta(t, 0.0, m.SampleRssi(rx, 4), 0.01)
	assert.Equal(t, DbValue(-90), m.SampleRssi(far, 4))
}

func TestMedium_ReceiverRssi(t *testing.T) {
	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 1)
	tx, err := m.NewTransmitter(1, 0, -30)
	require.NoError(t, err)
	rx := mustRx(t, m, 2, rec)
	assert.True(t, math.IsNaN(rx.Stats().LastRssiDbm))
	assert.Equal(t, int8(RssiInvalid), ClipRssi(rx.Stats().LastRssiDbm))

	rx.On(0)
	_, err = tx.Transmit(0, []byte("a"))
	require.NoError(t, err)
	m.RunUntil(20)
	assert.Equal(t, []byte("a"), rec.values(2))
	assert.InDelta(t, -30.0, rx.Stats().LastRssiDbm, 0.01)
	assert.Equal(t, int8(-30), ClipRssi(rx.Stats().LastRssiDbm))
}

func TestMedium_WaitHorizon(t *testing.T) {
	m, _, _ := newTestMedium(t, nil)
	m.Register(1)
	m.Register(2)
	require.NoError(t, m.WaitHorizon(context.Background(), 0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	m.Advance(1, 10)
	assert.Equal(t, context.DeadlineExceeded, m.WaitHorizon(ctx, 10))

	done := make(chan error, 1)
	go func() {
		done <- m.WaitHorizon(context.Background(), 10)
	}()
	m.Advance(2, 5)
	m.Advance(2, 12)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitHorizon did not return")
	}
	assert.Equal(t, uint64(10), m.Horizon())
}

func TestMedium_Capture(t *testing.T) {
	capture := &captureRecorder{}
	cfg := DefaultConfig()
	cfg.Capture = capture
	m, env, _ := newTestMedium(t, cfg)
	env.place(1, 0)
	tx := mustTx(t, m, 1)

	_, err := tx.Transmit(DefaultBitRate, []byte("abc"))
	require.NoError(t, err)
	m.RunUntil(DefaultBitRate + 23)
	assert.Empty(t, capture.frames)
	m.RunUntil(DefaultBitRate + 24)
	require.Len(t, capture.frames, 1)
	assert.Equal(t, []byte("abc"), capture.frames[0].t.Data())
	assert.Equal(t, uint64(1000000), capture.frames[0].us)
}

func TestMedium_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	again, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.NotNil(t, again)

	cfg := DefaultConfig()
	cfg.Metrics = metrics
	m, env, rec := newTestMedium(t, cfg)
	env.place(1, 0)
	env.place(2, 2)
	env.place(3, 1)
	tx1 := mustTx(t, m, 1)
	tx2 := mustTx(t, m, 2)
	rx := mustRx(t, m, 3, rec)
	rx.On(0)

	_, err = tx1.Transmit(0, []byte{1, 2})
	require.NoError(t, err)
	_, err = tx2.Transmit(8, []byte{4})
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.LiveTransmissions))

	m.RunUntil(16)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.TransmissionsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.TransmissionsRetired))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.LiveTransmissions))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Samples))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Collisions))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BytesDelivered.WithLabelValues("clean")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BytesDelivered.WithLabelValues("collision")))
	assert.Equal(t, 16.0, testutil.ToFloat64(metrics.Horizon))

	st := m.Stats()
	assert.Equal(t, uint64(2), st.TransmissionsStarted)
	assert.Equal(t, uint64(2), st.TransmissionsRetired)
	assert.Equal(t, uint64(2), st.BytesDelivered)
	assert.Equal(t, uint64(16), st.Horizon)
	assert.Equal(t, 0, st.Live)
}

func TestMedium_ConcurrentMotes(t *testing.T) {
	const end = 4000
	data := []byte("the quick brown fox jumps over the lazy dog")

	m, env, rec := newTestMedium(t, nil)
	env.place(1, 0)
	env.place(2, 3)
	env.place(3, 6)
	tx := mustTx(t, m, 1)
	rx2 := mustRx(t, m, 2, rec)
	rx3 := mustRx(t, m, 3, rec)
	rx2.On(0)
	rx3.On(0)
	_, err := tx.Transmit(0, data)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for node := NodeId(1); node <= 3; node++ {
		wg.Add(1)
		go func(node NodeId, seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			tick := uint64(0)
			for tick < end {
				tick += uint64(r.Intn(37) + 1)
				m.Advance(node, tick)
			}
		}(node, int64(node))
	}
	wg.Wait()

	assert.True(t, m.Horizon() >= end)
	assert.Equal(t, data, rec.values(2))
	assert.Equal(t, data, rec.values(3))
	for _, node := range []NodeId{2, 3} {
		for i, b := range rec.bytes[node] {
			assert.Equal(t, uint64(i)*DefaultBitsPerByte, b.bit)
		}
	}
	assert.Empty(t, m.Live())
}

func TestConfig_TickConversion(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, int64(1000), cfg.TickToMs(DefaultBitRate))
	assert.Equal(t, int64(500), cfg.TickToMs(DefaultBitRate/2))
	assert.Equal(t, uint64(1000000), cfg.TickToUs(DefaultBitRate))
	assert.Equal(t, int64(0), cfg.TickToMs(0))
}

func TestAddSignalPowersDbm(t *testing.T) {
	assert.InDelta(t, -87.0, AddSignalPowersDbm(-90, -90), 0.02)
	assert.Equal(t, DbValue(-20), AddSignalPowersDbm(-20, -90))
	assert.Equal(t, DbValue(-20), AddSignalPowersDbm(-90, -20))
	assert.Equal(t, int8(RssiMinusInfinity), ClipRssi(-200))
	assert.Equal(t, int8(RssiMax), ClipRssi(200))
	assert.Equal(t, int8(-60), ClipRssi(-60.2))
	assert.Equal(t, int8(RssiInvalid), ClipRssi(UndefinedDbValue))
}
