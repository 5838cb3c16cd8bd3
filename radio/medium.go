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

// Package radio implements the shared wireless medium that connects the radios of independently
// clocked motes, and the Arbitrator interface through which propagation policies plug into it.
package radio

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/motesim/motesim/logger"
	. "github.com/motesim/motesim/types"
)

// Capture records every transmission after it has left the air.
type Capture interface {
	CaptureTransmission(t *Transmission, timestampUs uint64) error
}

// Stats is a snapshot of the medium's counters.
type Stats struct {
	Horizon              uint64 `yaml:"horizon"`
	Live                 int    `yaml:"live"`
	TransmissionsStarted uint64 `yaml:"started"`
	TransmissionsRetired uint64 `yaml:"retired"`
	Samples              uint64 `yaml:"samples"`
	BytesDelivered       uint64 `yaml:"delivered"`
	Collisions           uint64 `yaml:"collisions"`
}

type delivery struct {
	rx    *Receiver
	bit   uint64
	merge Merge
}

// Medium is the channel shared by all radios of one simulated network. It owns the live transmission
// set and the registered radios, and is the only rendezvous point between the clocks of the motes:
// each mote reports its progress with Advance, and the medium evaluates byte samples only up to the
// horizon that all motes have reached. Samples are therefore evaluated at one consistent instant for
// all participants, independent of goroutine scheduling.
type Medium struct {
	cfg         *Config
	arb         Arbitrator
	env         Env
	modelsPower bool

	mu           sync.RWMutex
	transmitters map[NodeId]*Transmitter
	receivers    map[NodeId]*Receiver
	live         []*Transmission
	progress     map[NodeId]uint64
	horizon      uint64
	horizonCh    chan struct{} // closed when the horizon moves
	samples      *sampleMgr
	stats        Stats

	// batches with output are delivered in the order they were produced, by ticket.
	deliverMu   sync.Mutex
	deliverCond *sync.Cond
	nextTicket  uint64
	delivering  uint64
}

// NewMedium creates a medium using arbitrator arb, which reads positions from env.
func NewMedium(cfg *Config, arb Arbitrator, env Env) (*Medium, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if arb == nil {
		return nil, errors.New("medium requires an arbitrator")
	}
	if env == nil {
		return nil, errors.New("medium requires an environment")
	}
	m := &Medium{
		cfg:          cfg,
		arb:          arb,
		env:          env,
		modelsPower:  modelsPower(arb),
		transmitters: make(map[NodeId]*Transmitter),
		receivers:    make(map[NodeId]*Receiver),
		progress:     make(map[NodeId]uint64),
		horizonCh:    make(chan struct{}),
		samples:      newSampleMgr(),
	}
	m.deliverCond = sync.NewCond(&m.deliverMu)
	return m, nil
}

func (m *Medium) Config() *Config {
	return m.cfg
}

func (m *Medium) Arbitrator() Arbitrator {
	return m.arb
}

// NewTransmitter creates the transmit endpoint for the radio of node.
func (m *Medium) NewTransmitter(node NodeId, channel ChannelId, powerDbm DbValue) (*Transmitter, error) {
	if err := checkRadio(node, channel); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transmitters[node]; ok {
		return nil, errors.Errorf("node %d already has a transmitter", node)
	}
	tx := &Transmitter{
		Id:       TransmitterOf(node),
		Channel:  channel,
		PowerDbm: powerDbm,
		medium:   m,
	}
	m.transmitters[node] = tx
	m.registerLocked(node)
	return tx, nil
}

// NewReceiver creates the receive endpoint for the radio of node. The receiver starts switched off.
func (m *Medium) NewReceiver(node NodeId, channel ChannelId, sensitivityDbm DbValue, sink ByteSink) (*Receiver, error) {
	if err := checkRadio(node, channel); err != nil {
		return nil, err
	}
	if sink == nil {
		return nil, errors.Errorf("node %d receiver requires a byte sink", node)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.receivers[node]; ok {
		return nil, errors.Errorf("node %d already has a receiver", node)
	}
	rx := &Receiver{
		Id:             ReceiverOf(node),
		Channel:        channel,
		SensitivityDbm: sensitivityDbm,
		medium:         m,
		sink:           sink,
		state:          RadioDisabled,
		stats:          ReceiverStats{LastRssiDbm: UndefinedDbValue},
	}
	m.receivers[node] = rx
	m.samples.AddReceiver(rx)
	m.registerLocked(node)
	return rx, nil
}

func checkRadio(node NodeId, channel ChannelId) error {
	if node <= InvalidNodeId || node > MaxNodeId {
		return errors.Errorf("invalid node id: %d", node)
	}
	if channel < MinChannelNumber || channel > MaxChannelNumber {
		return errors.Errorf("invalid channel %d for node %d", channel, node)
	}
	return nil
}

// Register makes node a participant of the horizon, starting at the current horizon, even if it
// has no radio yet.
func (m *Medium) Register(node NodeId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerLocked(node)
}

func (m *Medium) registerLocked(node NodeId) {
	if _, ok := m.progress[node]; !ok {
		m.progress[node] = m.horizon
	}
}

func (m *Medium) Transmitter(node NodeId) *Transmitter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transmitters[node]
}

func (m *Medium) Receiver(node NodeId) *Receiver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.receivers[node]
}

// Nodes gets the ids of all nodes with a radio on the medium, in ascending order.
func (m *Medium) Nodes() []NodeId {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]NodeId, 0, len(m.progress))
	for node := range m.progress {
		res = append(res, node)
	}
	sort.Ints(res)
	return res
}

// RemoveRadio removes both endpoints of the radio of node. Its transmissions still on the air stay
// until they are retired.
func (m *Medium) RemoveRadio(node NodeId) {
	m.mu.Lock()
	delete(m.transmitters, node)
	if _, ok := m.receivers[node]; ok {
		m.samples.DeleteReceiver(node)
		delete(m.receivers, node)
	}
	delete(m.progress, node)
	deliveries, retired := m.advanceHorizonLocked(m.minProgressLocked())
	m.unlockAndFlush(deliveries, retired)
}

// Advance reports that the mote of node has progressed up to bit tick tick: it will not start any
// transmission, or switch its receiver, before tick. Progress never goes backwards. The call never
// waits for other motes; if it raises the horizon, the samples that became due are evaluated and
// delivered before it returns.
func (m *Medium) Advance(node NodeId, tick uint64) {
	m.mu.Lock()
	p, ok := m.progress[node]
	if !ok {
		m.mu.Unlock()
		logger.Panicf("medium: node %d not registered", node)
		return
	}
	if tick > p {
		m.progress[node] = tick
	}
	deliveries, retired := m.advanceHorizonLocked(m.minProgressLocked())
	m.unlockAndFlush(deliveries, retired)
}

// RunUntil advances every registered node to at least tick. It is meant for single-threaded
// drivers such as tests and the console.
func (m *Medium) RunUntil(tick uint64) {
	m.mu.Lock()
	for node, p := range m.progress {
		if tick > p {
			m.progress[node] = tick
		}
	}
	h := tick
	if len(m.progress) > 0 {
		h = m.minProgressLocked()
	}
	deliveries, retired := m.advanceHorizonLocked(h)
	m.unlockAndFlush(deliveries, retired)
}

// Horizon gets the bit tick up to which all samples have been evaluated.
func (m *Medium) Horizon() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.horizon
}

// Progress gets the last reported progress of node.
func (m *Medium) Progress(node NodeId) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress[node]
}

// Live gets the transmissions currently in the live set, ordered by start.
func (m *Medium) Live() []*Transmission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Transmission(nil), m.live...)
}

func (m *Medium) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stats
	s.Horizon = m.horizon
	s.Live = len(m.live)
	return s
}

// WaitHorizon blocks until the horizon reaches tick, or ctx is done. The caller must have reported
// progress up to at least tick itself, and the other motes must be running in their own goroutines.
func (m *Medium) WaitHorizon(ctx context.Context, tick uint64) error {
	for {
		m.mu.RLock()
		h, ch := m.horizon, m.horizonCh
		m.mu.RUnlock()
		if h >= tick {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SampleRssi gets the signal power (dBm) that rx measures at bit tick tick: the channel noise plus
// every signal on the air at tick that started before tick. Once the horizon has reached tick, the
// result no longer depends on the scheduling of the motes.
func (m *Medium) SampleRssi(rx *Receiver, tick uint64) DbValue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rssiLocked(rx, tick, tick)
}

// IsChannelClear returns true if the RSSI measured by rx at tick is below thresholdDbm.
func (m *Medium) IsChannelClear(rx *Receiver, tick uint64, thresholdDbm DbValue) bool {
	return m.SampleRssi(rx, tick) < thresholdDbm
}

// rssiLocked sums the noise and the candidate signals at bit that started before startedBefore.
func (m *Medium) rssiLocked(rx *Receiver, bit uint64, startedBefore uint64) DbValue {
	ms := m.cfg.TickToMs(bit)
	rssi := m.arb.Noise(rx.Channel)
	for _, t := range m.live {
		if t.Start >= startedBefore || !m.isCandidate(rx, t, bit) {
			continue
		}
		var p DbValue
		if m.modelsPower {
			p = m.arb.ReceivedPower(m.env, t, rx, ms)
		} else if m.arb.LockTransmission(m.env, rx, t, ms) {
			p = t.PowerDbm
		} else {
			continue
		}
		rssi = AddSignalPowersDbm(rssi, p)
	}
	return rssi
}

func (m *Medium) startTransmission(tx *Transmitter, create func() *Transmission, start uint64) (*Transmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node := tx.Id.Node
	if m.transmitters[node] != tx {
		return nil, errors.Errorf("transmitter of node %d was removed", node)
	}
	logger.AssertTruef(start >= m.progress[node], "node %d: transmission start %d before its progress %d",
		node, start, m.progress[node])
	if tx.current != nil && tx.current.End > start {
		return nil, errors.Wrapf(ErrTransmitterBusy, "node %d until %d", node, tx.current.End)
	}

	t := create()
	idx := sort.Search(len(m.live), func(i int) bool {
		l := m.live[i]
		return l.Start > t.Start || (l.Start == t.Start && l.Origin.Id.Node > node)
	})
	m.live = append(m.live, nil)
	copy(m.live[idx+1:], m.live[idx:])
	m.live[idx] = t
	tx.current = t

	m.stats.TransmissionsStarted++
	m.cfg.Metrics.onStart()
	logger.Tracef("medium: start %v", t)
	return t, nil
}

func (m *Medium) receiverOn(rx *Receiver, tick uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node := rx.Id.Node
	if m.receivers[node] != rx {
		logger.Warnf("medium: receiver of node %d was removed", node)
		return
	}
	logger.AssertTruef(tick >= m.progress[node], "node %d: receiver on at %d before its progress %d",
		node, tick, m.progress[node])

	// sample on the byte grid, which hits every byte window of every transmission exactly once.
	bpb := m.cfg.BitsPerByte
	first := (tick + bpb - 1) / bpb * bpb
	if rx.state != RadioRx || m.samples.GetTimestamp(node) > first {
		m.samples.SetTimestamp(node, first)
	}
	rx.state = RadioRx
}

func (m *Medium) receiverOff(rx *Receiver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node := rx.Id.Node
	if m.receivers[node] != rx {
		return
	}
	rx.state = RadioDisabled
	m.samples.SetTimestamp(node, Ever)
}

func (m *Medium) minProgressLocked() uint64 {
	if len(m.progress) == 0 {
		return m.horizon
	}
	h := Ever
	for _, p := range m.progress {
		if p < h {
			h = p
		}
	}
	return h
}

// advanceHorizonLocked evaluates all samples before newHorizon and retires the transmissions that have
// ended for every receiver. The results are returned for delivery outside of the lock.
func (m *Medium) advanceHorizonLocked(newHorizon uint64) ([]delivery, []*Transmission) {
	if newHorizon <= m.horizon {
		return nil, nil
	}

	var deliveries []delivery
	for m.samples.NextTimestamp() < newHorizon {
		e := m.samples.Next()
		bit := e.Timestamp
		if d := m.sample(e.rx, bit); d != nil {
			deliveries = append(deliveries, *d)
		}
		m.samples.SetTimestamp(e.rx.Id.Node, bit+m.cfg.BitsPerByte)
	}
	m.horizon = newHorizon
	close(m.horizonCh)
	m.horizonCh = make(chan struct{})
	m.cfg.Metrics.onHorizon(newHorizon)

	var retired []*Transmission
	kept := m.live[:0]
	for _, t := range m.live {
		if t.End <= m.horizon {
			retired = append(retired, t)
			if t.Origin.current == t {
				t.Origin.current = nil
			}
			m.stats.TransmissionsRetired++
			m.cfg.Metrics.onRetire()
			logger.Tracef("medium: retire %v", t)
		} else {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(m.live); i++ {
		m.live[i] = nil
	}
	m.live = kept
	return deliveries, retired
}

func (m *Medium) isCandidate(rx *Receiver, t *Transmission, bit uint64) bool {
	return t.Channel == rx.Channel && t.Covers(bit) && t.Origin.Id.Node != rx.Id.Node
}

// sample evaluates what rx observes at bit: every live transmission on its channel is offered to the
// arbitrator, and the ones that lock are merged.
func (m *Medium) sample(rx *Receiver, bit uint64) *delivery {
	ms := m.cfg.TickToMs(bit)
	var locked []*Transmission
	for _, t := range m.live {
		if m.isCandidate(rx, t, bit) && m.arb.LockTransmission(m.env, rx, t, ms) {
			locked = append(locked, t)
		}
	}

	rx.stats.Samples++
	m.stats.Samples++
	if len(locked) == 0 {
		m.cfg.Metrics.onSample(nil)
		return nil
	}

	merge := m.arb.MergeTransmissions(m.env, rx, locked, bit, ms)
	rx.stats.BytesReceived++
	rx.stats.LastRssiDbm = m.rssiLocked(rx, bit, bit+1)
	m.stats.BytesDelivered++
	if merge.IsCollision() {
		rx.stats.Collisions++
		m.stats.Collisions++
	}
	m.cfg.Metrics.onSample(&merge)
	return &delivery{rx: rx, bit: bit, merge: merge}
}

// unlockAndFlush releases the medium lock and hands out deliveries and retired transmissions. Batches
// are handed out in the order in which they were produced, without holding the medium lock, so sinks
// may block on locks of their own that are held by callers of the medium.
func (m *Medium) unlockAndFlush(deliveries []delivery, retired []*Transmission) {
	if len(deliveries) == 0 && (len(retired) == 0 || m.cfg.Capture == nil) {
		m.mu.Unlock()
		return
	}
	ticket := m.nextTicket
	m.nextTicket++
	m.mu.Unlock()

	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	for m.delivering != ticket {
		m.deliverCond.Wait()
	}
	defer func() {
		m.delivering++
		m.deliverCond.Broadcast()
	}()

	for _, d := range deliveries {
		d.rx.sink.OnByte(d.rx, d.bit, d.merge)
	}
	if m.cfg.Capture != nil {
		for _, t := range retired {
			if err := m.cfg.Capture.CaptureTransmission(t, m.cfg.TickToUs(t.Start)); err != nil {
				logger.Warnf("medium: capture of %v failed: %v", t, err)
			}
		}
	}
}
