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

package simulation

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/motesim/motesim/logger"
	"github.com/motesim/motesim/mote"
	"github.com/motesim/motesim/pcap"
	"github.com/motesim/motesim/progctx"
	"github.com/motesim/motesim/radio"
	"github.com/motesim/motesim/radiomodel"
	"github.com/motesim/motesim/topology"
	"github.com/motesim/motesim/trace"
	. "github.com/motesim/motesim/types"
)

type simMote struct {
	*mote.Mote
	cfg YamlMote
}

// Simulation runs the motes of a scenario on a shared medium.
type Simulation struct {
	ctx       *progctx.ProgCtx
	cfg       *Config
	mediumCfg YamlMedium
	topo      *topology.Topology
	arb       radio.Arbitrator
	radio     *radio.Medium
	capture   *pcap.Capture
	trace     trace.Sink
	traceFile *trace.FileSink
	kpi       *KpiManager

	mu      sync.Mutex // held for the whole of Run
	motes   map[NodeId]*simMote
	stopped bool
}

// New creates the simulation of scenario sc. A nil cfg uses DefaultConfig, a nil sc an empty
// DefaultScenario.
func New(ctx *progctx.ProgCtx, cfg *Config, sc *YamlScenario) (*Simulation, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if sc == nil {
		sc = DefaultScenario()
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		ctx:       ctx,
		cfg:       cfg,
		mediumCfg: sc.Medium,
		topo:      topology.New(),
		motes:     map[NodeId]*simMote{},
	}

	var err error
	if s.arb, err = radiomodel.Create(sc.Medium.Model, &sc.Medium.Params); err != nil {
		return nil, err
	}
	if cfg.writesFiles() {
		if err = s.createOutputDir(); err != nil {
			return nil, err
		}
		if err = s.cleanOutputDir(); err != nil {
			return nil, err
		}
	}
	if err = s.openTrace(); err != nil {
		return nil, err
	}

	mcfg := &radio.Config{BitRate: sc.Medium.BitRate, BitsPerByte: sc.Medium.BitsPerByte}
	if cfg.Metrics != nil {
		if mcfg.Metrics, err = radio.NewMetrics(cfg.Metrics); err != nil {
			s.closeOutputs()
			return nil, err
		}
	}
	if cfg.PcapType != pcap.FrameTypeOff {
		f, err := pcap.NewFile(s.outputFile("motes.pcap"), cfg.PcapType)
		if err != nil {
			s.closeOutputs()
			return nil, err
		}
		s.capture = pcap.NewCapture(f, sc.Medium.BitsPerByte)
		mcfg.Capture = s.capture
	}
	if s.radio, err = radio.NewMedium(mcfg, s.arb, s.topo); err != nil {
		s.closeOutputs()
		return nil, err
	}

	for _, ym := range sc.Motes {
		if _, err = s.AddMote(ym); err != nil {
			s.mu.Lock()
			s.closeLocked()
			s.mu.Unlock()
			return nil, err
		}
	}
	if cfg.Kpi {
		s.kpi = NewKpiManager(sc.Medium.BitsPerByte)
		s.kpi.Start(s.Stats())
	}
	logger.Infof("simulation: %d motes on %v, %d bit/s", len(s.motes), s.arb, mcfg.BitRate)
	return s, nil
}

func (s *Simulation) openTrace() error {
	loggerSink := trace.NewLoggerSink()
	if !s.cfg.TraceFile {
		s.trace = loggerSink
		return nil
	}
	fileSink, err := trace.NewFileSink(s.outputFile("motes.trace"), s.cfg.TraceMaxSizeMb, s.cfg.TraceBackups)
	if err != nil {
		return err
	}
	s.traceFile = fileSink
	s.trace = trace.MultiSink{loggerSink, fileSink}
	return nil
}

// AddMote adds a mote to the running simulation. It joins at the current horizon.
func (s *Simulation) AddMote(ym YamlMote) (*mote.Mote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	if _, ok := s.motes[ym.Id]; ok {
		return nil, errors.Errorf("mote %d already exists", ym.Id)
	}
	cfg, err := ym.moteConfig(s.trace)
	if err != nil {
		return nil, err
	}

	if ym.Pos != nil {
		s.topo.SetRadioPosition(ym.Id, toPosition(*ym.Pos))
		if ym.RxPos != nil {
			s.topo.Set(ReceiverOf(ym.Id), toPosition(*ym.RxPos))
		}
	}
	m, err := mote.New(s.radio, cfg)
	if err != nil {
		s.topo.Remove(ym.Id)
		return nil, err
	}
	s.motes[ym.Id] = &simMote{Mote: m, cfg: ym}
	logger.Debugf("simulation: added %v at %v", m, ym.Pos)
	return m, nil
}

// DeleteMote removes a mote and its radio.
func (s *Simulation) DeleteMote(id NodeId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.moteLocked(id)
	if err != nil {
		return err
	}
	err = m.Close()
	s.topo.Remove(id)
	delete(s.motes, id)
	return err
}

// MoveMote moves both radio endpoints of a mote. Samples not yet evaluated use the new position.
func (s *Simulation) MoveMote(id NodeId, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.moteLocked(id); err != nil {
		return err
	}
	s.topo.SetRadioPosition(id, pos)
	return nil
}

// Send schedules data for transmission by mote id as soon as it runs again.
func (s *Simulation) Send(id NodeId, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.moteLocked(id)
	if err != nil {
		return err
	}
	return m.Send(data)
}

// Received gets the bytes mote id received so far.
func (s *Simulation) Received(id NodeId) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.moteLocked(id)
	if err != nil {
		return nil, err
	}
	return m.Received(), nil
}

func (s *Simulation) Mote(id NodeId) *mote.Mote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.motes[id]; ok {
		return m.Mote
	}
	return nil
}

func (s *Simulation) moteLocked(id NodeId) (*simMote, error) {
	m, ok := s.motes[id]
	if !ok {
		return nil, errors.Wrapf(ErrMoteNotFound, "mote %d", id)
	}
	return m, nil
}

// Nodes gets the ids of all motes in ascending order.
func (s *Simulation) Nodes() []NodeId {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodesLocked()
}

func (s *Simulation) nodesLocked() []NodeId {
	keys := make([]NodeId, 0, len(s.motes))
	for key := range s.motes {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

// Run runs all motes concurrently, each in its own goroutine, until the horizon reaches bit tick
// until.
func (s *Simulation) Run(until uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.ctx.Err() != nil {
		return ErrStopped
	}
	if until <= s.radio.Horizon() {
		return nil
	}

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error
	for _, id := range s.nodesLocked() {
		m := s.motes[id]
		wg.Add(1)
		s.ctx.Go(fmt.Sprintf("mote-%d", id), func() {
			defer wg.Done()
			if err := m.Run(s.ctx, until); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		})
	}
	wg.Wait()
	if len(s.motes) == 0 {
		s.radio.RunUntil(until)
	}

	if err := s.ctx.Cause(); err != nil {
		return err
	}
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	if firstErr != nil {
		return firstErr
	}
	if s.kpi != nil {
		s.kpi.Update(s.statsLocked())
		if err := s.kpi.SaveFile(s.outputFile("kpi.json")); err != nil {
			logger.Warnf("simulation: %v", err)
		}
	}
	logger.Debugf("simulation: horizon at %d", s.radio.Horizon())
	return nil
}

// Horizon gets the bit tick up to which the medium is settled.
func (s *Simulation) Horizon() uint64 {
	return s.radio.Horizon()
}

func (s *Simulation) Arbitrator() radio.Arbitrator {
	return s.arb
}

func (s *Simulation) Medium() *radio.Medium {
	return s.radio
}

func (s *Simulation) Topology() *topology.Topology {
	return s.topo
}

func (s *Simulation) Kpi() *KpiManager {
	return s.kpi
}

// KpiData gets a snapshot of the KPIs up to the current horizon, or nil if KPIs are not collected.
func (s *Simulation) KpiData() *Kpi {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kpi == nil || s.kpi.Data() == nil {
		return nil
	}
	s.kpi.Update(s.statsLocked())
	d := *s.kpi.Data()
	return &d
}

// SaveKpi writes the KPIs up to the current horizon to the JSON file fn.
func (s *Simulation) SaveKpi(fn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kpi == nil || s.kpi.Data() == nil {
		return errors.New("KPI collection is not enabled")
	}
	s.kpi.Update(s.statsLocked())
	return s.kpi.SaveFile(fn)
}

// RotateTrace closes the trace file and continues in a new one. The closed file is kept as a
// backup, up to the configured number of backups.
func (s *Simulation) RotateTrace() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.traceFile == nil {
		return errors.New("trace file is not enabled")
	}
	return s.traceFile.Rotate()
}

func (s *Simulation) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Simulation) statsLocked() Stats {
	horizon := s.radio.Horizon()
	st := Stats{
		Horizon: horizon,
		TimeUs:  s.radio.Config().TickToUs(horizon),
		Medium:  s.radio.Stats(),
		Motes:   make(map[NodeId]mote.Stats, len(s.motes)),
	}
	for id, m := range s.motes {
		st.Motes[id] = m.Stats()
	}
	return st
}

// Stop stops the simulation: running motes return, all radios are removed and output files are
// closed. Only the first call has an effect.
func (s *Simulation) Stop() {
	s.ctx.Cancel("simulation-stop")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	logger.Infof("stopping simulation and closing motes ...")
	if s.kpi != nil && s.kpi.IsRunning() {
		s.kpi.Stop(s.statsLocked())
		if err := s.kpi.SaveFile(s.outputFile("kpi.json")); err != nil {
			logger.Warnf("simulation: %v", err)
		}
	}
	s.closeLocked()
	logger.Debugf("all simulation motes closed.")
}

func (s *Simulation) closeLocked() {
	s.stopped = true
	for _, id := range s.nodesLocked() {
		if err := s.motes[id].Close(); err != nil {
			logger.Warnf("simulation: %v", err)
		}
	}
	s.closeOutputs()
}

func (s *Simulation) closeOutputs() {
	if s.capture != nil {
		if err := s.capture.Close(); err != nil {
			logger.Warnf("simulation: closing pcap: %v", err)
		}
		logger.Infof("simulation: %d frames captured", s.capture.Frames())
	}
	if s.traceFile != nil {
		if err := s.traceFile.Close(); err != nil {
			logger.Warnf("simulation: closing trace: %v", err)
		}
	}
}

func (s *Simulation) outputFile(name string) string {
	return filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%d_%s", s.cfg.Id, name))
}

func (s *Simulation) cleanOutputDir() error {
	// only this simulation's files; others may share the directory.
	return removeAllFiles(filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%d_*.*", s.cfg.Id)))
}

func (s *Simulation) createOutputDir() error {
	err := os.MkdirAll(s.cfg.OutputDir, 0775)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	return errors.Wrapf(err, "creating output directory %s", s.cfg.OutputDir)
}
