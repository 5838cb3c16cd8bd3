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
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/motesim/motesim/mote"
	"github.com/motesim/motesim/trace"
	. "github.com/motesim/motesim/types"
)

// ParseScenario parses a YAML scenario. Medium settings that are not given keep the defaults of
// DefaultScenario.
func ParseScenario(data []byte) (*YamlScenario, error) {
	sc := DefaultScenario()
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, errors.Wrap(err, "parsing scenario")
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// LoadScenario reads the YAML scenario file at path.
func LoadScenario(path string) (*YamlScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading scenario file %s", path)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario file %s", path)
	}
	return sc, nil
}

func (sc *YamlScenario) validate() error {
	if sc.Medium.BitRate == 0 {
		return errors.New("medium: bit-rate must be positive")
	}
	if sc.Medium.BitsPerByte == 0 {
		return errors.New("medium: bits-per-byte must be positive")
	}
	seen := make(map[NodeId]struct{}, len(sc.Motes))
	for _, m := range sc.Motes {
		if _, ok := seen[m.Id]; ok {
			return errors.Errorf("duplicate mote id: %d", m.Id)
		}
		seen[m.Id] = struct{}{}
		if _, err := m.moteConfig(nil); err != nil {
			return err
		}
	}
	return nil
}

// moteConfig converts the scenario entry to a mote configuration.
func (ym *YamlMote) moteConfig(sink trace.Sink) (*mote.Config, error) {
	if ym.Id <= InvalidNodeId || ym.Id > MaxNodeId {
		return nil, errors.Errorf("invalid mote id: %d", ym.Id)
	}
	if ym.Channel < MinChannelNumber || ym.Channel > MaxChannelNumber {
		return nil, errors.Errorf("mote %d: invalid channel %d", ym.Id, ym.Channel)
	}
	if ym.Pos == nil && ym.RxPos != nil {
		return nil, errors.Errorf("mote %d: rx-pos without pos", ym.Id)
	}

	cfg := mote.DefaultConfig(ym.Id)
	if ym.Hz > 0 {
		cfg.Hz = ym.Hz
	}
	cfg.Channel = ym.Channel
	if ym.TxPowerDbm != nil {
		cfg.TxPowerDbm = *ym.TxPowerDbm
	}
	if ym.RxSensitivityDbm != nil {
		cfg.RxSensitivityDbm = *ym.RxSensitivityDbm
	}
	if ym.CcaThresholdDbm != nil {
		if math.IsNaN(*ym.CcaThresholdDbm) || math.IsInf(*ym.CcaThresholdDbm, 0) {
			return nil, errors.Errorf("mote %d: invalid cca-threshold", ym.Id)
		}
		cfg.CcaThresholdDbm = *ym.CcaThresholdDbm
	}
	cfg.Step = ym.Step
	cfg.Trace = sink
	for _, s := range ym.Send {
		data, err := DecodeSendData(s)
		if err != nil {
			return nil, errors.Wrapf(err, "mote %d", ym.Id)
		}
		if len(data) == 0 {
			return nil, errors.Errorf("mote %d: empty send at %d", ym.Id, s.At)
		}
		cfg.Sends = append(cfg.Sends, mote.Send{At: s.At, Data: data})
	}
	for _, p := range ym.Print {
		mp, err := DecodePrint(p)
		if err != nil {
			return nil, errors.Wrapf(err, "mote %d", ym.Id)
		}
		cfg.Prints = append(cfg.Prints, mp)
	}
	return cfg, nil
}

// ExportScenario exports the medium and the motes of the simulation, at their current positions.
// Sends and prints that already happened are not included.
func (s *Simulation) ExportScenario() YamlScenario {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := YamlScenario{Medium: s.mediumCfg}
	for _, id := range s.nodesLocked() {
		ym := s.motes[id].cfg
		ym.Send, ym.Print = nil, nil
		ym.Pos, ym.RxPos = nil, nil
		if pos, ok := s.topo.Get(TransmitterOf(id)); ok {
			ym.Pos = fromPosition(pos)
		}
		if rxPos, ok := s.topo.Get(ReceiverOf(id)); ok && ym.Pos != nil && *fromPosition(rxPos) != *ym.Pos {
			ym.RxPos = fromPosition(rxPos)
		}
		res.Motes = append(res.Motes, ym)
	}
	return res
}

// SaveScenario writes the exported scenario to path.
func (s *Simulation) SaveScenario(path string) error {
	sc := s.ExportScenario()
	data, err := yaml.Marshal(&sc)
	if err != nil {
		return errors.Wrap(err, "encoding scenario")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing scenario file %s", path)
}
