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
	"github.com/pkg/errors"

	"github.com/motesim/motesim/mote"
	"github.com/motesim/motesim/radio"
	"github.com/motesim/motesim/radiomodel"
	. "github.com/motesim/motesim/types"
)

var (
	ErrStopped      = errors.New("simulation stopped")
	ErrMoteNotFound = errors.New("mote not found")
)

// YamlMedium configures the shared medium and its radio model. Model parameters that are not given
// keep their defaults.
type YamlMedium struct {
	BitRate           uint64 `yaml:"bit-rate"`
	BitsPerByte       uint64 `yaml:"bits-per-byte"`
	Model             string `yaml:"model"`
	radiomodel.Params `yaml:",inline"`
}

// YamlSend is a scheduled transmission. Data is sent as text, unless Hex is given.
type YamlSend struct {
	At   uint64 `yaml:"at"`
	Data string `yaml:"data,omitempty"`
	Hex  string `yaml:"hex,omitempty"`
}

// YamlPrint is a debug port write. Kind is one of string (default), strptr, hex16, int16, hex32,
// int32 and hexdump. Number kinds print Value, hexdump prints the bytes of Hex.
type YamlPrint struct {
	At    uint64 `yaml:"at"`
	Kind  string `yaml:"kind,omitempty"`
	Text  string `yaml:"text,omitempty"`
	Value int64  `yaml:"value,omitempty"`
	Hex   string `yaml:"hex,omitempty"`
}

// YamlMote describes one mote of a scenario. A mote without pos has no known position.
type YamlMote struct {
	Id               NodeId      `yaml:"id"`
	Pos              *[3]float64 `yaml:"pos,flow,omitempty"`
	RxPos            *[3]float64 `yaml:"rx-pos,flow,omitempty"`
	Hz               uint64      `yaml:"hz,omitempty"`
	Channel          ChannelId   `yaml:"channel"`
	TxPowerDbm       *DbValue    `yaml:"tx-power,omitempty"`
	RxSensitivityDbm *DbValue    `yaml:"rx-sensitivity,omitempty"`
	CcaThresholdDbm  *DbValue    `yaml:"cca-threshold,omitempty"`
	Step             uint64      `yaml:"step,omitempty"`
	Send             []YamlSend  `yaml:"send,omitempty"`
	Print            []YamlPrint `yaml:"print,omitempty"`
}

type YamlScenario struct {
	Medium YamlMedium `yaml:"medium"`
	Motes  []YamlMote `yaml:"motes"`
}

// DefaultScenario gets an empty scenario on a default medium.
func DefaultScenario() *YamlScenario {
	return &YamlScenario{
		Medium: YamlMedium{
			BitRate:     DefaultBitRate,
			BitsPerByte: DefaultBitsPerByte,
			Model:       radiomodel.ModelRadius,
			Params:      *radiomodel.DefaultParams(),
		},
	}
}

// Stats is a snapshot of the simulation.
type Stats struct {
	Horizon uint64                `yaml:"horizon"`
	TimeUs  uint64                `yaml:"time-us"`
	Medium  radio.Stats           `yaml:"medium"`
	Motes   map[NodeId]mote.Stats `yaml:"motes"`
}
