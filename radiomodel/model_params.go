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

package radiomodel

import (
	"math"

	"github.com/pkg/errors"

	. "github.com/motesim/motesim/types"
)

// default radio model parameters
const (
	defaultMinimumDistance    float64 = 1.0   // distance below which all receivers are equally close
	defaultMaximumDistance    float64 = 20.0  // radius of the coverage disk
	defaultNoiseFloorDbm      DbValue = -95.0 // Indoor model ambient noise floor (dBm)
	defaultMeterPerUnit       float64 = 0.10  // Default distance equivalent in meters of one position unit.
	defaultSnrMinThresholdDb  DbValue = -4.0
	defaultCaptureThresholdDb DbValue = 3.0
)

// Params stores the parameters of all radio models. Each model uses the subset that applies to it.
type Params struct {
	MinimumDistance float64 `yaml:"min-distance"`     // radius model: lower bound of the distance
	MaximumDistance float64 `yaml:"max-distance"`     // radius model: coverage radius
	UnknownInRange  bool    `yaml:"unknown-in-range"` // endpoints without position count as co-located

	MeterPerUnit        float64 `yaml:"meter-per-unit"`         // the distance in meters, equivalent to a single position unit
	ExponentDb          DbValue `yaml:"exponent-db"`            // the exponent (dB) in the path loss model
	FixedLossDb         DbValue `yaml:"fixed-loss-db"`          // the fixed loss (dB) term in the path loss model
	NoiseFloorDbm       DbValue `yaml:"noise-floor-dbm"`        // the noise floor (ambient noise, in dBm)
	SnrMinThresholdDb   DbValue `yaml:"snr-min-threshold-db"`   // the minimal SNR for a receiver to lock
	CaptureThresholdDb  DbValue `yaml:"capture-threshold-db"`   // margin by which the strongest signal captures a receiver
	ShadowFadingSigmaDb DbValue `yaml:"shadow-fading-sigma-db"` // sigma (stddev) parameter for Shadow Fading (SF), in dB
}

// DefaultParams gets a new set of parameters with default values, as a basis to configure further.
func DefaultParams() *Params {
	p := &Params{
		MinimumDistance:     defaultMinimumDistance,
		MaximumDistance:     defaultMaximumDistance,
		MeterPerUnit:        defaultMeterPerUnit,
		NoiseFloorDbm:       defaultNoiseFloorDbm,
		SnrMinThresholdDb:   defaultSnrMinThresholdDb,
		CaptureThresholdDb:  defaultCaptureThresholdDb,
		ShadowFadingSigmaDb: 0.0,
	}
	setIndoorModelParamsItu(p)
	return p
}

// ITU-T model
func setIndoorModelParamsItu(params *Params) {
	params.ExponentDb = 30.0
	params.FixedLossDb = paround(20.0*math.Log10(2400) - 28.0)
}

func (p *Params) validateRadius() error {
	if !(p.MinimumDistance >= 0) || math.IsInf(p.MinimumDistance, 0) {
		return errors.Errorf("minimum distance must be finite and not negative: %g", p.MinimumDistance)
	}
	if !(p.MaximumDistance > 0) || math.IsInf(p.MaximumDistance, 0) {
		return errors.Errorf("maximum distance must be finite and positive: %g", p.MaximumDistance)
	}
	if p.MinimumDistance > p.MaximumDistance {
		return errors.Errorf("minimum distance %g exceeds maximum distance %g", p.MinimumDistance, p.MaximumDistance)
	}
	return nil
}

func (p *Params) validatePathLoss() error {
	if !(p.MeterPerUnit > 0) {
		return errors.Errorf("meter-per-unit must be positive: %g", p.MeterPerUnit)
	}
	if math.IsNaN(p.ExponentDb) || math.IsNaN(p.FixedLossDb) || math.IsNaN(p.NoiseFloorDbm) ||
		math.IsNaN(p.SnrMinThresholdDb) || math.IsNaN(p.CaptureThresholdDb) {
		return errors.New("path loss parameters must be defined")
	}
	if p.ShadowFadingSigmaDb < 0 {
		return errors.Errorf("negative shadow fading sigma: %g", p.ShadowFadingSigmaDb)
	}
	return nil
}
