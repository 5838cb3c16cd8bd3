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
	"fmt"
	"math"

	"github.com/motesim/motesim/logger"
	"github.com/motesim/motesim/prng"
	"github.com/motesim/motesim/radio"
	. "github.com/motesim/motesim/types"
)

// PathLossModel is a power-aware model. Received power follows the ITU indoor log-distance path loss;
// a receiver locks onto a signal that exceeds both its sensitivity and the noise floor by the SNR
// threshold. When signals overlap, the strongest one captures the receiver if it exceeds the sum of
// all others by the capture threshold. Otherwise the receiver observes a wired-OR collision.
type PathLossModel struct {
	params Params
	fading *shadowFading
	pos    positions
}

// NewPathLossModel creates a PathLossModel. A nil params uses DefaultParams.
func NewPathLossModel(params *Params) (*PathLossModel, error) {
	if params == nil {
		params = DefaultParams()
	}
	if err := params.validatePathLoss(); err != nil {
		return nil, err
	}
	return &PathLossModel{
		params: *params,
		fading: newShadowFading(int64(prng.NewRadioModelRandomSeed())),
		pos:    positions{model: ModelPathLoss},
	}, nil
}

func (pm *PathLossModel) Params() Params {
	return pm.params
}

func (pm *PathLossModel) Noise(channel ChannelId) DbValue {
	return pm.params.NoiseFloorDbm
}

// ModelsPower reports that ReceivedPower is a path loss estimate.
func (pm *PathLossModel) ModelsPower() bool {
	return true
}

// ReceivedPower gets the power of tx at rx, or RssiMinusInfinity if a position is unknown.
func (pm *PathLossModel) ReceivedPower(env radio.Env, tx *radio.Transmission, rx *radio.Receiver, timeMs int64) DbValue {
	txPos, ok1 := pm.pos.lookup(env, tx.Origin.Id)
	rxPos, ok2 := pm.pos.lookup(env, rx.Id)
	if !ok1 || !ok2 {
		return RssiMinusInfinity
	}
	dist := math.Sqrt(txPos.DistanceSqTo(rxPos))
	rssi := computeIndoorRssiItu(dist, tx.PowerDbm, &pm.params)
	rssi -= pm.fading.computeFading(txPos, rxPos, &pm.params)
	if rssi > RssiMax {
		rssi = RssiMax
	} else if rssi < RssiMin {
		rssi = RssiMinusInfinity
	}
	return rssi
}

func (pm *PathLossModel) LockTransmission(env radio.Env, rx *radio.Receiver, tx *radio.Transmission, timeMs int64) bool {
	return pm.locks(rx, pm.ReceivedPower(env, tx, rx, timeMs))
}

func (pm *PathLossModel) locks(rx *radio.Receiver, rssi DbValue) bool {
	return rssi > RssiMinusInfinity && rssi >= rx.SensitivityDbm && rssi-pm.params.NoiseFloorDbm >= pm.params.SnrMinThresholdDb
}

func (pm *PathLossModel) MergeTransmissions(env radio.Env, rx *radio.Receiver, txs []*radio.Transmission, bit uint64, timeMs int64) radio.Merge {
	bytes := make([]byte, 0, len(txs))
	strongest := -1
	var strongestDbm DbValue
	others := RssiMinusInfinity
	for _, tx := range txs {
		rssi := pm.ReceivedPower(env, tx, rx, timeMs)
		if !pm.locks(rx, rssi) {
			continue
		}
		if strongest < 0 || rssi > strongestDbm {
			if strongest >= 0 {
				others = radio.AddSignalPowersDbm(others, strongestDbm)
			}
			strongest, strongestDbm = len(bytes), rssi
		} else {
			others = radio.AddSignalPowersDbm(others, rssi)
		}
		bytes = append(bytes, tx.ByteAt(bit))
	}
	if len(bytes) == 0 {
		logger.Panicf("pathloss model: merge for %v at %d without a locking transmission (%d candidates)",
			rx.Id, bit, len(txs))
	}
	if len(bytes) > 1 && strongestDbm-others >= pm.params.CaptureThresholdDb {
		return radio.Merge{Value: bytes[strongest], Locked: 1}
	}
	return wiredOr(bytes)
}

func (pm *PathLossModel) String() string {
	return fmt.Sprintf("%s{exp=%g,loss=%g,noise=%g}", ModelPathLoss, pm.params.ExponentDb, pm.params.FixedLossDb,
		pm.params.NoiseFloorDbm)
}

// computeIndoorRssiItu computes the RSSI for a receiver at distance dist, using a simple indoor exponent loss model.
// See https://en.wikipedia.org/wiki/ITU_model_for_indoor_attenuation
func computeIndoorRssiItu(dist float64, txPower DbValue, params *Params) DbValue {
	pathloss := 0.0
	distMeters := dist * params.MeterPerUnit
	if distMeters >= 0.01 {
		pathloss = params.ExponentDb*math.Log10(distMeters) + params.FixedLossDb
		if pathloss < 0.0 {
			pathloss = 0.0
		}
	}
	return txPower - pathloss
}
