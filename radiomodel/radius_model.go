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

	"github.com/motesim/motesim/logger"
	"github.com/motesim/motesim/radio"
	. "github.com/motesim/motesim/types"
)

// RadiusNoiseDbm is the fixed noise floor reported by the RadiusModel on every channel.
const RadiusNoiseDbm DbValue = -90

// RadiusModel is a disk-shaped coverage model: a receiver hears a transmitter if and only if their
// distance is within MaximumDistance. Distances below MinimumDistance count as MinimumDistance.
// Overlapping transmissions are combined with a wired-OR of their bytes.
type RadiusModel struct {
	MinimumDistance float64
	MaximumDistance float64

	// UnknownInRange treats endpoints without a position as co-located with their peer, so that they
	// hear and are heard by everyone. By default they are out of range.
	UnknownInRange bool

	minSq float64
	maxSq float64
	pos   positions
}

// NewRadiusModel creates a RadiusModel with the given distance bounds.
func NewRadiusModel(minimumDistance, maximumDistance float64) (*RadiusModel, error) {
	p := &Params{MinimumDistance: minimumDistance, MaximumDistance: maximumDistance}
	if err := p.validateRadius(); err != nil {
		return nil, err
	}
	return newRadiusModel(p), nil
}

func newRadiusModel(p *Params) *RadiusModel {
	return &RadiusModel{
		MinimumDistance: p.MinimumDistance,
		MaximumDistance: p.MaximumDistance,
		UnknownInRange:  p.UnknownInRange,
		minSq:           p.MinimumDistance * p.MinimumDistance,
		maxSq:           p.MaximumDistance * p.MaximumDistance,
		pos:             positions{model: ModelRadius},
	}
}

func (rm *RadiusModel) Noise(channel ChannelId) DbValue {
	return RadiusNoiseDbm
}

// ReceivedPower is not modelled: the coverage disk has no notion of signal strength.
func (rm *RadiusModel) ReceivedPower(env radio.Env, tx *radio.Transmission, rx *radio.Receiver, timeMs int64) DbValue {
	return radio.PowerUnsupported
}

// ClampDistanceSq clamps a squared distance to the squared minimum distance.
func (rm *RadiusModel) ClampDistanceSq(dSq float64) float64 {
	if dSq < rm.minSq {
		return rm.minSq
	}
	return dSq
}

// DistanceSq gets the clamped squared distance between the endpoints of rx and tx. ok is false if a
// position is unknown and unknown endpoints are out of range.
func (rm *RadiusModel) DistanceSq(env radio.Env, rx *radio.Receiver, tx *radio.Transmission) (dSq float64, ok bool) {
	rxPos, rxOk := rm.pos.lookup(env, rx.Id)
	txPos, txOk := rm.pos.lookup(env, tx.Origin.Id)
	if !rxOk || !txOk {
		if !rm.UnknownInRange {
			return 0, false
		}
		return rm.minSq, true
	}
	return rm.ClampDistanceSq(rxPos.DistanceSqTo(txPos)), true
}

func (rm *RadiusModel) LockTransmission(env radio.Env, rx *radio.Receiver, tx *radio.Transmission, timeMs int64) bool {
	dSq, ok := rm.DistanceSq(env, rx, tx)
	return ok && dSq <= rm.maxSq
}

// MergeTransmissions combines the bytes of all locking transmissions at bit with a wired-OR. A single
// locking transmission is delivered unmodified.
func (rm *RadiusModel) MergeTransmissions(env radio.Env, rx *radio.Receiver, txs []*radio.Transmission, bit uint64, timeMs int64) radio.Merge {
	bytes := make([]byte, 0, len(txs))
	for _, tx := range txs {
		if rm.LockTransmission(env, rx, tx, timeMs) {
			bytes = append(bytes, tx.ByteAt(bit))
		}
	}
	if len(bytes) == 0 {
		logger.Panicf("radius model: merge for %v at %d without a locking transmission (%d candidates)",
			rx.Id, bit, len(txs))
	}
	return wiredOr(bytes)
}

func (rm *RadiusModel) String() string {
	return fmt.Sprintf("%s{min=%g,max=%g}", ModelRadius, rm.MinimumDistance, rm.MaximumDistance)
}
