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
	"fmt"

	. "github.com/motesim/motesim/types"
)

// PowerUnsupported is returned by Arbitrator.ReceivedPower when the arbitrator does not model signal
// power. The medium then uses the transmitter's own power for each locking signal.
const PowerUnsupported DbValue = 0

// PowerModel is implemented by arbitrators whose ReceivedPower is a real power estimate. The medium
// only trusts ReceivedPower of arbitrators that implement it and report true.
type PowerModel interface {
	ModelsPower() bool
}

func modelsPower(arb Arbitrator) bool {
	pm, ok := arb.(PowerModel)
	return ok && pm.ModelsPower()
}

// Env is the shared simulation state handed to every Arbitrator call. Arbitrators only read from it.
type Env interface {
	// Position returns the position of endpoint, or false if it is unknown.
	Position(endpoint EndpointId) (Position, bool)
}

// Arbitrator is the propagation policy of the medium. It decides whether a receiver can hear a
// transmission and which byte a receiver observes when several transmissions overlap.
//
// Arbitration calls never block and are evaluated at a single instant (bit tick / timeMs) that the
// medium has already aligned across all motes.
type Arbitrator interface {
	// Noise gets the ambient noise floor (dBm) of a channel. It is deterministic for fixed input.
	Noise(channel ChannelId) DbValue

	// ReceivedPower gets the power (dBm) of tx as received by rx. Arbitrators that do not implement
	// PowerModel return PowerUnsupported.
	ReceivedPower(env Env, tx *Transmission, rx *Receiver, timeMs int64) DbValue

	// LockTransmission determines if rx currently hears tx. It is a pure function of the positions
	// of both endpoints and the time, for a given arbitrator configuration.
	LockTransmission(env Env, rx *Receiver, tx *Transmission, timeMs int64) bool

	// MergeTransmissions computes what rx observes at the given bit tick. txs must be non-empty and
	// at least one of them must lock; violating this is a fatal error.
	MergeTransmissions(env Env, rx *Receiver, txs []*Transmission, bit uint64, timeMs int64) Merge
}

// Merge is the observation of one receiver at one bit tick.
type Merge struct {
	// Value is the byte the receiver's hardware decodes.
	Value byte
	// Corrupted has a bit set for every bit position where the overlapping senders disagreed.
	Corrupted byte
	// Locked is the number of transmissions that locked and contributed to Value.
	Locked int
}

// IsCollision returns true if more than one transmission contributed to the observation.
func (m Merge) IsCollision() bool {
	return m.Locked > 1
}

// Packed returns the observation as one 16-bit value: disagreement mask in the high byte and the
// decoded value in the low byte.
func (m Merge) Packed() uint16 {
	return uint16(m.Corrupted)<<8 | uint16(m.Value)
}

func (m Merge) String() string {
	return fmt.Sprintf("Merge{val=%02x,cor=%02x,n=%d}", m.Value, m.Corrupted, m.Locked)
}
