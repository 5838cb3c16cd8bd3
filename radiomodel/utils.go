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
	"sync"

	"github.com/motesim/motesim/logger"
	"github.com/motesim/motesim/radio"
	. "github.com/motesim/motesim/types"
)

// paround is a custom parameter rounding function (2 digits)
func paround(param float64) float64 {
	return math.Round(param*100.0) / 100.0
}

// positions looks up both endpoints of a link and reports unknown endpoints once.
type positions struct {
	model  string
	warned sync.Map
}

func (p *positions) lookup(env radio.Env, endpoint EndpointId) (Position, bool) {
	pos, ok := env.Position(endpoint)
	if !ok {
		if _, seen := p.warned.LoadOrStore(endpoint, struct{}{}); !seen {
			logger.Warnf("%s model: no position for endpoint %v", p.model, endpoint)
		}
	}
	return pos, ok
}

// wiredOr folds the bytes of several locking senders the way a receiver front end that cannot tell
// them apart does: every set bit of any sender shows up, and bits where senders disagree are marked.
func wiredOr(bytes []byte) radio.Merge {
	logger.AssertTrue(len(bytes) > 0)
	m := radio.Merge{Value: bytes[0], Locked: 1}
	for _, b := range bytes[1:] {
		m.Corrupted |= b ^ m.Value
		m.Value |= b
		m.Locked++
	}
	return m
}
