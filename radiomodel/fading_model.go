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
	"math/rand"
	"sync"

	"github.com/motesim/motesim/logger"
	. "github.com/motesim/motesim/types"
)

const (
	initialCacheSize = 1000
	maxCacheSize     = 1000000
)

// shadowFading draws a fixed, position-dependent attenuation per radio link.
type shadowFading struct {
	rndSeed int64

	mu        sync.Mutex
	shFadeMap map[int64]DbValue
}

func newShadowFading(seed int64) *shadowFading {
	return &shadowFading{
		rndSeed:   seed,
		shFadeMap: make(map[int64]DbValue, initialCacheSize),
	}
}

// computeFading calculates shadow fading (SF) for a radio link. SF models a fixed, position-dependent
// radio signal power attenuation (SF>0) or increase (SF<0) due to multipath effects and static
// obstacles. In the dB domain it is modeled as a normal distribution (mu=0, sigma). A symmetric link
// is assumed between transmitter/receiver. See 3GPP TR 38.901 V17.0.0, section 7.4.1 and 7.4.4.
func (sf *shadowFading) computeFading(src, dst Position, params *Params) DbValue {
	if params.ShadowFadingSigmaDb <= 0 {
		return 0
	}
	seed := sf.rndSeed + calcLinkUID(src, dst, params.MeterPerUnit)

	sf.mu.Lock()
	defer sf.mu.Unlock()
	if v, ok := sf.shFadeMap[seed]; ok {
		return v
	}
	if len(sf.shFadeMap) > maxCacheSize {
		logger.Debugf("radio fading model: purging cache")
		sf.shFadeMap = make(map[int64]DbValue, initialCacheSize)
	}
	// a single reproducible random number per link
	v := rand.New(rand.NewSource(seed)).NormFloat64() * params.ShadowFadingSigmaDb
	sf.shFadeMap[seed] = v
	return v
}

func calcLinkUID(src, dst Position, meterPerUnit float64) int64 {
	// position in grid units of 5 m, using only positive values (uint16 range)
	x1 := uint16(math.Round(src.X*meterPerUnit*0.2) + 32768)
	y1 := uint16(math.Round(src.Y*meterPerUnit*0.2) + 32768)
	x2 := uint16(math.Round(dst.X*meterPerUnit*0.2) + 32768)
	y2 := uint16(math.Round(dst.Y*meterPerUnit*0.2) + 32768)
	xL, yL, xR, yR := x2, y2, x1, y1

	// use left-most node (and in case of doubt, top-most)
	if x1 < x2 || (x1 == x2 && y1 < y2) {
		xL, yL, xR, yR = x1, y1, x2, y2
	}
	return int64(xL) + int64(yL)<<16 + int64(xR)<<32 + int64(yR)<<48
}
