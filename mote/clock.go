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

package mote

import "fmt"

// Clock converts between the local CPU cycles of a mote and the bit ticks of the medium.
type Clock struct {
	Hz      uint64 // CPU cycles per second
	BitRate uint64 // bit ticks per second
}

// CyclesToTicks gets the bit tick during which cycle cycles happens.
func (c Clock) CyclesToTicks(cycles uint64) uint64 {
	return cycles/c.Hz*c.BitRate + cycles%c.Hz*c.BitRate/c.Hz
}

// TicksToCycles gets the first cycle that falls in bit tick ticks.
func (c Clock) TicksToCycles(ticks uint64) uint64 {
	rem := ticks % c.BitRate * c.Hz
	cycles := ticks/c.BitRate*c.Hz + rem/c.BitRate
	if rem%c.BitRate != 0 {
		cycles++
	}
	return cycles
}

func (c Clock) String() string {
	return fmt.Sprintf("%dHz@%dbps", c.Hz, c.BitRate)
}
