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
	"github.com/pkg/errors"

	. "github.com/motesim/motesim/types"
)

var (
	ErrEmptyTransmission = errors.New("transmission has no data")
	ErrTransmitterBusy   = errors.New("transmitter busy")
)

type Config struct {
	BitRate     uint64 // bit ticks per second
	BitsPerByte uint64
	Capture     Capture
	Metrics     *Metrics
}

func DefaultConfig() *Config {
	return &Config{
		BitRate:     DefaultBitRate,
		BitsPerByte: DefaultBitsPerByte,
	}
}

func (cfg *Config) Validate() error {
	if cfg.BitRate == 0 {
		return errors.Errorf("invalid bit rate: %d", cfg.BitRate)
	}
	if cfg.BitsPerByte == 0 {
		return errors.Errorf("invalid bits per byte: %d", cfg.BitsPerByte)
	}
	return nil
}

// TickToMs converts a bit tick to milliseconds since the start of the simulation.
func (cfg *Config) TickToMs(tick uint64) int64 {
	return int64(tick/cfg.BitRate*1000 + tick%cfg.BitRate*1000/cfg.BitRate)
}

// TickToUs converts a bit tick to microseconds since the start of the simulation.
func (cfg *Config) TickToUs(tick uint64) uint64 {
	return tick/cfg.BitRate*1000000 + tick%cfg.BitRate*1000000/cfg.BitRate
}
