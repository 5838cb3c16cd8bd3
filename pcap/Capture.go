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

package pcap

import (
	"sync"

	"github.com/motesim/motesim/radio"
)

// Capture writes every retired transmission of a medium to a PCAP file.
type Capture struct {
	mu          sync.Mutex
	f           File
	bitsPerByte uint64
	frames      int
}

func NewCapture(f File, bitsPerByte uint64) *Capture {
	return &Capture{f: f, bitsPerByte: bitsPerByte}
}

func (c *Capture) CaptureTransmission(t *radio.Transmission, timestampUs uint64) error {
	data := t.Data()
	if data == nil {
		for bit := t.Start; bit < t.End; bit += c.bitsPerByte {
			data = append(data, t.ByteAt(bit))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames++
	return c.f.AppendFrame(Frame{
		Timestamp: timestampUs,
		Data:      data,
		Channel:   t.Channel,
		Source:    t.Origin.Id.Node,
		PowerDbm:  float32(t.PowerDbm),
	})
}

// Frames gets the number of transmissions captured so far.
func (c *Capture) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.f.Sync(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}
