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

	"github.com/motesim/motesim/logger"
	. "github.com/motesim/motesim/types"
)

// ByteFunc gets the byte on the air at the given offset (in bit ticks) from the start of a transmission.
type ByteFunc func(offset uint64) byte

// Transmission is a signal in flight. It is immutable once created and owned by the Medium.
type Transmission struct {
	Origin   *Transmitter
	Start    uint64 // first bit tick on the air
	End      uint64 // first bit tick after the transmission
	Channel  ChannelId
	PowerDbm DbValue

	data   []byte
	byteAt ByteFunc
}

// NewTransmission creates a transmission of data, starting at bit tick start, with bitsPerByte ticks
// per byte.
func NewTransmission(origin *Transmitter, start uint64, data []byte, bitsPerByte uint64) *Transmission {
	logger.AssertTrue(len(data) > 0)
	logger.AssertTrue(bitsPerByte > 0)
	buf := append([]byte(nil), data...)
	return &Transmission{
		Origin:   origin,
		Start:    start,
		End:      start + uint64(len(buf))*bitsPerByte,
		Channel:  origin.Channel,
		PowerDbm: origin.PowerDbm,
		data:     buf,
		byteAt: func(offset uint64) byte {
			return buf[offset/bitsPerByte]
		},
	}
}

// NewTransmissionFunc creates a transmission of duration bit ticks whose content is given by fn.
func NewTransmissionFunc(origin *Transmitter, start uint64, duration uint64, fn ByteFunc) *Transmission {
	logger.AssertTrue(duration > 0)
	logger.AssertNotNil(fn)
	return &Transmission{
		Origin:   origin,
		Start:    start,
		End:      start + duration,
		Channel:  origin.Channel,
		PowerDbm: origin.PowerDbm,
		byteAt:   fn,
	}
}

// ByteAt gets the byte transmitted at bit tick bit, which must lie within the transmission.
func (t *Transmission) ByteAt(bit uint64) byte {
	logger.AssertTruef(t.Covers(bit), "bit %d outside of %v", bit, t)
	return t.byteAt(bit - t.Start)
}

// Covers returns true if the transmission is on the air at bit tick bit.
func (t *Transmission) Covers(bit uint64) bool {
	return bit >= t.Start && bit < t.End
}

func (t *Transmission) Duration() uint64 {
	return t.End - t.Start
}

// Data gets the transmitted bytes, or nil if the transmission was created from a ByteFunc.
func (t *Transmission) Data() []byte {
	return t.data
}

func (t *Transmission) String() string {
	return fmt.Sprintf("Tx{src=%d,ch=%d,%d-%d}", t.Origin.Id.Node, t.Channel, t.Start, t.End)
}

// Transmitter is the transmit endpoint of a radio.
type Transmitter struct {
	Id       EndpointId
	Channel  ChannelId
	PowerDbm DbValue

	medium  *Medium
	current *Transmission
}

func (tx *Transmitter) Node() NodeId {
	return tx.Id.Node
}

// Transmit puts data on the air starting at bit tick start. It fails if the transmitter is still busy
// with an earlier transmission at start.
func (tx *Transmitter) Transmit(start uint64, data []byte) (*Transmission, error) {
	if len(data) == 0 {
		return nil, ErrEmptyTransmission
	}
	return tx.medium.startTransmission(tx, func() *Transmission {
		return NewTransmission(tx, start, data, tx.medium.cfg.BitsPerByte)
	}, start)
}

// TransmitFunc puts a transmission of duration bit ticks on the air, its content given by fn.
func (tx *Transmitter) TransmitFunc(start uint64, duration uint64, fn ByteFunc) (*Transmission, error) {
	if duration == 0 {
		return nil, ErrEmptyTransmission
	}
	return tx.medium.startTransmission(tx, func() *Transmission {
		return NewTransmissionFunc(tx, start, duration, fn)
	}, start)
}

// BusyUntil gets the first bit tick at which the transmitter is free again.
func (tx *Transmitter) BusyUntil() uint64 {
	tx.medium.mu.RLock()
	defer tx.medium.mu.RUnlock()
	if tx.current == nil {
		return 0
	}
	return tx.current.End
}

// ByteSink receives the bytes a receiver observes. OnByte is called in tick order per receiver, and
// must not call back into the medium.
type ByteSink interface {
	OnByte(rx *Receiver, bit uint64, m Merge)
}

// ByteSinkFunc adapts a function to a ByteSink.
type ByteSinkFunc func(rx *Receiver, bit uint64, m Merge)

func (f ByteSinkFunc) OnByte(rx *Receiver, bit uint64, m Merge) {
	f(rx, bit, m)
}

// Receiver is the receive endpoint of a radio.
type Receiver struct {
	Id             EndpointId
	Channel        ChannelId
	SensitivityDbm DbValue

	medium *Medium
	sink   ByteSink
	state  RadioStates
	stats  ReceiverStats
}

// ReceiverStats counts what a receiver observed.
type ReceiverStats struct {
	Samples       uint64 `yaml:"samples"`
	BytesReceived uint64 `yaml:"bytes"`
	Collisions    uint64 `yaml:"collisions"`

	// LastRssiDbm is the signal power measured with the last received byte, or UndefinedDbValue.
	LastRssiDbm DbValue `yaml:"-"`
}

func (rx *Receiver) Node() NodeId {
	return rx.Id.Node
}

// On switches the receiver on, sampling the channel from bit tick tick onwards.
func (rx *Receiver) On(tick uint64) {
	rx.medium.receiverOn(rx, tick)
}

// Off switches the receiver off; no more bytes are delivered to it.
func (rx *Receiver) Off() {
	rx.medium.receiverOff(rx)
}

func (rx *Receiver) State() RadioStates {
	rx.medium.mu.RLock()
	defer rx.medium.mu.RUnlock()
	return rx.state
}

func (rx *Receiver) Stats() ReceiverStats {
	rx.medium.mu.RLock()
	defer rx.medium.mu.RUnlock()
	return rx.stats
}
