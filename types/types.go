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

package types

import (
	"fmt"
	"math"
)

type NodeId = int
type ChannelId = int

const (
	MaxNodeId     NodeId = 0xffff
	InvalidNodeId NodeId = 0
)

const (
	MinChannelNumber ChannelId = 0
	MaxChannelNumber ChannelId = 31
	InvalidChannel   ChannelId = -1
)

// Ever is the timestamp (in bit ticks) that is never reached.
const Ever uint64 = math.MaxUint64

// EndpointRole distinguishes the transmit side of a radio from its receive side.
type EndpointRole uint8

const (
	RoleTransmitter EndpointRole = 0
	RoleReceiver    EndpointRole = 1
)

func (r EndpointRole) String() string {
	switch r {
	case RoleTransmitter:
		return "tx"
	case RoleReceiver:
		return "rx"
	default:
		return "invalid"
	}
}

// EndpointId is the identity of one role (transmitter or receiver) of a radio. It is unique per role
// per radio and can be used as a map key.
type EndpointId struct {
	Node NodeId
	Role EndpointRole
}

// TransmitterOf returns the transmit endpoint of the radio of node.
func TransmitterOf(node NodeId) EndpointId {
	return EndpointId{Node: node, Role: RoleTransmitter}
}

// ReceiverOf returns the receive endpoint of the radio of node.
func ReceiverOf(node NodeId) EndpointId {
	return EndpointId{Node: node, Role: RoleReceiver}
}

func (e EndpointId) String() string {
	return fmt.Sprintf("%s%d", e.Role, e.Node)
}

type RadioStates byte

const (
	RadioDisabled RadioStates = 0
	RadioRx       RadioStates = 2
	RadioTx       RadioStates = 3
)

func (s RadioStates) String() string {
	switch s {
	case RadioDisabled:
		return "Off"
	case RadioRx:
		return "Rx_"
	case RadioTx:
		return "Tx_"
	default:
		return "invalid"
	}
}
