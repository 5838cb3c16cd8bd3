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

// Package topology maps radio endpoints to their position in 3-D space.
package topology

import (
	"sort"
	"sync"

	. "github.com/motesim/motesim/types"
)

// Topology is the position table shared by the medium and its arbitrator. Position writes (radio
// moves) take brief exclusive access; lookups may run concurrently with each other.
type Topology struct {
	mu        sync.RWMutex
	positions map[EndpointId]Position
}

func New() *Topology {
	return &Topology{
		positions: make(map[EndpointId]Position),
	}
}

// Set sets the position of endpoint. Repeated calls are idempotent; the last write wins.
func (t *Topology) Set(endpoint EndpointId, pos Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions[endpoint] = pos
}

// SetRadioPosition places both the transmit and the receive endpoint of the radio of node at pos.
func (t *Topology) SetRadioPosition(node NodeId, pos Position) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions[TransmitterOf(node)] = pos
	t.positions[ReceiverOf(node)] = pos
}

// Get returns the position of endpoint, or false if the endpoint's position is unknown.
func (t *Topology) Get(endpoint EndpointId) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[endpoint]
	return pos, ok
}

// Position implements radio.Env.
func (t *Topology) Position(endpoint EndpointId) (Position, bool) {
	return t.Get(endpoint)
}

// Remove forgets both endpoints of the radio of node.
func (t *Topology) Remove(node NodeId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.positions, TransmitterOf(node))
	delete(t.positions, ReceiverOf(node))
}

func (t *Topology) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.positions)
}

// Endpoints returns all endpoints with a known position, ordered by node and then role.
func (t *Topology) Endpoints() []EndpointId {
	t.mu.RLock()
	res := make([]EndpointId, 0, len(t.positions))
	for e := range t.positions {
		res = append(res, e)
	}
	t.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].Node != res[j].Node {
			return res[i].Node < res[j].Node
		}
		return res[i].Role < res[j].Role
	})
	return res
}

// Nodes returns the ids of all nodes with at least one positioned endpoint, in ascending order.
func (t *Topology) Nodes() []NodeId {
	var res []NodeId
	for _, e := range t.Endpoints() {
		if len(res) == 0 || res[len(res)-1] != e.Node {
			res = append(res, e.Node)
		}
	}
	return res
}
