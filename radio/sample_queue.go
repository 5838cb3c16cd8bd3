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
	"container/heap"

	"github.com/motesim/motesim/logger"
	. "github.com/motesim/motesim/types"
)

// sampleEvent is the next byte-sample time of one receiver. Ever means the receiver is off.
type sampleEvent struct {
	rx        *Receiver
	Timestamp uint64

	index int
}

type sampleQueue []*sampleEvent

func (sq sampleQueue) Len() int {
	return len(sq)
}

// Less orders by timestamp, then by node id, so that receivers sampling at the same tick are always
// processed in the same order.
func (sq sampleQueue) Less(i, j int) bool {
	if sq[i].Timestamp != sq[j].Timestamp {
		return sq[i].Timestamp < sq[j].Timestamp
	}
	return sq[i].rx.Id.Node < sq[j].rx.Id.Node
}

func (sq sampleQueue) Swap(i, j int) {
	a, b := sq[i], sq[j]
	if a.index != i || b.index != j {
		logger.Panicf("sample queue: wrong index")
	}

	sq[i], sq[j] = b, a
	sq[i].index, sq[j].index = i, j
}

func (sq *sampleQueue) Push(x interface{}) {
	e := x.(*sampleEvent)
	*sq = append(*sq, e)
	e.index = len(*sq) - 1
}

func (sq *sampleQueue) Pop() (elem interface{}) {
	n := len(*sq)
	elem = (*sq)[n-1]
	*sq = (*sq)[:n-1]
	return
}

type sampleMgr struct {
	q      sampleQueue
	events map[NodeId]*sampleEvent
}

func newSampleMgr() *sampleMgr {
	mgr := &sampleMgr{
		q:      sampleQueue{},
		events: map[NodeId]*sampleEvent{},
	}
	heap.Init(&mgr.q)
	return mgr
}

func (sm *sampleMgr) AddReceiver(rx *Receiver) {
	e := sm.events[rx.Id.Node]
	logger.AssertNil(e)

	e = &sampleEvent{
		rx:        rx,
		Timestamp: Ever,
	}
	heap.Push(&sm.q, e)
	sm.events[rx.Id.Node] = e
}

func (sm *sampleMgr) SetTimestamp(node NodeId, timestamp uint64) {
	e := sm.events[node]
	logger.AssertNotNil(e)

	if e.Timestamp != timestamp {
		e.Timestamp = timestamp
		heap.Fix(&sm.q, e.index)
	}
}

func (sm *sampleMgr) GetTimestamp(node NodeId) uint64 {
	e := sm.events[node]
	logger.AssertNotNil(e)
	return e.Timestamp
}

func (sm *sampleMgr) Next() *sampleEvent {
	if len(sm.q) == 0 {
		return nil
	}
	return sm.q[0]
}

func (sm *sampleMgr) NextTimestamp() uint64 {
	if len(sm.q) == 0 {
		return Ever
	}
	return sm.q[0].Timestamp
}

func (sm *sampleMgr) DeleteReceiver(node NodeId) {
	e := sm.events[node]
	if e == nil {
		return
	}
	heap.Remove(&sm.q, e.index)
	delete(sm.events, node)
}
