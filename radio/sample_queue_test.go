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
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/motesim/motesim/types"
)

func testReceiver(node NodeId) *Receiver {
	return &Receiver{Id: ReceiverOf(node)}
}

func TestSampleMgr_NextTimestamp(t *testing.T) {
	sm := newSampleMgr()
	assert.Equal(t, Ever, sm.NextTimestamp())
	assert.Nil(t, sm.Next())

	sm.AddReceiver(testReceiver(1))
	sm.AddReceiver(testReceiver(2))
	assert.Equal(t, Ever, sm.NextTimestamp())

	sm.SetTimestamp(2, 16)
	assert.Equal(t, uint64(16), sm.NextTimestamp())
	sm.SetTimestamp(1, 8)
	assert.Equal(t, uint64(8), sm.NextTimestamp())
	assert.Equal(t, NodeId(1), sm.Next().rx.Id.Node)
	assert.Equal(t, uint64(16), sm.GetTimestamp(2))
}

func TestSampleMgr_SameTimestampOrderedByNode(t *testing.T) {
	sm := newSampleMgr()
	for _, node := range []NodeId{5, 3, 9, 1} {
		sm.AddReceiver(testReceiver(node))
		sm.SetTimestamp(node, 24)
	}

	var order []NodeId
	for sm.NextTimestamp() == 24 {
		e := sm.Next()
		order = append(order, e.rx.Id.Node)
		sm.SetTimestamp(e.rx.Id.Node, 32)
	}
	assert.Equal(t, []NodeId{1, 3, 5, 9}, order)
}

func TestSampleMgr_DeleteReceiver(t *testing.T) {
	sm := newSampleMgr()
	sm.AddReceiver(testReceiver(1))
	sm.AddReceiver(testReceiver(2))
	sm.SetTimestamp(1, 8)
	sm.SetTimestamp(2, 16)

	sm.DeleteReceiver(1)
	sm.DeleteReceiver(3)
	assert.Equal(t, uint64(16), sm.NextTimestamp())
	sm.DeleteReceiver(2)
	assert.Equal(t, Ever, sm.NextTimestamp())

	assert.Panics(t, func() {
		sm.SetTimestamp(1, 8)
	})
}
