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

package simulation

import . "github.com/motesim/motesim/types"

type KpiTimeUs struct {
	StartTimeUs uint64 `json:"start"`
	EndTimeUs   uint64 `json:"end"`
	PeriodUs    uint64 `json:"duration"`
}

type KpiTimeSec struct {
	StartTimeSec float64 `json:"start"`
	EndTimeSec   float64 `json:"end"`
	PeriodSec    float64 `json:"duration"`
}

type KpiTicks struct {
	Start  uint64 `json:"start"`
	End    uint64 `json:"end"`
	Period uint64 `json:"duration"`
}

type KpiMedium struct {
	Transmissions    uint64  `json:"tx"`
	Samples          uint64  `json:"samples"`
	BytesDelivered   uint64  `json:"bytes_delivered"`
	Collisions       uint64  `json:"collisions"`
	CollisionPercent float64 `json:"collision_percent"`
}

type KpiMote struct {
	Sent           int     `json:"tx"`
	Deferred       int     `json:"tx_deferred"`
	CcaBusy        int     `json:"tx_cca_busy"`
	BytesSent      int     `json:"tx_bytes"`
	TxPercentage   float64 `json:"tx_percent"`
	BytesReceived  int     `json:"rx_bytes"`
	CollidedBytes  int     `json:"rx_collided"`
	CorruptedBytes int     `json:"rx_corrupted"`
}

type Kpi struct {
	FileTime string              `json:"created"`
	Status   string              `json:"status"`
	Ticks    KpiTicks            `json:"ticks"`
	TimeUs   KpiTimeUs           `json:"time_us"`
	TimeSec  KpiTimeSec          `json:"time_sec"`
	Medium   KpiMedium           `json:"medium"`
	Motes    map[NodeId]*KpiMote `json:"motes"`
}
