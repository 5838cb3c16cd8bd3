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

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/motesim/motesim/logger"
	"github.com/motesim/motesim/mote"
	. "github.com/motesim/motesim/types"
)

// KpiManager keeps the key performance indicators of a simulation over a period, from Start until
// Stop.
type KpiManager struct {
	bitsPerByte uint64
	data        *Kpi
	start       Stats
	isRunning   bool
}

// NewKpiManager creates a new KPI manager/bookkeeper for a medium with the given byte duration.
func NewKpiManager(bitsPerByte uint64) *KpiManager {
	return &KpiManager{bitsPerByte: bitsPerByte}
}

// Start starts a new KPI period at the snapshot st.
func (km *KpiManager) Start(st Stats) {
	logger.AssertFalse(km.isRunning)
	km.data = &Kpi{Status: "ok"}
	km.start = st
	km.isRunning = true
	km.calculateKpis(st)
}

// Update recalculates the KPIs of the running period up to the snapshot st.
func (km *KpiManager) Update(st Stats) {
	if km.isRunning {
		km.calculateKpis(st)
	}
}

// Stop ends the KPI period at the snapshot st.
func (km *KpiManager) Stop(st Stats) {
	if km.isRunning {
		km.calculateKpis(st)
		km.isRunning = false
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data gets the KPIs calculated last, or nil if never started.
func (km *KpiManager) Data() *Kpi {
	return km.data
}

func (km *KpiManager) SaveFile(fn string) error {
	logger.AssertNotNil(km.data)
	km.data.FileTime = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(km.data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encoding KPI data")
	}
	return errors.Wrapf(os.WriteFile(fn, data, 0644), "writing KPI file %s", fn)
}

func getMoteStatsDiff(cur mote.Stats, start mote.Stats) mote.Stats {
	return mote.Stats{
		Cycles:         cur.Cycles - start.Cycles,
		Tick:           cur.Tick - start.Tick,
		Sent:           cur.Sent - start.Sent,
		Deferred:       cur.Deferred - start.Deferred,
		CcaBusy:        cur.CcaBusy - start.CcaBusy,
		BytesSent:      cur.BytesSent - start.BytesSent,
		BytesReceived:  cur.BytesReceived - start.BytesReceived,
		CollidedBytes:  cur.CollidedBytes - start.CollidedBytes,
		CorruptedBytes: cur.CorruptedBytes - start.CorruptedBytes,
	}
}

func (km *KpiManager) calculateKpis(cur Stats) {
	d := km.data

	// time
	d.Ticks = KpiTicks{Start: km.start.Horizon, End: cur.Horizon, Period: cur.Horizon - km.start.Horizon}
	d.TimeUs = KpiTimeUs{StartTimeUs: km.start.TimeUs, EndTimeUs: cur.TimeUs, PeriodUs: cur.TimeUs - km.start.TimeUs}
	d.TimeSec.StartTimeSec = float64(d.TimeUs.StartTimeUs) / 1e6
	d.TimeSec.EndTimeSec = float64(d.TimeUs.EndTimeUs) / 1e6
	d.TimeSec.PeriodSec = float64(d.TimeUs.PeriodUs) / 1e6

	// medium
	d.Medium = KpiMedium{
		Transmissions:  cur.Medium.TransmissionsStarted - km.start.Medium.TransmissionsStarted,
		Samples:        cur.Medium.Samples - km.start.Medium.Samples,
		BytesDelivered: cur.Medium.BytesDelivered - km.start.Medium.BytesDelivered,
		Collisions:     cur.Medium.Collisions - km.start.Medium.Collisions,
	}
	if d.Medium.BytesDelivered > 0 {
		d.Medium.CollisionPercent = 100.0 * float64(d.Medium.Collisions) / float64(d.Medium.BytesDelivered)
	}

	// motes; a mote added during the period starts at zero, deleted motes are dropped.
	d.Motes = make(map[NodeId]*KpiMote, len(cur.Motes))
	for id, st := range cur.Motes {
		diff := getMoteStatsDiff(st, km.start.Motes[id])
		k := &KpiMote{
			Sent:           diff.Sent,
			Deferred:       diff.Deferred,
			CcaBusy:        diff.CcaBusy,
			BytesSent:      diff.BytesSent,
			BytesReceived:  diff.BytesReceived,
			CollidedBytes:  diff.CollidedBytes,
			CorruptedBytes: diff.CorruptedBytes,
		}
		if d.Ticks.Period > 0 {
			k.TxPercentage = 100.0 * float64(uint64(diff.BytesSent)*km.bitsPerByte) / float64(d.Ticks.Period)
		}
		d.Motes[id] = k
	}
}
