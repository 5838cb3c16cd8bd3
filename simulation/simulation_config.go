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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/motesim/motesim/pcap"
)

const (
	DefaultOutputDir      = "tmp"
	DefaultTraceMaxSizeMb = 100
	DefaultTraceBackups   = 3
)

type Config struct {
	Id        int    // prefixes the names of all output files
	OutputDir string // directory of pcap, trace and KPI files
	PcapType  pcap.FrameType
	TraceFile bool // write mote trace lines to a rotated file besides the log
	Kpi       bool // write KPIs of every Run to a JSON file

	TraceMaxSizeMb int
	TraceBackups   int

	// Metrics registers the medium metrics. Nil disables metrics.
	Metrics prometheus.Registerer
}

func DefaultConfig() *Config {
	return &Config{
		OutputDir:      DefaultOutputDir,
		PcapType:       pcap.FrameTypeOff,
		TraceMaxSizeMb: DefaultTraceMaxSizeMb,
		TraceBackups:   DefaultTraceBackups,
	}
}

func (cfg *Config) writesFiles() bool {
	return cfg.PcapType != pcap.FrameTypeOff || cfg.TraceFile || cfg.Kpi
}
