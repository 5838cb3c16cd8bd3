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
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus metrics of a medium. All fields are safe to update from
// multiple goroutines.
type Metrics struct {
	TransmissionsStarted prometheus.Counter
	TransmissionsRetired prometheus.Counter
	LiveTransmissions    prometheus.Gauge
	Samples              prometheus.Counter
	BytesDelivered       *prometheus.CounterVec
	Collisions           prometheus.Counter
	Horizon              prometheus.Gauge
}

// NewMetrics registers the medium metrics against reg, defaulting to the global Prometheus
// registry when nil. Registering twice against the same registry reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	started, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medium_transmissions_started_total",
		Help: "Total number of transmissions put on the air.",
	}))
	if err != nil {
		return nil, err
	}
	retired, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medium_transmissions_retired_total",
		Help: "Total number of transmissions removed from the live set after their end.",
	}))
	if err != nil {
		return nil, err
	}
	live, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medium_live_transmissions",
		Help: "Current number of transmissions in the live set.",
	}))
	if err != nil {
		return nil, err
	}
	samples, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medium_samples_total",
		Help: "Total number of receiver byte samples evaluated.",
	}))
	if err != nil {
		return nil, err
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medium_bytes_delivered_total",
		Help: "Total number of bytes delivered to receivers, labeled by result (clean or collision).",
	}, []string{"result"})
	if err = reg.Register(delivered); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, errors.Wrap(err, "register medium_bytes_delivered_total")
		}
		delivered, ok = are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, errors.New("medium_bytes_delivered_total registered with unexpected type")
		}
	}
	collisions, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medium_collisions_total",
		Help: "Total number of samples where more than one transmission locked.",
	}))
	if err != nil {
		return nil, err
	}
	horizon, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medium_horizon_ticks",
		Help: "Bit tick up to which all motes have advanced.",
	}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		TransmissionsStarted: started,
		TransmissionsRetired: retired,
		LiveTransmissions:    live,
		Samples:              samples,
		BytesDelivered:       delivered,
		Collisions:           collisions,
		Horizon:              horizon,
	}, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, errors.Wrap(err, "register counter")
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
		}
		return nil, errors.Wrap(err, "register gauge")
	}
	return g, nil
}

func (m *Metrics) onStart() {
	if m == nil {
		return
	}
	m.TransmissionsStarted.Inc()
	m.LiveTransmissions.Inc()
}

func (m *Metrics) onRetire() {
	if m == nil {
		return
	}
	m.TransmissionsRetired.Inc()
	m.LiveTransmissions.Dec()
}

func (m *Metrics) onSample(merge *Merge) {
	if m == nil {
		return
	}
	m.Samples.Inc()
	if merge == nil {
		return
	}
	if merge.IsCollision() {
		m.Collisions.Inc()
		m.BytesDelivered.WithLabelValues("collision").Inc()
	} else {
		m.BytesDelivered.WithLabelValues("clean").Inc()
	}
}

func (m *Metrics) onHorizon(tick uint64) {
	if m == nil {
		return
	}
	m.Horizon.Set(float64(tick))
}
