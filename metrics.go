// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import "github.com/luxfi/metric"

// Metrics tracks gate and aggregator activity for a single Device,
// mirroring the mempool/platformvm metrics packages' Gauge-and-Counter
// shape.
type Metrics struct {
	accepted       metric.Counter
	skipped        metric.Counter
	quorumObserved metric.Gauge
	peerTimeouts   metric.Counter
}

// NewMetrics constructs and registers a Metrics instance. registerer may
// be nil, in which case metrics are tracked in-process but never exported.
func NewMetrics(registerer metric.Registerer) (*Metrics, error) {
	m := &Metrics{
		accepted: metric.NewCounter(metric.CounterOpts{
			Name: "poda_gate_accepted_total",
			Help: "number of messages the gate accepted",
		}),
		skipped: metric.NewCounter(metric.CounterOpts{
			Name: "poda_gate_skipped_total",
			Help: "number of messages the gate skipped",
		}),
		quorumObserved: metric.NewGauge(metric.GaugeOpts{
			Name: "poda_quorum_observed",
			Help: "number of distinct valid signers on the most recently verified message",
		}),
		peerTimeouts: metric.NewCounter(metric.CounterOpts{
			Name: "poda_aggregator_peer_timeouts_total",
			Help: "number of peer poll attempts that exceeded AggregatorConfig.PeerTimeout",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	if err := registerer.Register(metric.AsCollector(m.accepted)); err != nil {
		return nil, err
	}
	if err := registerer.Register(metric.AsCollector(m.skipped)); err != nil {
		return nil, err
	}
	if err := registerer.Register(metric.AsCollector(m.quorumObserved)); err != nil {
		return nil, err
	}
	if err := registerer.Register(metric.AsCollector(m.peerTimeouts)); err != nil {
		return nil, err
	}
	return m, nil
}

// Observe records the outcome of a single gate evaluation.
func (m *Metrics) Observe(outcome Outcome, validSigners int) {
	if m == nil {
		return
	}
	switch outcome {
	case OK:
		m.accepted.Inc()
	case Skip:
		m.skipped.Inc()
	}
	m.quorumObserved.Set(float64(validSigners))
}

// ObservePeerTimeout records a single peer poll exceeding its deadline.
func (m *Metrics) ObservePeerTimeout() {
	if m == nil {
		return
	}
	m.peerTimeouts.Inc()
}
