// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics counts actions executed and session outcomes. There is no
// HTTP server here -- actoriac is a one-shot CLI, not a daemon -- so the
// registry is exposed only as a prometheus.Gatherer a caller can snapshot
// (for tests, or a future `actoriac run --metrics-out FILE` dump) rather
// than scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is a Gatherer/Registerer pair private to this package, so
// registering it never collides with another package's metric names on
// the global DefaultRegisterer.
type Registry struct {
	reg *prometheus.Registry

	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	sessionsTotal  *prometheus.CounterVec
	nodesTotal     *prometheus.CounterVec
}

// New builds a Registry with its metric families already registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		reg: reg,
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actoriac_actions_total",
			Help: "Total actions dispatched, by actor kind and outcome",
		}, []string{"actor_kind", "method", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "actoriac_action_duration_seconds",
			Help:    "Duration of dispatched actions",
			Buckets: prometheus.DefBuckets,
		}, []string{"actor_kind", "method"}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actoriac_sessions_total",
			Help: "Total sessions, by terminal status",
		}, []string{"status"}),
		nodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actoriac_nodes_total",
			Help: "Total node outcomes recorded via apply, by status",
		}, []string{"status"}),
	}

	reg.MustRegister(m.actionsTotal, m.actionDuration, m.sessionsTotal, m.nodesTotal)
	return m
}

// Gatherer exposes the private registry for snapshotting.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// ObserveAction records one dispatched action's outcome and duration.
func (m *Registry) ObserveAction(actorKind, method string, success bool, durationSeconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.actionsTotal.WithLabelValues(actorKind, method, outcome).Inc()
	m.actionDuration.WithLabelValues(actorKind, method).Observe(durationSeconds)
}

// ObserveSession records a session's terminal status (COMPLETED, FAILED, ABORTED).
func (m *Registry) ObserveSession(status string) {
	m.sessionsTotal.WithLabelValues(status).Inc()
}

// ObserveNode records one node's apply outcome (success/failed).
func (m *Registry) ObserveNode(status string) {
	m.nodesTotal.WithLabelValues(status).Inc()
}
