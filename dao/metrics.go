// Copyright 2026 Blink Labs Software
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

package dao

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type daoMetrics struct {
	members             prometheus.Gauge
	activeMembers       prometheus.Gauge
	joinRequests        prometheus.Gauge
	balance             prometheus.Gauge
	availableFunds      prometheus.Gauge
	reservedFunds       prometheus.Gauge
	paramsVersion       prometheus.Gauge
	spendingProposals   prometheus.Gauge
	governanceProposals prometheus.Gauge
	nextPeriodStart     prometheus.Gauge
	operationsTotal     *prometheus.CounterVec
	rejectionsTotal     *prometheus.CounterVec
	votesTotal          *prometheus.CounterVec
}

func (m *daoMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.members = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_members",
		Help: "number of members",
	})
	m.activeMembers = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_active_members",
		Help: "number of members whose dues are current",
	})
	m.joinRequests = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_join_requests",
		Help: "number of pending join requests",
	})
	m.balance = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_balance",
		Help: "pool balance tracked by the treasury",
	})
	m.availableFunds = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_available_funds",
		Help: "pool balance not reserved for a proposal",
	})
	m.reservedFunds = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_reserved_funds",
		Help: "funds reserved for proposals awaiting withdrawal",
	})
	m.paramsVersion = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_params_version",
		Help: "version of the parameters in force",
	})
	m.spendingProposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_spending_proposals",
		Help: "number of spending proposals",
	})
	m.governanceProposals = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_governance_proposals",
		Help: "number of governance proposals",
	})
	m.nextPeriodStart = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "coffer_dao_next_period_start_seconds",
		Help: "unix timestamp of the next dues period boundary",
	})
	m.operationsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffer_dao_operations_total",
			Help: "total number of accepted operations",
		},
		[]string{"op"},
	)
	m.rejectionsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffer_dao_rejections_total",
			Help: "total number of rejected operations",
		},
		[]string{"op", "kind"},
	)
	m.votesTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffer_dao_votes_total",
			Help: "total number of votes cast",
		},
		[]string{"ballot", "choice"},
	)
}

func (m *daoMetrics) succeeded(op string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(op).Inc()
}

func (m *daoMetrics) rejected(op string, kind Kind) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(op, string(kind)).Inc()
}

func (m *daoMetrics) voted(ballot string, choice Choice) {
	if m == nil {
		return
	}
	m.votesTotal.WithLabelValues(ballot, choice.String()).Inc()
}

// updateMetrics refreshes gauges. The caller must hold d.mu.
func (d *DAO) updateMetrics(now time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.members.Set(float64(len(d.members)))
	d.metrics.activeMembers.Set(float64(d.activeCount(now)))
	d.metrics.joinRequests.Set(float64(len(d.joinRequests)))
	d.metrics.balance.Set(float64(d.balance))
	d.metrics.availableFunds.Set(float64(d.available()))
	d.metrics.reservedFunds.Set(float64(d.reserved()))
	d.metrics.paramsVersion.Set(float64(d.paramsVersion))
	d.metrics.spendingProposals.Set(float64(len(d.spending)))
	d.metrics.governanceProposals.Set(float64(len(d.governance)))
	d.metrics.nextPeriodStart.Set(float64(d.nextPeriodStartAt(now).Unix()))
}

// RefreshMetrics recomputes the time-dependent gauges, such as the active
// member count, without performing an operation
func (d *DAO) RefreshMetrics() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updateMetrics(d.now())
}
