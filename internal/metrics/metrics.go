// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes lock coordinator counters and gauges in Prometheus
// format. Counters are fed through locks.Events hooks; table gauges read the
// manager's live stats at scrape time.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jeranaias/locktower/internal/locks"
)

var (
	// QueuedTotal tracks requests entering a wait queue, by mode.
	QueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locktower_requests_queued_total",
		Help: "Total number of lock requests queued",
	}, []string{"mode"})

	// GrantedTotal tracks granted locks, by mode.
	GrantedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locktower_locks_granted_total",
		Help: "Total number of lock requests granted",
	}, []string{"mode"})

	// ReleasedTotal tracks explicit releases of held locks, by mode.
	ReleasedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locktower_locks_released_total",
		Help: "Total number of held locks released",
	}, []string{"mode"})

	// TimeoutsTotal tracks requests that expired while queued, by mode.
	TimeoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locktower_lock_timeouts_total",
		Help: "Total number of lock requests that timed out waiting",
	}, []string{"mode"})

	// CancelledTotal tracks queued requests rejected before grant, by mode.
	CancelledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locktower_requests_cancelled_total",
		Help: "Total number of queued lock requests cancelled",
	}, []string{"mode"})

	// ForceUnlocksTotal tracks administrative force unlocks.
	ForceUnlocksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locktower_force_unlocks_total",
		Help: "Total number of force unlock operations",
	})

	// ClearsTotal tracks clear-all operations.
	ClearsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locktower_clears_total",
		Help: "Total number of clear-all operations",
	})

	// WaitSeconds observes how long granted requests waited in the queue.
	WaitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "locktower_lock_wait_seconds",
		Help:    "Queue wait time of granted lock requests",
		Buckets: []float64{.001, .005, .025, .1, .25, .5, 1, 2.5, 5},
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Register registers all locktower metrics on reg. The table gauges close
// over mgr and report its live state at scrape time.
func Register(reg prometheus.Registerer, mgr *locks.Manager) {
	reg.MustRegister(
		QueuedTotal, GrantedTotal, ReleasedTotal,
		TimeoutsTotal, CancelledTotal,
		ForceUnlocksTotal, ClearsTotal, WaitSeconds,
	)

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "locktower_resources",
		Help: "Resources currently present in the lock table",
	}, func() float64 { return float64(mgr.Stats().Resources) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "locktower_readers_held",
		Help: "Read locks currently held across all resources",
	}, func() float64 { return float64(mgr.Stats().Readers) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "locktower_writers_held",
		Help: "Write locks currently held across all resources",
	}, func() float64 { return float64(mgr.Stats().Writers) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "locktower_requests_waiting",
		Help: "Requests currently queued across all resources",
	}, func() float64 { return float64(mgr.Stats().Queued) }))
}

// Hooks returns the lifecycle callbacks that keep the counters current.
// Pass the result as locks.Config.Events when building the manager.
func Hooks() locks.Events {
	return locks.Events{
		OnQueued: func(_, _ string, mode locks.Mode) {
			QueuedTotal.WithLabelValues(mode.String()).Inc()
		},
		OnGranted: func(_, _ string, mode locks.Mode, waited time.Duration) {
			GrantedTotal.WithLabelValues(mode.String()).Inc()
			WaitSeconds.Observe(waited.Seconds())
		},
		OnReleased: func(_, _ string, mode locks.Mode) {
			ReleasedTotal.WithLabelValues(mode.String()).Inc()
		},
		OnTimeout: func(_, _ string, mode locks.Mode, _ time.Duration) {
			TimeoutsTotal.WithLabelValues(mode.String()).Inc()
		},
		OnCancelled: func(_, _ string, mode locks.Mode) {
			CancelledTotal.WithLabelValues(mode.String()).Inc()
		},
		OnForceUnlock: func(string) { ForceUnlocksTotal.Inc() },
		OnClear:       func(int) { ClearsTotal.Inc() },
	}
}
