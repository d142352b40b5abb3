// Package metrics exposes Prometheus collectors for the sync loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mythosaz/destiny2-ha/internal/manifest"
	"github.com/mythosaz/destiny2-ha/internal/model"
)

// Metrics bundles the collectors updated after every cycle attempt.
type Metrics struct {
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	cacheSize     *prometheus.GaugeVec
	vaultItems    prometheus.Gauge
	postmasterMax prometheus.Gauge
	rotators      *prometheus.GaugeVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "destiny2",
			Name:      "sync_cycles_total",
			Help:      "Sync cycle attempts by result.",
		}, []string{"result"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "destiny2",
			Name:      "sync_cycle_duration_seconds",
			Help:      "Wall-clock duration of sync cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "destiny2",
			Name:      "manifest_cache_entries",
			Help:      "Memoized manifest definitions per category.",
		}, []string{"category"}),
		vaultItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "destiny2",
			Name:      "vault_items",
			Help:      "Items in the account vault from the last snapshot.",
		}),
		postmasterMax: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "destiny2",
			Name:      "postmaster_items_max",
			Help:      "Highest per-character postmaster count from the last snapshot.",
		}),
		rotators: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "destiny2",
			Name:      "rotator_milestones",
			Help:      "Classified rotator milestones per bucket.",
		}, []string{"bucket"}),
	}
}

// ObserveCycle records one cycle attempt.
func (m *Metrics) ObserveCycle(err error, took time.Duration) {
	result := "success"
	if err != nil {
		result = "aborted"
	}
	m.cyclesTotal.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(took.Seconds())
}

// ObserveSnapshot updates the state gauges from a completed snapshot.
func (m *Metrics) ObserveSnapshot(snap *model.CycleSnapshot) {
	if snap == nil {
		return
	}
	if snap.VaultItemCount != nil {
		m.vaultItems.Set(float64(*snap.VaultItemCount))
	}
	if snap.Characters != nil {
		max := 0
		for _, ch := range snap.Characters.Characters {
			if ch.PostmasterCount > max {
				max = ch.PostmasterCount
			}
		}
		m.postmasterMax.Set(float64(max))
	}
	m.rotators.WithLabelValues("raids").Set(float64(len(snap.Rotators.Raids)))
	m.rotators.WithLabelValues("dungeons").Set(float64(len(snap.Rotators.Dungeons)))
	m.rotators.WithLabelValues("other").Set(float64(len(snap.Rotators.Other)))
}

// ObserveCacheStats updates the manifest cache gauges.
func (m *Metrics) ObserveCacheStats(stats map[manifest.Category]int) {
	for category, count := range stats {
		m.cacheSize.WithLabelValues(string(category)).Set(float64(count))
	}
}
