// Package metrics exposes sync engine counters for prometheus scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sync engine's instruments. Construct with New; passing a
// nil registerer yields working but unregistered metrics, which is what tests
// want.
type Metrics struct {
	SyncsTotal    *prometheus.CounterVec   // result: ok|error
	SyncPhase     *prometheus.HistogramVec // phase: authenticate|live|vod|series|commit
	RefreshTotal  *prometheus.CounterVec   // kind + result, per-category refreshes
	EpisodeLoads  *prometheus.CounterVec   // source: cache|provider|fallback
	ProviderItems *prometheus.GaugeVec     // kind, rows written by last full sync
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SyncsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xtreamsync_full_syncs_total",
			Help: "Full provider syncs by result.",
		}, []string{"result"}),
		SyncPhase: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "xtreamsync_sync_phase_seconds",
			Help:    "Duration of each full-sync phase.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"phase"}),
		RefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xtreamsync_category_refreshes_total",
			Help: "Single-category refreshes by media kind and result.",
		}, []string{"kind", "result"}),
		EpisodeLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xtreamsync_episode_loads_total",
			Help: "Episode loads by source (cache hit, provider fetch, fallback stream).",
		}, []string{"source"}),
		ProviderItems: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xtreamsync_catalog_items",
			Help: "Rows written by the most recent full sync, per media kind.",
		}, []string{"kind"}),
	}
}
