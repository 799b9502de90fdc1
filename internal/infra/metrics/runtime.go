package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(shopBuild, dbConns, dbAcquires, catalogCacheLookups)
}

var (
	shopBuild = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shop_build_info",
			Help: "Always 1; labels carry the running build.",
		},
		[]string{"version", "commit", "go"},
	)

	dbConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shop_db_conns",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // total|idle|acquired|max
	)

	dbAcquires = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shop_db_acquires",
			Help: "Cumulative pool acquires as reported by pgxpool.",
		},
		[]string{"kind"}, // all|empty|canceled
	)

	catalogCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_catalog_cache_lookups_total",
			Help: "Catalog cache lookups by key family and outcome.",
		},
		[]string{"family", "result"}, // result: hit|miss|error
	)
)

// PoolSnapshot is the subset of pgxpool.Stat the shop reports.
type PoolSnapshot struct {
	Total, Idle, Acquired, Max int32
	Acquires, EmptyAcquires    int64
	CanceledAcquires           int64
}

func SetBuildInfo(version, commit string) {
	shopBuild.WithLabelValues(version, commit, runtime.Version()).Set(1)
}

func ObservePool(s PoolSnapshot) {
	dbConns.WithLabelValues("total").Set(float64(s.Total))
	dbConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbConns.WithLabelValues("acquired").Set(float64(s.Acquired))
	dbConns.WithLabelValues("max").Set(float64(s.Max))
	dbAcquires.WithLabelValues("all").Set(float64(s.Acquires))
	dbAcquires.WithLabelValues("empty").Set(float64(s.EmptyAcquires))
	dbAcquires.WithLabelValues("canceled").Set(float64(s.CanceledAcquires))
}

func IncCacheRequest(family, result string) {
	catalogCacheLookups.WithLabelValues(norm(family), norm(result)).Inc()
}
