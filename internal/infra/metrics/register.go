package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

func register(cs ...prometheus.Collector) { pending = append(pending, cs...) }

// MustRegister installs every shop collector on the default registry.
// Later calls are no-ops.
func MustRegister() { MustRegisterOn(prometheus.DefaultRegisterer) }

// MustRegisterOn installs the collectors on reg once per process.
func MustRegisterOn(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		for _, c := range pending {
			reg.MustRegister(c)
		}
	})
}

// norm keeps label values lowercase so callers cannot split a series by case.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
