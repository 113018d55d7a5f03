package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/polychain/internal/metrics"
)

// Registry maps metric names to constructors. Every run gets fresh
// instances since sweep runs may execute concurrently.
type Registry struct {
	metrics map[string]func() metrics.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func() metrics.Metric),
	}

	r.metrics["energy"] = func() metrics.Metric { return metrics.NewEnergy() }
	r.metrics["energy_drift"] = func() metrics.Metric { return metrics.NewEnergyDrift() }
	r.metrics["stability"] = func() metrics.Metric { return metrics.NewStability(10.0) }

	return r
}

func (r *Registry) GetMetric(name string) (metrics.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []string {
	return []string{"energy", "energy_drift"}
}
