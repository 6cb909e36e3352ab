package metrics

import (
	vm "github.com/VictoriaMetrics/metrics"
)

// Counter is a counter metric.
type Counter struct {
	*metricBase
	*vm.Counter
}

// NewCounter registers a new counter metric. Registering a counter with an
// already registered labeled ID returns the existing counter.
func NewCounter(id string, labels map[string]string, opts *Options) (*Counter, error) {
	if opts == nil {
		opts = &Options{}
	}

	base, err := newMetricBase(id, labels, *opts)
	if err != nil {
		return nil, err
	}

	m := &Counter{
		metricBase: base,
	}
	m.Counter = base.set.NewCounter(base.LabeledIdentifier)

	registered, err := register(m)
	if err != nil {
		existing, ok := registered.(*Counter)
		if ok {
			return existing, nil
		}
		return nil, err
	}
	return m, nil
}

// FetchingCounter is a counter metric whose value is fetched on every
// write.
type FetchingCounter struct {
	*metricBase
	fetch func() uint64
}

// NewFetchingCounter registers a new fetching counter metric.
func NewFetchingCounter(id string, labels map[string]string, fn func() uint64, opts *Options) (*FetchingCounter, error) {
	if opts == nil {
		opts = &Options{}
	}

	base, err := newMetricBase(id, labels, *opts)
	if err != nil {
		return nil, err
	}

	m := &FetchingCounter{
		metricBase: base,
		fetch:      fn,
	}
	base.set.NewGauge(base.LabeledIdentifier, func() float64 {
		return float64(m.fetch())
	})

	if _, err := register(m); err != nil {
		return nil, err
	}
	return m, nil
}
