package metrics

import (
	"io"
	"sync"

	vm "github.com/VictoriaMetrics/metrics"
)

var registerRuntimeOnce sync.Once

func registerRuntimeMetric() (err error) {
	registerRuntimeOnce.Do(func() {
		var runtimeBase *metricBase
		runtimeBase, err = newMetricBase("_runtime", nil, Options{
			Name: "Golang Runtime",
		})
		if err != nil {
			return
		}

		_, err = register(&runtimeMetrics{
			metricBase: runtimeBase,
		})
	})
	return err
}

type runtimeMetrics struct {
	*metricBase
}

func (r *runtimeMetrics) WritePrometheus(w io.Writer) {
	vm.WriteProcessMetrics(w)
}
