package metrics

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	vm "github.com/VictoriaMetrics/metrics"
)

// PrometheusFormatRequirement is required format defined by prometheus for
// metric and label names.
const (
	prometheusBaseFormt         = "[a-zA-Z_][a-zA-Z0-9_]*"
	PrometheusFormatRequirement = "^" + prometheusBaseFormt + "$"
)

var prometheusFormat = regexp.MustCompile(PrometheusFormatRequirement)

// Errors.
var (
	ErrAlreadyRegistered = errors.New("metric already registered")
	ErrInvalidID         = errors.New("invalid metric ID")
)

var (
	registry     []Metric
	registryLock sync.RWMutex
)

// Metric represents one or more metrics.
type Metric interface {
	ID() string
	LabeledID() string
	Opts() *Options
	WritePrometheus(w io.Writer)
}

// Options can be used to set advanced metric settings.
type Options struct {
	// Name defines an optional human readable name for the metric.
	Name string
}

type metricBase struct {
	Identifier        string
	Labels            map[string]string
	LabeledIdentifier string
	Options           *Options
	set               *vm.Set
}

func newMetricBase(id string, labels map[string]string, opts Options) (*metricBase, error) {
	// Check formats.
	if !prometheusFormat.MatchString(strings.ReplaceAll(id, "/", "_")) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for k := range labels {
		if !prometheusFormat.MatchString(k) {
			return nil, fmt.Errorf("%w: label %q", ErrInvalidID, k)
		}
	}

	return &metricBase{
		Identifier:        id,
		Labels:            labels,
		LabeledIdentifier: formatLabeledID(id, labels),
		Options:           &opts,
		set:               vm.NewSet(),
	}, nil
}

// ID returns the given ID of the metric.
func (m *metricBase) ID() string {
	return m.Identifier
}

// LabeledID returns the Prometheus-compatible labeled ID of the metric.
func (m *metricBase) LabeledID() string {
	return m.LabeledIdentifier
}

// Opts returns the metric options. They may not be modified.
func (m *metricBase) Opts() *Options {
	return m.Options
}

// WritePrometheus writes the metric in the prometheus format to the given writer.
func (m *metricBase) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

func formatLabeledID(id string, labels map[string]string) string {
	name := strings.ReplaceAll(id, "/", "_")
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func register(m Metric) (Metric, error) {
	registryLock.Lock()
	defer registryLock.Unlock()

	// Check if metric ID is already registered.
	for _, registeredMetric := range registry {
		if m.LabeledID() == registeredMetric.LabeledID() {
			return registeredMetric, ErrAlreadyRegistered
		}
	}

	registry = append(registry, m)
	sort.Slice(registry, func(i, j int) bool {
		return registry[i].LabeledID() < registry[j].LabeledID()
	})
	return m, nil
}

// WriteMetrics writes all registered metrics to the given writer.
func WriteMetrics(w io.Writer) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	for _, metric := range registry {
		metric.WritePrometheus(w)
	}
}
