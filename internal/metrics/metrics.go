// Package metrics exposes Prometheus collectors for workspace activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Read results.
const (
	ReadOK     = "ok"
	ReadFailed = "failed"
	ReadStale  = "stale"
)

// Collectors groups the workspace metrics. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	registry *prometheus.Registry

	imports       prometheus.Counter
	importedFiles prometheus.Counter
	edits         prometheus.Counter
	selections    *prometheus.CounterVec
	reads         *prometheus.CounterVec
	entries       prometheus.Gauge
}

// New registers the workspace collectors on a private registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	c := &Collectors{
		registry: reg,
		imports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshdesk",
			Name:      "imports_total",
			Help:      "Number of import operations.",
		}),
		importedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshdesk",
			Name:      "imported_files_total",
			Help:      "Number of files imported across all imports.",
		}),
		edits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshdesk",
			Name:      "annotation_edits_total",
			Help:      "Number of applied annotation edits.",
		}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshdesk",
			Name:      "selections_total",
			Help:      "Selection requests by result.",
		}, []string{"result"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshdesk",
			Name:      "mesh_reads_total",
			Help:      "Payload reads by result.",
		}, []string{"result"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meshdesk",
			Name:      "store_entries",
			Help:      "Number of entries currently in the workspace.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.imports, c.importedFiles, c.edits, c.selections, c.reads, c.entries,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Imported records one import of n files and sets the store size to n.
func (c *Collectors) Imported(n int) {
	if c == nil {
		return
	}
	c.imports.Inc()
	c.importedFiles.Add(float64(n))
	c.entries.Set(float64(n))
}

// Edited counts one annotation edit.
func (c *Collectors) Edited() {
	if c == nil {
		return
	}
	c.edits.Inc()
}

// Selected counts a selection by whether the name was found.
func (c *Collectors) Selected(found bool) {
	if c == nil {
		return
	}
	result := "hit"
	if !found {
		result = "miss"
	}
	c.selections.WithLabelValues(result).Inc()
}

// Read counts a settled mesh read by result: ReadOK, ReadFailed or ReadStale.
func (c *Collectors) Read(result string) {
	if c == nil {
		return
	}
	c.reads.WithLabelValues(result).Inc()
}
