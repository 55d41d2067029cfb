package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/site"
	"github.com/mcp-tool-shop-org/zip-meta-map-site/internal/version"
)

// unknownKind is the single section label for every kind outside site.Kinds,
// so decoded input cannot grow label cardinality.
const unknownKind = "unknown"

// CheckMetrics records the outcome of one sitecheck run. It is written once
// at exit as a node_exporter textfile, so there are no process collectors.
type CheckMetrics struct {
	reg                *prometheus.Registry
	buildInfo          *prometheus.GaugeVec
	runsTotal          *prometheus.CounterVec
	validationErrors   *prometheus.GaugeVec
	sections           *prometheus.GaugeVec
	lastRunTimestamp   prometheus.Gauge
	validationDuration prometheus.Histogram
	publishTotal       *prometheus.CounterVec
	documentBytes      prometheus.Gauge
}

// New returns a fresh registry with every sitecheck metric registered.
// Label values come from closed sets (result, error kind, section kind).
func New() *CheckMetrics {
	reg := prometheus.NewRegistry()

	m := &CheckMetrics{
		reg: reg,
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sitecheck_build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "version", "commit", "build_id", "vcs_dirty", "go_version"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecheck_validation_runs_total",
			Help: "Validation runs by result (valid|invalid)",
		}, []string{"result"}),
		validationErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sitecheck_validation_errors",
			Help: "Defects found by the last validation run, by error kind",
		}, []string{"kind"}),
		sections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sitecheck_document_sections",
			Help: "Sections in the checked document, by section kind",
		}, []string{"kind"}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitecheck_last_run_timestamp_seconds",
			Help: "Unix time of the last validation run",
		}),
		validationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitecheck_validation_duration_seconds",
			Help:    "Time spent validating the document",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitecheck_publish_total",
			Help: "Publish attempts by result (ok|error)",
		}, []string{"result"}),
		documentBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitecheck_document_bytes",
			Help: "Size of the last published document",
		}),
	}

	reg.MustRegister(
		m.buildInfo,
		m.runsTotal,
		m.validationErrors,
		m.sections,
		m.lastRunTimestamp,
		m.validationDuration,
		m.publishTotal,
		m.documentBytes,
	)

	// pre-create closed-set series so zeroes are exported
	for _, k := range []site.ErrorKind{site.StructuralError, site.ConsistencyError, site.UnknownVariant} {
		m.validationErrors.WithLabelValues(string(k)).Set(0)
	}
	for _, k := range site.Kinds() {
		m.sections.WithLabelValues(string(k)).Set(0)
	}
	m.sections.WithLabelValues(unknownKind).Set(0)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *CheckMetrics) Registry() *prometheus.Registry { return m.reg }

func (m *CheckMetrics) SetBuildInfoFromVersion(vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        vi.AppName,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_id":   vi.BuildId,
		"vcs_dirty":  dirty,
		"go_version": vi.GoVersion,
	}).Set(1)
}

// ObserveValidation records one Validate call. errs is nil for a valid
// document. Sections of unknown kind are counted together under "unknown".
func (m *CheckMetrics) ObserveValidation(doc *site.Document, errs site.ValidationErrors, took time.Duration, at time.Time) {
	result := "valid"
	if len(errs) > 0 {
		result = "invalid"
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.validationDuration.Observe(took.Seconds())
	m.lastRunTimestamp.Set(float64(at.Unix()))

	for k, n := range errs.CountByKind() {
		m.validationErrors.WithLabelValues(string(k)).Set(float64(n))
	}
	if doc == nil {
		return
	}
	counts := map[string]int{}
	for _, s := range doc.Sections {
		if s == nil {
			continue
		}
		k := s.Kind()
		if !k.Known() {
			counts[unknownKind]++
			continue
		}
		counts[string(k)]++
	}
	for k, n := range counts {
		m.sections.WithLabelValues(k).Set(float64(n))
	}
}

func (m *CheckMetrics) ObservePublish(err error, size int) {
	if err != nil {
		m.publishTotal.WithLabelValues("error").Inc()
		return
	}
	m.publishTotal.WithLabelValues("ok").Inc()
	m.documentBytes.Set(float64(size))
}

// WriteTextfile writes every metric to path in the Prometheus text format,
// for the node_exporter textfile collector. The file is replaced atomically.
func (m *CheckMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
