package importer

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

// ResultLabel enumerates document outcomes for counters.
type ResultLabel string

const (
	ResultConverted ResultLabel = "converted"
	ResultFailed    ResultLabel = "failed"
	ResultSkipped   ResultLabel = "skipped"
)

// Recorder receives conversion metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	IncDocument(result ResultLabel)
	IncDiagnostic(kind notion.DiagnosticKind)
	IncAttachment()
	ObserveDocumentDuration(d time.Duration)
}

// NoopRecorder is the Recorder used when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) IncDocument(ResultLabel)               {}
func (NoopRecorder) IncDiagnostic(notion.DiagnosticKind)   {}
func (NoopRecorder) IncAttachment()                        {}
func (NoopRecorder) ObserveDocumentDuration(time.Duration) {}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once        sync.Once
	documents   *prom.CounterVec
	diagnostics *prom.CounterVec
	attachments prom.Counter
	duration    prom.Histogram
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.documents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notion_to_obsidian",
			Name:      "documents_total",
			Help:      "Pages processed by outcome",
		}, []string{"result"})
		pr.diagnostics = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "notion_to_obsidian",
			Name:      "diagnostics_total",
			Help:      "Non-fatal conversion diagnostics by kind",
		}, []string{"kind"})
		pr.attachments = prom.NewCounter(prom.CounterOpts{
			Namespace: "notion_to_obsidian",
			Name:      "attachments_total",
			Help:      "Attachments copied into the vault",
		})
		pr.duration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "notion_to_obsidian",
			Name:      "document_duration_seconds",
			Help:      "Time spent converting a single page",
			Buckets:   prom.DefBuckets,
		})
		reg.MustRegister(pr.documents, pr.diagnostics, pr.attachments, pr.duration)
	})
	return pr
}

func (p *PrometheusRecorder) IncDocument(result ResultLabel) {
	if p == nil || p.documents == nil {
		return
	}
	p.documents.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncDiagnostic(kind notion.DiagnosticKind) {
	if p == nil || p.diagnostics == nil {
		return
	}
	p.diagnostics.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusRecorder) IncAttachment() {
	if p == nil || p.attachments == nil {
		return
	}
	p.attachments.Inc()
}

func (p *PrometheusRecorder) ObserveDocumentDuration(d time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.Observe(d.Seconds())
}
