package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	stageDuration    *prom.HistogramVec
	buildDuration    prom.Histogram
	stageResults     *prom.CounterVec
	buildOutcome     *prom.CounterVec
	articlesRendered prom.Counter
	assetsCopied     prom.Counter
	imagesInlined    *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "mdsite",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "mdsite",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.articlesRendered = prom.NewCounter(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "articles_rendered_total",
			Help:      "Articles rendered across all builds",
		})
		pr.assetsCopied = prom.NewCounter(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "assets_copied_total",
			Help:      "Non-markdown files copied through",
		})
		pr.imagesInlined = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdsite",
			Name:      "images_inlined_total",
			Help:      "Image inlining attempts by result",
		}, []string{"result"})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome, pr.articlesRendered, pr.assetsCopied, pr.imagesInlined)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncArticleRendered() {
	if p == nil || p.articlesRendered == nil {
		return
	}
	p.articlesRendered.Inc()
}

func (p *PrometheusRecorder) IncAssetCopied() {
	if p == nil || p.assetsCopied == nil {
		return
	}
	p.assetsCopied.Inc()
}

func (p *PrometheusRecorder) IncImageInlined(result InlineResult) {
	if p == nil || p.imagesInlined == nil {
		return
	}
	p.imagesInlined.WithLabelValues(string(result)).Inc()
}
