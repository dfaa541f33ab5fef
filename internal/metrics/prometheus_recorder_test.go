package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.IncArticleRendered()
	rec.IncArticleRendered()
	rec.IncAssetCopied()
	rec.IncStageResult("render_articles", ResultSuccess)
	rec.IncStageResult("render_articles", ResultWarning)
	rec.IncBuildOutcome("success")
	rec.IncImageInlined(InlineOK)

	require.Equal(t, float64(2), testutil.ToFloat64(rec.articlesRendered))
	require.Equal(t, float64(1), testutil.ToFloat64(rec.assetsCopied))
	require.Equal(t, float64(1), testutil.ToFloat64(rec.stageResults.WithLabelValues("render_articles", "success")))
	require.Equal(t, float64(1), testutil.ToFloat64(rec.stageResults.WithLabelValues("render_articles", "warning")))
	require.Equal(t, float64(1), testutil.ToFloat64(rec.buildOutcome.WithLabelValues("success")))
	require.Equal(t, float64(1), testutil.ToFloat64(rec.imagesInlined.WithLabelValues("ok")))
}

func TestPrometheusRecorder_Histograms(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveStageDuration("scan_source", 50*time.Millisecond)
	rec.ObserveBuildDuration(200 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	require.True(t, names["mdsite_stage_duration_seconds"])
	require.True(t, names["mdsite_build_duration_seconds"])
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var rec *PrometheusRecorder
	rec.IncArticleRendered()
	rec.IncAssetCopied()
	rec.IncStageResult("scan_source", ResultFatal)
	rec.IncBuildOutcome("failed")
	rec.IncImageInlined(InlineFailed)
	rec.ObserveStageDuration("scan_source", time.Second)
	rec.ObserveBuildDuration(time.Second)
}

func TestNoopRecorder_SatisfiesRecorder(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = &PrometheusRecorder{}
}
