package site

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/feed"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Site.Title = "Test Site"
	cfg.Site.BaseURL = "https://example.org/"
	cfg.Source.Directory = t.TempDir()
	cfg.Source.Extensions = config.DefaultExtensions()
	cfg.Output.Directory = t.TempDir()
	cfg.Output.Clean = true
	cfg.Render.HighlightStyle = config.DefaultHighlight
	return cfg
}

func writeSource(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Source.Directory, name), []byte(content), 0o644))
}

func TestGenerateSite_FullBuild(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "2024-01-02-hello", "Hello Article\n\nA fine first paragraph.\n\nMore text.\n")
	writeSource(t, cfg, "2024-01-01-old.md", `---
title: Old Post
date: 2024-01-01
---
Old content here.
`)
	writeSource(t, cfg, "pic.png", "fake-png-bytes")

	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)

	report, err := g.GenerateSite(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, report.Outcome)
	require.Equal(t, 2, report.ScannedArticles)
	require.Equal(t, 2, report.RenderedArticles)
	require.Equal(t, 2, report.EmbeddedArticles)
	require.Equal(t, 1, report.AssetsCopied)
	require.True(t, report.IndexWritten)
	require.True(t, report.FeedWritten)

	out := g.OutputDir()
	for _, name := range []string{
		"2024-01-02-hello.html",
		"2024-01-02-hello.embed.html",
		"2024-01-01-old.html",
		"2024-01-01-old.embed.html",
		"pic.png",
		"index.html",
		"rss.xml",
		"build-report.json",
	} {
		_, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, "expected output file %s", name)
	}

	page, err := os.ReadFile(filepath.Join(out, "2024-01-02-hello.html"))
	require.NoError(t, err)
	require.Contains(t, string(page), "<h1>Hello Article</h1>")
	require.Contains(t, string(page), `class="article_preamble"`)

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	// Newest first: reverse-lexicographic source names.
	hello := string(index)
	require.Less(t,
		indexOf(t, hello, "2024-01-02-hello.html"),
		indexOf(t, hello, "2024-01-01-old.html"))
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	i := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, i, 0, "expected %q in output", needle)
	return i
}

func TestGenerateSite_HiddenArticleRenderedButUnlisted(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "2024-03-01-public.md", "# Public Post\n\nVisible to all.\n")
	writeSource(t, cfg, "2024-03-02-secret.md", `---
title: Secret Post
hidden: true
---
Not for the index.
`)

	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)
	_, err = g.GenerateSite(context.Background())
	require.NoError(t, err)

	out := g.OutputDir()
	_, err = os.Stat(filepath.Join(out, "2024-03-02-secret.html"))
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	require.NotContains(t, string(index), "Secret Post")
	require.Contains(t, string(index), "Public Post")

	rss, err := os.ReadFile(filepath.Join(out, "rss.xml"))
	require.NoError(t, err)
	require.NotContains(t, string(rss), "Secret Post")
}

func TestGenerateSite_BrokenArticleIsWarning(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "2024-01-01-good.md", "# Good\n\nFine text.\n")
	writeSource(t, cfg, "2024-01-02-bad.md", "---\ntitle: Broken\n")

	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)

	report, err := g.GenerateSite(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeWarning, report.Outcome)
	require.Equal(t, 1, report.RenderedArticles)
	require.Equal(t, 1, report.FailedArticles)
	require.NotEmpty(t, report.Warnings)

	_, err = os.Stat(filepath.Join(g.OutputDir(), "2024-01-01-good.html"))
	require.NoError(t, err)
}

func TestGenerateSite_FeedDisabled(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Feed.Enabled = &off
	writeSource(t, cfg, "2024-01-01-post.md", "# Post\n\nText.\n")

	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)
	report, err := g.GenerateSite(context.Background())
	require.NoError(t, err)
	require.False(t, report.FeedWritten)

	_, err = os.Stat(filepath.Join(g.OutputDir(), "rss.xml"))
	require.True(t, os.IsNotExist(err))

	index, err := os.ReadFile(filepath.Join(g.OutputDir(), "index.html"))
	require.NoError(t, err)
	require.NotContains(t, string(index), FeedFileName)
}

func TestGenerateSite_FeedContents(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "2024-01-01-post.md", `---
title: Feed Post
date: 2024-01-01
---
Feed description paragraph.
`)

	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)
	_, err = g.GenerateSite(context.Background())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(g.OutputDir(), FeedFileName))
	require.NoError(t, err)

	var rss feed.RSS
	require.NoError(t, xml.Unmarshal(raw, &rss))
	require.Equal(t, "Test Site", rss.Channel.Title)
	require.Len(t, rss.Channel.Items, 1)
	require.Equal(t, "Feed Post", rss.Channel.Items[0].Title)
	require.Equal(t, "https://example.org/2024-01-01-post.html", rss.Channel.Items[0].Link)
}

func TestGenerateSite_CleanRemovesStaleOutput(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "2024-01-01-post.md", "# Post\n\nText.\n")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Output.Directory, "stale.html"), []byte("old"), 0o644))

	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)
	_, err = g.GenerateSite(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(g.OutputDir(), "stale.html"))
	require.True(t, os.IsNotExist(err))
}

func TestGenerateSite_ReportPersisted(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "2024-01-01-post.md", "# Post\n\nText.\n")

	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)
	report, err := g.GenerateSite(context.Background())
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(g.OutputDir(), "build-report.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, report.BuildID, doc["build_id"])
	require.Equal(t, string(report.Outcome), doc["outcome"])
}

func TestGenerateSite_OutputDirOverride(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "2024-01-01-post.md", "# Post\n\nText.\n")

	override := filepath.Join(t.TempDir(), "alt")
	g, err := NewGenerator(cfg, override)
	require.NoError(t, err)
	require.Equal(t, override, g.OutputDir())

	_, err = g.GenerateSite(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(override, "index.html"))
	require.NoError(t, err)
}

func TestGenerateSite_RecordsImageInlineMetrics(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Source.Directory, "pic.png"), []byte("png"), 0o644))
	writeSource(t, cfg, "2024-01-01-post.md", "# Post\n\n![ok](pic.png)\n\n![broken](missing.png)\n")

	registry := prom.NewRegistry()
	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)
	g.WithRecorder(metrics.NewPrometheusRecorder(registry))

	_, err = g.GenerateSite(context.Background())
	require.NoError(t, err)

	require.Equal(t, float64(1), counterValue(t, registry, "mdsite_images_inlined_total", "ok"))
	require.Equal(t, float64(1), counterValue(t, registry, "mdsite_images_inlined_total", "failed"))
}

func counterValue(t *testing.T, registry *prom.Registry, name, label string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestGenerateSite_CanceledContext(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg, "2024-01-01-post.md", "# Post\n\nText.\n")

	g, err := NewGenerator(cfg, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := g.GenerateSite(ctx)
	require.Error(t, err)
	require.Equal(t, OutcomeCanceled, report.Outcome)
}
