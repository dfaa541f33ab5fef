package site

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/article"
	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/embed"
	"git.home.luguber.info/inful/mdsite/internal/feed"
	"git.home.luguber.info/inful/mdsite/internal/gitinfo"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/markdown"
	"git.home.luguber.info/inful/mdsite/internal/metrics"
	"git.home.luguber.info/inful/mdsite/internal/slug"
	"git.home.luguber.info/inful/mdsite/internal/templates"
)

// FeedFileName is the feed document written next to index.html.
const FeedFileName = "rss.xml"

// Generator runs the site build pipeline.
type Generator struct {
	cfg       *config.Config
	outputDir string
	builder   *article.Builder
	renderer  *markdown.Renderer
	engine    *templates.Engine
	inliner   *embed.Inliner
	recorder  metrics.Recorder
	dates     *gitinfo.Dates // nil unless git_dates resolved a repository
}

// NewGenerator creates a site generator for the given configuration. The
// output directory overrides the configured one when non-empty.
func NewGenerator(cfg *config.Config, outputDir string) (*Generator, error) {
	if outputDir == "" {
		outputDir = cfg.Output.Directory
	}

	engine, err := templates.New("templates")
	if err != nil {
		return nil, err
	}

	renderer := markdown.NewRenderer(markdown.Options{
		HighlightStyle: cfg.Render.HighlightStyle,
		HardWraps:      cfg.Render.HardWraps,
	})

	inliner := &embed.Inliner{
		LocalDir:      cfg.Source.Directory,
		MaxImageBytes: cfg.Embed.MaxImageBytes,
	}
	if cfg.RemoteAllowed() {
		inliner.Fetcher = embed.NewFetcher(cfg.FetchTimeout(), cfg.Embed.MaxImageBytes)
	}

	g := &Generator{
		cfg:       cfg,
		outputDir: filepath.Clean(outputDir),
		builder:   article.NewBuilder(renderer),
		renderer:  renderer,
		engine:    engine,
		inliner:   inliner,
		recorder:  metrics.NoopRecorder{},
	}

	if cfg.GitDates {
		dates, err := gitinfo.Open(cfg.Source.Directory)
		if err != nil {
			slog.Warn("git_dates enabled but no repository found", logfields.Source(cfg.Source.Directory), logfields.Error(err))
		} else {
			g.dates = dates
		}
	}

	return g, nil
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (g *Generator) WithRecorder(r metrics.Recorder) *Generator {
	if r != nil {
		g.recorder = r
	}
	return g
}

// OutputDir returns the resolved output directory.
func (g *Generator) OutputDir() string { return g.outputDir }

// GenerateSite runs the full build: walk, classify, render both variants,
// copy assets, write index and feed, persist the build report.
func (g *Generator) GenerateSite(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport()
	bs := newBuildState(g, report)

	stages := []StageDef{
		{StagePrepareOutput, stagePrepareOutput},
		{StageScanSource, stageScanSource},
		{StageRenderArticles, stageRenderArticles},
		{StageEmbedArticles, stageEmbedArticles},
		{StageCopyAssets, stageCopyAssets},
		{StageWriteIndex, stageWriteIndex},
		{StageWriteFeed, stageWriteFeed},
	}

	err := runStages(ctx, bs, stages)
	report.finish(err)

	g.recorder.ObserveBuildDuration(report.Duration())
	g.recorder.IncBuildOutcome(string(report.Outcome))

	if perr := report.Persist(g.outputDir); perr != nil {
		slog.Warn("Failed to persist build report", logfields.Error(perr))
	}

	slog.Info("Build finished",
		slog.String("outcome", string(report.Outcome)),
		slog.Int("articles", report.RenderedArticles),
		slog.Int("assets", report.AssetsCopied),
		logfields.DurationMS(float64(report.Duration().Microseconds())/1000.0))

	return report, err
}

func stagePrepareOutput(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	if g.cfg.Output.Clean {
		if err := os.RemoveAll(g.outputDir); err != nil {
			return fmt.Errorf("clean output directory: %w", err)
		}
	}
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

func stageScanSource(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	entries, err := os.ReadDir(g.cfg.Source.Directory)
	if err != nil {
		return fmt.Errorf("read source directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch Classify(entry.Name(), g.cfg.Source.Extensions) {
		case ClassArticle:
			bs.articleFiles = append(bs.articleFiles, entry.Name())
		case ClassAsset:
			bs.assetFiles = append(bs.assetFiles, entry.Name())
		}
	}

	sortArticles(bs.articleFiles)
	bs.Report.ScannedArticles = len(bs.articleFiles)

	slog.Info("Source scanned",
		logfields.Source(g.cfg.Source.Directory),
		slog.Int("articles", len(bs.articleFiles)),
		slog.Int("assets", len(bs.assetFiles)))

	if len(bs.articleFiles) == 0 {
		slog.Warn("No articles found in source directory", logfields.Source(g.cfg.Source.Directory))
	}
	return nil
}

func stageRenderArticles(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	failed := 0

	for _, name := range bs.articleFiles {
		if err := ctx.Err(); err != nil {
			return newCanceledStageError(StageRenderArticles, err)
		}

		srcPath := filepath.Join(g.cfg.Source.Directory, name)
		content, err := os.ReadFile(srcPath)
		if err != nil {
			slog.Warn("Failed to read article", logfields.File(name), logfields.Error(err))
			failed++
			continue
		}

		art, err := g.builder.Build(name, content)
		if err != nil {
			slog.Warn("Failed to convert article", logfields.File(name), logfields.Error(err))
			failed++
			continue
		}

		date := g.resolveDate(srcPath, art)

		page, err := g.engine.Article(templates.ArticleData{
			SiteTitle:   g.cfg.Site.Title,
			Title:       art.Meta.Title,
			Description: art.Meta.Description,
			Date:        date,
			Body:        template.HTML(art.HTML),
			Href:        art.Href,
		})
		if err != nil {
			slog.Warn("Failed to render article page", logfields.File(name), logfields.Error(err))
			failed++
			continue
		}

		outPath := filepath.Join(g.outputDir, art.OutputName)
		if err := os.WriteFile(outPath, page, 0o644); err != nil {
			slog.Warn("Failed to write article page", logfields.Path(outPath), logfields.Error(err))
			failed++
			continue
		}

		bs.articles = append(bs.articles, builtArticle{art: art, page: page, date: date})
		g.recorder.IncArticleRendered()
		slog.Debug("Article rendered", logfields.Article(name), logfields.Title(art.Meta.Title))
	}

	bs.Report.RenderedArticles = len(bs.articles)
	bs.Report.FailedArticles = failed
	if failed > 0 {
		return newWarnStageError(StageRenderArticles, fmt.Errorf("%d article(s) failed to render", failed))
	}
	return nil
}

func stageEmbedArticles(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	failed := 0

	for _, built := range bs.articles {
		if err := ctx.Err(); err != nil {
			return newCanceledStageError(StageEmbedArticles, err)
		}

		embedded, stats, err := g.inliner.Inline(ctx, built.page)
		g.recordInlineStats(stats)
		if err != nil {
			slog.Warn("Failed to embed article", logfields.File(built.art.SourceName), logfields.Error(err))
			failed++
			continue
		}

		outPath := filepath.Join(g.outputDir, built.art.EmbedName)
		if err := os.WriteFile(outPath, embedded, 0o644); err != nil {
			slog.Warn("Failed to write embedded article", logfields.Path(outPath), logfields.Error(err))
			failed++
			continue
		}
		bs.Report.EmbeddedArticles++
	}

	if failed > 0 {
		return newWarnStageError(StageEmbedArticles, fmt.Errorf("%d article(s) failed to embed", failed))
	}
	return nil
}

func stageCopyAssets(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	for _, name := range bs.assetFiles {
		if err := ctx.Err(); err != nil {
			return newCanceledStageError(StageCopyAssets, err)
		}
		src := filepath.Join(g.cfg.Source.Directory, name)
		dst := filepath.Join(g.outputDir, name)
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copy asset %s: %w", name, err)
		}
		bs.Report.AssetsCopied++
		g.recorder.IncAssetCopied()
	}
	return nil
}

func stageWriteIndex(_ context.Context, bs *BuildState) error {
	g := bs.Generator

	feedHref := ""
	if g.cfg.FeedEnabled() {
		feedHref = FeedFileName
	}

	data := templates.IndexData{
		SiteTitle:       g.cfg.Site.Title,
		SiteDescription: g.cfg.Site.Description,
		FeedHref:        feedHref,
	}
	for _, built := range bs.visibleArticles() {
		data.Articles = append(data.Articles, templates.IndexEntry{
			Title:       built.art.Meta.Title,
			Description: built.art.Meta.Description,
			Href:        built.art.Href,
			Slug:        slug.Make(built.art.Meta.Title),
			Date:        built.date,
		})
	}

	page, err := g.engine.Index(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(g.outputDir, "index.html"), page, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	bs.Report.IndexWritten = true
	return nil
}

func stageWriteFeed(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	if !g.cfg.FeedEnabled() {
		slog.Debug("Feed generation disabled")
		return nil
	}

	var entries []feed.Entry
	for _, built := range bs.visibleArticles() {
		entries = append(entries, feed.Entry{
			Title:       built.art.Meta.Title,
			Description: built.art.Meta.Description,
			Href:        built.art.Href,
			Date:        built.date,
		})
	}

	rss := feed.Build(feed.Options{
		Title:       g.cfg.Site.Title,
		Description: g.cfg.Site.Description,
		BaseURL:     g.cfg.Site.BaseURL,
		Limit:       g.cfg.Feed.Limit,
	}, entries)

	if err := feed.Write(filepath.Join(g.outputDir, FeedFileName), rss); err != nil {
		return newWarnStageError(StageWriteFeed, err)
	}
	bs.Report.FeedWritten = true
	return nil
}

func (g *Generator) recordInlineStats(stats embed.Stats) {
	for range stats.Inlined {
		g.recorder.IncImageInlined(metrics.InlineOK)
	}
	for range stats.Skipped {
		g.recorder.IncImageInlined(metrics.InlineSkipped)
	}
	for range stats.Failed {
		g.recorder.IncImageInlined(metrics.InlineFailed)
	}
}

// visibleArticles filters out hidden articles for the index and the feed.
func (bs *BuildState) visibleArticles() []builtArticle {
	visible := make([]builtArticle, 0, len(bs.articles))
	for _, built := range bs.articles {
		if built.art.Meta.Hidden {
			continue
		}
		visible = append(visible, built)
	}
	return visible
}

// resolveDate picks the article date: frontmatter wins, then the last git
// commit touching the file, then the file mtime.
func (g *Generator) resolveDate(srcPath string, art *article.Article) time.Time {
	if !art.Meta.Date.IsZero() {
		return art.Meta.Date
	}
	if g.dates != nil {
		if ts, ok, err := g.dates.LastCommitTime(srcPath); err != nil {
			slog.Debug("git date lookup failed", logfields.Path(srcPath), logfields.Error(err))
		} else if ok {
			return ts
		}
	}
	if fi, err := os.Stat(srcPath); err == nil {
		return fi.ModTime()
	}
	return time.Time{}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
