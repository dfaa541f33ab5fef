package site

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/mdsite/internal/article"
	"git.home.luguber.info/inful/mdsite/internal/config"
	"git.home.luguber.info/inful/mdsite/internal/embed"
	"git.home.luguber.info/inful/mdsite/internal/markdown"
)

// ConvertFile renders a single markdown file to HTML without page chrome,
// applying the usual title and frontmatter rules, then inlines referenced
// images relative to the file's directory. This backs the `convert` command,
// which prints the result to stdout.
func ConvertFile(ctx context.Context, path string, opts markdown.Options) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	builder := article.NewBuilder(markdown.NewRenderer(opts))
	art, err := builder.Build(filepath.Base(path), content)
	if err != nil {
		return nil, err
	}

	timeout, _ := time.ParseDuration(config.DefaultFetchTimeout)
	inliner := &embed.Inliner{
		LocalDir:      filepath.Dir(path),
		MaxImageBytes: config.DefaultMaxImageBytes,
		Fetcher:       embed.NewFetcher(timeout, config.DefaultMaxImageBytes),
	}
	inlined, _, err := inliner.InlineFragment(ctx, art.HTML)
	if err != nil {
		return nil, err
	}
	return inlined, nil
}
