package article

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/mdsite/internal/logfields"
	"git.home.luguber.info/inful/mdsite/internal/markdown"
)

// Article is a fully converted source document, ready for templating.
type Article struct {
	SourceName string // file name within the source directory
	OutputName string // full rendering file name (<name>.html)
	EmbedName  string // embedded rendering file name (<name>.embed.html)
	Href       string // site-relative link, equal to OutputName
	Meta       Metadata
	HTML       []byte // rendered body, no page chrome
}

// Builder converts raw article files. It applies the title rules in order:
// lone first line, frontmatter title, leading h1.
type Builder struct {
	renderer *markdown.Renderer
}

func NewBuilder(renderer *markdown.Renderer) *Builder {
	return &Builder{renderer: renderer}
}

// Build converts one source file into an Article.
func (b *Builder) Build(name string, content []byte) (*Article, error) {
	meta, body, hadFrontmatter, err := ParseMetadata(content)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", name, err)
	}

	// The lone-title convention only applies to bare documents; a frontmatter
	// block already carries explicit metadata.
	if !hadFrontmatter {
		if title, rest, ok := ExtractLoneTitle(body); ok {
			body = rest
			meta.Title = title
		}
	}

	info := b.renderer.Inspect(body)
	injectTitle := b.resolveTitle(name, &meta, info)

	rendered, err := b.renderer.Render(body)
	if err != nil {
		return nil, fmt.Errorf("article %s: %w", name, err)
	}
	if injectTitle != "" {
		rendered = append([]byte("<h1>"+html.EscapeString(injectTitle)+"</h1>\n"), rendered...)
	}

	if meta.Description == "" {
		meta.Description = info.FirstParagraph
	}

	base := baseName(name)
	return &Article{
		SourceName: name,
		OutputName: base + ".html",
		EmbedName:  base + ".embed.html",
		Href:       base + ".html",
		Meta:       meta,
		HTML:       rendered,
	}, nil
}

// resolveTitle reconciles the known title with the document's h1 structure and
// returns a title to inject as a leading h1, or "" when none is needed.
func (b *Builder) resolveTitle(name string, meta *Metadata, info markdown.DocInfo) string {
	switch {
	case info.HasH1 && info.H1IsFirstBlock:
		if meta.Title != "" {
			slog.Warn("Markdown text has two titles", logfields.Article(name), logfields.Title(info.H1Text))
		}
		meta.Title = info.H1Text
		return ""
	case info.HasH1:
		slog.Warn("Disregarding late h1 title", logfields.Article(name), logfields.Title(info.H1Text))
		return meta.Title
	default:
		if meta.Title == "" {
			slog.Warn("Article has no title", logfields.Article(name))
			return ""
		}
		return meta.Title
	}
}

// baseName strips a trailing markdown extension; extensionless article files
// keep their full name.
func baseName(name string) string {
	for _, ext := range []string{".md", ".markdown"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
