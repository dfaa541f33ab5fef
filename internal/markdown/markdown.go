package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Options controls renderer construction.
type Options struct {
	HighlightStyle string
	HardWraps      bool
}

// Renderer converts markdown article bodies to HTML. It is stateless and safe
// to reuse across articles.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer builds a goldmark engine with GFM, fenced-code highlighting,
// auto heading IDs, and raw HTML passthrough.
func NewRenderer(opts Options) *Renderer {
	style := opts.HighlightStyle
	if style == "" {
		style = "github"
	}

	rendererOptions := []renderer.Option{
		html.WithUnsafe(),
	}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&preambleTagger{}, 900),
			),
		),
		goldmark.WithRendererOptions(rendererOptions...),
	)

	return &Renderer{md: md}
}

// Render converts a markdown body (frontmatter already removed) to HTML.
func (r *Renderer) Render(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	return buf.Bytes(), nil
}

// DocInfo summarizes document structure needed for title resolution and the
// article preamble.
type DocInfo struct {
	H1Text         string // text of the first level-1 heading, if any
	HasH1          bool
	H1IsFirstBlock bool   // the h1 is the document's first block
	FirstParagraph string // plain text of the first top-level paragraph
}

// Inspect parses a markdown body and reports its leading structure without
// rendering it.
func (r *Renderer) Inspect(body []byte) DocInfo {
	root := r.md.Parser().Parse(text.NewReader(body))

	var info DocInfo
	first := true
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *gmast.Heading:
			if node.Level == 1 && !info.HasH1 {
				info.HasH1 = true
				info.H1Text = plainText(node, body)
				info.H1IsFirstBlock = first
			}
		case *gmast.Paragraph:
			if info.FirstParagraph == "" {
				info.FirstParagraph = plainText(node, body)
			}
		}
		first = false
	}
	return info
}

// plainText collects the raw text content of a node's inline children.
func plainText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = gmast.Walk(n, func(node gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := node.(*gmast.Text); ok {
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return gmast.WalkContinue, nil
	})
	return buf.String()
}

// preambleTagger marks the first top-level paragraph so stylesheets can
// address the article preamble.
type preambleTagger struct{}

func (preambleTagger) Transform(doc *gmast.Document, _ text.Reader, _ parser.Context) {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if p, ok := n.(*gmast.Paragraph); ok {
			p.SetAttributeString("class", []byte("article_preamble"))
			return
		}
	}
}
