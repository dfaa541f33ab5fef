// Package embed produces the self-contained article variant: referenced
// images are inlined as data URIs and script elements are removed, so a
// single HTML file can be mailed or archived without its assets.
package embed

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/mdsite/internal/logfields"
)

// Inliner rewrites rendered HTML into its embedded form.
type Inliner struct {
	// LocalDir resolves scheme-less image sources, typically the article's
	// source directory.
	LocalDir string
	// MaxImageBytes caps the size of any single inlined image. Larger images
	// are left referenced.
	MaxImageBytes int64
	// Fetcher retrieves remote images. Nil disables remote inlining.
	Fetcher *Fetcher
}

// Stats counts per-image outcomes of one Inline pass.
type Stats struct {
	Inlined int // images rewritten to data URIs
	Skipped int // already-inlined or over-limit images left as-is
	Failed  int // images that could not be loaded
}

// Inline parses doc, inlines image sources, strips script elements, and
// re-serializes the document. Per-image failures are logged, counted, and
// leave the original src in place.
func (in *Inliner) Inline(ctx context.Context, doc []byte) ([]byte, Stats, error) {
	var stats Stats
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, stats, fmt.Errorf("parse html: %w", err)
	}

	in.walk(ctx, root, &stats)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, stats, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), stats, nil
}

// InlineFragment is Inline for body fragments: the input is processed as-is,
// without gaining an html/body wrapper.
func (in *Inliner) InlineFragment(ctx context.Context, doc []byte) ([]byte, Stats, error) {
	var stats Stats
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(doc), body)
	if err != nil {
		return nil, stats, fmt.Errorf("parse html fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	in.walk(ctx, body, &stats)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, stats, fmt.Errorf("render html fragment: %w", err)
		}
	}
	return buf.Bytes(), stats, nil
}

func (in *Inliner) walk(ctx context.Context, n *html.Node, stats *Stats) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.Data == "script" {
			n.RemoveChild(c)
		} else {
			if c.Type == html.ElementNode && c.Data == "img" {
				in.inlineImage(ctx, c, stats)
			}
			in.walk(ctx, c, stats)
		}
		c = next
	}
}

func (in *Inliner) inlineImage(ctx context.Context, n *html.Node, stats *Stats) {
	src := getAttr(n, "src")
	if src == "" {
		return
	}
	if strings.HasPrefix(src, "data:") {
		stats.Skipped++
		return
	}

	content, mimetype, err := in.loadImage(ctx, src)
	if err != nil {
		slog.Warn("Unable to embed image", logfields.URL(src), logfields.Error(err))
		stats.Failed++
		return
	}
	if in.MaxImageBytes > 0 && int64(len(content)) > in.MaxImageBytes {
		slog.Warn("Image too large to embed", logfields.URL(src), slog.Int("bytes", len(content)))
		stats.Skipped++
		return
	}

	setAttr(n, "src", DataURI(mimetype, content))
	stats.Inlined++
}

func (in *Inliner) loadImage(ctx context.Context, src string) ([]byte, string, error) {
	u, err := url.Parse(src)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if in.Fetcher == nil {
			return nil, "", fmt.Errorf("remote image fetching disabled")
		}
		return in.Fetcher.Fetch(ctx, src)
	}
	if err == nil && u.Scheme != "" {
		return nil, "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if in.LocalDir == "" {
		return nil, "", fmt.Errorf("no local directory configured for relative source")
	}
	path := filepath.Join(in.LocalDir, filepath.FromSlash(src))
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read local image: %w", err)
	}
	mimetype := mime.TypeByExtension(filepath.Ext(path))
	if mimetype == "" {
		return nil, "", fmt.Errorf("cannot determine mimetype for %s", src)
	}
	return content, mimetype, nil
}

// DataURI encodes content as a base64 data URI.
func DataURI(mimetype string, content []byte) string {
	return "data:" + mimetype + ";base64," + base64.StdEncoding.EncodeToString(content)
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
