// Package templates renders page chrome around converted articles. Built-in
// templates are compiled into the binary; files of the same name in an
// on-disk directory take precedence.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

//go:embed article.html index.html
var builtin embed.FS

// ArticleData is the payload for article.html.
type ArticleData struct {
	SiteTitle   string
	Title       string
	Description string
	Date        time.Time
	Body        template.HTML
	Href        string
}

// IndexEntry is one row of the article listing.
type IndexEntry struct {
	Title       string
	Description string
	Href        string
	Slug        string
	Date        time.Time
}

// IndexData is the payload for index.html.
type IndexData struct {
	SiteTitle       string
	SiteDescription string
	Articles        []IndexEntry
	FeedHref        string
}

// Engine loads and executes the page templates.
type Engine struct {
	article *template.Template
	index   *template.Template
}

// New loads templates. overrideDir may be empty; when set, article.html and
// index.html found there replace the built-ins.
func New(overrideDir string) (*Engine, error) {
	article, err := load(overrideDir, "article.html")
	if err != nil {
		return nil, err
	}
	index, err := load(overrideDir, "index.html")
	if err != nil {
		return nil, err
	}
	return &Engine{article: article, index: index}, nil
}

func load(overrideDir, name string) (*template.Template, error) {
	if overrideDir != "" {
		path := filepath.Join(overrideDir, name)
		if _, err := os.Stat(path); err == nil {
			tmpl, err := template.New(name).Funcs(funcs()).ParseFiles(path)
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", path, err)
			}
			return tmpl, nil
		}
	}
	tmpl, err := template.New(name).Funcs(funcs()).ParseFS(builtin, name)
	if err != nil {
		return nil, fmt.Errorf("parse builtin template %s: %w", name, err)
	}
	return tmpl, nil
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"isodate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
	}
}

// Article renders the article page.
func (e *Engine) Article(data ArticleData) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.article.ExecuteTemplate(&buf, "article.html", data); err != nil {
		return nil, fmt.Errorf("execute article template: %w", err)
	}
	return buf.Bytes(), nil
}

// Index renders the listing page.
func (e *Engine) Index(data IndexData) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.index.ExecuteTemplate(&buf, "index.html", data); err != nil {
		return nil, fmt.Errorf("execute index template: %w", err)
	}
	return buf.Bytes(), nil
}
