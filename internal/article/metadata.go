package article

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata is the per-article information gathered from the lone-title line,
// the YAML frontmatter, and the rendered document.
type Metadata struct {
	Title       string
	Description string
	Date        time.Time
	Hidden      bool
	Tags        []string
	// Extra holds frontmatter keys without a dedicated field.
	Extra map[string]any
}

// metadataEnvelope is the typed YAML shape of the frontmatter block.
type metadataEnvelope struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Date        string         `yaml:"date"`
	Hidden      bool           `yaml:"hidden"`
	Tags        []string       `yaml:"tags"`
	Extra       map[string]any `yaml:",inline"`
}

// dateLayouts accepted for the frontmatter date field, most specific first.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

// ParseMetadata extracts frontmatter metadata and returns the markdown body
// without the frontmatter block. had reports whether a frontmatter block was
// present.
func ParseMetadata(content []byte) (Metadata, []byte, bool, error) {
	raw, body, had, err := SplitFrontmatter(content)
	if err != nil {
		return Metadata{}, nil, false, fmt.Errorf("split frontmatter: %w", err)
	}
	if !had {
		return Metadata{Extra: map[string]any{}}, body, false, nil
	}

	var env metadataEnvelope
	if err := yaml.Unmarshal(raw, &env); err != nil {
		return Metadata{}, nil, true, fmt.Errorf("parse frontmatter: %w", err)
	}

	meta := Metadata{
		Title:       strings.TrimSpace(env.Title),
		Description: strings.TrimSpace(env.Description),
		Hidden:      env.Hidden,
		Tags:        env.Tags,
		Extra:       env.Extra,
	}
	if meta.Extra == nil {
		meta.Extra = map[string]any{}
	}

	if env.Date != "" {
		ts, err := parseDate(env.Date)
		if err != nil {
			return Metadata{}, nil, true, fmt.Errorf("parse frontmatter date %q: %w", env.Date, err)
		}
		meta.Date = ts
	}

	return meta, body, true, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

// ExtractLoneTitle implements the lone-first-line title rule: when the first
// line has text, the second line is empty, and the first line holds no ':'
// characters, the first line is the article title and both lines are removed
// from the body. Leading '#' markers and spaces are stripped from the title.
func ExtractLoneTitle(body []byte) (title string, rest []byte, ok bool) {
	first, afterFirst, foundFirst := bytes.Cut(body, []byte("\n"))
	if !foundFirst {
		return "", body, false
	}
	second, afterSecond, foundSecond := bytes.Cut(afterFirst, []byte("\n"))

	firstLine := strings.TrimRight(string(first), "\r")
	secondLine := strings.TrimRight(string(second), "\r")

	if firstLine == "" || secondLine != "" || strings.Contains(firstLine, ":") {
		return "", body, false
	}

	title = strings.TrimLeft(firstLine, "# ")
	if !foundSecond {
		return title, nil, true
	}
	return title, afterSecond, true
}
