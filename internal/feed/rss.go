// Package feed writes the RSS 2.0 document for the generated site.
package feed

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
)

// Item is one feed entry.
type Item struct {
	XMLName     xml.Name `xml:"item"`
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        GUID     `xml:"guid"`
}

// GUID is an item identifier. RSS readers treat a guid as a permalink unless
// isPermaLink says otherwise, so non-URL identifiers carry the attribute.
type GUID struct {
	IsPermaLink string `xml:"isPermaLink,attr,omitempty"`
	Value       string `xml:",chardata"`
}

// Channel is the feed body.
type Channel struct {
	XMLName       xml.Name `xml:"channel"`
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	LastBuildDate string   `xml:"lastBuildDate"`
	Items         []Item   `xml:"item"`
}

// RSS is the document root.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

// Entry is the feed-facing view of an article.
type Entry struct {
	Title       string
	Description string
	Href        string // site-relative
	Date        time.Time
}

// Options describes the channel and generation knobs.
type Options struct {
	Title       string
	Description string
	BaseURL     string
	Limit       int // 0 = no limit
	Now         func() time.Time
}

// Build assembles the RSS document from entries, newest first as given.
func Build(opts Options, entries []Entry) RSS {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		link := joinURL(opts.BaseURL, e.Href)
		item := Item{
			Title:       e.Title,
			Link:        link,
			Description: e.Description,
			GUID:        GUID{Value: link},
		}
		if item.GUID.Value == "" {
			// No base URL to build a stable permalink from; derive a stable
			// identifier from the href instead.
			item.GUID = GUID{
				IsPermaLink: "false",
				Value:       "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(e.Href)).String(),
			}
		}
		if !e.Date.IsZero() {
			item.PubDate = e.Date.Format(time.RFC1123Z)
		}
		items = append(items, item)
	}

	return RSS{
		Version: "2.0",
		Channel: Channel{
			Title:         opts.Title,
			Link:          opts.BaseURL,
			Description:   opts.Description,
			LastBuildDate: now().Format(time.RFC1123Z),
			Items:         items,
		},
	}
}

// Write marshals the feed document to path.
func Write(path string, rss RSS) error {
	output, err := xml.MarshalIndent(rss, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rss: %w", err)
	}
	if err := os.WriteFile(path, []byte(xml.Header+string(output)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write rss: %w", err)
	}
	return nil
}

func joinURL(base, href string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base + href
	}
	return u.ResolveReference(ref).String()
}
