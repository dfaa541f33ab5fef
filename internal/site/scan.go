package site

import (
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// FileClass is the classification of a source directory entry.
type FileClass int

const (
	ClassIgnored FileClass = iota
	ClassArticle
	ClassAsset
)

// Classify decides how a source file name is handled. Hidden files and editor
// backups are ignored; names whose extension appears in articleExts are
// articles; anything else with an extension is an asset copied through.
// Extensionless names not listed in articleExts are ignored.
func Classify(name string, articleExts []string) FileClass {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return ClassIgnored
	}

	ext := strings.ToLower(filepath.Ext(name))
	if slices.Contains(articleExts, ext) {
		return ClassArticle
	}
	if ext != "" {
		return ClassAsset
	}
	return ClassIgnored
}

// sortArticles orders article file names reverse-lexicographically: source
// files are named by date, so this puts the newest first for index and feed.
func sortArticles(names []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
}
