package site

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdsite/internal/config"
)

func TestClassify(t *testing.T) {
	exts := config.DefaultExtensions()

	cases := []struct {
		name string
		want FileClass
	}{
		{"2024-01-01-hello", ClassArticle},
		{"post.md", ClassArticle},
		{"post.markdown", ClassArticle},
		{"POST.MD", ClassArticle},
		{"diagram.png", ClassAsset},
		{"styles.css", ClassAsset},
		{".hidden", ClassIgnored},
		{".hidden.md", ClassIgnored},
		{"backup.md~", ClassIgnored},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.name, exts), "name %q", tc.name)
	}
}

func TestClassify_BareExtensionListOnly(t *testing.T) {
	exts := []string{".md"}
	require.Equal(t, ClassArticle, Classify("post.md", exts))
	require.Equal(t, ClassIgnored, Classify("2024-01-01-hello", exts))
	require.Equal(t, ClassAsset, Classify("pic.png", exts))
}

func TestSortArticles_NewestFirst(t *testing.T) {
	names := []string{
		"2023-05-01-old",
		"2024-02-20-newest",
		"2024-01-15-newer",
	}
	sortArticles(names)
	require.Equal(t, []string{
		"2024-02-20-newest",
		"2024-01-15-newer",
		"2023-05-01-old",
	}, names)
}
