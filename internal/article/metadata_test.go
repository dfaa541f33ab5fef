package article

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMetadata_TypedFields(t *testing.T) {
	input := []byte(`---
title: My Article
description: A short summary
date: 2024-03-01
hidden: true
tags: [go, notes]
category: misc
---
Body text.
`)

	meta, body, had, err := ParseMetadata(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "My Article", meta.Title)
	require.Equal(t, "A short summary", meta.Description)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), meta.Date)
	require.True(t, meta.Hidden)
	require.Equal(t, []string{"go", "notes"}, meta.Tags)
	require.Equal(t, "misc", meta.Extra["category"])
	require.Equal(t, []byte("Body text.\n"), body)
}

func TestParseMetadata_NoFrontmatter(t *testing.T) {
	input := []byte("Just a body.\n")

	meta, body, had, err := ParseMetadata(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, meta.Title)
	require.False(t, meta.Hidden)
	require.Equal(t, input, body)
}

func TestParseMetadata_RFC3339Date(t *testing.T) {
	input := []byte("---\ndate: 2024-03-01T15:04:05Z\n---\nbody\n")

	meta, _, _, err := ParseMetadata(input)
	require.NoError(t, err)
	require.Equal(t, 15, meta.Date.Hour())
}

func TestParseMetadata_BadDate_ReturnsError(t *testing.T) {
	input := []byte("---\ndate: next tuesday\n---\nbody\n")

	_, _, _, err := ParseMetadata(input)
	require.Error(t, err)
	require.Contains(t, err.Error(), "date")
}

func TestExtractLoneTitle_FirstLineIsTitle(t *testing.T) {
	title, rest, ok := ExtractLoneTitle([]byte("My Article\n\nBody text.\n"))
	require.True(t, ok)
	require.Equal(t, "My Article", title)
	require.Equal(t, []byte("Body text.\n"), rest)
}

func TestExtractLoneTitle_StripsHeadingMarkers(t *testing.T) {
	title, _, ok := ExtractLoneTitle([]byte("# My Article\n\nBody.\n"))
	require.True(t, ok)
	require.Equal(t, "My Article", title)
}

func TestExtractLoneTitle_ColonDisqualifies(t *testing.T) {
	// A ':' on the first line means it is metadata, not a title.
	_, rest, ok := ExtractLoneTitle([]byte("key: value\n\nBody.\n"))
	require.False(t, ok)
	require.Equal(t, []byte("key: value\n\nBody.\n"), rest)
}

func TestExtractLoneTitle_NonEmptySecondLineDisqualifies(t *testing.T) {
	_, _, ok := ExtractLoneTitle([]byte("First line\nSecond line\n"))
	require.False(t, ok)
}

func TestExtractLoneTitle_EmptyFirstLineDisqualifies(t *testing.T) {
	_, _, ok := ExtractLoneTitle([]byte("\n\nBody.\n"))
	require.False(t, ok)
}
