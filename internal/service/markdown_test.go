package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	html, err := RenderMarkdown("## Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<img src=x onerror=alert(1)>")
	require.NoError(t, err)
	assert.Contains(t, html, "<h2")
	assert.Contains(t, html, "<table>")
	assert.NotContains(t, html, "onerror")
}

func TestExcerptAndReadingTime(t *testing.T) {
	assert.Equal(t, "Hello world", buildExcerpt("# Hello\n\n*world*"))

	long := strings.Repeat("a", 250)
	excerpt := buildExcerpt(long)
	assert.Equal(t, 201, len([]rune(excerpt)))
	assert.True(t, strings.HasSuffix(excerpt, "…"))

	assert.Equal(t, 0, calculateReadingTime("   "))
	assert.Equal(t, 1, calculateReadingTime("short"))
	assert.Equal(t, 1, calculateReadingTime(strings.Repeat("字", 400)))
	assert.Equal(t, 2, calculateReadingTime(strings.Repeat("字", 401)))
}

func TestFirstImageURL(t *testing.T) {
	assert.Equal(t, "https://a.test/x.png", firstImageURL("text ![alt](https://a.test/x.png \"t\") ![b](/y.png)"))
	assert.Equal(t, "/with space.png", firstImageURL("![alt](</with space.png>)"))
	assert.Empty(t, firstImageURL("no images here"))
}

func TestPagination(t *testing.T) {
	p := Pagination{Page: 0, Limit: 500}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 10, Pagination{}.Normalize().Limit)
	assert.Equal(t, 20, Pagination{Page: 3, Limit: 10}.Offset())

	meta := NewPageMeta(21, Pagination{Page: 2, Limit: 10})
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrevious)

	empty := NewPageMeta(0, Pagination{})
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrevious)
}
