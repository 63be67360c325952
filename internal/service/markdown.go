package service

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(goldhtml.WithHardWraps(), goldhtml.WithXHTML()),
	)
	contentPolicy = bluemonday.UGCPolicy()
	strictPolicy  = bluemonday.StrictPolicy()

	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*]\((<[^>]+>|[^)\s]+)([^)]*)\)`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

const excerptRunes = 200

// RenderMarkdown 将 Markdown 渲染为经过 UGC 策略清洗的 HTML。
func RenderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return contentPolicy.Sanitize(buf.String()), nil
}

// PlainText strips markup from markdown content and collapses whitespace.
func PlainText(content string) string {
	rendered, err := RenderMarkdown(content)
	if err != nil {
		rendered = content
	}
	text := html.UnescapeString(strictPolicy.Sanitize(rendered))
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// SanitizeText removes every HTML element from user supplied text.
func SanitizeText(text string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(text)))
}

func buildExcerpt(content string) string {
	runes := []rune(PlainText(content))
	if len(runes) <= excerptRunes {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:excerptRunes])) + "…"
}

// firstImageURL 返回正文中第一张 Markdown 图片的链接，没有则返回空串。
func firstImageURL(content string) string {
	groups := markdownImagePattern.FindStringSubmatch(content)
	if len(groups) < 2 {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(groups[1], "<"), ">")
}

func calculateReadingTime(content string) int {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}

	runes := []rune(trimmed)
	minutes := len(runes) / 400
	if len(runes)%400 != 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
