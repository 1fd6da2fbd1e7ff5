package utils

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy      = bluemonday.UGCPolicy()
	strictText  = bluemonday.StrictPolicy()
	fenceMarker = "```"
)

func init() {
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown 把模型返回的 Markdown 渲染成安全的 HTML
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return strictText.Sanitize(source)
	}
	return string(policy.SanitizeBytes(buf.Bytes()))
}

// CleanText 去掉用户输入里的 HTML 标签并裁剪空白；Sanitize 会转义实体，存库前还原为纯文本
func CleanText(s string) string {
	return strings.TrimSpace(stdhtml.UnescapeString(strictText.Sanitize(s)))
}

// StripCodeFence 去掉模型回复外层的 ```json ... ``` 包裹
func StripCodeFence(s string) string {
	text := strings.TrimSpace(s)
	text = strings.ReplaceAll(text, fenceMarker+"json", "")
	text = strings.ReplaceAll(text, fenceMarker+"JSON", "")
	text = strings.ReplaceAll(text, fenceMarker, "")
	return strings.TrimSpace(text)
}
