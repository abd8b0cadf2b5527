package enrich

import (
	"html"
	"regexp"
	"strings"
)

var urlTag = regexp.MustCompile(`(?is)\[url=([^\]]+)\](.*?)\[/url\]`)

// DescriptionHTML converts [url=X]Y[/url] formatting codes into anchors.
// Other text passes through unchanged.
func DescriptionHTML(desc string) string {
	return urlTag.ReplaceAllStringFunc(desc, func(m string) string {
		parts := urlTag.FindStringSubmatch(m)
		href := html.EscapeString(strings.TrimSpace(parts[1]))
		return `<a href="` + href + `">` + parts[2] + `</a>`
	})
}
