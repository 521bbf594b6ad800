package importer

import (
	"strings"

	"golang.org/x/net/html"
)

// cleanupTables prepares database tables for markdown table cells: user
// chips become plain names, multi-select values are comma separated and
// links that cannot be expressed in a cell are reduced to their text.
func cleanupTables(root *html.Node, env PipelineEnv) {
	for _, table := range collect(root, byTag("table")) {
		for _, user := range collect(table, byClass("user")) {
			replaceNode(user, newText(strings.TrimSpace(textOf(user))))
		}

		for _, cell := range collect(table, byTag("td", "th")) {
			values := collect(cell, byClass("selected-value"))
			for i, v := range values {
				if i == len(values)-1 {
					break
				}
				if next := v.NextSibling; next != nil && next.Type == html.TextNode && strings.HasPrefix(next.Data, ", ") {
					continue
				}
				insertAfter(v, newText(", "))
			}
		}

		for _, a := range collect(table, byTag("a")) {
			if env.isClassified(a) {
				continue
			}
			href, _ := attrValue(a, "href")
			if isWebLink(href) {
				continue
			}
			replaceNode(a, newText(textOf(a)))
		}
	}
}

func isWebLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") || strings.HasPrefix(href, "www.")
}
