package importer

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

type baseViewSpec struct {
	Type string
	Name string
	// Filters are joined with and.
	Filters []string
	Order   []string
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// databaseViews describes every database table on a page as an Obsidian
// Bases table view over the folder holding the database's row notes.
func databaseViews(body *html.Node, doc notion.DocumentInfo, reg *Registry, links []notion.Link) []baseViewSpec {
	tables := collect(body, func(n *html.Node) bool { return isElement(n, "table") && hasClass(n, "collection-content") })
	if len(tables) == 0 {
		return nil
	}
	targets := make(map[*html.Node]string, len(links))
	for _, l := range links {
		if rel, ok := l.(notion.RelationLink); ok {
			targets[rel.Element] = rel.TargetID
		}
	}

	var views []baseViewSpec
	for _, table := range tables {
		name := doc.Title
		if wrapper := table.Parent; wrapper != nil {
			if title := findFirst(wrapper, byClass("collection-title")); title != nil {
				if t := strings.TrimSpace(textOf(title)); t != "" {
					name = t
				}
			}
		}

		folder := strings.TrimSuffix(reg.OutputFolder(doc)+doc.Title, "/")
		for _, a := range collect(table, byTag("a")) {
			if row, ok := reg.ResolveDocument(targets[a]); ok {
				folder = strings.TrimSuffix(reg.OutputFolder(row), "/")
				break
			}
		}

		var order []string
		for i, th := range collect(findFirst(table, byTag("thead")), byTag("th")) {
			col := strings.TrimSpace(textOf(th))
			if col == "" {
				continue
			}
			order = append(order, basePropertyPath(col, i == 0))
		}

		views = append(views, baseViewSpec{
			Type:    "table",
			Name:    name,
			Filters: []string{"file.inFolder(" + strconv.Quote(folder) + ")"},
			Order:   order,
		})
	}
	return views
}

func basePropertyPath(column string, titleColumn bool) string {
	if titleColumn {
		return "file.name"
	}
	key := ApplyReservedKeys(notion.Property{Title: column}).Title
	if identifierPattern.MatchString(key) {
		return "note." + key
	}
	return "note[" + strconv.Quote(key) + "]"
}

func renderBaseFile(views []baseViewSpec) string {
	var buf bytes.Buffer
	buf.WriteString("views:\n")
	for _, v := range views {
		buf.WriteString("  - type: ")
		writeYAMLString(&buf, v.Type)
		buf.WriteString("\n")
		buf.WriteString("    name: ")
		writeYAMLString(&buf, v.Name)
		buf.WriteString("\n")
		if len(v.Filters) > 0 {
			buf.WriteString("    filters:\n")
			buf.WriteString("      and:\n")
			for _, expr := range v.Filters {
				buf.WriteString("        - ")
				writeYAMLString(&buf, expr)
				buf.WriteString("\n")
			}
		}
		if len(v.Order) > 0 {
			buf.WriteString("    order:\n")
			for _, prop := range v.Order {
				buf.WriteString("      - ")
				writeYAMLString(&buf, prop)
				buf.WriteString("\n")
			}
		}
	}
	return buf.String()
}

func writeYAMLString(buf *bytes.Buffer, s string) {
	escaped := strings.ReplaceAll(s, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	escaped = strings.ReplaceAll(escaped, "\n", "\\n")
	buf.WriteString("\"")
	buf.WriteString(escaped)
	buf.WriteString("\"")
}
