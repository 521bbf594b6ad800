package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

var ErrUnknownPropertyKind = errors.New("unknown property kind")

const (
	propertyRowClass  = "property-row"
	propertyRowPrefix = "property-row-"
	tagsTitle         = "Tags"
	tagsKey           = "tags"
)

// ExtractProperty parses one row of a page's properties table. A row whose
// value is empty or unparseable yields ok == false without an error.
func ExtractProperty(row *html.Node) (notion.Property, bool, error) {
	th := findFirst(row, byTag("th"))
	title := ""
	if th != nil {
		title = strings.TrimSpace(textOf(th))
	}
	kind := rowKind(row)
	shape, known := notion.ShapeOf(kind)
	if !known {
		return notion.Property{}, false, fmt.Errorf("%w %q in row %q", ErrUnknownPropertyKind, kind, title)
	}
	if title == "" {
		return notion.Property{}, false, nil
	}
	cell := findFirst(row, byTag("td"))
	if cell == nil {
		return notion.Property{}, false, nil
	}

	var value any
	switch shape {
	case notion.ShapeBoolean:
		value = strings.Contains(renderHTML(cell), "checkbox-on")
	case notion.ShapeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(textOf(cell)), 64)
		if err != nil {
			return notion.Property{}, false, nil
		}
		value = n
	case notion.ShapeDate:
		dates := cellDates(cell)
		if len(dates) == 0 {
			return notion.Property{}, false, nil
		}
		value = strings.Join(dates, " - ")
	case notion.ShapeList:
		items := cellItems(cell)
		if len(items) == 0 {
			return notion.Property{}, false, nil
		}
		value = items
	case notion.ShapeText:
		text := strings.TrimSpace(textOf(cell))
		if text == "" {
			return notion.Property{}, false, nil
		}
		value = text
	}
	return ApplyReservedKeys(notion.Property{Title: title, Value: value}), true, nil
}

func rowKind(row *html.Node) notion.PropertyKind {
	for _, c := range classes(row) {
		if strings.HasPrefix(c, propertyRowPrefix) {
			return notion.PropertyKind(strings.TrimPrefix(c, propertyRowPrefix))
		}
	}
	return ""
}

func cellDates(cell *html.Node) []string {
	var raw []string
	times := collect(cell, byTag("time"))
	if len(times) == 1 {
		raw = notion.SplitDateRange(textOf(times[0]))
	} else {
		for _, t := range times {
			if text := strings.TrimSpace(strings.ReplaceAll(textOf(t), "@", "")); text != "" {
				raw = append(raw, text)
			}
		}
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, notion.FormatDate(r))
	}
	return out
}

func cellItems(cell *html.Node) []string {
	var items []string
	hasElements := false
	for c := cell.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		hasElements = true
		if text := strings.TrimSpace(textOf(c)); text != "" {
			items = append(items, text)
		}
	}
	if !hasElements {
		if text := strings.TrimSpace(textOf(cell)); text != "" {
			items = append(items, text)
		}
	}
	return items
}

// ApplyReservedKeys renames the Tags column to Obsidian's tags key and turns
// spaces inside tag values into hyphens.
func ApplyReservedKeys(p notion.Property) notion.Property {
	if p.Title != tagsTitle {
		return p
	}
	p.Title = tagsKey
	switch v := p.Value.(type) {
	case string:
		p.Value = strings.ReplaceAll(v, " ", "-")
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = strings.ReplaceAll(s, " ", "-")
		}
		p.Value = out
	}
	return p
}

// ExtractProperties reads every row of a properties table in order. With
// lenient set, rows of an unknown kind are dropped and reported instead of
// failing the page. A later row with the same title replaces the earlier
// value in place.
func ExtractProperties(table *html.Node, lenient bool) ([]notion.Property, []notion.Diagnostic, error) {
	if table == nil {
		return nil, nil, nil
	}
	var (
		props []notion.Property
		diags []notion.Diagnostic
	)
	index := make(map[string]int)
	for _, row := range collect(table, func(n *html.Node) bool { return isElement(n, "tr") && hasClass(n, propertyRowClass) }) {
		prop, ok, err := ExtractProperty(row)
		if err != nil {
			if !lenient || !errors.Is(err, ErrUnknownPropertyKind) {
				return nil, diags, err
			}
			diags = append(diags, notion.Diagnostic{
				Kind:    notion.DiagUnknownProperty,
				Target:  string(rowKind(row)),
				Message: err.Error(),
			})
			continue
		}
		if !ok {
			continue
		}
		if i, seen := index[prop.Title]; seen {
			props[i] = prop
			continue
		}
		index[prop.Title] = len(props)
		props = append(props, prop)
	}
	return props, diags, nil
}
