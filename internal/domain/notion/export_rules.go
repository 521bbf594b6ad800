package notion

import (
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	KindCheckbox        PropertyKind = "checkbox"
	KindNumber          PropertyKind = "number"
	KindAutoIncrementID PropertyKind = "auto_increment_id"
	KindDate            PropertyKind = "date"
	KindCreatedTime     PropertyKind = "created_time"
	KindLastEditedTime  PropertyKind = "last_edited_time"
	KindFile            PropertyKind = "file"
	KindMultiSelect     PropertyKind = "multi_select"
	KindRelation        PropertyKind = "relation"
	KindEmail           PropertyKind = "email"
	KindPerson          PropertyKind = "person"
	KindPhoneNumber     PropertyKind = "phone_number"
	KindText            PropertyKind = "text"
	KindURL             PropertyKind = "url"
	KindStatus          PropertyKind = "status"
	KindSelect          PropertyKind = "select"
	KindFormula         PropertyKind = "formula"
	KindRollup          PropertyKind = "rollup"
	KindCreatedBy       PropertyKind = "created_by"
	KindLastEditedBy    PropertyKind = "last_edited_by"
)

var propertyShapes = map[PropertyKind]PropertyShape{
	KindCheckbox:        ShapeBoolean,
	KindNumber:          ShapeNumber,
	KindAutoIncrementID: ShapeNumber,
	KindDate:            ShapeDate,
	KindCreatedTime:     ShapeDate,
	KindLastEditedTime:  ShapeDate,
	KindFile:            ShapeList,
	KindMultiSelect:     ShapeList,
	KindRelation:        ShapeList,
	KindEmail:           ShapeText,
	KindPerson:          ShapeText,
	KindPhoneNumber:     ShapeText,
	KindText:            ShapeText,
	KindURL:             ShapeText,
	KindStatus:          ShapeText,
	KindSelect:          ShapeText,
	KindFormula:         ShapeText,
	KindRollup:          ShapeText,
	KindCreatedBy:       ShapeText,
	KindLastEditedBy:    ShapeText,
}

func ShapeOf(kind PropertyKind) (PropertyShape, bool) {
	shape, ok := propertyShapes[kind]
	return shape, ok
}

var notionIDPattern = regexp.MustCompile(`([0-9a-fA-F]{32})(?:[?.#]|$)`)

// ExtractID returns the canonical (lowercase, undashed) Notion id carried at
// the end of a path segment, file name or article id.
func ExtractID(s string) (string, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if s == "" {
		return "", false
	}
	m := notionIDPattern.FindAllStringSubmatch(s, -1)
	if len(m) == 0 {
		return "", false
	}
	raw := m[len(m)-1][1]
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(id.String(), "-", ""), true
}

var trailingIDPattern = regexp.MustCompile(`[ -]?[0-9a-fA-F]{32}$`)

// StripID removes a trailing Notion id from a page or folder name.
func StripID(name string) string {
	name = strings.TrimSpace(name)
	stripped := strings.TrimSpace(trailingIDPattern.ReplaceAllString(name, ""))
	if stripped == "" {
		return name
	}
	return stripped
}

// ParentIDs lists the Notion ids found in the directory segments of an
// export-relative path, root first.
func ParentIDs(sourcePath string) []string {
	dir := path.Dir(strings.Trim(sourcePath, "/"))
	if dir == "." || dir == "" {
		return nil
	}
	var out []string
	for _, segment := range strings.Split(dir, "/") {
		if id, ok := segmentID(segment); ok {
			out = append(out, id)
		}
	}
	return out
}

func segmentID(segment string) (string, bool) {
	segment = strings.TrimSpace(segment)
	if len(segment) < 32 {
		return "", false
	}
	tail := segment[len(segment)-32:]
	for _, r := range tail {
		if !isHexRune(r) {
			return "", false
		}
	}
	return ExtractID(tail)
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// SegmentName returns the readable part of the path segment that carries id,
// or "" when no segment of sourcePath carries it.
func SegmentName(sourcePath string, id string) string {
	for _, segment := range strings.Split(sourcePath, "/") {
		if segID, ok := segmentID(segment); ok && segID == id {
			return StripID(segment)
		}
	}
	return ""
}

var dateLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339, true},
	{"2006-01-02T15:04", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02", false},
	{"January 2, 2006 3:04 PM", true},
	{"January 2, 2006 15:04", true},
	{"January 2, 2006", false},
	{"Jan 2, 2006 3:04 PM", true},
	{"Jan 2, 2006", false},
	{"2006/01/02 15:04", true},
	{"2006/01/02", false},
	{"01/02/2006 3:04 PM", true},
	{"01/02/2006", false},
	{"02/01/2006", false},
}

// ParseDate parses the textual dates Notion writes into exported pages.
func ParseDate(raw string) (time.Time, bool, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "@", ""))
	if s == "" {
		return time.Time{}, false, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l.layout, s); err == nil {
			return t, l.hasTime, true
		}
	}
	return time.Time{}, false, false
}

// FormatDate renders a Notion date for front matter. Text that is not a
// recognised date is returned trimmed.
func FormatDate(raw string) string {
	t, hasTime, ok := ParseDate(raw)
	if !ok {
		return strings.TrimSpace(strings.ReplaceAll(raw, "@", ""))
	}
	if hasTime {
		return t.Format("2006-01-02T15:04")
	}
	return t.Format("2006-01-02")
}

// SplitDateRange splits "start → end" as written by Notion inside a single
// time element.
func SplitDateRange(raw string) []string {
	parts := strings.Split(raw, "→")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ReplaceAll(p, "@", ""))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
