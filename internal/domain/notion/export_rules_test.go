package notion

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShapeOfCoversTaxonomy(t *testing.T) {
	cases := map[PropertyKind]PropertyShape{
		"checkbox":          ShapeBoolean,
		"auto_increment_id": ShapeNumber,
		"last_edited_time":  ShapeDate,
		"relation":          ShapeList,
		"multi_select":      ShapeList,
		"formula":           ShapeText,
		"last_edited_by":    ShapeText,
	}
	for kind, want := range cases {
		got, ok := ShapeOf(kind)
		require.True(t, ok, kind)
		require.Equal(t, want, got, kind)
	}
	require.Len(t, propertyShapes, 20)

	_, ok := ShapeOf("button")
	require.False(t, ok)
}

func TestExtractID(t *testing.T) {
	const id = "0123456789abcdef0123456789abcdef"

	got, ok := ExtractID("Projects/Roadmap " + id + ".html")
	require.True(t, ok)
	require.Equal(t, id, got)

	got, ok = ExtractID("01234567-89AB-CDEF-0123-456789ABCDEF")
	require.True(t, ok)
	require.Equal(t, id, got)

	got, ok = ExtractID("Roadmap%20" + id + ".html#block")
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok = ExtractID("https://example.com/page")
	require.False(t, ok)

	_, ok = ExtractID(id + "zz")
	require.False(t, ok)
}

func TestStripID(t *testing.T) {
	require.Equal(t, "Roadmap", StripID("Roadmap 0123456789abcdef0123456789abcdef"))
	require.Equal(t, "Roadmap", StripID("Roadmap"))
	require.Equal(t, "0123456789abcdef0123456789abcdef", StripID("0123456789abcdef0123456789abcdef"))
}

func TestParentIDsAndSegmentName(t *testing.T) {
	const a = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	const b = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	p := "Export/Home " + a + "/Tasks " + b + "/Item cccccccccccccccccccccccccccccccc.html"

	require.Equal(t, []string{a, b}, ParentIDs(p))
	require.Equal(t, "Tasks", SegmentName(p, b))
	require.Equal(t, "", SegmentName(p, "dddddddddddddddddddddddddddddddd"))
	require.Nil(t, ParentIDs("Item.html"))
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "2024-01-05", FormatDate("@January 5, 2024"))
	require.Equal(t, "2024-01-05T14:30", FormatDate("January 5, 2024 2:30 PM"))
	require.Equal(t, "2024-01-01", FormatDate("2024-01-01"))
	require.Equal(t, "next week", FormatDate(" next week "))
}

func TestSplitDateRange(t *testing.T) {
	require.Equal(t, []string{"January 1, 2024", "January 5, 2024"}, SplitDateRange("@January 1, 2024 → January 5, 2024"))
	require.Equal(t, []string{"2024-01-01"}, SplitDateRange("2024-01-01"))
	require.Empty(t, SplitDateRange("  "))
}
