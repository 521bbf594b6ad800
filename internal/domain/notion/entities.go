package notion

import (
	"io"
	"time"

	"golang.org/x/net/html"
)

type DocumentInfo struct {
	ID                 string
	SourcePath         string
	Title              string
	ParentIDs          []string
	OutputPath         string
	FullLinkPathNeeded bool
	CreatedAt          *time.Time
	ModifiedAt         *time.Time
}

func (d DocumentInfo) Ancestors() []string { return d.ParentIDs }
func (d DocumentInfo) Source() string      { return d.SourcePath }

type AttachmentInfo struct {
	SourcePath         string
	ParentIDs          []string
	NameWithExtension  string
	TargetParentFolder string
	FullLinkPathNeeded bool
}

func (a AttachmentInfo) Ancestors() []string { return a.ParentIDs }
func (a AttachmentInfo) Source() string      { return a.SourcePath }

// Located is anything placed in the export hierarchy by its ancestor ids.
type Located interface {
	Ancestors() []string
	Source() string
}

type WhitespaceMarkers struct {
	LeadingSpaces  string
	IndentedBlocks string
	ShiftEnter     string
}

const thinSpace = "\u2009"

func DefaultWhitespaceMarkers() WhitespaceMarkers {
	return WhitespaceMarkers{
		LeadingSpaces:  thinSpace,
		IndentedBlocks: thinSpace + thinSpace + thinSpace + thinSpace,
		ShiftEnter:     "",
	}
}

type Config struct {
	AttachmentRoot      string
	SingleLineBreaks    bool
	PreserveColoredText bool
	LenientProperties   bool
	FilenameEscaping    string
	Whitespace          WhitespaceMarkers
}

func DefaultConfig() Config {
	return Config{
		AttachmentRoot:   "attachments",
		FilenameEscaping: "auto",
		Whitespace:       DefaultWhitespaceMarkers(),
	}
}

// Link is a classified reference-bearing element. The set of
// implementations is closed: RelationLink and AttachmentLink.
type Link interface {
	Anchor() *html.Node
	isLink()
}

type RelationLink struct {
	TargetID string
	Element  *html.Node
}

func (l RelationLink) Anchor() *html.Node { return l.Element }
func (RelationLink) isLink()              {}

type AttachmentLink struct {
	TargetPath string
	Element    *html.Node
}

func (l AttachmentLink) Anchor() *html.Node { return l.Element }
func (AttachmentLink) isLink()              {}

type PropertyShape int

const (
	ShapeBoolean PropertyShape = iota + 1
	ShapeNumber
	ShapeDate
	ShapeList
	ShapeText
)

func (s PropertyShape) String() string {
	switch s {
	case ShapeBoolean:
		return "boolean"
	case ShapeNumber:
		return "number"
	case ShapeDate:
		return "date"
	case ShapeList:
		return "list"
	case ShapeText:
		return "text"
	default:
		return "unknown"
	}
}

type PropertyKind string

// Property is one parsed metadata column. Value holds bool, float64,
// string or []string depending on the column's shape.
type Property struct {
	Title string
	Value any
}

type DiagnosticKind string

const (
	DiagDanglingRelation   DiagnosticKind = "dangling_relation"
	DiagDanglingAttachment DiagnosticKind = "dangling_attachment"
	DiagUnknownProperty    DiagnosticKind = "unknown_property"
)

type Diagnostic struct {
	Kind       DiagnosticKind
	DocumentID string
	Target     string
	Message    string
}

// SourceFile is one entry of the export, backed by a directory or an archive.
type SourceFile struct {
	Path string
	Open func() (io.ReadCloser, error)
}

type Export struct {
	Root        string
	Pages       []SourceFile
	Attachments []SourceFile
	close       func() error
}

func NewExport(root string, pages []SourceFile, attachments []SourceFile, closeFn func() error) *Export {
	return &Export{Root: root, Pages: pages, Attachments: attachments, close: closeFn}
}

func (e *Export) Close() error {
	if e == nil || e.close == nil {
		return nil
	}
	return e.close()
}

// PageHeader is what phase 1 learns about a page without converting it.
type PageHeader struct {
	ID         string
	Title      string
	ParentIDs  []string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}
