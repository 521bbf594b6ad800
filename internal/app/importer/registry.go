package importer

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
	"github.com/sleroq/notion-to-obsidian/internal/infra/notionhtml"
)

var (
	ErrDuplicateDocument   = errors.New("duplicate document id")
	ErrDuplicateAttachment = errors.New("duplicate attachment path")
)

// RegistryBuilder collects every page and attachment of an export. It is the
// only place where identities can be added; Build seals the result.
type RegistryBuilder struct {
	cfg         notion.Config
	documents   map[string]notion.DocumentInfo
	attachments map[string]notion.AttachmentInfo
}

func NewRegistryBuilder(cfg notion.Config) *RegistryBuilder {
	return &RegistryBuilder{
		cfg:         cfg,
		documents:   make(map[string]notion.DocumentInfo),
		attachments: make(map[string]notion.AttachmentInfo),
	}
}

func (b *RegistryBuilder) RegisterDocument(doc notion.DocumentInfo) error {
	id, ok := notion.ExtractID(doc.ID)
	if !ok {
		return fmt.Errorf("register %s: invalid notion id %q", doc.SourcePath, doc.ID)
	}
	if existing, dup := b.documents[id]; dup {
		return fmt.Errorf("%w %s: %s and %s", ErrDuplicateDocument, id, existing.SourcePath, doc.SourcePath)
	}
	doc.ID = id
	doc.SourcePath = notionhtml.NormalizePath(doc.SourcePath)
	b.documents[id] = doc
	return nil
}

func (b *RegistryBuilder) RegisterAttachment(att notion.AttachmentInfo) error {
	att.SourcePath = notionhtml.NormalizePath(att.SourcePath)
	if att.SourcePath == "" {
		return errors.New("register attachment: empty path")
	}
	if _, dup := b.attachments[att.SourcePath]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateAttachment, att.SourcePath)
	}
	if att.ParentIDs == nil {
		att.ParentIDs = notion.ParentIDs(att.SourcePath)
	}
	if att.NameWithExtension == "" {
		att.NameWithExtension = path.Base(att.SourcePath)
	}
	b.attachments[att.SourcePath] = att
	return nil
}

// Build assigns output names and paths and returns the read-only registry.
// The builder must not be used afterwards.
func (b *RegistryBuilder) Build() *Registry {
	mode, err := ResolveFilenameEscaping(b.cfg.FilenameEscaping)
	if err != nil {
		mode = escapingPosix
	}
	r := &Registry{
		cfg:         b.cfg,
		documents:   make(map[string]notion.DocumentInfo, len(b.documents)),
		attachments: make(map[string]notion.AttachmentInfo, len(b.attachments)),
	}

	docs := make([]notion.DocumentInfo, 0, len(b.documents))
	for _, d := range b.documents {
		d.ParentIDs = append([]string(nil), d.ParentIDs...)
		docs = append(docs, d)
	}
	// Shallow pages first so that folder names derived from ancestor titles
	// are final before their children are placed.
	sort.Slice(docs, func(i, j int) bool {
		if len(docs[i].ParentIDs) != len(docs[j].ParentIDs) {
			return len(docs[i].ParentIDs) < len(docs[j].ParentIDs)
		}
		if docs[i].SourcePath != docs[j].SourcePath {
			return docs[i].SourcePath < docs[j].SourcePath
		}
		return docs[i].ID < docs[j].ID
	})
	for _, d := range docs {
		d.Title = sanitizeName(d.Title, mode)
		if d.Title == "" {
			d.Title = "Untitled"
		}
		r.documents[d.ID] = d
	}

	taken := make(map[string]int)
	for _, d := range docs {
		d = r.documents[d.ID]
		folder := r.OutputFolder(d)
		base := d.Title
		for n := 1; ; n++ {
			candidate := withSuffix(base, "", n)
			key := folder + filenameCollisionKey(candidate, mode)
			if _, used := taken[key]; !used {
				taken[key] = 1
				d.Title = candidate
				break
			}
		}
		d.OutputPath = folder + d.Title + ".md"
		r.documents[d.ID] = d
	}

	titleCount := make(map[string]int)
	for _, d := range r.documents {
		titleCount[strings.ToLower(d.Title)]++
	}
	for id, d := range r.documents {
		d.FullLinkPathNeeded = titleCount[strings.ToLower(d.Title)] > 1
		r.documents[id] = d
	}

	attPaths := make([]string, 0, len(b.attachments))
	for p := range b.attachments {
		attPaths = append(attPaths, p)
	}
	sort.Strings(attPaths)
	takenFiles := make(map[string]struct{})
	nameCount := make(map[string]int)
	for _, p := range attPaths {
		a := b.attachments[p]
		a.ParentIDs = append([]string(nil), a.ParentIDs...)
		a.TargetParentFolder = r.OutputFolder(a)
		ext := path.Ext(a.NameWithExtension)
		stem := sanitizeName(strings.TrimSuffix(a.NameWithExtension, ext), mode)
		if stem == "" {
			stem = "attachment"
		}
		for n := 1; ; n++ {
			candidate := withSuffix(stem, ext, n)
			key := a.TargetParentFolder + filenameCollisionKey(candidate, mode)
			if _, used := takenFiles[key]; !used {
				takenFiles[key] = struct{}{}
				a.NameWithExtension = candidate
				break
			}
		}
		nameCount[strings.ToLower(a.NameWithExtension)]++
		r.attachments[p] = a
		r.attachmentPaths = append(r.attachmentPaths, p)
	}
	for p, a := range r.attachments {
		a.FullLinkPathNeeded = nameCount[strings.ToLower(a.NameWithExtension)] > 1
		r.attachments[p] = a
	}

	b.documents = nil
	b.attachments = nil
	return r
}

// Registry is the sealed identity index of one export. All methods are safe
// for concurrent use because nothing mutates it after Build.
type Registry struct {
	cfg             notion.Config
	documents       map[string]notion.DocumentInfo
	attachments     map[string]notion.AttachmentInfo
	attachmentPaths []string
}

func (r *Registry) Config() notion.Config { return r.cfg }

func (r *Registry) ResolveDocument(id string) (notion.DocumentInfo, bool) {
	doc, ok := r.documents[strings.ToLower(strings.ReplaceAll(id, "-", ""))]
	return doc, ok
}

func (r *Registry) ResolveAttachment(p string) (notion.AttachmentInfo, bool) {
	att, ok := r.attachments[notionhtml.NormalizePath(p)]
	return att, ok
}

// Documents returns all documents ordered by source path.
func (r *Registry) Documents() []notion.DocumentInfo {
	out := make([]notion.DocumentInfo, 0, len(r.documents))
	for _, d := range r.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourcePath < out[j].SourcePath })
	return out
}

func (r *Registry) Attachments() []notion.AttachmentInfo {
	out := make([]notion.AttachmentInfo, 0, len(r.attachmentPaths))
	for _, p := range r.attachmentPaths {
		out = append(out, r.attachments[p])
	}
	return out
}

func (r *Registry) AttachmentPaths() []string {
	return append([]string(nil), r.attachmentPaths...)
}

// OutputFolder derives the vault folder of a page or attachment from its
// ancestors: registered pages contribute their title, other ancestors (for
// example inline databases) the readable part of their path segment.
// The result is "" or ends in "/".
func (r *Registry) OutputFolder(item notion.Located) string {
	var parts []string
	for _, id := range item.Ancestors() {
		name := ""
		if doc, ok := r.documents[id]; ok {
			name = doc.Title
		} else if segment := notion.SegmentName(item.Source(), id); segment != "" {
			name = sanitizeName(segment, escapingPosix)
		}
		name = strings.TrimRight(name, ". ")
		if name == "" {
			continue
		}
		parts = append(parts, name)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "/") + "/"
}

// AttachmentOutputPath is the vault-relative path an attachment is copied to.
func (r *Registry) AttachmentOutputPath(a notion.AttachmentInfo) string {
	return path.Join(r.cfg.AttachmentRoot, a.TargetParentFolder, a.NameWithExtension)
}
