package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sleroq/notion-to-obsidian/internal/domain/notion"
)

func TestRegistryAssignsOutputPathsFromAncestors(t *testing.T) {
	reg := sampleRegistry(t)

	root, ok := reg.ResolveDocument(idRoot)
	require.True(t, ok)
	require.Equal(t, "Root.md", root.OutputPath)
	require.False(t, root.FullLinkPathNeeded)

	child, ok := reg.ResolveDocument(idChild)
	require.True(t, ok)
	require.Equal(t, "Root/Child.md", child.OutputPath)
	require.Equal(t, "Root/", reg.OutputFolder(child))
}

func TestRegistryFlagsSharedTitlesForFullLinkPath(t *testing.T) {
	reg := sampleRegistry(t)

	a, _ := reg.ResolveDocument(idNoteA)
	b, _ := reg.ResolveDocument(idNoteB)
	require.Equal(t, "Note.md", a.OutputPath)
	require.Equal(t, "Root/Note.md", b.OutputPath)
	require.True(t, a.FullLinkPathNeeded)
	require.True(t, b.FullLinkPathNeeded)
}

func TestRegistryNumbersCollisionsInsideOneFolder(t *testing.T) {
	reg := buildRegistry(t, notion.DefaultConfig(), []notion.DocumentInfo{
		page(idNoteA, "Note "+idNoteA+".html", "Note"),
		page(idNoteB, "Note "+idNoteB+".html", "Note"),
	})

	a, _ := reg.ResolveDocument(idNoteA)
	b, _ := reg.ResolveDocument(idNoteB)
	require.Equal(t, "Note.md", a.OutputPath)
	require.Equal(t, "Note 2.md", b.OutputPath)
	require.False(t, a.FullLinkPathNeeded)
	require.False(t, b.FullLinkPathNeeded)
}

func TestRegistrySanitizesTitles(t *testing.T) {
	cfg := notion.DefaultConfig()
	cfg.FilenameEscaping = "posix"
	reg := buildRegistry(t, cfg, []notion.DocumentInfo{
		page(idRoot, "x "+idRoot+".html", "a/b #c [d]"),
		page(idChild, "y "+idChild+".html", "  "),
	})

	root, _ := reg.ResolveDocument(idRoot)
	require.Equal(t, "a b c d", root.Title)
	empty, _ := reg.ResolveDocument(idChild)
	require.Equal(t, "Untitled", empty.Title)
}

func TestRegistryRejectsDuplicateDocuments(t *testing.T) {
	b := NewRegistryBuilder(notion.DefaultConfig())
	require.NoError(t, b.RegisterDocument(page(idRoot, "a.html", "A")))

	err := b.RegisterDocument(page(strings.ToUpper(idRoot), "b.html", "B"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDuplicateDocument))

	require.Error(t, b.RegisterDocument(page("not-an-id", "c.html", "C")))
}

func TestRegistryResolvesDashedIDs(t *testing.T) {
	reg := sampleRegistry(t)
	dashed := "11111111-1111-1111-1111-111111111111"

	doc, ok := reg.ResolveDocument(dashed)
	require.True(t, ok)
	require.Equal(t, idRoot, doc.ID)

	_, ok = reg.ResolveDocument(idMissing)
	require.False(t, ok)
}

func TestRegistryPlacesAttachmentsUnderAncestorFolders(t *testing.T) {
	reg := sampleRegistry(t)

	pic, ok := reg.ResolveAttachment("Root " + idRoot + "/pic.png")
	require.True(t, ok)
	require.Equal(t, "Root/", pic.TargetParentFolder)
	require.Equal(t, "attachments/Root/pic.png", reg.AttachmentOutputPath(pic))

	// The inline database is not a page of its own, so its folder name comes
	// from the path segment.
	report, ok := reg.ResolveAttachment("Root " + idRoot + "/Inline DB " + idInline + "/report.pdf")
	require.True(t, ok)
	require.Equal(t, "Root/Inline DB/", report.TargetParentFolder)
}

func TestRegistryOutputFolderWithoutAncestors(t *testing.T) {
	reg := sampleRegistry(t)
	require.Equal(t, "", reg.OutputFolder(notion.AttachmentInfo{SourcePath: "loose.png"}))
}

func TestRegistryFlagsAttachmentsSharingAName(t *testing.T) {
	reg := buildRegistry(t, notion.DefaultConfig(), []notion.DocumentInfo{
		page(idRoot, "Root "+idRoot+".html", "Root"),
		page(idChild, "Other "+idChild+".html", "Other"),
	},
		"Root "+idRoot+"/image.png",
		"Other "+idChild+"/image.png",
	)

	for _, a := range reg.Attachments() {
		require.True(t, a.FullLinkPathNeeded, a.SourcePath)
		require.Equal(t, "image.png", a.NameWithExtension)
	}
	require.Equal(t, []string{"Other " + idChild + "/image.png", "Root " + idRoot + "/image.png"}, reg.AttachmentPaths())
}

func TestRegistryDocumentsAreSortedBySourcePath(t *testing.T) {
	reg := sampleRegistry(t)
	docs := reg.Documents()
	require.Len(t, docs, 4)
	for i := 1; i < len(docs); i++ {
		require.Less(t, docs[i-1].SourcePath, docs[i].SourcePath)
	}
}
