package core

import "time"

// PostFileName is the markdown file looked up inside directory-form
// posts (name/post.md).
const PostFileName = "post.md"

const postStem = "post"

// Entry is the central entity of the domain.
// It represents one markdown source file that becomes one output page.
type Entry struct {
	// Source is the root-relative path of the markdown file, slash-separated.
	Source string
	// Dir is the root-relative directory holding the source ("" at the root).
	// For directory-form posts (name/post.md) this is the post's directory.
	Dir string
	// Raw is the markdown text with the leading meta block already stripped.
	Raw []byte

	Meta Metadata

	// Fragment is the rendered HTML body.
	Fragment []byte
	// Headings lists the document headings in order, anchors assigned.
	Headings []Heading

	// OutDir is the root-relative output directory; the page itself is
	// written as OutDir/index.html ("" means the top-level index page).
	OutDir string
}

// Permalink returns the root-relative link to the entry's output page.
// The top-level index page links to "".
func (e *Entry) Permalink() string {
	if e.OutDir == "" {
		return ""
	}
	return e.OutDir + "/"
}

// Metadata holds the resolved per-entry metadata after the fallback
// chain has been applied. Extra keeps every authored key/value pair,
// keys lower-cased, for META lookups.
type Metadata struct {
	Title    string
	Created  time.Time
	Updated  time.Time
	Category string
	Tags     []string
	// Template is the root-relative path of the HTML template named by
	// the entry, or "" for the embedded default.
	Template string
	// Path overrides the computed output directory when non-empty.
	Path string

	Extra map[string]string
}

// Heading is one document heading as reported by the markdown renderer,
// with its generated (or author-supplied) anchor id.
type Heading struct {
	Level  int
	Text   string
	Anchor string
}

// HeadingNode is a heading plus its structural children. Nesting is by
// level: a heading is a child of the nearest preceding heading of lower
// level, regardless of the exact numeric gap.
type HeadingNode struct {
	Heading
	Children []*HeadingNode
}

// CSSRef is a stylesheet discovered during the scan.
type CSSRef struct {
	// Path is root-relative, slash-separated.
	Path string
	// Depth is the number of directories between the content root and
	// the stylesheet (0 for root-level files). It fixes cascade order.
	Depth int
}

// FeedEntry is the read-only projection of an Entry consumed by the
// feed assembler.
type FeedEntry struct {
	Title     string
	Permalink string
	Category  string
	Published time.Time
	Updated   time.Time
	// ContentHTML is the rendered fragment; the assembler escapes it.
	ContentHTML string
}

// FeedEntryFor projects an entry for feed assembly.
func FeedEntryFor(e *Entry) FeedEntry {
	return FeedEntry{
		Title:       e.Meta.Title,
		Permalink:   e.Permalink(),
		Category:    e.Meta.Category,
		Published:   e.Meta.Created,
		Updated:     e.Meta.Updated,
		ContentHTML: string(e.Fragment),
	}
}
