package core

import "time"

// Renderer turns markdown text into an HTML fragment plus the ordered
// heading list. Adhering to this interface keeps the core independent
// of the markdown engine.
type Renderer interface {
	Render(source []byte) (fragment []byte, headings []Heading, err error)
}

// PostFile is one markdown source discovered by the scan, either bare
// (name.md) or directory-form (name/post.md).
type PostFile struct {
	// Path is root-relative, slash-separated.
	Path string
	// DirForm marks name/post.md posts, whose name comes from the
	// enclosing directory.
	DirForm bool
}

// Tree is the classified result of one content scan.
type Tree struct {
	Posts  []PostFile
	Styles []CSSRef
	// Feeds are Atom skeleton files to post-process.
	Feeds []string
	// Copies are files reproduced verbatim in the output. Stylesheets
	// are included; templates named by metadata are filtered out later.
	Copies []string
}

// Source is the read side of the filesystem collaborator, rooted at
// the content directory. All paths are root-relative.
type Source interface {
	FileReader

	// Scan walks the tree once and classifies every file.
	Scan() (*Tree, error)

	// Timestamps reports the creation and modification times of a
	// file; either may be unavailable.
	Timestamps(rel string) Timestamps
}

// Sink is the write side, rooted at the output directory. Writes are
// all-or-nothing per file: a failed write never leaves a partial file.
type Sink interface {
	WriteFile(rel string, data []byte) error
}

// Clock supplies the run's notion of "now" for date fallbacks. It is
// injectable so rebuilds can be made reproducible.
type Clock func() time.Time
