// Package feed fills user-authored Atom skeletons with generated
// entries. The skeleton stays in charge of feed-level metadata (title,
// links, authors); kiln only contributes entry elements.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/kiln/pkg/core"
)

const (
	atomNamespace = "http://www.w3.org/2005/Atom"
	xmlNamespace  = "http://www.w3.org/XML/1998/namespace"

	contentType = "html"
)

// AssemblyError reports a skeleton that cannot be filled: unparseable
// XML, or a document whose root is not exactly one feed element.
type AssemblyError struct {
	Path   string
	Reason string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomContent struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type atomEntry struct {
	XMLName   xml.Name      `xml:"entry"`
	Title     string        `xml:"title"`
	ID        string        `xml:"id"`
	Link      atomLink      `xml:"link"`
	Published string        `xml:"published"`
	Updated   string        `xml:"updated"`
	Category  *atomCategory `xml:"category,omitempty"`
	Content   atomContent   `xml:"content"`
}

// Assembler plugs feed assembly into the build pipeline. It sorts the
// entries newest-first before filling the skeleton.
type Assembler struct{}

func (Assembler) Assemble(path string, skeleton []byte, entries []core.FeedEntry) ([]byte, error) {
	SortEntries(entries)
	return Assemble(path, skeleton, entries)
}

// SortEntries orders entries the way readers expect them in a feed:
// newest first by published date, ties broken by permalink.
func SortEntries(entries []core.FeedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Published.Equal(entries[j].Published) {
			return entries[i].Published.After(entries[j].Published)
		}
		return entries[i].Permalink < entries[j].Permalink
	})
}

// Assemble injects one entry element per FeedEntry into the skeleton,
// immediately before the closing feed tag. Existing children and their
// order are preserved. path is used for diagnostics only.
//
// Entry ids and links are the feed's own link href joined with each
// entry's permalink, so the skeleton's link decides the site base URL.
func Assemble(path string, skeleton []byte, entries []core.FeedEntry) ([]byte, error) {
	base, err := feedBaseLink(path, skeleton)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	dec := xml.NewDecoder(bytes.NewReader(skeleton))
	enc := xml.NewEncoder(&out)

	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &AssemblyError{Path: path, Reason: "invalid xml: " + err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if err := enc.EncodeToken(normalizeStart(t)); err != nil {
				return nil, &AssemblyError{Path: path, Reason: err.Error()}
			}
		case xml.EndElement:
			depth--
			if depth == 0 && t.Name.Local == "feed" {
				for _, entry := range entries {
					if err := enc.Encode(newAtomEntry(base, entry)); err != nil {
						return nil, &AssemblyError{Path: path, Reason: err.Error()}
					}
				}
			}
			if err := enc.EncodeToken(normalizeEnd(t)); err != nil {
				return nil, &AssemblyError{Path: path, Reason: err.Error()}
			}
		default:
			if err := enc.EncodeToken(tok); err != nil {
				return nil, &AssemblyError{Path: path, Reason: err.Error()}
			}
		}
	}

	if err := enc.Flush(); err != nil {
		return nil, &AssemblyError{Path: path, Reason: err.Error()}
	}
	return out.Bytes(), nil
}

// feedBaseLink validates the skeleton shape (exactly one feed root)
// and extracts the href of the first feed-level link element, the base
// every entry id is joined onto. A skeleton without a link yields
// root-relative ids.
func feedBaseLink(path string, skeleton []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(skeleton))

	roots := 0
	base := ""
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &AssemblyError{Path: path, Reason: "invalid xml: " + err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if t.Name.Local != "feed" {
					return "", &AssemblyError{Path: path, Reason: "root element is <" + t.Name.Local + ">, want <feed>"}
				}
				roots++
			}
			if depth == 2 && t.Name.Local == "link" && base == "" {
				for _, attr := range t.Attr {
					if attr.Name.Local == "href" {
						base = attr.Value
					}
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	switch roots {
	case 0:
		return "", &AssemblyError{Path: path, Reason: "no feed root element"}
	case 1:
		return base, nil
	default:
		return "", &AssemblyError{Path: path, Reason: "multiple feed root elements"}
	}
}

func newAtomEntry(base string, entry core.FeedEntry) atomEntry {
	link := joinLink(base, entry.Permalink)
	e := atomEntry{
		Title:     entry.Title,
		ID:        link,
		Link:      atomLink{Href: link},
		Published: entry.Published.UTC().Format(time.RFC3339),
		Updated:   entry.Updated.UTC().Format(time.RFC3339),
		Content:   atomContent{Type: contentType, Value: entry.ContentHTML},
	}
	if entry.Category != "" {
		e.Category = &atomCategory{Term: entry.Category}
	}
	return e
}

func joinLink(base, permalink string) string {
	if base == "" {
		return "/" + permalink
	}
	return strings.TrimRight(base, "/") + "/" + permalink
}

// normalizeStart strips the default Atom namespace from element names
// before re-encoding. The decoder resolves xmlns into Name.Space; left
// alone, encoding/xml would re-declare the namespace on every element.
// The root keeps its literal xmlns attribute, so the document's
// namespace is unchanged.
func normalizeStart(t xml.StartElement) xml.StartElement {
	if t.Name.Space == atomNamespace {
		t.Name.Space = ""
	}
	attrs := make([]xml.Attr, 0, len(t.Attr))
	for _, attr := range t.Attr {
		switch attr.Name.Space {
		case xmlNamespace, "xml":
			attr.Name = xml.Name{Local: "xml:" + attr.Name.Local}
		case atomNamespace:
			attr.Name = xml.Name{Local: attr.Name.Local}
		}
		attrs = append(attrs, attr)
	}
	t.Attr = attrs
	return t
}

func normalizeEnd(t xml.EndElement) xml.EndElement {
	if t.Name.Space == atomNamespace {
		t.Name.Space = ""
	}
	return t
}
