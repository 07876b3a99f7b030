package core

import (
	"errors"
	"fmt"
	"html"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Directive markers. Templates embed directives inside ordinary HTML
// comments so they degrade gracefully in any editor preview.
const (
	MarkerOpen  = "<!--P/"
	MarkerClose = "/P-->"
)

// Directive names.
const (
	dirContents = "CONTENTS"
	dirCSS      = "CSS"
	dirTOC      = "TOC"
	dirList     = "LIST"
	dirMeta     = "META"
	dirInclude  = "INCLUDE"
)

// Directive is one parsed template instruction. The set is closed: an
// unrecognized name never becomes a Directive, the comment just stays
// in the output untouched.
type Directive interface {
	directiveName() string
}

type contentsDirective struct{}

type cssDirective struct{}

type tocDirective struct {
	// Depth limits nesting; zero or below means unlimited.
	Depth int
}

type listDirective struct {
	Path string
	// SortKey is a metadata key; empty means the pipeline's canonical
	// entry order (published date descending, permalink ascending).
	SortKey   string
	Ascending bool
}

type metaDirective struct {
	Key string
}

type includeDirective struct {
	Path string
}

func (contentsDirective) directiveName() string { return dirContents }
func (cssDirective) directiveName() string      { return dirCSS }
func (tocDirective) directiveName() string      { return dirTOC }
func (listDirective) directiveName() string     { return dirList }
func (metaDirective) directiveName() string     { return dirMeta }
func (includeDirective) directiveName() string  { return dirInclude }

// FileReader is the file-inclusion capability handed to the engine.
// Paths are root-relative.
type FileReader interface {
	ReadFile(rel string) ([]byte, error)
	IsDir(rel string) bool
}

// RenderContext bundles everything a template may ask for while
// rendering one entry.
type RenderContext struct {
	Entry *Entry
	// Entries is every entry of the run in canonical order.
	Entries []*Entry
	// CSS is the entry's cascade, root-first.
	CSS   []CSSRef
	Files FileReader
}

type replacement struct {
	start, end int
	dir        Directive
}

// Template is a parsed HTML template: raw text plus the directive
// replacements found in it. Parsing happens once; Apply may run any
// number of times against different entries.
type Template struct {
	name  string
	text  string
	repls []replacement
}

// ParseTemplate scans text for directives. name is used in error
// diagnostics only. A close marker that never arrives ends the scan,
// leaving the tail untouched, matching how browsers treat an unclosed
// comment. Malformed quoting inside a recognized directive fails the
// whole template.
func ParseTemplate(name, text string) (*Template, error) {
	t := &Template{name: name, text: text}

	offset := 0
	for {
		rel := strings.Index(text[offset:], MarkerOpen)
		if rel < 0 {
			break
		}
		start := offset + rel
		innerStart := start + len(MarkerOpen)
		relEnd := strings.Index(text[innerStart:], MarkerClose)
		if relEnd < 0 {
			break
		}
		innerEnd := innerStart + relEnd
		end := innerEnd + len(MarkerClose)

		dir, known, err := parseDirective(text[innerStart:innerEnd])
		if err != nil {
			return nil, &DirectiveSyntaxError{Template: name, Offset: start, Reason: err.Error()}
		}
		if known {
			t.repls = append(t.repls, replacement{start: start, end: end, dir: dir})
		}

		offset = end
	}

	return t, nil
}

// parseDirective interprets the text between the markers. A leading
// token that is not a known directive name reports known=false and no
// error: stray comments that merely look like directives pass through.
func parseDirective(inner string) (Directive, bool, error) {
	rest := inner
	name, ok, err := nextValue(&rest)
	if err != nil || !ok {
		return nil, false, nil
	}

	switch name {
	case dirContents:
		return contentsDirective{}, true, nil
	case dirCSS:
		return cssDirective{}, true, nil
	case dirTOC:
		depth := 0
		if arg, ok, err := nextValue(&rest); err != nil {
			return nil, true, err
		} else if ok {
			n, convErr := strconv.Atoi(arg)
			if convErr != nil {
				// Unparseable depth renders the full table, like no
				// depth at all.
				n = 0
			}
			depth = n
		}
		return tocDirective{Depth: depth}, true, nil
	case dirList:
		target, ok, err := nextValue(&rest)
		if err != nil {
			return nil, true, err
		}
		if !ok {
			return nil, true, errors.New("LIST requires a path argument")
		}
		d := listDirective{Path: target}
		for {
			arg, ok, err := nextValue(&rest)
			if err != nil {
				return nil, true, err
			}
			if !ok {
				break
			}
			if arg != "sort" {
				return nil, true, fmt.Errorf("unrecognized LIST argument %q", arg)
			}
			key, okKey, err := nextValue(&rest)
			if err != nil {
				return nil, true, err
			}
			order, okOrder, err := nextValue(&rest)
			if err != nil {
				return nil, true, err
			}
			if !okKey || !okOrder || (order != "asc" && order != "desc") {
				return nil, true, errors.New("sort requires a key and an asc/desc order")
			}
			d.SortKey = strings.ToLower(key)
			d.Ascending = order == "asc"
		}
		return d, true, nil
	case dirMeta:
		key, ok, err := nextValue(&rest)
		if err != nil {
			return nil, true, err
		}
		if !ok {
			return nil, true, errors.New("META requires a key argument")
		}
		return metaDirective{Key: strings.ToLower(key)}, true, nil
	case dirInclude:
		target, ok, err := nextValue(&rest)
		if err != nil {
			return nil, true, err
		}
		if !ok {
			return nil, true, errors.New("INCLUDE requires a path argument")
		}
		return includeDirective{Path: target}, true, nil
	default:
		return nil, false, nil
	}
}

// nextValue consumes the next argument from *s: either a bare
// whitespace-delimited token or a double-quoted string. Inside quotes
// only \" and \\ are escapes; any other backslash sequence is kept
// verbatim. ok is false when s holds nothing but whitespace.
func nextValue(s *string) (value string, ok bool, err error) {
	rest := strings.TrimLeft(*s, " \t\r\n")
	if rest == "" {
		*s = rest
		return "", false, nil
	}

	if rest[0] != '"' {
		end := strings.IndexAny(rest, " \t\r\n")
		if end < 0 {
			end = len(rest)
		}
		*s = rest[end:]
		return rest[:end], true, nil
	}

	var b strings.Builder
	i := 1
	for i < len(rest) {
		c := rest[i]
		switch c {
		case '\\':
			if i+1 < len(rest) && (rest[i+1] == '"' || rest[i+1] == '\\') {
				b.WriteByte(rest[i+1])
				i += 2
				continue
			}
			b.WriteByte(c)
			i++
		case '"':
			*s = rest[i+1:]
			return b.String(), true, nil
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", false, errors.New("unterminated quoted argument")
}

// Apply renders the template for one entry, substituting every
// recognized directive.
func (t *Template) Apply(ctx *RenderContext) (string, error) {
	var b strings.Builder
	b.Grow(len(t.text))

	last := 0
	for _, r := range t.repls {
		b.WriteString(t.text[last:r.start])
		value, err := resolveDirective(r.dir, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
		last = r.end
	}
	b.WriteString(t.text[last:])

	return b.String(), nil
}

func resolveDirective(dir Directive, ctx *RenderContext) (string, error) {
	switch d := dir.(type) {
	case contentsDirective:
		return string(ctx.Entry.Fragment), nil

	case cssDirective:
		var b strings.Builder
		for _, ref := range ctx.CSS {
			b.WriteString(`<link rel="stylesheet" type="text/css" href="`)
			b.WriteString(html.EscapeString(RelativeHref(ctx.Entry.OutDir, ref.Path)))
			b.WriteString(`">`)
		}
		return b.String(), nil

	case tocDirective:
		forest := BuildHeadingForest(ctx.Entry.Headings)
		return RenderTOC(forest, d.Depth), nil

	case listDirective:
		return resolveList(d, ctx)

	case metaDirective:
		return metaValue(&ctx.Entry.Meta, d.Key), nil

	case includeDirective:
		target := ResolvePath(ctx.Entry.Dir, d.Path)
		data, err := ctx.Files.ReadFile(target)
		if err != nil {
			return "", &DirectiveResolutionError{Directive: dirInclude, Path: target, Reason: "cannot read file"}
		}
		switch strings.ToLower(path.Ext(target)) {
		case ".html", ".htm":
			return string(data), nil
		default:
			return html.EscapeString(string(data)), nil
		}

	default:
		return "", fmt.Errorf("unhandled directive %s", dir.directiveName())
	}
}

func resolveList(d listDirective, ctx *RenderContext) (string, error) {
	target := ResolvePath(ctx.Entry.Dir, d.Path)
	if !ctx.Files.IsDir(target) {
		return "", &DirectiveResolutionError{Directive: dirList, Path: target, Reason: "not a directory"}
	}

	var listed []*Entry
	for _, e := range ctx.Entries {
		if isAncestorDir(target, e.Dir) {
			listed = append(listed, e)
		}
	}

	if d.SortKey != "" {
		listed = append([]*Entry(nil), listed...)
		sort.SliceStable(listed, func(i, j int) bool {
			a := metaValue(&listed[i].Meta, d.SortKey)
			b := metaValue(&listed[j].Meta, d.SortKey)
			if d.Ascending {
				return a < b
			}
			return a > b
		})
	}

	var b strings.Builder
	b.WriteString("<ul>")
	for _, e := range listed {
		b.WriteString(`<li><a href="`)
		b.WriteString(html.EscapeString(RelativeHref(ctx.Entry.OutDir, e.Permalink())))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(e.Meta.Title))
		b.WriteString("</a></li>")
	}
	b.WriteString("</ul>")
	return b.String(), nil
}

// metaValue resolves a META (or LIST sort) key against an entry. The
// resolved fields answer for their well-known names so "META title"
// works even when the title came from a heading; anything else hits the
// authored pairs. Absent keys resolve to the empty string.
func metaValue(m *Metadata, key string) string {
	switch key {
	case keyTitle:
		return m.Title
	case keyDate, keyCreated:
		return m.Created.Format(time.DateOnly)
	case keyUpdated, keyModified:
		return m.Updated.Format(time.DateOnly)
	case keyCategory:
		return m.Category
	case keyTags:
		return strings.Join(m.Tags, ", ")
	case keyTemplate:
		return m.Template
	default:
		return m.Extra[key]
	}
}
