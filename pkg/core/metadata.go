package core

import (
	"bytes"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	metaFenceOpen  = "```meta"
	metaFenceClose = "```"

	keyTitle    = "title"
	keyDate     = "date"
	keyCreated  = "created"
	keyUpdated  = "updated"
	keyModified = "modified"
	keyCategory = "category"
	keyTags     = "tags"
	keyTemplate = "template"
	keyPath     = "path"
)

// Timestamps carries the filesystem dates of a source file. Either one
// may be unavailable (creation time is not exposed on every platform).
type Timestamps struct {
	Created    time.Time
	CreatedOK  bool
	Modified   time.Time
	ModifiedOK bool
}

// ParseMetaBlock splits an optional leading meta block from a markdown
// source. The block is only recognized when the very first line is the
// fence "```meta"; its body is one "key = value" (or "key: value") pair
// per line until the closing fence. The returned body has the block
// stripped. Keys are lower-cased, values trimmed.
func ParseMetaBlock(source string, text []byte) (map[string]string, []byte, error) {
	if !bytes.HasPrefix(text, []byte(metaFenceOpen)) {
		return nil, text, nil
	}
	rest := text[len(metaFenceOpen):]
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) > 0 {
		if rest[0] != '\n' {
			// Something like ```metadata: a different fence language.
			return nil, text, nil
		}
		rest = rest[1:]
	}

	pairs := make(map[string]string)
	line := 0
	for {
		line++
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			if strings.TrimRight(string(rest), "\r\n \t") == metaFenceClose {
				return pairs, nil, nil
			}
			return nil, nil, &MetadataError{Source: source, Line: line, Reason: "unterminated meta block"}
		}
		raw := strings.TrimRight(string(rest[:idx]), "\r")
		rest = rest[idx+1:]

		if raw == metaFenceClose {
			return pairs, rest, nil
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}

		key, value, ok := splitMetaPair(raw)
		if !ok {
			return nil, nil, &MetadataError{Source: source, Line: line, Reason: "line has no '=' or ':' separator"}
		}
		pairs[strings.ToLower(key)] = value
	}
}

// splitMetaPair splits on the first '=' or, failing that, the first ':'.
func splitMetaPair(line string) (key, value string, ok bool) {
	sep := strings.IndexByte(line, '=')
	if sep < 0 {
		sep = strings.IndexByte(line, ':')
	}
	if sep < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:sep]), strings.TrimSpace(line[sep+1:]), true
}

// ResolveMetadata applies the fallback chain to the authored pairs.
//
// Per-field precedence:
//
//	title:    explicit -> first heading -> file/directory name
//	date:     explicit -> fs creation time -> run clock
//	updated:  explicit -> fs modification time -> resolved date
//	category: explicit -> parent directory name
//	tags:     explicit -> empty
//	template: explicit (relative to the source file) -> embedded default
//
// firstHeading is only called when the title falls through to it.
func ResolveMetadata(source string, pairs map[string]string, ts Timestamps, now time.Time, firstHeading func() string) (Metadata, error) {
	meta := Metadata{Extra: pairs}
	if meta.Extra == nil {
		meta.Extra = make(map[string]string)
	}

	dir := path.Dir(source)
	if dir == "." {
		dir = ""
	}

	if title, ok := pairs[keyTitle]; ok && title != "" {
		meta.Title = title
	} else if h := firstHeading(); h != "" {
		meta.Title = h
	} else {
		meta.Title = titleFromName(source)
	}

	created, err := resolveDate(source, pairs, keyDate, keyCreated, ts.Created, ts.CreatedOK, now)
	if err != nil {
		return Metadata{}, err
	}
	meta.Created = created

	updated, err := resolveDate(source, pairs, keyUpdated, keyModified, ts.Modified, ts.ModifiedOK, created)
	if err != nil {
		return Metadata{}, err
	}
	meta.Updated = updated

	if category, ok := pairs[keyCategory]; ok && category != "" {
		meta.Category = category
	} else if dir != "" {
		meta.Category = path.Base(dir)
	}

	if tags, ok := pairs[keyTags]; ok {
		meta.Tags = splitTags(tags)
	}

	if tpl, ok := pairs[keyTemplate]; ok && tpl != "" {
		meta.Template = ResolvePath(dir, tpl)
	}

	if out, ok := pairs[keyPath]; ok {
		meta.Path = strings.Trim(path.Clean("/"+out), "/")
		if meta.Path == "." {
			meta.Path = ""
		}
	}

	return meta, nil
}

// resolveDate picks the first available of: explicit value (primary or
// alias key), filesystem time, fallback. Explicit values must be
// YYYY-MM-DD. Filesystem times are truncated to their calendar day so a
// rebuild does not reorder entries by sub-day noise.
func resolveDate(source string, pairs map[string]string, key, alias string, fsTime time.Time, fsOK bool, fallback time.Time) (time.Time, error) {
	value, ok := pairs[key]
	if !ok {
		value, ok = pairs[alias]
	}
	if ok && value != "" {
		d, err := time.Parse(time.DateOnly, value)
		if err != nil {
			return time.Time{}, &MetadataError{Source: source, Reason: "invalid date " + value + " for " + key + " (want YYYY-MM-DD)"}
		}
		return d, nil
	}
	if fsOK {
		return truncateToDay(fsTime), nil
	}
	return truncateToDay(fallback), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func splitTags(value string) []string {
	var tags []string
	for _, tag := range strings.Split(value, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return dedupSorted(tags)
}

func dedupSorted(values []string) []string {
	out := values[:0]
	for i, v := range values {
		if i == 0 || values[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}

// titleFromName derives a display title from the file (or, for
// directory-form posts, directory) name: "my-first-post.md" -> "My
// First Post".
func titleFromName(source string) string {
	stem := strings.TrimSuffix(path.Base(source), path.Ext(source))
	if stem == postStem {
		// name/post.md: the directory carries the name.
		stem = path.Base(path.Dir(source))
	}
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	return cases.Title(language.English).String(stem)
}

// ResolvePath resolves a path argument the way the directive language
// does: a leading "/" is relative to the content root, anything else is
// relative to dir (the current file's directory, root-relative). The
// result is root-relative and never escapes the root.
func ResolvePath(dir, value string) string {
	var joined string
	if strings.HasPrefix(value, "/") {
		joined = value
	} else {
		joined = "/" + dir + "/" + value
	}
	cleaned := strings.TrimPrefix(path.Clean(joined), "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}
