package core

import (
	"path"
	"sort"
	"strings"
)

// SortCSSRefs orders references root-first (ascending depth), then
// lexicographically by path within a level. This is cascade order:
// later references override earlier ones.
func SortCSSRefs(refs []CSSRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Depth != refs[j].Depth {
			return refs[i].Depth < refs[j].Depth
		}
		return refs[i].Path < refs[j].Path
	})
}

// CascadeFor selects the stylesheets that apply to an entry: those
// living in the entry's directory or any of its ancestors up to the
// content root. The result is in cascade order. Identically named files
// at different levels are both kept.
func CascadeFor(dir string, refs []CSSRef) []CSSRef {
	var cascade []CSSRef
	for _, ref := range refs {
		if isAncestorDir(path.Dir(ref.Path), dir) {
			cascade = append(cascade, ref)
		}
	}
	SortCSSRefs(cascade)
	return cascade
}

// isAncestorDir reports whether ancestor contains dir, inclusively.
// Both are root-relative slash paths; "" and "." mean the root.
func isAncestorDir(ancestor, dir string) bool {
	if ancestor == "." {
		ancestor = ""
	}
	if ancestor == "" {
		return true
	}
	return dir == ancestor || strings.HasPrefix(dir, ancestor+"/")
}

// RelativeHref computes the link from an output page (living at
// fromDir/index.html) to a root-relative target file, using only "../"
// and path segments so the output tree can be browsed from file://.
func RelativeHref(fromDir, target string) string {
	if fromDir == "" {
		return target
	}
	up := strings.Count(fromDir, "/") + 1
	return strings.Repeat("../", up) + target
}
