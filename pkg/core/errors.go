package core

import "fmt"

// MetadataError reports a malformed meta block or date value. It aborts
// the offending entry only; the rest of the run continues.
type MetadataError struct {
	Source string // root-relative path of the markdown file
	Line   int    // 1-based line inside the meta block, 0 when unknown
	Reason string
}

func (e *MetadataError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: meta block line %d: %s", e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: meta block: %s", e.Source, e.Reason)
}

// DirectiveSyntaxError reports malformed directive argument quoting in a
// template.
type DirectiveSyntaxError struct {
	Template string // template path, or "embedded default"
	Offset   int    // byte offset of the directive's open marker
	Reason   string
}

func (e *DirectiveSyntaxError) Error() string {
	return fmt.Sprintf("%s: directive at byte %d: %s", e.Template, e.Offset, e.Reason)
}

// DirectiveResolutionError reports a directive whose arguments parsed
// but could not be resolved (missing include file, LIST path that is not
// a directory).
type DirectiveResolutionError struct {
	Directive string
	Path      string
	Reason    string
}

func (e *DirectiveResolutionError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Directive, e.Path, e.Reason)
}
