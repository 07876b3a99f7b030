// Package goldmark adapts the goldmark markdown engine to the
// core.Renderer contract: HTML fragment out, headings surfaced with
// stable anchor ids injected into the rendered output.
package goldmark

import (
	"bytes"
	"fmt"

	gm "github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/aretw0/kiln/pkg/core"
)

// Renderer implements core.Renderer on top of goldmark.
type Renderer struct {
	md gm.Markdown
}

// New builds the renderer. GFM covers tables, strikethrough and task
// lists; raw HTML passes through because templates and posts are
// trusted local input; heading attributes let authors pin anchors with
// the {#id} syntax.
func New() *Renderer {
	return &Renderer{
		md: gm.New(
			gm.WithExtensions(extension.GFM),
			gm.WithParserOptions(parser.WithHeadingAttribute()),
			gm.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

// Render parses the source once, assigns anchor ids to every heading
// (author-pinned ids win, generated ids are de-duplicated), injects
// the ids into the AST, and renders the fragment.
func (r *Renderer) Render(source []byte) ([]byte, []core.Heading, error) {
	root := r.md.Parser().Parse(gmtext.NewReader(source))

	var headings []core.Heading
	var nodes []*gmast.Heading
	err := gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		headings = append(headings, core.Heading{
			Level:  h.Level,
			Text:   headingText(h, source),
			Anchor: explicitAnchor(h),
		})
		nodes = append(nodes, h)
		return gmast.WalkContinue, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk markdown ast: %w", err)
	}

	headings = core.AssignAnchors(headings)
	for i, h := range headings {
		nodes[i].SetAttributeString("id", []byte(h.Anchor))
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, root); err != nil {
		return nil, nil, fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.Bytes(), headings, nil
}

// explicitAnchor returns the author-supplied {#id}, if any.
func explicitAnchor(h *gmast.Heading) string {
	if v, ok := h.AttributeString("id"); ok {
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// headingText concatenates the plain text of a heading's inline
// children, ignoring markup.
func headingText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	collectText(n, source, &buf)
	return buf.String()
}

func collectText(n gmast.Node, source []byte, buf *bytes.Buffer) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *gmast.Text:
			buf.Write(t.Segment.Value(source))
		case *gmast.String:
			buf.Write(t.Value)
		default:
			collectText(c, source, buf)
		}
	}
}
