package core

import (
	"html"
	"strconv"
	"strings"
)

// AssignAnchors fills in the Anchor of every heading, preserving
// author-supplied anchors and generating ids for the rest. Ids are
// unique within the document: a duplicate gets "-2", "-3", and so on.
// The input slice is returned with anchors set, in document order.
func AssignAnchors(headings []Heading) []Heading {
	seen := make(map[string]bool, len(headings))
	for i := range headings {
		id := headings[i].Anchor
		if id == "" {
			id = anchorID(headings[i].Text)
		}
		if seen[id] {
			base := id
			for n := 2; ; n++ {
				id = base + "-" + strconv.Itoa(n)
				if !seen[id] {
					break
				}
			}
		}
		seen[id] = true
		headings[i].Anchor = id
	}
	return headings
}

// anchorID derives the base anchor from a heading text: lower-cased,
// every run of non-alphanumeric characters collapsed to a single "-",
// trimmed at both ends. An id that collapses to nothing becomes
// "section".
func anchorID(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSep := false
	for _, r := range strings.ToLower(text) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127
		if alnum {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		} else {
			pendingSep = true
		}
	}
	if b.Len() == 0 {
		return "section"
	}
	return b.String()
}

// BuildHeadingForest turns the flat heading list into a forest. The
// tree is implied by levels: each heading becomes a child of the
// nearest preceding heading of strictly lower level. Top-level nodes
// are the headings at the minimum level present.
//
// The build keeps an explicit stack of open ancestors, one slot per
// level, so nodes stay singly owned.
func BuildHeadingForest(headings []Heading) []*HeadingNode {
	var roots []*HeadingNode
	var stack []*HeadingNode // open ancestors, strictly increasing level

	for _, h := range headings {
		node := &HeadingNode{Heading: h}
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}
	return roots
}

// RenderTOC renders the forest as nested unordered lists of anchor
// links, down to maxDepth levels of nesting. A maxDepth of zero or
// below means unlimited. Nodes past the limit are omitted entirely.
// Rendering is pure: the same forest renders identically every time.
func RenderTOC(forest []*HeadingNode, maxDepth int) string {
	if len(forest) == 0 {
		return ""
	}
	var b strings.Builder
	renderTOCLevel(&b, forest, 1, maxDepth)
	return b.String()
}

func renderTOCLevel(b *strings.Builder, nodes []*HeadingNode, depth, maxDepth int) {
	if maxDepth > 0 && depth > maxDepth {
		return
	}
	b.WriteString("<ul>")
	for _, node := range nodes {
		b.WriteString(`<li><a href="#`)
		b.WriteString(node.Anchor)
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(node.Text))
		b.WriteString("</a>")
		if len(node.Children) > 0 && (maxDepth <= 0 || depth < maxDepth) {
			renderTOCLevel(b, node.Children, depth+1, maxDepth)
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
}
