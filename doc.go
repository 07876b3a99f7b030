// Package kiln is the Composition Root for the kiln static site generator.
//
// It connects the core build pipeline (Domain Layer) with the infrastructure
// adapters (markdown rendering, filesystem scanning and writing) using the
// Hexagonal Architecture pattern.
//
// Philosophy:
//
// Kiln bakes a tree of Markdown sources into a browsable HTML site. Content
// authors own everything: page metadata rides inside the document, templates
// are plain HTML with comment directives, stylesheets cascade down the
// directory tree, and Atom feeds start from hand-written skeletons. Kiln
// fills in the rest deterministically, so the same tree always bakes to the
// same site.
//
// Features:
//
//   - **Metadata fallbacks**: every page gets a title, dates and a category,
//     explicit or derived, with a documented precedence chain.
//   - **Comment directives**: templates embed CONTENTS, TOC, CSS, LIST, META
//     and INCLUDE instructions as HTML comments, invisible to other tools.
//   - **CSS cascade**: stylesheets apply to their directory and everything
//     below it, root first.
//   - **Feed assembly**: user-authored Atom skeletons are completed with one
//     entry per generated page.
//   - **Full rebuilds**: no caches, no partial state; output is a pure
//     function of the content tree.
//
// Usage:
//
//	// Assemble a service with functional options
//	svc, err := kiln.New("./content",
//		kiln.WithOutputDir("./dist"),
//		kiln.WithLogger(logger),
//	)
//
//	// Bake the site
//	report, err := svc.Build(ctx)
package kiln
