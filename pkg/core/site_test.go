package core_test

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/kiln/pkg/core"
	"github.com/aretw0/kiln/pkg/feed"
)

// memSource implements core.Source over a map, classifying files the
// way the filesystem adapter does.
type memSource struct {
	files map[string]string
}

func (m *memSource) Scan() (*core.Tree, error) {
	var paths []string
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	tree := &core.Tree{}
	for _, p := range paths {
		switch strings.TrimPrefix(path.Ext(p), ".") {
		case "md":
			tree.Posts = append(tree.Posts, core.PostFile{
				Path:    p,
				DirForm: path.Base(p) == core.PostFileName && strings.Contains(p, "/"),
			})
		case "css":
			tree.Styles = append(tree.Styles, core.CSSRef{Path: p, Depth: strings.Count(p, "/")})
			tree.Copies = append(tree.Copies, p)
		case "atom":
			tree.Feeds = append(tree.Feeds, p)
		default:
			tree.Copies = append(tree.Copies, p)
		}
	}
	core.SortCSSRefs(tree.Styles)
	return tree, nil
}

func (m *memSource) ReadFile(rel string) ([]byte, error) {
	data, ok := m.files[rel]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(data), nil
}

func (m *memSource) IsDir(rel string) bool {
	for p := range m.files {
		if strings.HasPrefix(p, rel+"/") {
			return true
		}
	}
	return false
}

func (m *memSource) Timestamps(rel string) core.Timestamps { return core.Timestamps{} }

// memSink records writes; it is safe for concurrent use.
type memSink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemSink() *memSink { return &memSink{files: make(map[string][]byte)} }

func (m *memSink) WriteFile(rel string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[rel] = data
	return nil
}

func (m *memSink) get(t *testing.T, rel string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[rel]
	if !ok {
		var names []string
		for n := range m.files {
			names = append(names, n)
		}
		sort.Strings(names)
		t.Fatalf("output %s missing; have %v", rel, names)
	}
	return string(data)
}

func fixedClock(value string) core.Clock {
	return func() time.Time { return day(value) }
}

func newTestService(t *testing.T, src *memSource, sink *memSink) *core.Service {
	t.Helper()
	svc, err := core.NewService(core.ServiceConfig{
		Source:   src,
		Sink:     sink,
		Renderer: stubRenderer{},
		Feeds:    feed.Assembler{},
		Clock:    fixedClock("2024-06-01"),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

// stubRenderer renders markdown just well enough for pipeline tests:
// each "# " line becomes an h1, everything else a paragraph.
type stubRenderer struct{}

func (stubRenderer) Render(source []byte) ([]byte, []core.Heading, error) {
	var b strings.Builder
	var headings []core.Heading
	for _, line := range strings.Split(strings.TrimSpace(string(source)), "\n") {
		if line == "" {
			continue
		}
		if text, ok := strings.CutPrefix(line, "# "); ok {
			headings = append(headings, core.Heading{Level: 1, Text: text})
			b.WriteString("<h1>" + text + "</h1>")
			continue
		}
		b.WriteString("<p>" + line + "</p>")
	}
	return []byte(b.String()), core.AssignAnchors(headings), nil
}

func TestBuild_EndToEnd(t *testing.T) {
	src := &memSource{files: map[string]string{
		"index.md":          "```meta\ntitle = Home\ndate = 2024-01-01\n```\n# Welcome\nintro\n",
		"blog/hello.md":     "```meta\ndate = 2024-02-01\n```\n# Hello World\nbody\n",
		"blog/deep/post.md": "```meta\ndate = 2024-03-01\n```\n# Deep Dive\nbody\n",
		"style.css":         "body {}",
		"blog/blog.css":     "main {}",
		"feed.atom":         `<feed xmlns="http://www.w3.org/2005/Atom"><title>All</title><link href="https://example.com/"/></feed>`,
		"blog/cover.jpg":    "jpg",
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	report, err := svc.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(report.Failures) != 0 {
		t.Fatalf("failures: %+v", report.Failures)
	}
	if report.Pages != 3 || report.Copies != 3 || report.Feeds != 1 {
		t.Errorf("report = %+v", report)
	}

	home := sink.get(t, "index.html")
	if !strings.Contains(home, "<title>Home</title>") {
		t.Errorf("home title missing:\n%s", home)
	}
	if !strings.Contains(home, "<h1>Welcome</h1>") {
		t.Errorf("home body missing:\n%s", home)
	}
	if !strings.Contains(home, `href="style.css"`) {
		t.Errorf("home css missing:\n%s", home)
	}
	if strings.Contains(home, "<!--P/") {
		t.Errorf("unreplaced directive in output:\n%s", home)
	}

	hello := sink.get(t, "blog/hello/index.html")
	if !strings.Contains(hello, "<title>Hello World</title>") {
		t.Errorf("heading should become the title:\n%s", hello)
	}
	if !strings.Contains(hello, `href="../../style.css"`) || !strings.Contains(hello, `href="../../blog/blog.css"`) {
		t.Errorf("cascade missing:\n%s", hello)
	}

	// Directory-form post lands at its directory's slug.
	sink.get(t, "blog/deep/index.html")

	// Assets and styles are copied through.
	sink.get(t, "style.css")
	sink.get(t, "blog/blog.css")
	sink.get(t, "blog/cover.jpg")

	// The feed collects every page, newest first.
	atom := sink.get(t, "feed.atom")
	first := strings.Index(atom, "Deep Dive")
	second := strings.Index(atom, "Hello World")
	third := strings.Index(atom, "Home")
	if first < 0 || second < 0 || third < 0 || !(first < second && second < third) {
		t.Errorf("feed order wrong:\n%s", atom)
	}
	if !strings.Contains(atom, "<title>All</title>") {
		t.Errorf("skeleton title lost:\n%s", atom)
	}
}

func TestBuild_CustomTemplate(t *testing.T) {
	src := &memSource{files: map[string]string{
		"page.md":   "```meta\ntitle = Page\ntemplate = wide.html\n```\nbody\n",
		"wide.html": "<body class=\"wide\"><!--P/CONTENTS/P--></body>",
		"notes.txt": "keep me",
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	report, err := svc.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	out := sink.get(t, "page/index.html")
	if !strings.Contains(out, `class="wide"`) {
		t.Errorf("custom template not applied:\n%s", out)
	}

	// The template is consumed, not copied; other files still are.
	if _, ok := sink.files["wide.html"]; ok {
		t.Error("template should not be copied to the output")
	}
	sink.get(t, "notes.txt")
	if report.Copies != 1 {
		t.Errorf("copies = %d, want 1", report.Copies)
	}
}

func TestBuild_MissingTemplateIsStructural(t *testing.T) {
	src := &memSource{files: map[string]string{
		"page.md": "```meta\ntemplate = nope.html\n```\nbody\n",
	}}
	svc := newTestService(t, src, newMemSink())

	if _, err := svc.Build(context.Background()); err == nil {
		t.Fatal("expected build to fail on a missing template")
	}
}

func TestBuild_BrokenTemplateFailsItsPagesOnly(t *testing.T) {
	src := &memSource{files: map[string]string{
		"bad.md":      "```meta\ntemplate = broken.html\n```\nbody\n",
		"good.md":     "# Good\nbody\n",
		"broken.html": `<!--P/META "unterminated/P-->`,
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	report, err := svc.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if report.Pages != 1 || len(report.Failures) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if report.Failures[0].Path != "bad.md" {
		t.Errorf("failure path = %s", report.Failures[0].Path)
	}
	sink.get(t, "good/index.html")
}

func TestBuild_PerFileFailureIsolation(t *testing.T) {
	src := &memSource{files: map[string]string{
		"bad.md":  "```meta\nno separator here\n```\nbody\n",
		"good.md": "# Good\nbody\n",
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	report, err := svc.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if report.Pages != 1 {
		t.Errorf("pages = %d, want 1", report.Pages)
	}
	if len(report.Failures) != 1 || report.Failures[0].Path != "bad.md" {
		t.Errorf("failures = %+v", report.Failures)
	}
	var metaErr *core.MetadataError
	if !errors.As(report.Failures[0].Err, &metaErr) {
		t.Errorf("failure error = %v", report.Failures[0].Err)
	}
	sink.get(t, "good/index.html")
}

func TestBuild_PathOverride(t *testing.T) {
	src := &memSource{files: map[string]string{
		"announcement.md": "```meta\npath = /news/2024/launch\n```\n# Launch\n",
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	if _, err := svc.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	sink.get(t, "news/2024/launch/index.html")
}

func TestBuild_SlugifiedOutput(t *testing.T) {
	src := &memSource{files: map[string]string{
		"blog/My First Post.md": "# Hi\n",
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	if _, err := svc.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	sink.get(t, "blog/my-first-post/index.html")
}

func TestBuild_RootPostFile(t *testing.T) {
	src := &memSource{files: map[string]string{
		"post.md":   "# Solo\n",
		"style.css": "body {}",
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	if _, err := svc.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}

	// A bare post.md at the root is an ordinary name.md post.
	out := sink.get(t, "post/index.html")
	if !strings.Contains(out, `href="../style.css"`) {
		t.Errorf("css link wrong for page one level deep:\n%s", out)
	}
	if _, ok := sink.files["./index.html"]; ok {
		t.Error("page written under a dot directory")
	}
}

// dirFormRootSource misreports a root-level file as directory-form to
// check that output paths stay normalized regardless of the source.
type dirFormRootSource struct {
	memSource
}

func (s *dirFormRootSource) Scan() (*core.Tree, error) {
	tree, err := s.memSource.Scan()
	if err != nil {
		return nil, err
	}
	for i := range tree.Posts {
		tree.Posts[i].DirForm = true
	}
	return tree, nil
}

func TestBuild_DirFormAtRootNormalized(t *testing.T) {
	src := &dirFormRootSource{memSource{files: map[string]string{
		"post.md": "# Solo\n",
	}}}
	sink := newMemSink()
	svc, err := core.NewService(core.ServiceConfig{
		Source:   src,
		Sink:     sink,
		Renderer: stubRenderer{},
		Clock:    fixedClock("2024-06-01"),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	sink.get(t, "post/index.html")
	for name := range sink.files {
		if strings.HasPrefix(name, "./") {
			t.Errorf("output path not normalized: %s", name)
		}
	}
}

func TestBuild_ScopedFeeds(t *testing.T) {
	src := &memSource{files: map[string]string{
		"index.md":       "```meta\ndate = 2024-01-01\n```\n# Home\n",
		"blog/a.md":      "```meta\ndate = 2024-02-01\n```\n# A Post\n",
		"blog/feed.atom": `<feed xmlns="http://www.w3.org/2005/Atom"><title>Blog</title><link href="https://example.com/"/></feed>`,
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	if _, err := svc.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}

	atom := sink.get(t, "blog/feed.atom")
	if !strings.Contains(atom, "A Post") {
		t.Errorf("blog entry missing from blog feed:\n%s", atom)
	}
	if strings.Contains(atom, "Home") {
		t.Errorf("root page leaked into blog feed:\n%s", atom)
	}
}

func TestBuild_DateFallsBackToClock(t *testing.T) {
	src := &memSource{files: map[string]string{
		"a.md":      "# A\n",
		"feed.atom": `<feed xmlns="http://www.w3.org/2005/Atom"><title>t</title><link href="https://example.com/"/></feed>`,
	}}
	sink := newMemSink()
	svc := newTestService(t, src, sink)

	if _, err := svc.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sink.get(t, "feed.atom"), "2024-06-01T00:00:00Z") {
		t.Errorf("clock date missing from feed")
	}
}

func TestBuild_EmptyTree(t *testing.T) {
	svc := newTestService(t, &memSource{files: map[string]string{}}, newMemSink())
	report, err := svc.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if report.Pages != 0 {
		t.Errorf("pages = %d, want 0", report.Pages)
	}
}
