package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"golang.org/x/sync/errgroup"
)

// FeedAssembler fills an Atom skeleton with entries. Implemented by
// pkg/feed; the indirection keeps the core free of XML concerns.
type FeedAssembler interface {
	Assemble(path string, skeleton []byte, entries []FeedEntry) ([]byte, error)
}

// ServiceConfig wires the pipeline's collaborators.
type ServiceConfig struct {
	Source   Source
	Sink     Sink
	Renderer Renderer
	Feeds    FeedAssembler

	// Clock supplies "now" for date fallbacks; defaults to time.Now.
	Clock Clock
	// DefaultTemplate overrides the embedded fallback template.
	DefaultTemplate *Template
	// Concurrency bounds parallel per-entry work; defaults to 4.
	Concurrency int
	Logger      *slog.Logger
}

// Service drives one full site build: scan, resolve, render, write.
// A Service is stateless between builds; every Build is a full,
// deterministic rebuild.
type Service struct {
	source   Source
	sink     Sink
	renderer Renderer
	feeds    FeedAssembler

	clock       Clock
	defaultTpl  *Template
	concurrency int
	logger      *slog.Logger
}

// NewService creates a Service from its collaborators.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil || cfg.Sink == nil || cfg.Renderer == nil {
		return nil, errors.New("service requires a source, a sink and a renderer")
	}
	s := &Service{
		source:      cfg.Source,
		sink:        cfg.Sink,
		renderer:    cfg.Renderer,
		feeds:       cfg.Feeds,
		clock:       cfg.Clock,
		defaultTpl:  cfg.DefaultTemplate,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.defaultTpl == nil {
		s.defaultTpl = DefaultTemplate()
	}
	if s.concurrency <= 0 {
		s.concurrency = 4
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Failure is a per-file error that did not stop the run.
type Failure struct {
	Path string
	Err  error
}

// Report summarizes one build.
type Report struct {
	Pages    int
	Copies   int
	Feeds    int
	Failures []Failure
}

// Build runs the whole pipeline once. Per-file problems are collected
// in the report and logged; structural problems (unscannable root,
// unreadable template named by metadata, malformed feed skeleton)
// abort with an error.
func (s *Service) Build(ctx context.Context) (*Report, error) {
	tree, err := s.source.Scan()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	report := &Report{}

	entries, failures := s.loadEntries(ctx, tree, now)
	report.Failures = append(report.Failures, failures...)
	sortEntries(entries)

	templates, err := s.loadTemplates(entries)
	if err != nil {
		return nil, err
	}

	pageFailures := s.renderPages(ctx, entries, tree, templates)
	report.Failures = append(report.Failures, pageFailures...)
	report.Pages = len(entries) - len(pageFailures)

	copies, copyFailures := s.copyFiles(ctx, tree, templates)
	report.Copies = copies
	report.Failures = append(report.Failures, copyFailures...)

	feeds, err := s.assembleFeeds(tree, entries)
	if err != nil {
		return nil, err
	}
	report.Feeds = feeds

	for _, f := range report.Failures {
		s.logger.Warn("skipped file", "path", f.Path, "error", f.Err)
	}
	return report, nil
}

// loadEntries reads, resolves and renders every markdown source.
// Entries are independent, so the work is fanned out; a failing entry
// is dropped and reported without disturbing the others.
func (s *Service) loadEntries(ctx context.Context, tree *Tree, now time.Time) ([]*Entry, []Failure) {
	slots := make([]*Entry, len(tree.Posts))
	errs := make([]error, len(tree.Posts))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, post := range tree.Posts {
		g.Go(func() error {
			entry, err := s.loadEntry(post, now)
			if err != nil {
				errs[i] = err
				return nil
			}
			slots[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	var entries []*Entry
	var failures []Failure
	for i := range slots {
		switch {
		case slots[i] != nil:
			entries = append(entries, slots[i])
		case errs[i] != nil:
			failures = append(failures, Failure{Path: tree.Posts[i].Path, Err: errs[i]})
		}
	}
	return entries, failures
}

func (s *Service) loadEntry(post PostFile, now time.Time) (*Entry, error) {
	raw, err := s.source.ReadFile(post.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	pairs, body, err := ParseMetaBlock(post.Path, raw)
	if err != nil {
		return nil, err
	}

	fragment, headings, err := s.renderer.Render(body)
	if err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	firstHeading := func() string {
		if len(headings) > 0 {
			return headings[0].Text
		}
		return ""
	}
	meta, err := ResolveMetadata(post.Path, pairs, s.source.Timestamps(post.Path), now, firstHeading)
	if err != nil {
		return nil, err
	}

	dir := path.Dir(post.Path)
	if dir == "." {
		dir = ""
	}

	return &Entry{
		Source:   post.Path,
		Dir:      dir,
		Raw:      body,
		Meta:     meta,
		Fragment: fragment,
		Headings: headings,
		OutDir:   outDirFor(post, meta),
	}, nil
}

// outDirFor derives the output directory: the explicit path override
// wins; otherwise the source location with the page's own name
// slugified. index.md collapses onto its directory so content/index.md
// becomes the site root page.
func outDirFor(post PostFile, meta Metadata) string {
	if meta.Path != "" {
		return meta.Path
	}

	dir := path.Dir(post.Path)
	if dir == "." {
		dir = ""
	}

	// Directory-form only applies when there is a directory to name the
	// post; a root-level post.md falls through to the bare-file rule.
	if post.DirForm && dir != "" {
		parent := path.Dir(dir)
		if parent == "." {
			parent = ""
		}
		return joinRel(parent, slugify(path.Base(dir)))
	}

	stem := strings.TrimSuffix(path.Base(post.Path), path.Ext(post.Path))
	if stem == "index" {
		return dir
	}
	return joinRel(dir, slugify(stem))
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func slugify(name string) string {
	normalized, err := slug.Normalize(name)
	if err != nil || normalized == "" {
		return strings.ToLower(name)
	}
	return normalized
}

// sortEntries fixes the canonical entry order: published date
// descending, ties broken by permalink. LIST defaults and feed
// assembly both rely on it.
func sortEntries(entries []*Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Meta.Created.Equal(entries[j].Meta.Created) {
			return entries[i].Meta.Created.After(entries[j].Meta.Created)
		}
		return entries[i].Permalink() < entries[j].Permalink()
	})
}

type parsedTemplate struct {
	tpl *Template
	err error
}

// loadTemplates reads and parses every template named by metadata,
// once each. An unreadable template is a structural error: every page
// using it would be lost, and the author clearly meant it to exist. A
// template with broken directive quoting fails only the entries bound
// to it, via the parse error stored here.
func (s *Service) loadTemplates(entries []*Entry) (map[string]parsedTemplate, error) {
	templates := make(map[string]parsedTemplate)
	for _, e := range entries {
		name := e.Meta.Template
		if name == "" {
			continue
		}
		if _, done := templates[name]; done {
			continue
		}
		raw, err := s.source.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tpl, parseErr := ParseTemplate(name, string(raw))
		templates[name] = parsedTemplate{tpl: tpl, err: parseErr}
	}
	return templates, nil
}

// renderPages applies each entry's template and writes the page.
func (s *Service) renderPages(ctx context.Context, entries []*Entry, tree *Tree, templates map[string]parsedTemplate) []Failure {
	errs := make([]error, len(entries))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			errs[i] = s.renderPage(entry, entries, tree, templates)
			return nil
		})
	}
	_ = g.Wait()

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Path: entries[i].Source, Err: err})
		}
	}
	return failures
}

func (s *Service) renderPage(entry *Entry, entries []*Entry, tree *Tree, templates map[string]parsedTemplate) error {
	tpl := s.defaultTpl
	if name := entry.Meta.Template; name != "" {
		parsed := templates[name]
		if parsed.err != nil {
			return parsed.err
		}
		tpl = parsed.tpl
	}

	html, err := tpl.Apply(&RenderContext{
		Entry:   entry,
		Entries: entries,
		CSS:     CascadeFor(entry.Dir, tree.Styles),
		Files:   s.source,
	})
	if err != nil {
		return err
	}

	out := joinRel(entry.OutDir, "index.html")
	if err := s.sink.WriteFile(out, []byte(html)); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	s.logger.Debug("wrote page", "source", entry.Source, "output", out)
	return nil
}

// copyFiles reproduces every non-markdown file in the output tree,
// skipping templates consumed by metadata.
func (s *Service) copyFiles(ctx context.Context, tree *Tree, templates map[string]parsedTemplate) (int, []Failure) {
	var copies []string
	for _, rel := range tree.Copies {
		if _, isTemplate := templates[rel]; isTemplate {
			continue
		}
		copies = append(copies, rel)
	}

	errs := make([]error, len(copies))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rel := range copies {
		g.Go(func() error {
			data, err := s.source.ReadFile(rel)
			if err == nil {
				err = s.sink.WriteFile(rel, data)
			}
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	copied := 0
	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Path: copies[i], Err: err})
			continue
		}
		copied++
	}
	return copied, failures
}

// assembleFeeds post-processes every Atom skeleton. A feed collects
// the entries living in its own subtree, newest first. A malformed
// skeleton aborts the run: feeds are site infrastructure, not content.
func (s *Service) assembleFeeds(tree *Tree, entries []*Entry) (int, error) {
	if len(tree.Feeds) == 0 {
		return 0, nil
	}
	if s.feeds == nil {
		return 0, errors.New("feed files present but no feed assembler configured")
	}

	for _, rel := range tree.Feeds {
		skeleton, err := s.source.ReadFile(rel)
		if err != nil {
			return 0, fmt.Errorf("failed to read feed skeleton %s: %w", rel, err)
		}

		feedDir := path.Dir(rel)
		if feedDir == "." {
			feedDir = ""
		}
		var feedEntries []FeedEntry
		for _, e := range entries {
			if isAncestorDir(feedDir, e.Dir) {
				feedEntries = append(feedEntries, FeedEntryFor(e))
			}
		}

		filled, err := s.feeds.Assemble(rel, skeleton, feedEntries)
		if err != nil {
			return 0, err
		}
		if err := s.sink.WriteFile(rel, filled); err != nil {
			return 0, fmt.Errorf("failed to write feed %s: %w", rel, err)
		}
		s.logger.Debug("wrote feed", "path", rel, "entries", len(feedEntries))
	}
	return len(tree.Feeds), nil
}
