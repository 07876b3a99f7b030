package platform

import (
	"log/slog"

	"github.com/aretw0/kiln/pkg/core"
)

// options holds the internal configuration for a kiln build.
type options struct {
	source   core.Source
	sink     core.Sink
	renderer core.Renderer

	outputDir   string
	templateRef string
	feedExt     string
	excludes    []string
	concurrency int
	clock       core.Clock
	logger      *slog.Logger
}

// Option defines a functional option for configuring kiln.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		outputDir: "dist",
		feedExt:   "atom",
	}
}

// WithOutputDir sets the directory generated pages are written to.
// Defaults to "dist".
func WithOutputDir(dir string) Option {
	return func(o *options) {
		o.outputDir = dir
	}
}

// WithDefaultTemplate sets the template applied to pages whose
// metadata names none, as a path relative to the content root. When
// unset, a built-in template is used.
func WithDefaultTemplate(rel string) Option {
	return func(o *options) {
		o.templateRef = rel
	}
}

// WithFeedExtension sets the file extension (without dot) that marks
// Atom feed skeletons. Defaults to "atom".
func WithFeedExtension(ext string) Option {
	return func(o *options) {
		o.feedExt = ext
	}
}

// WithExclude adds glob patterns for source paths to ignore. Patterns
// are matched against root-relative paths and support ** globs.
func WithExclude(patterns ...string) Option {
	return func(o *options) {
		o.excludes = append(o.excludes, patterns...)
	}
}

// WithConcurrency bounds the number of pages processed in parallel.
// Zero or negative means the built-in default.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithClock overrides the time source used for date fallbacks. Useful
// for reproducible builds and tests.
func WithClock(clock core.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSource injects a custom content source, skipping the default
// filesystem adapter.
func WithSource(src core.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithSink injects a custom output sink, skipping the default
// filesystem adapter.
func WithSink(sink core.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithRenderer injects a custom markdown renderer.
func WithRenderer(r core.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}
