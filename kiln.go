package kiln

import (
	"log/slog"

	"github.com/aretw0/kiln/internal/platform"
	"github.com/aretw0/kiln/pkg/core"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

// Service is a public alias for the build pipeline service.
type Service = core.Service

// Report is a public alias for the build report.
type Report = core.Report

// Metadata is a public alias for resolved page metadata.
type Metadata = core.Metadata

// --- Configuration ---

// Option defines a functional option for configuring kiln.
type Option = platform.Option

// WithOutputDir sets the directory generated pages are written to.
func WithOutputDir(dir string) Option {
	return platform.WithOutputDir(dir)
}

// WithDefaultTemplate sets the template used by pages whose metadata names none.
func WithDefaultTemplate(rel string) Option {
	return platform.WithDefaultTemplate(rel)
}

// WithFeedExtension sets the extension that marks Atom feed skeletons.
func WithFeedExtension(ext string) Option {
	return platform.WithFeedExtension(ext)
}

// WithExclude adds glob patterns for source paths to ignore.
func WithExclude(patterns ...string) Option {
	return platform.WithExclude(patterns...)
}

// WithConcurrency bounds the number of pages processed in parallel.
func WithConcurrency(n int) Option {
	return platform.WithConcurrency(n)
}

// WithClock overrides the time source used for date fallbacks.
func WithClock(clock core.Clock) Option {
	return platform.WithClock(clock)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithSource allows injecting a custom content source (e.g. mock, archive).
func WithSource(src core.Source) Option {
	return platform.WithSource(src)
}

// WithSink allows injecting a custom output sink.
func WithSink(sink core.Sink) Option {
	return platform.WithSink(sink)
}

// WithRenderer allows injecting a custom markdown renderer.
func WithRenderer(r core.Renderer) Option {
	return platform.WithRenderer(r)
}

// --- Factory ---

// New creates a build Service for the content tree rooted at root.
func New(root string, opts ...Option) (*core.Service, error) {
	return platform.New(root, opts...)
}
