package platform

import (
	"fmt"

	"github.com/aretw0/kiln/pkg/adapters/fs"
	"github.com/aretw0/kiln/pkg/adapters/goldmark"
	"github.com/aretw0/kiln/pkg/core"
	"github.com/aretw0/kiln/pkg/feed"
)

// New assembles a build service for the content tree rooted at root.
//
//	svc, err := kiln.New("./content", kiln.WithOutputDir("./public"))
func New(root string, opts ...Option) (*core.Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	source := o.source
	if source == nil {
		var err error
		source, err = fs.NewSource(fs.SourceConfig{
			Root:     root,
			FeedExt:  o.feedExt,
			Excludes: o.excludes,
			Logger:   o.logger,
		})
		if err != nil {
			return nil, err
		}
	}

	sink := o.sink
	if sink == nil {
		sink = fs.NewSink(o.outputDir)
	}

	renderer := o.renderer
	if renderer == nil {
		renderer = goldmark.New()
	}

	var defaultTpl *core.Template
	if o.templateRef != "" {
		raw, err := source.ReadFile(o.templateRef)
		if err != nil {
			return nil, fmt.Errorf("failed to read default template %s: %w", o.templateRef, err)
		}
		defaultTpl, err = core.ParseTemplate(o.templateRef, string(raw))
		if err != nil {
			return nil, err
		}
	}

	return core.NewService(core.ServiceConfig{
		Source:          source,
		Sink:            sink,
		Renderer:        renderer,
		Feeds:           feed.Assembler{},
		Clock:           o.clock,
		DefaultTemplate: defaultTpl,
		Concurrency:     o.concurrency,
		Logger:          o.logger,
	})
}
