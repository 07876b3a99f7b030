// Package fs implements the filesystem collaborators of the pipeline:
// the content-tree scanner (read side) and the output writer (write
// side). Core logic never touches the filesystem directly.
package fs

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/kiln/pkg/core"
)

// SourceConfig holds the configuration for the content-tree source.
type SourceConfig struct {
	// Root is the content root directory.
	Root string
	// FeedExt is the extension (without dot) of Atom skeleton files.
	FeedExt string
	// Excludes are doublestar glob patterns matched against
	// root-relative slash paths; matching files and directories are
	// left out of the scan entirely.
	Excludes []string
	Logger   *slog.Logger
}

// Source reads and classifies the content tree. It implements
// core.Source. All paths exchanged with the core are root-relative and
// slash-separated.
type Source struct {
	root     string
	feedExt  string
	excludes []string
	logger   *slog.Logger
}

// NewSource creates a Source rooted at cfg.Root. The root must already
// exist: a missing content root is a structural error, not something
// to silently create.
func NewSource(cfg SourceConfig) (*Source, error) {
	info, err := os.Stat(cfg.Root)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("content root does not exist: %s", cfg.Root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat content root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root is not a directory: %s", cfg.Root)
	}

	feedExt := cfg.FeedExt
	if feedExt == "" {
		feedExt = "atom"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		root:     cfg.Root,
		feedExt:  strings.TrimPrefix(feedExt, "."),
		excludes: cfg.Excludes,
		logger:   logger,
	}, nil
}

// Scan walks the content tree once, classifying every file. Hidden
// files and directories (dot-prefixed) are skipped, as are excluded
// globs. Results are sorted so the scan order never depends on the
// filesystem.
func (s *Source) Scan() (*core.Tree, error) {
	tree := &core.Tree{}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") || s.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name()), ".")); ext {
		case "md":
			// A post.md at the content root has no directory to take
			// its name from; it is a bare post like any other name.md.
			tree.Posts = append(tree.Posts, core.PostFile{
				Path:    rel,
				DirForm: d.Name() == core.PostFileName && strings.Contains(rel, "/"),
			})
		case "css":
			tree.Styles = append(tree.Styles, core.CSSRef{
				Path:  rel,
				Depth: strings.Count(rel, "/"),
			})
			tree.Copies = append(tree.Copies, rel)
		case s.feedExt:
			tree.Feeds = append(tree.Feeds, rel)
		default:
			tree.Copies = append(tree.Copies, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk content root: %w", err)
	}

	sort.Slice(tree.Posts, func(i, j int) bool { return tree.Posts[i].Path < tree.Posts[j].Path })
	core.SortCSSRefs(tree.Styles)
	sort.Strings(tree.Feeds)
	sort.Strings(tree.Copies)

	return tree, nil
}

func (s *Source) excluded(rel string) bool {
	for _, pattern := range s.excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		} else if err != nil {
			s.logger.Warn("invalid exclude pattern", "pattern", pattern, "error", err)
		}
	}
	return false
}

// ReadFile reads a root-relative file.
func (s *Source) ReadFile(rel string) ([]byte, error) {
	abs, err := s.abs(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// IsDir reports whether the root-relative path exists and is a
// directory.
func (s *Source) IsDir(rel string) bool {
	abs, err := s.abs(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}

// Timestamps reports file times. Modification time comes from the
// filesystem; creation time only on platforms whose stat records one
// (see the birthtime files), elsewhere the metadata resolver falls
// through to its next source.
func (s *Source) Timestamps(rel string) core.Timestamps {
	ts := core.Timestamps{}
	abs, err := s.abs(rel)
	if err != nil {
		return ts
	}
	info, err := os.Stat(abs)
	if err != nil {
		s.logger.Warn("failed to stat source file", "path", rel, "error", err)
		return ts
	}
	ts.Modified = info.ModTime()
	ts.ModifiedOK = true
	if created, ok := birthTime(info); ok {
		ts.Created = created
		ts.CreatedOK = true
	}
	return ts
}

func (s *Source) abs(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("path escapes content root: %s", rel)
	}
	return filepath.Join(s.root, cleaned), nil
}
