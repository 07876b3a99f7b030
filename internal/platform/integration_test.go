package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/kiln"
	"github.com/aretw0/kiln/internal/platform"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	}
}

func TestBuild_RealFilesystem(t *testing.T) {
	tmp := t.TempDir()
	content := filepath.Join(tmp, "content")
	output := filepath.Join(tmp, "dist")

	writeTree(t, content, map[string]string{
		"index.md":      "```meta\ntitle = Home\ndate = 2024-01-01\n```\n# Welcome\n\nHello from kiln.\n",
		"blog/hello.md": "# Hello World\n\nFirst post.\n",
		"style.css":     "body { margin: 0; }",
		"feed.atom":     `<feed xmlns="http://www.w3.org/2005/Atom"><title>Site</title><link href="https://example.com/"/></feed>`,
	})

	svc, err := kiln.New(content,
		kiln.WithOutputDir(output),
		kiln.WithClock(fixedClock()),
	)
	require.NoError(t, err)

	report, err := svc.Build(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Failures)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 1, report.Copies)
	assert.Equal(t, 1, report.Feeds)

	home, err := os.ReadFile(filepath.Join(output, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(home), "<title>Home</title>")
	assert.Contains(t, string(home), "Hello from kiln.")

	hello, err := os.ReadFile(filepath.Join(output, "blog", "hello", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(hello), "<title>Hello World</title>")
	assert.Contains(t, string(hello), `id="hello-world"`)

	_, err = os.Stat(filepath.Join(output, "style.css"))
	assert.NoError(t, err)

	atom, err := os.ReadFile(filepath.Join(output, "feed.atom"))
	require.NoError(t, err)
	assert.Contains(t, string(atom), "Hello World")
	assert.Contains(t, string(atom), "https://example.com/blog/hello/")
}

func TestBuild_Deterministic(t *testing.T) {
	tmp := t.TempDir()
	content := filepath.Join(tmp, "content")
	writeTree(t, content, map[string]string{
		"a.md": "```meta\ndate = 2024-01-01\n```\n# A\n",
		"b.md": "```meta\ndate = 2024-02-01\n```\n# B\n",
	})

	build := func(output string) map[string]string {
		svc, err := kiln.New(content,
			kiln.WithOutputDir(output),
			kiln.WithClock(fixedClock()),
		)
		require.NoError(t, err)
		_, err = svc.Build(context.Background())
		require.NoError(t, err)

		pages := make(map[string]string)
		err = filepath.Walk(output, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			data, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			rel, _ := filepath.Rel(output, path)
			pages[filepath.ToSlash(rel)] = string(data)
			return nil
		})
		require.NoError(t, err)
		return pages
	}

	first := build(filepath.Join(tmp, "out1"))
	second := build(filepath.Join(tmp, "out2"))
	assert.Equal(t, first, second)
}

func TestBuild_CustomDefaultTemplate(t *testing.T) {
	tmp := t.TempDir()
	content := filepath.Join(tmp, "content")
	output := filepath.Join(tmp, "dist")
	writeTree(t, content, map[string]string{
		"index.md":    "# Hi\n",
		"layout.html": "<html><body id=\"custom\"><!--P/CONTENTS/P--></body></html>",
	})

	svc, err := kiln.New(content,
		kiln.WithOutputDir(output),
		kiln.WithDefaultTemplate("layout.html"),
	)
	require.NoError(t, err)

	_, err = svc.Build(context.Background())
	require.NoError(t, err)

	home, err := os.ReadFile(filepath.Join(output, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(home), `id="custom"`)
}

func TestBuild_Excludes(t *testing.T) {
	tmp := t.TempDir()
	content := filepath.Join(tmp, "content")
	output := filepath.Join(tmp, "dist")
	writeTree(t, content, map[string]string{
		"index.md":      "# Hi\n",
		"drafts/wip.md": "# WIP\n",
	})

	svc, err := kiln.New(content,
		kiln.WithOutputDir(output),
		kiln.WithExclude("drafts/**"),
	)
	require.NoError(t, err)

	report, err := svc.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pages)

	_, err = os.Stat(filepath.Join(output, "wip", "index.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_MissingRoot(t *testing.T) {
	_, err := kiln.New(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, platform.ConfigFileName)

	t.Run("missing file", func(t *testing.T) {
		cfg, found, err := platform.LoadConfig(cfgPath)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, cfg.Options())
	})

	t.Run("parsed and converted", func(t *testing.T) {
		yaml := "source: content\noutput: public\nfeed_ext: xml\nexclude:\n  - drafts/**\njobs: 2\n"
		require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

		cfg, found, err := platform.LoadConfig(cfgPath)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "content", cfg.Source)
		assert.Equal(t, "public", cfg.Output)
		assert.Equal(t, "xml", cfg.FeedExt)
		assert.Equal(t, []string{"drafts/**"}, cfg.Exclude)
		assert.Len(t, cfg.Options(), 4)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		require.NoError(t, os.WriteFile(cfgPath, []byte(":\n  - ["), 0644))
		_, _, err := platform.LoadConfig(cfgPath)
		require.Error(t, err)
	})
}
