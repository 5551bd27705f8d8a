package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/models"
)

func TestBuild(t *testing.T) {
	t.Run("nests children under their directories", func(t *testing.T) {
		entries := []models.TreeEntry{
			{Path: "cmd", Type: models.NodeTypeDir},
			{Path: "cmd/server", Type: models.NodeTypeDir},
			{Path: "cmd/server/main.go", Type: models.NodeTypeFile, Size: 120},
			{Path: "go.mod", Type: models.NodeTypeFile, Size: 30},
		}

		forest := Build(entries)
		require.Len(t, forest, 2)

		// Directories sort before files
		assert.Equal(t, "cmd", forest[0].Name)
		assert.Equal(t, models.NodeTypeDir, forest[0].Type)
		assert.Equal(t, "go.mod", forest[1].Name)

		require.Len(t, forest[0].Children, 1)
		server := forest[0].Children[0]
		assert.Equal(t, "cmd/server", server.Path)
		require.Len(t, server.Children, 1)
		assert.Equal(t, "cmd/server/main.go", server.Children[0].Path)
		assert.Equal(t, 120, server.Children[0].Size)
		assert.Equal(t, "Go", server.Children[0].Language)
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		// The parent entries were dropped by filtering; only the leaf
		// survived.
		entries := []models.TreeEntry{
			{Path: "internal/app/handler.go", Type: models.NodeTypeFile, Size: 10},
		}

		forest := Build(entries)
		require.Len(t, forest, 1)
		assert.Equal(t, "internal", forest[0].Name)
		assert.Equal(t, models.NodeTypeDir, forest[0].Type)

		require.Len(t, forest[0].Children, 1)
		app := forest[0].Children[0]
		assert.Equal(t, "internal/app", app.Path)
		assert.Equal(t, models.NodeTypeDir, app.Type)

		require.Len(t, app.Children, 1)
		assert.Equal(t, "internal/app/handler.go", app.Children[0].Path)
	})

	t.Run("directory children are non-nil even when empty", func(t *testing.T) {
		forest := Build([]models.TreeEntry{
			{Path: "empty", Type: models.NodeTypeDir},
		})
		require.Len(t, forest, 1)
		assert.NotNil(t, forest[0].Children)
		assert.Empty(t, forest[0].Children)
	})

	t.Run("file children are nil", func(t *testing.T) {
		forest := Build([]models.TreeEntry{
			{Path: "main.go", Type: models.NodeTypeFile},
		})
		require.Len(t, forest, 1)
		assert.Nil(t, forest[0].Children)
	})

	t.Run("duplicate paths are collapsed", func(t *testing.T) {
		forest := Build([]models.TreeEntry{
			{Path: "main.go", Type: models.NodeTypeFile},
			{Path: "main.go", Type: models.NodeTypeFile},
		})
		assert.Len(t, forest, 1)
	})

	t.Run("siblings sort directories first then alphabetically", func(t *testing.T) {
		forest := Build([]models.TreeEntry{
			{Path: "zeta.go", Type: models.NodeTypeFile},
			{Path: "alpha.go", Type: models.NodeTypeFile},
			{Path: "pkg", Type: models.NodeTypeDir},
			{Path: "cmd", Type: models.NodeTypeDir},
		})

		names := make([]string, len(forest))
		for i, node := range forest {
			names[i] = node.Name
		}
		assert.Equal(t, []string{"cmd", "pkg", "alpha.go", "zeta.go"}, names)
	})

	t.Run("empty input yields empty forest", func(t *testing.T) {
		assert.Empty(t, Build(nil))
	})
}

func TestCalculateStats(t *testing.T) {
	entries := []models.TreeEntry{
		{Path: "cmd", Type: models.NodeTypeDir},
		{Path: "cmd/main.go", Type: models.NodeTypeFile},
		{Path: "internal", Type: models.NodeTypeDir},
		{Path: "internal/app.go", Type: models.NodeTypeFile},
		{Path: "web", Type: models.NodeTypeDir},
		{Path: "web/index.ts", Type: models.NodeTypeFile},
		{Path: "LICENSE", Type: models.NodeTypeFile},
	}
	forest := Build(entries)

	stats := CalculateStats(forest)
	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, 3, stats.TotalDirectories)
	assert.Equal(t, 2, stats.Languages["Go"])
	assert.Equal(t, 1, stats.Languages["TypeScript"])

	// Extension-less files count toward totals but not languages
	sum := 0
	for _, n := range stats.Languages {
		sum += n
	}
	assert.Equal(t, 3, sum)

	// Recomputing on the same forest gives identical results
	assert.Equal(t, stats, CalculateStats(forest))
}

func TestRenderCompact(t *testing.T) {
	t.Run("renders nested structure with connectors", func(t *testing.T) {
		forest := Build([]models.TreeEntry{
			{Path: "cmd", Type: models.NodeTypeDir},
			{Path: "cmd/main.go", Type: models.NodeTypeFile},
			{Path: "go.mod", Type: models.NodeTypeFile},
		})

		out := RenderCompact(forest, 100)
		assert.Contains(t, out, "├── cmd/")
		assert.Contains(t, out, "└── main.go")
		assert.Contains(t, out, "└── go.mod")
		assert.NotContains(t, out, "tree truncated")
	})

	t.Run("truncates at the line ceiling", func(t *testing.T) {
		entries := make([]models.TreeEntry, 20)
		for i := range entries {
			entries[i] = models.TreeEntry{
				Path: strings.Repeat("x", i+1) + ".go",
				Type: models.NodeTypeFile,
			}
		}

		out := RenderCompact(Build(entries), 5)
		assert.Contains(t, out, "... (tree truncated)")
		// 5 node lines plus the marker
		assert.Equal(t, 6, strings.Count(out, "\n"))
	})

	t.Run("empty forest renders nothing", func(t *testing.T) {
		assert.Equal(t, "", RenderCompact(nil, 10))
	})
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"main.go":      "Go",
		"app.tsx":      "TypeScript",
		"script.PY":    "Python",
		"style.css":    "CSS",
		"README.md":    "Markdown",
		"Makefile":     "",
		"binary.xyz12": "",
	}
	for name, want := range cases {
		assert.Equal(t, want, DetectLanguage(name), "file %s", name)
	}
}
