package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/config"
	"repolens/internal/models"
)

func testBuilder() *Builder {
	return NewBuilder(config.LimitsConfig{
		MaxFileChars:   3000,
		MaxPromptFiles: 8,
	})
}

func testMeta() *models.RepoMetadata {
	return &models.RepoMetadata{
		FullName:    "owner/repo",
		Description: "A test repository",
		Language:    "Go",
		Stars:       42,
		Forks:       7,
		OpenIssues:  3,
		Topics:      []string{"web", "api"},
		License:     "MIT",
		PushedAt:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuild(t *testing.T) {
	b := testBuilder()
	stats := models.FileStats{TotalFiles: 10, TotalDirectories: 4}
	tree := "├── cmd/\n└── go.mod\n"
	files := map[string]string{
		"go.mod":    "module repo",
		"README.md": "# Repo",
	}

	prompt := b.Build(testMeta(), stats, tree, files)

	t.Run("includes repository properties", func(t *testing.T) {
		assert.Contains(t, prompt, "| Name | owner/repo |")
		assert.Contains(t, prompt, "| Primary language | Go |")
		assert.Contains(t, prompt, "| Stars | 42 |")
		assert.Contains(t, prompt, "| Topics | web, api |")
		assert.Contains(t, prompt, "| Last pushed | 2026-05-01 |")
		assert.Contains(t, prompt, "| Files | 10 |")
	})

	t.Run("includes the rendered tree", func(t *testing.T) {
		assert.Contains(t, prompt, "├── cmd/")
	})

	t.Run("includes key file excerpts", func(t *testing.T) {
		assert.Contains(t, prompt, "### go.mod")
		assert.Contains(t, prompt, "module repo")
		assert.Contains(t, prompt, "### README.md")
	})

	t.Run("includes the output schema and rules", func(t *testing.T) {
		assert.Contains(t, prompt, `"refactorSuggestions"`)
		assert.Contains(t, prompt, "Return ONLY the JSON object")
	})

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, prompt, b.Build(testMeta(), stats, tree, files))
	})
}

func TestBuildLimits(t *testing.T) {
	t.Run("file content is truncated", func(t *testing.T) {
		b := NewBuilder(config.LimitsConfig{MaxFileChars: 10, MaxPromptFiles: 8})
		files := map[string]string{"README.md": strings.Repeat("z", 100)}

		prompt := b.Build(testMeta(), models.FileStats{}, "", files)
		assert.Contains(t, prompt, strings.Repeat("z", 10))
		assert.NotContains(t, prompt, strings.Repeat("z", 11))
	})

	t.Run("file count is capped deterministically", func(t *testing.T) {
		b := NewBuilder(config.LimitsConfig{MaxFileChars: 100, MaxPromptFiles: 2})
		files := map[string]string{
			"a.txt": "A",
			"b.txt": "B",
			"c.txt": "C",
		}

		prompt := b.Build(testMeta(), models.FileStats{}, "", files)
		assert.Contains(t, prompt, "### a.txt")
		assert.Contains(t, prompt, "### b.txt")
		assert.NotContains(t, prompt, "### c.txt")
	})
}

func TestBuildWithoutFiles(t *testing.T) {
	b := testBuilder()
	prompt := b.Build(testMeta(), models.FileStats{}, "", nil)
	require.NotEmpty(t, prompt)
	assert.NotContains(t, prompt, "## Key files")
}
