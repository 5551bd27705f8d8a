package prompt

import (
	"fmt"
	"sort"
	"strings"

	"repolens/internal/config"
	"repolens/internal/models"
)

// schemaTemplate is the literal output schema the model is instructed to
// follow. It is rendered into the prompt as-is; conformance of the actual
// output is the consumer's problem, not the builder's.
const schemaTemplate = `{
  "summary": "2-3 sentence overview of what this repository does and how well it does it",
  "techStack": ["list", "of", "technologies"],
  "scores": {
    "codeQuality": 0-100,
    "documentation": 0-100,
    "structure": 0-100,
    "maintenance": 0-100,
    "testing": 0-100,
    "security": 0-100,
    "overall": 0-100
  },
  "insights": [
    {"type": "strength|weakness|suggestion|warning", "title": "...", "description": "...", "priority": "high|medium|low"}
  ],
  "refactorSuggestions": [
    {"target": "path/to/file", "reason": "...", "suggestion": "...", "effort": "small|medium|large"}
  ],
  "automationSuggestions": [
    {"title": "...", "description": "...", "tool": "..."}
  ],
  "architecture": [
    {"name": "...", "type": "service|library|ui|storage|config", "description": "...", "connectsTo": ["..."]}
  ],
  "dataFlow": {
    "nodes": [{"id": "...", "label": "...", "type": "input|process|output|storage"}],
    "edges": [{"from": "...", "to": "...", "label": "..."}]
  }
}`

// Builder composes the bounded analysis prompt
type Builder struct {
	limits config.LimitsConfig
}

// NewBuilder creates a prompt builder with the configured content limits
func NewBuilder(limits config.LimitsConfig) *Builder {
	return &Builder{limits: limits}
}

// Build composes a single prompt from the repository metadata, the
// derived stats, the compact tree rendering and the important file
// excerpts. The function is pure: identical inputs yield an identical
// prompt.
func (b *Builder) Build(meta *models.RepoMetadata, stats models.FileStats, compactTree string, files map[string]string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert software architect reviewing a GitHub repository.\n")
	sb.WriteString("Analyze the repository below and respond with a single JSON object.\n\n")

	sb.WriteString("## Repository\n\n")
	sb.WriteString("| Property | Value |\n")
	sb.WriteString("|----------|-------|\n")
	fmt.Fprintf(&sb, "| Name | %s |\n", meta.FullName)
	fmt.Fprintf(&sb, "| Description | %s |\n", meta.Description)
	fmt.Fprintf(&sb, "| Primary language | %s |\n", meta.Language)
	fmt.Fprintf(&sb, "| Stars | %d |\n", meta.Stars)
	fmt.Fprintf(&sb, "| Forks | %d |\n", meta.Forks)
	fmt.Fprintf(&sb, "| Open issues | %d |\n", meta.OpenIssues)
	fmt.Fprintf(&sb, "| Topics | %s |\n", strings.Join(meta.Topics, ", "))
	fmt.Fprintf(&sb, "| License | %s |\n", meta.License)
	fmt.Fprintf(&sb, "| Last pushed | %s |\n", meta.PushedAt.Format("2006-01-02"))
	fmt.Fprintf(&sb, "| Files | %d |\n", stats.TotalFiles)
	fmt.Fprintf(&sb, "| Directories | %d |\n", stats.TotalDirectories)

	sb.WriteString("\n## File tree\n\n```\n")
	sb.WriteString(compactTree)
	sb.WriteString("```\n")

	if len(files) > 0 {
		sb.WriteString("\n## Key files\n")
		for _, path := range sortedPaths(files, b.limits.MaxPromptFiles) {
			content := files[path]
			if len(content) > b.limits.MaxFileChars {
				content = content[:b.limits.MaxFileChars]
			}
			fmt.Fprintf(&sb, "\n### %s\n\n```\n%s\n```\n", path, content)
		}
	}

	sb.WriteString("\n## Output format\n\n")
	sb.WriteString("Respond with JSON matching this schema exactly:\n\n")
	sb.WriteString(schemaTemplate)
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown fences, no prose before or after.\n")
	sb.WriteString("- Reference real file paths from the tree above; never invent paths.\n")
	sb.WriteString("- Base every score on visible evidence, not on the project's reputation.\n")
	sb.WriteString("- Provide at least 3 insights, 2 refactor suggestions, 2 automation suggestions and 3 architecture components.\n")

	return sb.String()
}

// sortedPaths returns up to max file paths in deterministic order
func sortedPaths(files map[string]string, max int) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	if len(paths) > max {
		paths = paths[:max]
	}
	return paths
}
