package analysis

import (
	"encoding/json"

	"repolens/internal/models"
)

// degradedSummary marks results whose model output could not be parsed.
// The repository data in such a result is still valid.
const degradedSummary = "Analysis completed with parsing issues; repository data is available but the model output could not be interpreted."

// ExtractJSON returns the first balanced JSON object embedded in text,
// tolerating prose before and after it. Unlike a greedy first-to-last
// brace match, the scanner tracks string literals and escapes, so braces
// inside strings or trailing JSON-like prose cannot derail it.
func ExtractJSON(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if start < 0 {
			if ch == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}

	return "", false
}

// Parse assembles the final AnalysisResult from the accumulated stream
// text and the already-fetched repository data. Absent fields fall back
// to empty values; a completely unparseable output yields a degraded
// result that still carries the repository data, never a hard failure.
func Parse(content string, meta *models.RepoMetadata, fileTree []*models.FileNode, stats models.FileStats) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Metadata:  meta,
		FileTree:  fileTree,
		FileStats: stats,
	}

	raw, ok := ExtractJSON(content)
	if !ok {
		result.Analysis = &models.Analysis{Summary: degradedSummary}
		result.Degraded = true
		return result
	}

	var parsed models.Analysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		result.Analysis = &models.Analysis{Summary: degradedSummary}
		result.Degraded = true
		return result
	}

	applyFallbacks(&parsed)
	result.Analysis = &parsed
	return result
}

// applyFallbacks replaces nil collections with empty ones so consumers
// can range without nil checks
func applyFallbacks(a *models.Analysis) {
	if a.TechStack == nil {
		a.TechStack = []string{}
	}
	if a.Insights == nil {
		a.Insights = []models.Insight{}
	}
	if a.RefactorSuggestions == nil {
		a.RefactorSuggestions = []models.RefactorSuggestion{}
	}
	if a.AutomationSuggestions == nil {
		a.AutomationSuggestions = []models.AutomationSuggestion{}
	}
	if a.Architecture == nil {
		a.Architecture = []models.ArchComponent{}
	}
	if a.DataFlow.Nodes == nil {
		a.DataFlow.Nodes = []models.FlowNode{}
	}
	if a.DataFlow.Edges == nil {
		a.DataFlow.Edges = []models.FlowEdge{}
	}
}
