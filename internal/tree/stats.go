package tree

import (
	"strings"

	"repolens/internal/models"
)

// CalculateStats derives aggregate counters from a FileNode forest.
// Directories are counted once each; files with no recognized extension
// count toward the total but not toward any language tally. The walk is
// pure, so re-running it on an unchanged forest yields identical output.
func CalculateStats(forest []*models.FileNode) models.FileStats {
	stats := models.FileStats{
		Languages: make(map[string]int),
	}
	countNodes(forest, &stats)
	return stats
}

func countNodes(nodes []*models.FileNode, stats *models.FileStats) {
	for _, node := range nodes {
		if node.Type == models.NodeTypeDir {
			stats.TotalDirectories++
			countNodes(node.Children, stats)
			continue
		}

		stats.TotalFiles++
		if node.Language != "" {
			stats.Languages[node.Language]++
		}
	}
}

// RenderCompact produces a bounded, indented textual rendering of the
// forest using box-drawing connectors, one line per node. Rendering stops
// once maxLines is reached and a truncation marker is appended.
func RenderCompact(forest []*models.FileNode, maxLines int) string {
	r := &renderer{maxLines: maxLines}
	r.renderLevel(forest, "")

	if r.truncated {
		r.b.WriteString("... (tree truncated)\n")
	}
	return r.b.String()
}

type renderer struct {
	b         strings.Builder
	lines     int
	maxLines  int
	truncated bool
}

func (r *renderer) renderLevel(nodes []*models.FileNode, prefix string) {
	for i, node := range nodes {
		if r.truncated {
			return
		}
		if r.lines >= r.maxLines {
			r.truncated = true
			return
		}

		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(nodes)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		r.b.WriteString(prefix)
		r.b.WriteString(connector)
		r.b.WriteString(node.Name)
		if node.Type == models.NodeTypeDir {
			r.b.WriteString("/")
		}
		r.b.WriteString("\n")
		r.lines++

		if node.Type == models.NodeTypeDir {
			r.renderLevel(node.Children, childPrefix)
		}
	}
}
