package tree

import (
	"sort"
	"strings"

	"repolens/internal/models"
)

// Build folds a flat list of tree entries into a nested FileNode forest.
// Entries are sorted lexicographically by path first, so a parent
// directory is always seen before its children; missing intermediate
// directories are created on demand anyway, in case filtering dropped a
// parent entry. The finished forest is re-sorted so that directories
// precede files at every level and siblings are alphabetical.
func Build(entries []models.TreeEntry) []*models.FileNode {
	sorted := make([]models.TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	var roots []*models.FileNode
	lookup := make(map[string]*models.FileNode, len(sorted))

	attach := func(node *models.FileNode, parentPath string) {
		if parentPath == "" {
			roots = append(roots, node)
			return
		}
		parent := ensureDir(parentPath, lookup, &roots)
		parent.Children = append(parent.Children, node)
	}

	for _, entry := range sorted {
		if _, exists := lookup[entry.Path]; exists {
			continue
		}

		name := entry.Path
		parentPath := ""
		if idx := strings.LastIndex(entry.Path, "/"); idx >= 0 {
			name = entry.Path[idx+1:]
			parentPath = entry.Path[:idx]
		}

		node := &models.FileNode{
			Name: name,
			Path: entry.Path,
			Type: entry.Type,
		}
		if entry.Type == models.NodeTypeDir {
			node.Children = []*models.FileNode{}
		} else {
			node.Size = entry.Size
			node.Language = DetectLanguage(name)
		}

		lookup[entry.Path] = node
		attach(node, parentPath)
	}

	sortForest(roots)
	return roots
}

// ensureDir returns the directory node for path, creating it and any
// missing ancestors
func ensureDir(path string, lookup map[string]*models.FileNode, roots *[]*models.FileNode) *models.FileNode {
	if node, ok := lookup[path]; ok {
		return node
	}

	name := path
	parentPath := ""
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
		parentPath = path[:idx]
	}

	node := &models.FileNode{
		Name:     name,
		Path:     path,
		Type:     models.NodeTypeDir,
		Children: []*models.FileNode{},
	}
	lookup[path] = node

	if parentPath == "" {
		*roots = append(*roots, node)
	} else {
		parent := ensureDir(parentPath, lookup, roots)
		parent.Children = append(parent.Children, node)
	}

	return node
}

// sortForest orders siblings directories-first, then alphabetically,
// recursively
func sortForest(nodes []*models.FileNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type == models.NodeTypeDir
		}
		return nodes[i].Name < nodes[j].Name
	})

	for _, node := range nodes {
		if len(node.Children) > 0 {
			sortForest(node.Children)
		}
	}
}
