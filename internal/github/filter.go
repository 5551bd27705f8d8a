package github

import "strings"

// importantFiles is the ordered allow-list of paths fetched to give the
// completion service representative context. Order matters: manifests
// first, so they survive the global content budget.
var importantFiles = []string{
	"package.json",
	"go.mod",
	"Cargo.toml",
	"pyproject.toml",
	"requirements.txt",
	"composer.json",
	"pom.xml",
	"build.gradle",
	"Gemfile",
	"README.md",
	"Dockerfile",
	"docker-compose.yml",
	"Makefile",
	"tsconfig.json",
	"vite.config.ts",
	"next.config.js",
}

// excludedSegments are path segments dropped from the tree: build output,
// dependency directories and version-control internals
var excludedSegments = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	"coverage":     true,
	"__pycache__":  true,
	".next":        true,
	".nuxt":        true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
}

// excludedFiles are exact file names dropped from the tree, mostly
// lockfiles
var excludedFiles = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"Cargo.lock":        true,
	"go.sum":            true,
	"composer.lock":     true,
	"Gemfile.lock":      true,
	"poetry.lock":       true,
	".DS_Store":         true,
}

// excludedSuffixes drop minified and binary assets
var excludedSuffixes = []string{
	".min.js",
	".min.css",
	".map",
	".png",
	".jpg",
	".jpeg",
	".gif",
	".ico",
	".svg",
	".woff",
	".woff2",
	".ttf",
	".eot",
	".mp3",
	".mp4",
	".webm",
	".zip",
	".gz",
	".tar",
	".pdf",
	".exe",
	".dll",
	".so",
	".dylib",
	".wasm",
	".lock",
}

// isExcluded reports whether a tree path matches the exclusion list
func isExcluded(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if excludedSegments[segment] {
			return true
		}
	}

	name := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
	}
	if excludedFiles[name] {
		return true
	}

	lower := strings.ToLower(name)
	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}

	return false
}
