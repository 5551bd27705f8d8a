package tree

import "strings"

// languageByExtension maps file extensions to language names for the
// per-language tally. Unlisted extensions are simply not tallied.
var languageByExtension = map[string]string{
	".go":     "Go",
	".js":     "JavaScript",
	".jsx":    "JavaScript",
	".ts":     "TypeScript",
	".tsx":    "TypeScript",
	".py":     "Python",
	".rb":     "Ruby",
	".rs":     "Rust",
	".java":   "Java",
	".kt":     "Kotlin",
	".swift":  "Swift",
	".c":      "C",
	".h":      "C",
	".cpp":    "C++",
	".cc":     "C++",
	".hpp":    "C++",
	".cs":     "C#",
	".php":    "PHP",
	".scala":  "Scala",
	".ex":     "Elixir",
	".exs":    "Elixir",
	".erl":    "Erlang",
	".hs":     "Haskell",
	".lua":    "Lua",
	".sh":     "Shell",
	".bash":   "Shell",
	".zig":    "Zig",
	".dart":   "Dart",
	".r":      "R",
	".sql":    "SQL",
	".html":   "HTML",
	".css":    "CSS",
	".scss":   "CSS",
	".vue":    "Vue",
	".svelte": "Svelte",
	".json":   "JSON",
	".yaml":   "YAML",
	".yml":    "YAML",
	".toml":   "TOML",
	".md":     "Markdown",
}

// DetectLanguage returns the language for a file name, or "" when the
// extension is not recognized
func DetectLanguage(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return languageByExtension[strings.ToLower(name[idx:])]
}
