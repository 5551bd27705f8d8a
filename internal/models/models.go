package models

import "time"

// RepoOwner represents the owning account of a repository
type RepoOwner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
	Type      string `json:"type"`
}

// RepoMetadata is an immutable snapshot of a repository at fetch time
type RepoMetadata struct {
	Name          string     `json:"name"`
	FullName      string     `json:"fullName"`
	Description   string     `json:"description"`
	Stars         int        `json:"stars"`
	Forks         int        `json:"forks"`
	Watchers      int        `json:"watchers"`
	OpenIssues    int        `json:"openIssues"`
	Language      string     `json:"language"`
	Topics        []string   `json:"topics"`
	DefaultBranch string     `json:"defaultBranch"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	PushedAt      time.Time  `json:"pushedAt"`
	Size          int        `json:"size"`
	License       string     `json:"license"`
	Private       bool       `json:"private"`
	Owner         RepoOwner  `json:"owner"`
}

// NodeType discriminates files from directories in a FileNode tree
type NodeType string

const (
	NodeTypeFile NodeType = "file"
	NodeTypeDir  NodeType = "dir"
)

// TreeEntry is a single flat entry returned by the tree listing, before
// tree construction
type TreeEntry struct {
	Path string
	Type NodeType
	Size int
}

// FileNode represents a file or directory in the repository tree.
// Children is non-nil iff the node is a directory; paths are unique
// across the whole tree.
type FileNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Type     NodeType    `json:"type"`
	Children []*FileNode `json:"children,omitempty"`
	Size     int         `json:"size,omitempty"`
	Language string      `json:"language,omitempty"`
}

// FileStats holds aggregate counters derived from a FileNode tree
type FileStats struct {
	TotalFiles       int            `json:"totalFiles"`
	TotalDirectories int            `json:"totalDirectories"`
	Languages        map[string]int `json:"languages"`
}

// QualityScores are the 0-100 scores the model assigns per dimension
type QualityScores struct {
	CodeQuality   int `json:"codeQuality"`
	Documentation int `json:"documentation"`
	Structure     int `json:"structure"`
	Maintenance   int `json:"maintenance"`
	Testing       int `json:"testing"`
	Security      int `json:"security"`
	Overall       int `json:"overall"`
}

// InsightType tags an insight as a strength, weakness, suggestion or warning
type InsightType string

const (
	InsightStrength   InsightType = "strength"
	InsightWeakness   InsightType = "weakness"
	InsightSuggestion InsightType = "suggestion"
	InsightWarning    InsightType = "warning"
)

// Insight is a single observation about the repository
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    string      `json:"priority"`
}

// RefactorSuggestion points at a concrete file or area worth reworking
type RefactorSuggestion struct {
	Target     string `json:"target"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion"`
	Effort     string `json:"effort"`
}

// AutomationSuggestion proposes CI/tooling improvements
type AutomationSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tool        string `json:"tool"`
}

// ArchComponent is one box in the architecture diagram
type ArchComponent struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	ConnectsTo  []string `json:"connectsTo"`
}

// FlowNode is a typed node in the data-flow graph
type FlowNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// FlowEdge is a labeled edge in the data-flow graph
type FlowEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// DataFlow is the model's view of how data moves through the repository
type DataFlow struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`
}

// Analysis is the structured payload parsed from the model's output
type Analysis struct {
	Summary               string                 `json:"summary"`
	TechStack             []string               `json:"techStack"`
	Scores                QualityScores          `json:"scores"`
	Insights              []Insight              `json:"insights"`
	RefactorSuggestions   []RefactorSuggestion   `json:"refactorSuggestions"`
	AutomationSuggestions []AutomationSuggestion `json:"automationSuggestions"`
	Architecture          []ArchComponent        `json:"architecture"`
	DataFlow              DataFlow               `json:"dataFlow"`
}

// AnalysisResult is the final artifact of one completed analysis
type AnalysisResult struct {
	Metadata  *RepoMetadata `json:"metadata"`
	FileTree  []*FileNode   `json:"fileTree"`
	FileStats FileStats     `json:"fileStats"`
	Analysis  *Analysis     `json:"analysis,omitempty"`
	Degraded  bool          `json:"degraded,omitempty"`
}

// CachedAnalysis wraps a persisted AnalysisResult. An entry is logically
// absent once now > ExpiresAt, even if still physically stored.
type CachedAnalysis struct {
	Result    *AnalysisResult `json:"data"`
	CreatedAt time.Time       `json:"timestamp"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Expired reports whether the entry's TTL has elapsed at the given time
func (c *CachedAnalysis) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// RateLimitInfo stores GitHub API rate limit information
type RateLimitInfo struct {
	Remaining int
	Reset     time.Time
	Limit     int
}
