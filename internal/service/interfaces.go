package service

import (
	"context"

	"repolens/internal/models"
)

// GitHubClient defines the repository data fetcher operations
type GitHubClient interface {
	GetRepository(ctx context.Context, owner, repo string) (*models.RepoMetadata, error)
	GetFilteredTree(ctx context.Context, owner, repo, branch string) ([]models.TreeEntry, error)
	GetImportantFiles(ctx context.Context, owner, repo string) (map[string]string, error)
	GetRateLimitInfo() models.RateLimitInfo
}

// CompletionClient defines the streaming completion service contract:
// one prompt in, an ordered sequence of text deltas out
type CompletionClient interface {
	Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error
}
