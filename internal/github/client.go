package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"repolens/internal/config"
	apperrors "repolens/internal/errors"
	"repolens/internal/models"
)

var baseURL = "https://api.github.com"

// fallbackBranch is tried once when the assumed branch has no tree
const fallbackBranch = "master"

// Client handles interactions with the GitHub API. A missing token is
// not an error; it only lowers the upstream rate limit.
type Client struct {
	httpClient *http.Client
	limits     config.LimitsConfig

	// Rate limiting
	rateLimitMu sync.RWMutex
	rateLimit   models.RateLimitInfo
}

// NewClient creates a new GitHub API client. When a token is present the
// underlying transport injects it as a bearer credential.
func NewClient(token string, limits config.LimitsConfig) *Client {
	var httpClient *http.Client
	if token == "" {
		httpClient = &http.Client{}
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = time.Second * 30

	return &Client{
		httpClient: httpClient,
		limits:     limits,
		rateLimit: models.RateLimitInfo{
			Remaining: 60, // unauthenticated GitHub API default
			Reset:     time.Now().Add(time.Hour),
			Limit:     60,
		},
	}
}

// repoResponse represents the GitHub repository response
type repoResponse struct {
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	WatchersCount   int       `json:"watchers_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Language        string    `json:"language"`
	Topics          []string  `json:"topics"`
	DefaultBranch   string    `json:"default_branch"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
	Size            int       `json:"size"`
	Private         bool      `json:"private"`
	License         *struct {
		SpdxID string `json:"spdx_id"`
	} `json:"license"`
	Owner struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
		Type      string `json:"type"`
	} `json:"owner"`
}

// treeResponse represents the GitHub recursive tree response
type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int    `json:"size"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// contentResponse represents the GitHub file contents response
type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
}

// GetRateLimitInfo returns the current rate limit information
func (c *Client) GetRateLimitInfo() models.RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

// updateRateLimit updates rate limit information from response headers
func (c *Client) updateRateLimit(resp *http.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}

	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			c.rateLimit.Reset = time.Unix(val, 0)
		}
	}

	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
}

// doRequest performs a GET against the GitHub API and classifies the
// common failure statuses
func (c *Client) doRequest(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	c.updateRateLimit(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, apperrors.ErrRepoNotFound
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		resp.Body.Close()
		return nil, apperrors.ErrGitHubRateLimited
	case resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, apperrors.ErrGitHubForbidden
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp, nil
}

// GetRepository fetches repository metadata from GitHub
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*models.RepoMetadata, error) {
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	resp, err := c.doRequest(ctx, path)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRepoNotFound) || apperrors.Is(err, apperrors.ErrGitHubRateLimited) {
			return nil, err
		}
		return nil, apperrors.NewGitHubError("GetRepository", path, err)
	}
	defer resp.Body.Close()

	var rr repoResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, apperrors.NewGitHubError("GetRepository", path, fmt.Errorf("decoding response: %w", err))
	}

	meta := &models.RepoMetadata{
		Name:          rr.Name,
		FullName:      rr.FullName,
		Description:   rr.Description,
		Stars:         rr.StargazersCount,
		Forks:         rr.ForksCount,
		Watchers:      rr.WatchersCount,
		OpenIssues:    rr.OpenIssuesCount,
		Language:      rr.Language,
		Topics:        rr.Topics,
		DefaultBranch: rr.DefaultBranch,
		CreatedAt:     rr.CreatedAt,
		UpdatedAt:     rr.UpdatedAt,
		PushedAt:      rr.PushedAt,
		Size:          rr.Size,
		Private:       rr.Private,
	}
	if rr.License != nil {
		meta.License = rr.License.SpdxID
	}
	meta.Owner = models.RepoOwner{
		Login:     rr.Owner.Login,
		AvatarURL: rr.Owner.AvatarURL,
		Type:      rr.Owner.Type,
	}

	return meta, nil
}

// GetTree fetches the recursive tree listing for a branch
func (c *Client) GetTree(ctx context.Context, owner, repo, branch string) ([]models.TreeEntry, error) {
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, url.PathEscape(branch))
	resp, err := c.doRequest(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr treeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, apperrors.NewGitHubError("GetTree", path, fmt.Errorf("decoding response: %w", err))
	}

	entries := make([]models.TreeEntry, 0, len(tr.Tree))
	for _, item := range tr.Tree {
		var nodeType models.NodeType
		switch item.Type {
		case "blob":
			nodeType = models.NodeTypeFile
		case "tree":
			nodeType = models.NodeTypeDir
		default:
			// submodules and other object types are not part of the tree
			continue
		}
		entries = append(entries, models.TreeEntry{
			Path: item.Path,
			Type: nodeType,
			Size: item.Size,
		})
	}

	return entries, nil
}

// GetFilteredTree fetches the recursive tree for the assumed branch,
// retrying exactly once against the fallback branch, then applies the
// depth and exclusion filters and the hard item ceiling. Truncation to
// the ceiling is silent: it is a scalability bound, not an error.
func (c *Client) GetFilteredTree(ctx context.Context, owner, repo, branch string) ([]models.TreeEntry, error) {
	entries, err := c.GetTree(ctx, owner, repo, branch)
	if err != nil {
		fallback := fallbackBranch
		if branch == fallbackBranch {
			fallback = "main"
		}
		var retryErr error
		entries, retryErr = c.GetTree(ctx, owner, repo, fallback)
		if retryErr != nil {
			return nil, apperrors.NewGitHubError("GetFilteredTree", fmt.Sprintf("%s/%s", owner, repo), err)
		}
	}

	filtered := make([]models.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		if pathDepth(entry.Path) > c.limits.MaxDepth {
			continue
		}
		if isExcluded(entry.Path) {
			continue
		}
		filtered = append(filtered, entry)
	}

	if len(filtered) > c.limits.MaxTreeItems {
		filtered = filtered[:c.limits.MaxTreeItems]
	}

	return filtered, nil
}

// GetFileContent fetches and decodes one file's content
func (c *Client) GetFileContent(ctx context.Context, owner, repo, filePath string) (string, int, error) {
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, filePath)
	resp, err := c.doRequest(ctx, path)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	var cr contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", 0, apperrors.NewGitHubError("GetFileContent", path, fmt.Errorf("decoding response: %w", err))
	}

	if cr.Encoding != "base64" {
		return cr.Content, cr.Size, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cr.Content, "\n", ""))
	if err != nil {
		return "", 0, apperrors.NewGitHubError("GetFileContent", path, fmt.Errorf("decoding content: %w", err))
	}

	return string(decoded), cr.Size, nil
}

// GetImportantFiles fetches the fixed allow-list of manifest, build and
// readme files. Missing files are silently skipped; oversized files are
// dropped; content is truncated per file and capped by a global budget.
// The call degrades to a partial or empty map rather than failing.
func (c *Client) GetImportantFiles(ctx context.Context, owner, repo string) (map[string]string, error) {
	files := make(map[string]string)
	total := 0

	for _, candidate := range importantFiles {
		if total >= c.limits.MaxTotalContent {
			break
		}

		content, size, err := c.GetFileContent(ctx, owner, repo, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return files, ctx.Err()
			}
			continue
		}
		if size > c.limits.MaxFileSize {
			continue
		}

		if len(content) > c.limits.MaxFileChars {
			content = content[:c.limits.MaxFileChars]
		}
		if remaining := c.limits.MaxTotalContent - total; len(content) > remaining {
			content = content[:remaining]
		}

		files[candidate] = content
		total += len(content)
	}

	return files, nil
}

func pathDepth(path string) int {
	return strings.Count(path, "/") + 1
}
