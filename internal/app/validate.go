package app

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// identifierPattern is the conservative charset accepted for owner and
// repository names
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ParseRepoURL extracts (owner, repo) from a GitHub repository URL or a
// bare "owner/repo" reference. Each failure names the violated rule.
func ParseRepoURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("repository URL is empty")
	}

	var path string
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid URL: %v", err)
		}
		host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		if host != "github.com" {
			return "", "", fmt.Errorf("URL must point to github.com")
		}
		path = strings.Trim(u.Path, "/")
	} else {
		path = strings.Trim(raw, "/")
	}

	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("URL must reference a repository as owner/repo")
	}

	owner := parts[0]
	repo := strings.TrimSuffix(parts[1], ".git")

	if !identifierPattern.MatchString(owner) {
		return "", "", fmt.Errorf("invalid repository owner: %q", owner)
	}
	if !identifierPattern.MatchString(repo) {
		return "", "", fmt.Errorf("invalid repository name: %q", repo)
	}

	return owner, repo, nil
}
