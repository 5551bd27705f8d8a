package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"repolens/internal/config"
	apperrors "repolens/internal/errors"
)

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		MaxDepth:        4,
		MaxTreeItems:    500,
		MaxFileSize:     100000,
		MaxFileChars:    3000,
		MaxTotalContent: 20000,
		MaxTreeLines:    100,
		MaxPromptFiles:  8,
	}
}

func testClient(server *httptest.Server, limits config.LimitsConfig) *Client {
	baseURL = server.URL
	return &Client{
		httpClient: server.Client(),
		limits:     limits,
	}
}

func TestGetRepository(t *testing.T) {
	t.Run("successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check request method
			if r.Method != "GET" {
				t.Errorf("Expected 'GET' request, got '%s'", r.Method)
			}

			// Check request path
			if r.URL.Path != "/repos/owner/repo" {
				t.Errorf("Expected path '/repos/owner/repo', got '%s'", r.URL.Path)
			}

			// Check headers
			if r.Header.Get("Accept") != "application/vnd.github.v3+json" {
				t.Errorf("Expected Accept header 'application/vnd.github.v3+json', got '%s'", r.Header.Get("Accept"))
			}

			// Return mock response
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"name": "repo",
				"full_name": "owner/repo",
				"description": "Test repository",
				"language": "Go",
				"forks_count": 10,
				"stargazers_count": 20,
				"watchers_count": 20,
				"open_issues_count": 5,
				"default_branch": "main",
				"topics": ["web", "api"],
				"license": {"spdx_id": "MIT"},
				"owner": {"login": "owner", "type": "User"},
				"created_at": "2020-01-01T00:00:00Z",
				"updated_at": "2020-01-02T00:00:00Z"
			}`))
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		ctx := context.Background()
		repo, err := client.GetRepository(ctx, "owner", "repo")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		// Verify response
		if repo.Name != "repo" {
			t.Errorf("Expected name 'repo', got '%s'", repo.Name)
		}
		if repo.FullName != "owner/repo" {
			t.Errorf("Expected full name 'owner/repo', got '%s'", repo.FullName)
		}
		if repo.Language != "Go" {
			t.Errorf("Expected language 'Go', got '%s'", repo.Language)
		}
		if repo.Stars != 20 {
			t.Errorf("Expected stars 20, got %d", repo.Stars)
		}
		if repo.Forks != 10 {
			t.Errorf("Expected forks 10, got %d", repo.Forks)
		}
		if repo.DefaultBranch != "main" {
			t.Errorf("Expected default branch 'main', got '%s'", repo.DefaultBranch)
		}
		if repo.License != "MIT" {
			t.Errorf("Expected license 'MIT', got '%s'", repo.License)
		}
		if repo.Owner.Login != "owner" {
			t.Errorf("Expected owner login 'owner', got '%s'", repo.Owner.Login)
		}
	})

	t.Run("repository not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		_, err := client.GetRepository(context.Background(), "owner", "gone")
		if !apperrors.Is(err, apperrors.ErrRepoNotFound) {
			t.Errorf("Expected ErrRepoNotFound, got %v", err)
		}
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
			w.Header().Set("X-RateLimit-Limit", "60")
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		_, err := client.GetRepository(context.Background(), "owner", "repo")
		if !apperrors.Is(err, apperrors.ErrGitHubRateLimited) {
			t.Errorf("Expected ErrGitHubRateLimited, got %v", err)
		}
	})

	t.Run("forbidden without rate limit exhaustion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "42")
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		_, err := client.GetRepository(context.Background(), "owner", "repo")
		if !apperrors.Is(err, apperrors.ErrGitHubForbidden) {
			t.Errorf("Expected ErrGitHubForbidden, got %v", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.GetRepository(ctx, "owner", "repo")
		if err == nil {
			t.Error("Expected context deadline exceeded error, got nil")
		}
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`invalid json`))
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		_, err := client.GetRepository(context.Background(), "owner", "repo")
		if err == nil {
			t.Error("Expected JSON decoding error, got nil")
		}
	})
}

func treeJSON(paths ...string) string {
	type item struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int    `json:"size"`
	}
	items := make([]item, 0, len(paths))
	for _, p := range paths {
		entryType := "blob"
		if strings.HasSuffix(p, "/") {
			entryType = "tree"
			p = strings.TrimSuffix(p, "/")
		}
		items = append(items, item{Path: p, Type: entryType, Size: 100})
	}
	raw, _ := json.Marshal(map[string]interface{}{"tree": items})
	return string(raw)
}

func TestGetFilteredTree(t *testing.T) {
	t.Run("filters excluded and deep paths", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/repos/owner/repo/git/trees/main" {
				t.Errorf("Expected tree path for branch main, got '%s'", r.URL.Path)
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(treeJSON(
				"main.go",
				"internal/",
				"internal/server.go",
				"node_modules/",
				"node_modules/pkg/index.js",
				"a/b/c/d/e/too_deep.go",
				"image.png",
			)))
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		entries, err := client.GetFilteredTree(context.Background(), "owner", "repo", "main")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		paths := make(map[string]bool)
		for _, entry := range entries {
			paths[entry.Path] = true
		}

		if !paths["main.go"] || !paths["internal/server.go"] {
			t.Errorf("Expected source files to survive filtering, got %v", paths)
		}
		if paths["node_modules/pkg/index.js"] || paths["node_modules"] {
			t.Error("Expected node_modules to be excluded")
		}
		if paths["a/b/c/d/e/too_deep.go"] {
			t.Error("Expected paths beyond max depth to be excluded")
		}
		if paths["image.png"] {
			t.Error("Expected binary asset to be excluded")
		}
	})

	t.Run("falls back to secondary branch", func(t *testing.T) {
		var requests []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.URL.Path)
			if strings.Contains(r.URL.Path, "/git/trees/main") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(treeJSON("main.go")))
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		entries, err := client.GetFilteredTree(context.Background(), "owner", "repo", "main")
		if err != nil {
			t.Fatalf("Expected fallback to succeed, got %v", err)
		}
		if len(entries) != 1 || entries[0].Path != "main.go" {
			t.Errorf("Expected single entry from fallback branch, got %v", entries)
		}
		if len(requests) != 2 {
			t.Errorf("Expected exactly 2 tree requests, got %d: %v", len(requests), requests)
		}
		if !strings.Contains(requests[1], "/git/trees/master") {
			t.Errorf("Expected second request against master, got %s", requests[1])
		}
	})

	t.Run("both branches missing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		_, err := client.GetFilteredTree(context.Background(), "owner", "repo", "main")
		if err == nil {
			t.Error("Expected error when both branches are missing, got nil")
		}
	})

	t.Run("truncates to item ceiling", func(t *testing.T) {
		paths := make([]string, 20)
		for i := range paths {
			paths[i] = fmt.Sprintf("file%02d.go", i)
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(treeJSON(paths...)))
		}))
		defer server.Close()

		limits := testLimits()
		limits.MaxTreeItems = 5
		client := testClient(server, limits)

		entries, err := client.GetFilteredTree(context.Background(), "owner", "repo", "main")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(entries) != 5 {
			t.Errorf("Expected 5 entries after truncation, got %d", len(entries))
		}
	})
}

func TestGetImportantFiles(t *testing.T) {
	encode := func(content string) string {
		return base64.StdEncoding.EncodeToString([]byte(content))
	}

	t.Run("fetches known files and skips missing ones", func(t *testing.T) {
		available := map[string]string{
			"package.json": `{"name": "test"}`,
			"README.md":    "# Test",
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/contents/")
			content, ok := available[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"content":  encode(content),
				"encoding": "base64",
				"size":     len(content),
			})
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		files, err := client.GetImportantFiles(context.Background(), "owner", "repo")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("Expected 2 files, got %d: %v", len(files), files)
		}
		if files["package.json"] != `{"name": "test"}` {
			t.Errorf("Unexpected package.json content: %q", files["package.json"])
		}
		if files["README.md"] != "# Test" {
			t.Errorf("Unexpected README.md content: %q", files["README.md"])
		}
	})

	t.Run("truncates per-file and drops oversized files", func(t *testing.T) {
		long := strings.Repeat("a", 100)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/contents/")
			switch name {
			case "README.md":
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"content":  encode(long),
					"encoding": "base64",
					"size":     len(long),
				})
			case "go.mod":
				// Reported size exceeds the per-file ceiling
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"content":  encode("module big"),
					"encoding": "base64",
					"size":     999999,
				})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		limits := testLimits()
		limits.MaxFileChars = 10
		client := testClient(server, limits)

		files, err := client.GetImportantFiles(context.Background(), "owner", "repo")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if _, ok := files["go.mod"]; ok {
			t.Error("Expected oversized go.mod to be dropped")
		}
		if got := files["README.md"]; len(got) != 10 {
			t.Errorf("Expected README.md truncated to 10 chars, got %d", len(got))
		}
	})

	t.Run("respects the global content budget", func(t *testing.T) {
		content := strings.Repeat("b", 50)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"content":  encode(content),
				"encoding": "base64",
				"size":     len(content),
			})
		}))
		defer server.Close()

		limits := testLimits()
		limits.MaxTotalContent = 80
		client := testClient(server, limits)

		files, err := client.GetImportantFiles(context.Background(), "owner", "repo")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		total := 0
		for _, c := range files {
			total += len(c)
		}
		if total > 80 {
			t.Errorf("Expected total content within budget 80, got %d", total)
		}
	})
}

func TestRateLimitHandling(t *testing.T) {
	t.Run("rate limit info update", func(t *testing.T) {
		resetTime := time.Now().Add(time.Hour)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "42")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))
			w.Header().Set("X-RateLimit-Limit", "60")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"name": "repo"}`))
		}))
		defer server.Close()

		client := testClient(server, testLimits())

		_, err := client.GetRepository(context.Background(), "owner", "repo")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		info := client.GetRateLimitInfo()
		if info.Remaining != 42 {
			t.Errorf("Expected remaining rate limit 42, got %d", info.Remaining)
		}
		if info.Limit != 60 {
			t.Errorf("Expected rate limit 60, got %d", info.Limit)
		}
	})
}

func TestIsExcluded(t *testing.T) {
	cases := []struct {
		path     string
		excluded bool
	}{
		{"main.go", false},
		{"internal/app/server.go", false},
		{"node_modules/react/index.js", true},
		{"vendor/github.com/pkg/errors/errors.go", true},
		{"dist/bundle.js", true},
		{"app.min.js", true},
		{"logo.png", true},
		{"package-lock.json", true},
		{".git/HEAD", true},
		{"docs/README.md", false},
	}

	for _, tc := range cases {
		if got := isExcluded(tc.path); got != tc.excluded {
			t.Errorf("isExcluded(%q) = %v, want %v", tc.path, got, tc.excluded)
		}
	}
}
