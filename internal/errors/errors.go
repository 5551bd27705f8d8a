package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrRepoNotFound is returned when the requested repository does not
	// exist or is private
	ErrRepoNotFound = errors.New("repository not found")

	// ErrGitHubRateLimited is returned when the GitHub API rate limit is
	// exhausted
	ErrGitHubRateLimited = errors.New("github api rate limit exceeded")

	// ErrGitHubForbidden is returned when GitHub denies access for a
	// reason other than rate limiting
	ErrGitHubForbidden = errors.New("github api access forbidden")

	// ErrInvalidInput is returned when request parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")

	// ErrNotConfigured is returned when the completion service credential
	// is missing
	ErrNotConfigured = errors.New("analysis service is not configured")

	// ErrCacheMiss is returned by cache stores when a key is absent or
	// expired
	ErrCacheMiss = errors.New("cache entry not found")
)

// GitHubError represents a GitHub API error
type GitHubError struct {
	Op      string
	Request string
	Err     error
}

func (e *GitHubError) Error() string {
	return fmt.Sprintf("github api operation %s failed for request %s: %v", e.Op, e.Request, e.Err)
}

func (e *GitHubError) Unwrap() error {
	return e.Err
}

// NewGitHubError creates a new GitHubError
func NewGitHubError(op, request string, err error) error {
	return &GitHubError{
		Op:      op,
		Request: request,
		Err:     err,
	}
}

// CompletionError represents a completion service failure
type CompletionError struct {
	Op  string
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion operation %s failed: %v", e.Op, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// NewCompletionError creates a new CompletionError
func NewCompletionError(op string, err error) error {
	return &CompletionError{
		Op:  op,
		Err: err,
	}
}

// StoreError represents a cache store operation error
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store operation %s failed for %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(op, key string, err error) error {
	return &StoreError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// Is checks if the target error matches any of our custom errors
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
