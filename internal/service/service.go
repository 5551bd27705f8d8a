package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"repolens/internal/analysis"
	"repolens/internal/cache"
	"repolens/internal/config"
	"repolens/internal/models"
	"repolens/internal/prompt"
	"repolens/internal/stream"
	"repolens/internal/tree"
)

// interruptedMessage is the only text a client sees when the completion
// stream fails mid-flight; the underlying cause is logged, not leaked.
const interruptedMessage = "analysis stream interrupted"

// assumedBranch is tried first for the tree fetch, which runs before the
// metadata response (and its default branch) is available
const assumedBranch = "main"

// Service orchestrates one analysis request: fetch, reduce, prompt,
// stream, persist
type Service struct {
	github        GitHubClient
	llm           CompletionClient
	store         cache.Store
	prompts       *prompt.Builder
	limits        config.LimitsConfig
	streamTimeout time.Duration
	logger        *zerolog.Logger
}

// New creates a new service instance
func New(github GitHubClient, llm CompletionClient, store cache.Store, cfg *config.Config, logger *zerolog.Logger) *Service {
	return &Service{
		github:        github,
		llm:           llm,
		store:         store,
		prompts:       prompt.NewBuilder(cfg.Limits),
		limits:        cfg.Limits,
		streamTimeout: cfg.Server.StreamTimeout,
		logger:        logger,
	}
}

// Prepared holds everything gathered before streaming begins. Either
// Cached is set (replay path) or the prompt and repository data are.
type Prepared struct {
	FullName  string
	Meta      *models.RepoMetadata
	FileTree  []*models.FileNode
	Stats     models.FileStats
	Prompt    string
	Cached    *models.AnalysisResult
}

// Prepare runs the pre-stream phase: cache lookup, then the concurrent
// metadata / tree / important-files fetch, tree reduction and prompt
// build. Errors here surface as ordinary HTTP errors because no stream
// bytes have been committed yet. The fetch is all-or-nothing: a prompt
// built from partial data would mislead the model.
func (s *Service) Prepare(ctx context.Context, owner, repo string) (*Prepared, error) {
	fullName := owner + "/" + repo

	cached, err := s.store.Get(ctx, fullName)
	if err != nil {
		s.logger.Warn().Err(err).Str("repository", fullName).Msg("Cache lookup failed")
	}
	if cached != nil {
		s.logger.Info().Str("repository", fullName).Msg("Serving analysis from cache")
		return &Prepared{
			FullName: fullName,
			Meta:     cached.Result.Metadata,
			FileTree: cached.Result.FileTree,
			Stats:    cached.Result.FileStats,
			Cached:   cached.Result,
		}, nil
	}

	var (
		meta    *models.RepoMetadata
		entries []models.TreeEntry
		files   map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meta, err = s.github.GetRepository(gctx, owner, repo)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.github.GetFilteredTree(gctx, owner, repo, assumedBranch)
		return err
	})
	g.Go(func() error {
		var err error
		files, err = s.github.GetImportantFiles(gctx, owner, repo)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	forest := tree.Build(entries)
	stats := tree.CalculateStats(forest)
	compact := tree.RenderCompact(forest, s.limits.MaxTreeLines)

	return &Prepared{
		FullName: fullName,
		Meta:     meta,
		FileTree: forest,
		Stats:    stats,
		Prompt:   s.prompts.Build(meta, stats, compact, files),
	}, nil
}

// Stream runs the relay phase against an already-prepared request. It
// emits exactly one metadata event first, zero or more content events,
// and always exactly one terminal event, whatever happens in between. A
// mid-flight completion failure is downgraded to an in-band error event:
// the response status is committed by the time streaming starts.
func (s *Service) Stream(ctx context.Context, prep *Prepared, sink stream.Sink) error {
	ctx, cancel := context.WithTimeout(ctx, s.streamTimeout)
	defer cancel()

	if err := sink.Emit(stream.Metadata(prep.Meta, prep.FileTree, prep.Stats)); err != nil {
		return fmt.Errorf("emitting metadata: %w", err)
	}

	if prep.Cached != nil {
		return s.replayCached(prep, sink)
	}

	var accumulated strings.Builder
	streamErr := s.llm.Stream(ctx, prep.Prompt, func(delta string) error {
		accumulated.WriteString(delta)
		return sink.Emit(stream.Content(delta))
	})

	if streamErr != nil {
		s.logger.Error().Err(streamErr).Str("repository", prep.FullName).Msg("Completion stream failed")
		if err := sink.Emit(stream.Error(interruptedMessage)); err != nil {
			return fmt.Errorf("emitting error event: %w", err)
		}
		return sink.Emit(stream.Done())
	}

	result := analysis.Parse(accumulated.String(), prep.Meta, prep.FileTree, prep.Stats)
	if result.Degraded {
		s.logger.Warn().Str("repository", prep.FullName).Msg("Model output could not be parsed; storing degraded result")
	}
	if err := s.store.Set(ctx, prep.FullName, result); err != nil {
		s.logger.Warn().Err(err).Str("repository", prep.FullName).Msg("Failed to cache analysis")
	}

	return sink.Emit(stream.Done())
}

// replayCached re-emits a cached analysis as a single content event so
// the client-side consumer reassembles it exactly like a live stream
func (s *Service) replayCached(prep *Prepared, sink stream.Sink) error {
	if prep.Cached.Analysis != nil {
		raw, err := json.Marshal(prep.Cached.Analysis)
		if err != nil {
			s.logger.Error().Err(err).Str("repository", prep.FullName).Msg("Failed to encode cached analysis")
		} else if err := sink.Emit(stream.Content(string(raw))); err != nil {
			return fmt.Errorf("emitting cached content: %w", err)
		}
	}
	return sink.Emit(stream.Done())
}

// GetRecent lists recently cached analyses, newest first
func (s *Service) GetRecent(ctx context.Context, limit int) ([]*models.CachedAnalysis, error) {
	return s.store.GetRecent(ctx, limit)
}

// RemoveCached evicts one cached analysis
func (s *Service) RemoveCached(ctx context.Context, fullName string) error {
	return s.store.Remove(ctx, fullName)
}

// GitHubRateLimit reports the upstream API quota last observed
func (s *Service) GitHubRateLimit() models.RateLimitInfo {
	return s.github.GetRateLimitInfo()
}

// Close releases the result store
func (s *Service) Close() error {
	return s.store.Close()
}
