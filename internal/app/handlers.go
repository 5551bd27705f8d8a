package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	apperrors "repolens/internal/errors"
	"repolens/internal/ratelimit"
	"repolens/internal/response"
	"repolens/internal/share"
	"repolens/internal/stream"
)

// analyzeRequest is the body of POST /api/v1/analyze
type analyzeRequest struct {
	URL *string `json:"url"`
}

// analyze runs the full streaming pipeline for one repository. Rate
// limiting is checked before anything else, then configuration, then
// input; all pre-stream failures return ordinary JSON errors. Once the
// SSE response begins, failures are downgraded to in-band events.
func (a *App) analyze(w http.ResponseWriter, r *http.Request) {
	clientID := ratelimit.ClientID(r)
	allowed, remaining := a.limiter.Allow(clientID)
	if !allowed {
		a.log.Warn().Str("client", clientID).Msg("Rate limit exceeded")
		w.Header().Set("Retry-After", strconv.Itoa(int(a.cfg.RateLimit.Window.Seconds())))
		response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
		return
	}

	if !a.cfg.GeminiConfigured() {
		a.log.Error().Msg("Analyze request rejected: completion service credential missing")
		response.Error(w, http.StatusServiceUnavailable, "Analysis service is not configured")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.URL == nil {
		response.Error(w, http.StatusBadRequest, "Missing 'url' field in request body")
		return
	}

	owner, repo, err := ParseRepoURL(*req.URL)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	a.log.Info().
		Str("owner", owner).
		Str("repo", repo).
		Str("client", clientID).
		Msg("Starting analysis")

	prep, err := a.service.Prepare(r.Context(), owner, repo)
	if err != nil {
		a.respondPrepareError(w, owner, repo, err)
		return
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	sw, err := stream.NewWriter(w)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to initialize SSE writer")
		response.Error(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	if err := a.service.Stream(r.Context(), prep, sw); err != nil {
		// The response is already committed; nothing to send but a log.
		a.log.Error().
			Err(err).
			Str("repository", prep.FullName).
			Msg("Stream aborted")
		return
	}

	a.log.Info().Str("repository", prep.FullName).Msg("Analysis stream completed")
}

// respondPrepareError maps pre-stream failures onto the error taxonomy
func (a *App) respondPrepareError(w http.ResponseWriter, owner, repo string, err error) {
	fullName := owner + "/" + repo
	a.log.Error().Err(err).Str("repository", fullName).Msg("Failed to prepare analysis")

	switch {
	case apperrors.Is(err, apperrors.ErrRepoNotFound):
		response.Error(w, http.StatusBadRequest,
			fmt.Sprintf("Repository %s not found. Check the URL or make sure it is public.", fullName))
	case apperrors.Is(err, apperrors.ErrGitHubRateLimited):
		response.Error(w, http.StatusBadRequest,
			"GitHub rate limit exceeded. Configure a GitHub token to raise the limit.")
	case apperrors.Is(err, apperrors.ErrGitHubForbidden):
		response.Error(w, http.StatusBadRequest,
			fmt.Sprintf("Access to repository %s is forbidden.", fullName))
	default:
		response.Error(w, http.StatusInternalServerError, "Failed to fetch repository data")
	}
}

// analyzeHealth reports the configuration state of the external services
func (a *App) analyzeHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	geminiState := "configured"
	if !a.cfg.GeminiConfigured() {
		status = "misconfigured"
		geminiState = "missing"
	}

	githubState := "configured"
	if a.cfg.GitHub.Token == "" {
		githubState = "optional (rate-limited)"
	}

	rate := a.service.GitHubRateLimit()
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"services": map[string]string{
			"gemini": geminiState,
			"github": githubState,
		},
		"githubRateLimit": map[string]interface{}{
			"remaining": rate.Remaining,
			"limit":     rate.Limit,
			"reset":     rate.Reset.Unix(),
		},
	})
}

// healthCheck handles the liveness endpoints
func (a *App) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// recentAnalyses lists recently cached analyses
func (a *App) recentAnalyses(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = 10
	}

	entries, err := a.service.GetRecent(r.Context(), limit)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to list recent analyses")
		response.Error(w, http.StatusInternalServerError, "Failed to list recent analyses")
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(entries),
		"analyses": entries,
	})
}

// removeAnalysis evicts one cached analysis
func (a *App) removeAnalysis(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fullName := vars["owner"] + "/" + vars["repo"]

	if err := a.service.RemoveCached(r.Context(), fullName); err != nil {
		a.log.Error().Err(err).Str("repository", fullName).Msg("Failed to remove cached analysis")
		response.Error(w, http.StatusInternalServerError, "Failed to remove cached analysis")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"removed": fullName})
}

// createShareLink builds a shareable link from an analysis summary
func (a *App) createShareLink(w http.ResponseWriter, r *http.Request) {
	var data share.CardData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	shareURL, err := share.GenerateShareURL(a.cfg.Server.PublicBaseURL, data)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"url": shareURL})
}

// resolveShareLink decodes the payload of a share link
func (a *App) resolveShareLink(w http.ResponseWriter, r *http.Request) {
	data, err := share.ParseShareData(r.URL.String())
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	response.JSON(w, http.StatusOK, data)
}
