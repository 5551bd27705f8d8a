package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"repolens/internal/analysis"
	"repolens/internal/models"
	"repolens/internal/stream"
)

// Progress checkpoints. Content progress is estimated against a typical
// response length and capped so the bar never completes before the
// terminal event arrives.
const (
	metadataProgress     = 30
	progressCap          = 95
	typicalResponseChars = 6000
)

// Callbacks receives incremental updates while a stream is consumed.
// Any callback may be nil.
type Callbacks struct {
	OnMetadata func(*stream.MetadataPayload)
	OnContent  func(delta string)
	OnProgress func(percent int)
}

// Client consumes the analyze endpoint and reassembles the streamed
// events into a final AnalysisResult
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// New creates an analysis client for the given server base URL
func New(baseURL string, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Analyze submits a repository URL and consumes the resulting stream.
// On an in-band error event it returns the error together with a partial
// result holding whatever metadata was already received: fetched
// repository data is never discarded. An unparseable model output yields
// a degraded result and no error.
func (c *Client) Analyze(ctx context.Context, repoURL string, cb Callbacks) (*models.AnalysisResult, error) {
	body, err := json.Marshal(map[string]string{"url": repoURL})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			return nil, fmt.Errorf("analysis failed: %s", errBody.Error)
		}
		return nil, fmt.Errorf("analysis failed with status %d", resp.StatusCode)
	}

	contentLen := 0
	res, consumeErr := stream.Consume(resp.Body, stream.Handlers{
		OnMetadata: func(meta *stream.MetadataPayload) {
			if cb.OnMetadata != nil {
				cb.OnMetadata(meta)
			}
			c.reportProgress(cb, metadataProgress)
		},
		OnContent: func(delta string) {
			contentLen += len(delta)
			if cb.OnContent != nil {
				cb.OnContent(delta)
			}
			c.reportProgress(cb, estimateProgress(contentLen))
		},
		OnMalformed: func(frame string, err error) {
			c.logger.Warn().Err(err).Str("frame", frame).Msg("Skipping malformed stream frame")
		},
	})
	if consumeErr != nil {
		return partialResult(res), consumeErr
	}

	var result *models.AnalysisResult
	if res.Meta != nil {
		result = analysis.Parse(res.Content, res.Meta.Metadata, res.Meta.FileTree, res.Meta.FileStats)
	} else {
		result = analysis.Parse(res.Content, nil, nil, models.FileStats{})
	}

	c.reportProgress(cb, 100)
	return result, nil
}

func (c *Client) reportProgress(cb Callbacks, percent int) {
	if cb.OnProgress != nil {
		cb.OnProgress(percent)
	}
}

// estimateProgress maps accumulated content length onto the progress
// range between the metadata checkpoint and the cap
func estimateProgress(contentLen int) int {
	estimated := metadataProgress + contentLen*(progressCap-metadataProgress)/typicalResponseChars
	if estimated > progressCap {
		return progressCap
	}
	return estimated
}

// partialResult preserves already-received repository data when a stream
// fails mid-flight
func partialResult(res *stream.ConsumeResult) *models.AnalysisResult {
	if res == nil || res.Meta == nil {
		return nil
	}
	return &models.AnalysisResult{
		Metadata:  res.Meta.Metadata,
		FileTree:  res.Meta.FileTree,
		FileStats: res.Meta.FileStats,
	}
}
