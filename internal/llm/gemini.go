package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"repolens/internal/config"
	apperrors "repolens/internal/errors"
)

// Gemini adapts the Gemini API to the streaming completion contract
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a streaming Gemini client from the configured model
// name, temperature and output token ceiling
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, apperrors.NewCompletionError("NewClient", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(int32(cfg.MaxOutputTokens))

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Stream submits the prompt in streaming mode and invokes onDelta for
// every text chunk, in order. It returns the first error from either the
// upstream stream or the callback; deltas already delivered stay
// delivered.
func (g *Gemini) Stream(ctx context.Context, prompt string, onDelta func(delta string) error) error {
	iter := g.model.GenerateContentStream(ctx, genai.Text(prompt))

	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return apperrors.NewCompletionError("Stream", err)
		}

		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				text, ok := part.(genai.Text)
				if !ok || text == "" {
					continue
				}
				if err := onDelta(string(text)); err != nil {
					return fmt.Errorf("delivering delta: %w", err)
				}
			}
		}
	}
}

// Close releases the underlying client
func (g *Gemini) Close() error {
	return g.client.Close()
}
