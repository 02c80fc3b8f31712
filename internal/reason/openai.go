// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

// OpenAIService implements Service using the openai-go chat completions API.
type OpenAIService struct {
	model string
	opts  []option.RequestOption
}

// NewOpenAIService builds the service backend from an AI config.
func NewOpenAIService(cfg types.AIConfig) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("reasoning service api key missing; provide .secrets/openai-api-key")
	}
	if cfg.Model == "" {
		return nil, errors.New("reasoning service model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIService{model: cfg.Model, opts: opts}, nil
}

// complete sends one system prompt and returns the raw model output.
func (s *OpenAIService) complete(ctx context.Context, system string) (string, error) {
	client := openai.NewClient(s.opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage("Respond with the JSON object only."),
		},
	})
	if err != nil {
		return "", fmt.Errorf("reasoning service call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("reasoning service call: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Draft implements Service.
func (s *OpenAIService) Draft(ctx context.Context, req DraftRequest) (DraftResponse, error) {
	raw, err := s.complete(ctx, buildDraftPrompt(req))
	if err != nil {
		return DraftResponse{}, err
	}
	var resp DraftResponse
	if err := decodeInto("draft", raw, &resp); err != nil {
		return DraftResponse{}, err
	}
	if err := validateDraft(resp); err != nil {
		return DraftResponse{}, err
	}
	return resp, nil
}

// Review implements Service.
func (s *OpenAIService) Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	raw, err := s.complete(ctx, buildReviewPrompt(req))
	if err != nil {
		return ReviewResponse{}, err
	}
	var resp ReviewResponse
	if err := decodeInto("review", raw, &resp); err != nil {
		return ReviewResponse{}, err
	}
	if err := validateReview(resp); err != nil {
		return ReviewResponse{}, err
	}
	return resp, nil
}

// Edit implements Service.
func (s *OpenAIService) Edit(ctx context.Context, req EditRequest) (EditResponse, error) {
	raw, err := s.complete(ctx, buildEditPrompt(req))
	if err != nil {
		return EditResponse{}, err
	}
	var resp EditResponse
	if err := decodeInto("edit", raw, &resp); err != nil {
		return EditResponse{}, err
	}
	if err := validateEdit(resp); err != nil {
		return EditResponse{}, err
	}
	return resp, nil
}
