package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scribeflow/backend/pkg/models"
)

// validationPrompt frames the non-streaming quality review call. The model
// is asked for a bare JSON object so the response can be decoded directly.
const validationPrompt = `You are a meticulous quality reviewer for software project documents.

Review the document below and respond with a single JSON object, no prose and no code fences, with the fields:
  "score" (integer 0-100),
  "strengths" (array of strings),
  "improvements" (array of strings),
  "summary" (string).

DOCUMENT (%s):
%s`

// ValidateDocument asks the provider for a structured quality review of the
// document's current content. A response that cannot be decoded yields a
// report with Parsed=false and a reason, never an error, so callers can
// distinguish a malformed upstream response from a transport failure.
func (s *PipelineService) ValidateDocument(ctx context.Context, documentID string) (*models.QualityReport, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	constitution, err := s.Constitution(ctx)
	if err != nil {
		return nil, err
	}

	system := fmt.Sprintf(validationPrompt, doc.OutputType, doc.Content)
	if constitution != "" {
		system += "\n\nJudge compliance against this project constitution:\n" + constitution
	}

	raw, err := s.provider.Complete(ctx, system, "Review the document.")
	if err != nil {
		s.logger.Error("validation call failed: document=%s err=%v", documentID, err)
		return nil, err
	}

	var parsed struct {
		Score        int      `json:"score"`
		Strengths    []string `json:"strengths"`
		Improvements []string `json:"improvements"`
		Summary      string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		s.logger.Error("unparseable validation response: document=%s err=%v", documentID, err)
		return &models.QualityReport{
			Parsed: false,
			Reason: "provider response was not valid JSON",
		}, nil
	}

	return &models.QualityReport{
		Parsed:       true,
		Score:        parsed.Score,
		Strengths:    parsed.Strengths,
		Improvements: parsed.Improvements,
		Summary:      parsed.Summary,
	}, nil
}

// stripFences tolerates models that wrap JSON in a markdown code fence
// despite the instruction not to.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
