// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SchemaError marks a reasoning-service response that failed shape
// validation. Callers retry the call once, then fail the unit.
type SchemaError struct {
	Stage string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s response failed schema validation: %v", e.Stage, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsSchemaError reports whether err is (or wraps) a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// stripFences removes a surrounding markdown code fence, with or without
// a json language tag, from raw model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
	} else {
		return s
	}
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// decodeInto parses raw model output as JSON for the given stage.
func decodeInto(stage, raw string, v any) error {
	if err := json.Unmarshal([]byte(stripFences(raw)), v); err != nil {
		return &SchemaError{Stage: stage, Err: err}
	}
	return nil
}

// validateDraft checks the structural requirements of a draft response.
// Citation validity against the pack is the drafter's concern; this layer
// only guards the shape.
func validateDraft(r DraftResponse) error {
	if strings.TrimSpace(r.Paragraph) == "" {
		return &SchemaError{Stage: "draft", Err: errors.New("empty paragraph")}
	}
	for i, b := range r.Bullets {
		if strings.TrimSpace(b.Text) == "" {
			return &SchemaError{Stage: "draft", Err: fmt.Errorf("bullet %d has empty text", i)}
		}
	}
	return nil
}

// validateReview checks that every rubric score is in range.
func validateReview(r ReviewResponse) error {
	check := func(name string, v int) error {
		if v < 0 || v > 5 {
			return &SchemaError{Stage: "review", Err: fmt.Errorf("%s score %d out of range [0,5]", name, v)}
		}
		return nil
	}
	if err := check("grounding", r.Scores.Grounding); err != nil {
		return err
	}
	if err := check("clarity", r.Scores.Clarity); err != nil {
		return err
	}
	if err := check("newsworthiness", r.Scores.Newsworthiness); err != nil {
		return err
	}
	if err := check("balance", r.Scores.Balance); err != nil {
		return err
	}
	return check("voice_fit", r.Scores.VoiceFit)
}

// validateEdit checks that every edited section names its vertical.
func validateEdit(r EditResponse) error {
	for i, s := range r.Sections {
		if s.Vertical == "" {
			return &SchemaError{Stage: "edit", Err: fmt.Errorf("section %d missing vertical", i)}
		}
	}
	return nil
}
