package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calmry/calmry-backend/internal/models"
)

// ParseError indicates the model's analysis output was not the expected
// JSON object. It is distinct from transport failures so logs can tell a
// misbehaving model apart from a dead network.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("analysis response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseAnalysis decodes the model's analysis text into a structured
// Analysis. Models often wrap JSON in Markdown code fences; those are
// stripped before decoding.
func ParseAnalysis(raw string) (*models.Analysis, error) {
	text := StripCodeFences(raw)

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if analysis.EmotionalState == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing emotionalState")}
	}
	if analysis.RiskLevel < 0 {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("negative riskLevel %v", analysis.RiskLevel)}
	}
	return &analysis, nil
}

// StripCodeFences removes a surrounding Markdown code fence (``` or
// ```json) from the text, if present.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Drop a language tag on the opening fence line.
	if idx := strings.Index(text, "\n"); idx != -1 {
		first := strings.TrimSpace(text[:idx])
		if first == "json" || first == "" {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
