package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calmry/calmry-backend/internal/models"
)

// ConversationMemory is the session context sent with every completion
// call. It is currently populated with defaults rather than derived from
// turn history; the shape is fixed so prompts stay stable when derivation
// lands.
type ConversationMemory struct {
	EmotionalHistory   []string          `json:"emotionalHistory"`
	RiskLevel          float64           `json:"riskLevel"`
	Preferences        map[string]string `json:"preferences"`
	ConversationThemes []string          `json:"conversationThemes"`
	CurrentTechnique   string            `json:"currentTechnique"`
}

// DefaultMemory returns the placeholder memory used for every message.
func DefaultMemory() ConversationMemory {
	return ConversationMemory{
		EmotionalHistory:   []string{},
		RiskLevel:          0,
		Preferences:        map[string]string{},
		ConversationThemes: []string{},
		CurrentTechnique:   "active listening",
	}
}

const analysisSystemPrompt = `You are an emotional-analysis assistant for a therapy chat service.
Classify the user's message and respond with ONLY a JSON object, no prose
and no code fences, with exactly these fields:
{
  "emotionalState": string,
  "themes": [string],
  "riskLevel": number,
  "recommendedApproach": string,
  "progressIndicators": [string]
}
riskLevel is 0 (no concern) through 10 (immediate danger).`

const responseSystemPrompt = `You are an empathetic AI therapy assistant. Follow these directives:
1. Be warm and empathetic; acknowledge the user's feelings before anything else.
2. Frame suggestions with evidence-based techniques (CBT, mindfulness, grounding).
3. Maintain boundaries: you are a supportive assistant, not a licensed clinician, and you say so when asked for diagnosis or medication advice.
4. Watch for risk signals; if the analysis indicates elevated risk, gently encourage professional or crisis support.
5. Steer the conversation toward the user's goals and concrete next steps.`

// AnalyzeMessage runs the first completion call: classify the user's
// message given the conversation memory, and parse the structured result.
func AnalyzeMessage(ctx context.Context, c Completer, message string, memory ConversationMemory) (*models.Analysis, error) {
	memJSON, err := json.Marshal(memory)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Conversation memory:\n%s\n\nUser message:\n%s", memJSON, message)

	raw, err := c.Complete(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(raw)
}

// GenerateReply runs the second completion call: produce the therapeutic
// reply, informed by the parsed analysis and the conversation memory.
func GenerateReply(ctx context.Context, c Completer, message string, analysis *models.Analysis, memory ConversationMemory) (string, error) {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return "", err
	}
	memJSON, err := json.Marshal(memory)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Conversation memory:\n%s\n\nAnalysis of the user's message:\n%s\n\nUser message:\n%s\n\nReply to the user.",
		memJSON, analysisJSON, message)

	return c.Complete(ctx, responseSystemPrompt, prompt)
}
