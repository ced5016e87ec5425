package session

import (
	"encoding/json"
	"fmt"

	"github.com/voyagent/voyagent/internal/genai"
	"github.com/voyagent/voyagent/internal/trip"
)

const defaultSystemPrompt = "You are a travel-planning assistant. Use the trip context to answer " +
	"questions, reference actual plans, and ask for one missing detail at a time. Keep answers " +
	"concise and grounded in the provided data."

const synthesisSystemPrompt = "You are a travel-planning assistant. Produce the replacement " +
	"itinerary item the user and assistant agreed on in the conversation. Fill every field of " +
	"the output schema; keep values the conversation did not change."

// buildPrompt assembles the generation request for one assistant turn:
// system prompt, trip-context JSON block, then the transcript, truncated to
// the token budget when a counter is available.
func buildPrompt(systemPrompt string, tripCtx *trip.Context, transcript []Turn, counter *genai.TokenCounter, tokenBudget int) []genai.Message {
	msgs := []genai.Message{
		{Role: genai.RoleSystem, Content: systemPrompt},
	}

	if ctxJSON, err := json.MarshalIndent(tripCtx, "", "  "); err == nil {
		msgs = append(msgs, genai.Message{
			Role:    genai.RoleSystem,
			Content: fmt.Sprintf("Latest trip context:\n%s", ctxJSON),
		})
	}

	history := make([]genai.Message, 0, len(transcript))
	for _, t := range transcript {
		role := genai.RoleUser
		if t.Speaker == SpeakerAssistant {
			role = genai.RoleAssistant
		}
		history = append(history, genai.Message{Role: role, Content: t.Text})
	}
	if counter != nil && tokenBudget > 0 {
		history = counter.TruncateMessages(history, tokenBudget)
	}

	return append(msgs, history...)
}

// buildSynthesisPrompt assembles the structured-output request that turns a
// finished negotiation into a replacement entity.
func buildSynthesisPrompt(original trip.Entity, transcript []Turn) []genai.Message {
	msgs := []genai.Message{
		{Role: genai.RoleSystem, Content: synthesisSystemPrompt},
	}

	if origJSON, err := json.MarshalIndent(original, "", "  "); err == nil {
		msgs = append(msgs, genai.Message{
			Role:    genai.RoleSystem,
			Content: fmt.Sprintf("Current item:\n%s", origJSON),
		})
	}

	// The tail of the negotiation is what matters for the final values.
	const maxSynthesisTurns = 12
	tail := transcript
	if len(tail) > maxSynthesisTurns {
		tail = tail[len(tail)-maxSynthesisTurns:]
	}
	for _, t := range tail {
		role := genai.RoleUser
		if t.Speaker == SpeakerAssistant {
			role = genai.RoleAssistant
		}
		msgs = append(msgs, genai.Message{Role: role, Content: t.Text})
	}

	return msgs
}
