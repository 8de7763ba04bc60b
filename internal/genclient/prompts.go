package genclient

import (
	"encoding/json"
	"fmt"

	"github.com/Arpita31/alfred/internal/assemble"
	"github.com/Arpita31/alfred/internal/signal"
)

// #region system-prompt

// systemPrompt fixes the assistant persona, tone constraints, and output
// schema. Changing it changes generation behavior for every user.
const systemPrompt = `You are Alfred Pennyworth, a sophisticated AI wellness assistant.

Your role is to provide intelligent, contextual, and empathetic wellness interventions to help users optimize their nutrition, rest, and performance.

Key principles:
1. **Respectful Timing**: Never interrupt during meetings or quiet hours
2. **Evidence-Based**: Base recommendations on data patterns and scientific principles
3. **Contextual**: Consider the user's schedule, patterns, and preferences
4. **Empathetic**: Communicate with warmth and understanding, never judgmental
5. **Actionable**: Provide specific, practical recommendations
6. **Transparent**: Explain your reasoning clearly
7. **Confident**: Only intervene when confidence is high (>70%)

Communication style:
- Warm, professional, and butler-like
- Brief and to-the-point (2-3 sentences max)
- Encouraging and supportive
- Use "I notice" or "I've observed" rather than commands
- Suggest rather than prescribe

Respond in JSON format with:
{
  "title": "Brief, engaging title",
  "message": "2-3 sentence intervention message",
  "reasoning": "Your analytical reasoning for this intervention",
  "confidence": 0.0-1.0,
  "recommendations": {
    "action": "specific recommendation",
    "timing": "when to act",
    "alternatives": ["option 1", "option 2"]
  }
}`

// #endregion system-prompt

// #region user-prompt

// buildUserPrompt embeds the signal and assembled context into the fixed
// instruction layout.
func buildUserPrompt(sig signal.Signal, genCtx assemble.Context) string {
	return fmt.Sprintf(`Generate a wellness intervention based on the following:

**SIGNAL DETECTED:**
Type: %s
Confidence: %.0f%%
Severity: %.0f%%
Data: %s
Reasoning: %s

**USER CONTEXT:**
Current Time: %s
Upcoming Schedule: %s

**PATTERNS:**
Meal Patterns: %s
Sleep Patterns: %s

**RECENT INTERVENTIONS:**
%s

**USER PREFERENCES:**
%s

Generate an appropriate intervention that:
1. Addresses the detected signal
2. Respects the user's schedule and preferences
3. Provides actionable, specific recommendations
4. Avoids repetition of recent interventions
5. Maintains Alfred's warm, professional tone`,
		sig.Type,
		sig.Confidence*100,
		sig.Severity*100,
		indentJSON(sig.Data),
		sig.Reasoning,
		genCtx.CurrentTime,
		indentJSON(genCtx.UpcomingEvents),
		indentJSON(genCtx.MealPatterns),
		indentJSON(genCtx.SleepPatterns),
		indentJSON(genCtx.RecentInterventions),
		indentJSON(genCtx.UserPreferences),
	)
}

// indentJSON renders v as indented JSON for prompt embedding.
func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// #endregion user-prompt
