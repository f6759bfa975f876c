package openai

import (
	"fmt"
	"strings"
)

// buildPrompt renders the single analysis prompt. The instruction block pins
// the response to one JSON object with the six expected keys; the parser is
// still prepared for prose around it.
func buildPrompt(situation string, childAge int, childGender, extraContext string) string {
	pronoun := "she"
	noun := "girl"
	if childGender == "male" {
		pronoun = "he"
		noun = "boy"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an experienced child psychologist and child development specialist. Analyze the following situation with a child.

About the child:
- Age: %d
- Gender: %s

Situation:
%s
`, childAge, noun, situation)

	if extraContext != "" {
		fmt.Fprintf(&b, "\nAdditional context: %s\n", extraContext)
	}

	fmt.Fprintf(&b, `
Analyze this situation and respond in JSON with the following structure:

{
    "hidden_meaning": "What is really going on with the child, which needs or emotions %s is expressing through this behavior",
    "immediate_actions": [
        "A concrete action the parent can take right now",
        "Concrete action 2",
        "Concrete action 3"
    ],
    "long_term_recommendations": [
        "A long-term recommendation for the child's development",
        "Long-term recommendation 2",
        "Long-term recommendation 3"
    ],
    "what_not_to_do": [
        "What NOT to do in this situation",
        "What NOT to do 2"
    ],
    "emotional_tone": "positive|neutral|concerning|urgent",
    "confidence_score": 0.85
}

Important:
1. Take the child's age into account
2. Give practical, specific advice
3. Be empathetic towards the parent
4. Pick emotional_tone by how serious the situation is:
   - positive: the situation is positive or developmentally normal
   - neutral: an ordinary situation without notable problems
   - concerning: needs attention but is not critical
   - urgent: needs immediate intervention
5. confidence_score is your confidence in the analysis, from 0 to 1

Respond with valid JSON ONLY, no additional text.`, pronoun)

	return b.String()
}
