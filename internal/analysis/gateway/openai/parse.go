package openai

import (
	"encoding/json"

	"nurture/internal/analysis/models"
)

// rawPayload mirrors the JSON object the reasoning service is instructed to
// return. Pointers distinguish absent fields from empty ones.
type rawPayload struct {
	HiddenMeaning           *string   `json:"hidden_meaning"`
	ImmediateActions        *[]string `json:"immediate_actions"`
	LongTermRecommendations *[]string `json:"long_term_recommendations"`
	WhatNotToDo             *[]string `json:"what_not_to_do"`
	EmotionalTone           string    `json:"emotional_tone"`
	ConfidenceScore         *float64  `json:"confidence_score"`
}

// parse extracts the structured recommendation from the raw response text.
// The service may wrap the JSON in prose, so the first balanced {...} region
// is taken. Any parse or validation failure yields the fixed fallback
// recommendation instead of an error; the user still gets generic guidance,
// and the low confidence score marks it as such.
func (g *Gateway) parse(raw string) *models.Recommendation {
	region, ok := extractJSONObject(raw)
	if !ok {
		return g.fallback(raw, "no JSON object in response")
	}

	var payload rawPayload
	if err := json.Unmarshal([]byte(region), &payload); err != nil {
		return g.fallback(raw, err.Error())
	}

	if payload.HiddenMeaning == nil || payload.ImmediateActions == nil ||
		payload.LongTermRecommendations == nil || payload.WhatNotToDo == nil {
		return g.fallback(raw, "required field missing")
	}

	confidence := models.DefaultConfidence
	if payload.ConfidenceScore != nil {
		confidence = *payload.ConfidenceScore
	}

	rec, err := models.NewRecommendation(
		*payload.HiddenMeaning,
		*payload.ImmediateActions,
		*payload.LongTermRecommendations,
		*payload.WhatNotToDo,
		models.CoerceTone(payload.EmotionalTone),
		confidence,
	)
	if err != nil {
		return g.fallback(raw, err.Error())
	}
	return rec
}

func (g *Gateway) fallback(raw, reason string) *models.Recommendation {
	fallbacksTotal.Inc()
	snippet := raw
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}
	g.logger.Error("failed to parse reasoning response, using fallback",
		"reason", reason,
		"response", snippet,
	)
	return FallbackRecommendation()
}

// FallbackRecommendation is the fixed generic recommendation substituted for
// malformed reasoning output. Confidence 0.5 is the only signal callers get
// that no real analysis happened.
func FallbackRecommendation() *models.Recommendation {
	return &models.Recommendation{
		HiddenMeaning: "The child is expressing emotions and needs through this behavior. Understanding what stands behind the behavior matters more than the behavior itself.",
		ImmediateActions: []string{
			"Talk to the child calmly about their feelings",
			"Show empathy and understanding",
			"Set clear but kind boundaries",
		},
		LongTermRecommendations: []string{
			"Help the child build their emotional vocabulary",
			"Create a safe environment for expressing feelings",
			"Stay consistent in your reactions",
		},
		WhatNotToDo: []string{
			"Do not ignore the child's feelings",
			"Do not use physical punishment",
		},
		EmotionalTone:   models.ToneNeutral,
		ConfidenceScore: 0.5,
	}
}

// extractJSONObject returns the first balanced top-level {...} region of s.
// Braces inside JSON strings are skipped.
func extractJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
