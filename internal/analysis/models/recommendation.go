package models

import "fmt"

// EmotionalTone classifies how seriously a situation should be taken.
type EmotionalTone string

const (
	TonePositive   EmotionalTone = "positive"
	ToneNeutral    EmotionalTone = "neutral"
	ToneConcerning EmotionalTone = "concerning"
	ToneUrgent     EmotionalTone = "urgent"
)

// IsValid reports whether the tone is one of the known values.
func (t EmotionalTone) IsValid() bool {
	switch t {
	case TonePositive, ToneNeutral, ToneConcerning, ToneUrgent:
		return true
	}
	return false
}

// CoerceTone maps unknown tone values to neutral instead of rejecting them.
// The reasoning service occasionally invents tone labels; treating those as
// neutral keeps the response usable.
func CoerceTone(raw string) EmotionalTone {
	t := EmotionalTone(raw)
	if !t.IsValid() {
		return ToneNeutral
	}
	return t
}

// DefaultConfidence is assumed when the reasoning service omits a score.
const DefaultConfidence = 0.8

// Recommendation is the structured output of one analysis. Immutable once
// constructed.
type Recommendation struct {
	HiddenMeaning           string        `json:"hidden_meaning"`
	ImmediateActions        []string      `json:"immediate_actions"`
	LongTermRecommendations []string      `json:"long_term_recommendations"`
	WhatNotToDo             []string      `json:"what_not_to_do"`
	EmotionalTone           EmotionalTone `json:"emotional_tone"`
	ConfidenceScore         float64       `json:"confidence_score"`
}

// NewRecommendation validates and builds a Recommendation.
func NewRecommendation(
	hiddenMeaning string,
	immediateActions, longTermRecommendations, whatNotToDo []string,
	tone EmotionalTone,
	confidence float64,
) (*Recommendation, error) {
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence score %v outside [0,1]", confidence)
	}
	if !tone.IsValid() {
		tone = ToneNeutral
	}
	return &Recommendation{
		HiddenMeaning:           hiddenMeaning,
		ImmediateActions:        immediateActions,
		LongTermRecommendations: longTermRecommendations,
		WhatNotToDo:             whatNotToDo,
		EmotionalTone:           tone,
		ConfidenceScore:         confidence,
	}, nil
}
