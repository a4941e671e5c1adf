package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cardsage/cardsage/internal/common"
)

// defaultExtractionConfidence is assumed when the model omits a confidence
// score from an otherwise valid extraction.
const defaultExtractionConfidence = 0.8

// cleanMarkdownWrapper strips markdown code fences that some models wrap
// around JSON despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```json")
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}

// goalSynonyms maps common phrasings to the canonical goal vocabulary the
// catalog understands.
var goalSynonyms = map[string]string{
	"miles":      "miles",
	"travel":     "miles",
	"airline":    "miles",
	"cashback":   "cashback",
	"cash":       "cashback",
	"money":      "cashback",
	"business":   "business",
	"corporate":  "business",
	"expense":    "business",
	"student":    "student",
	"college":    "student",
	"university": "student",
	"credit":     "building_credit",
	"building":   "building_credit",
	"first":      "building_credit",
}

// normalizeGoals lowercases each goal, maps known synonyms to their canonical
// form, and drops duplicates while preserving first-seen order.
func normalizeGoals(goals []string) []string {
	normalized := make([]string, 0, len(goals))
	seen := make(map[string]bool, len(goals))

	for _, goal := range goals {
		g := strings.ToLower(strings.TrimSpace(goal))
		if g == "" {
			continue
		}
		if canonical, ok := goalSynonyms[g]; ok {
			g = canonical
		}
		if !seen[g] {
			seen[g] = true
			normalized = append(normalized, g)
		}
	}

	return normalized
}

// parseExtraction decodes an extraction payload from raw model output.
func parseExtraction(content string) (ExtractionResponse, error) {
	var wire struct {
		Constraints   map[string]float64 `json:"constraints"`
		SpendFocus    map[string]float64 `json:"spend_focus"`
		Confidence    *float64           `json:"confidence"`
		Intent        string             `json:"intent"`
		Jurisdiction  string             `json:"jurisdiction"`
		RiskTolerance string             `json:"risk_tolerance"`
		TimeHorizon   string             `json:"time_horizon"`
		Goals         []string           `json:"goals"`
		Priority      []string           `json:"priority"`
		MustHave      []string           `json:"must_have"`
		NiceToHave    []string           `json:"nice_to_have"`
	}

	content = cleanMarkdownWrapper(content)

	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return ExtractionResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if wire.Intent == "" {
		return ExtractionResponse{}, fmt.Errorf("%w: no intent found in response", common.ErrValidation)
	}

	confidence := defaultExtractionConfidence
	if wire.Confidence != nil {
		confidence = *wire.Confidence
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return ExtractionResponse{
		Intent:        wire.Intent,
		Goals:         normalizeGoals(wire.Goals),
		Constraints:   wire.Constraints,
		SpendFocus:    wire.SpendFocus,
		Priority:      wire.Priority,
		MustHave:      wire.MustHave,
		NiceToHave:    wire.NiceToHave,
		Jurisdiction:  strings.ToUpper(strings.TrimSpace(wire.Jurisdiction)),
		RiskTolerance: strings.ToLower(strings.TrimSpace(wire.RiskTolerance)),
		TimeHorizon:   strings.TrimSpace(wire.TimeHorizon),
		Confidence:    confidence,
	}, nil
}

// parseAnalysis decodes a category analysis payload from raw model output.
func parseAnalysis(content string) (AnalysisResponse, error) {
	var wire struct {
		Emphasis           map[string]string `json:"emphasis"`
		RiskAssessment     string            `json:"risk_assessment"`
		PriorityCategories []string          `json:"priority_categories"`
		RewardPreferences  []string          `json:"reward_preferences"`
		ConstraintNotes    []string          `json:"constraint_notes"`
	}

	content = cleanMarkdownWrapper(content)

	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return AnalysisResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return AnalysisResponse{
		PriorityCategories: wire.PriorityCategories,
		RewardPreferences:  wire.RewardPreferences,
		RiskAssessment:     wire.RiskAssessment,
		ConstraintNotes:    wire.ConstraintNotes,
		Emphasis:           wire.Emphasis,
	}, nil
}

// parseSummary decodes a summary payload from raw model output. Models asked
// for plain JSON occasionally return bare prose instead, so a non-JSON body
// is accepted as the summary text itself.
func parseSummary(content string) (SummaryResponse, error) {
	var wire struct {
		Summary    string  `json:"summary"`
		Confidence float64 `json:"confidence"`
	}

	content = cleanMarkdownWrapper(content)

	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		if content == "" {
			return SummaryResponse{}, fmt.Errorf("%w: empty summary response", common.ErrValidation)
		}
		return SummaryResponse{Summary: content}, nil
	}

	if wire.Summary == "" {
		return SummaryResponse{}, fmt.Errorf("%w: no summary found in response", common.ErrValidation)
	}

	return SummaryResponse{
		Summary:    wire.Summary,
		Confidence: wire.Confidence,
	}, nil
}
