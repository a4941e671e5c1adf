package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/service"
)

// MockIntelligence is a deterministic, network-free Intelligence
// implementation for tests and offline runs. Extraction uses the same
// keyword heuristics the original mock tooling shipped with, at a fixed 0.6
// confidence. Error fields inject failures per operation.
type MockIntelligence struct {
	ExtractErr error
	AnalyzeErr error
	ExplainErr error

	// ExtractResult, when set, is returned verbatim instead of the keyword
	// heuristics.
	ExtractResult *model.StructuredRequest
}

// ExtractRequest implements service.Intelligence.
func (m *MockIntelligence) ExtractRequest(_ context.Context, text, _ string) (*model.StructuredRequest, error) {
	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}
	if m.ExtractResult != nil {
		return m.ExtractResult, nil
	}

	lower := strings.ToLower(text)
	contains := func(words ...string) bool {
		for _, word := range words {
			if strings.Contains(lower, word) {
				return true
			}
		}
		return false
	}

	var goals []string
	if contains("miles", "travel", "airline") {
		goals = append(goals, "miles", "travel")
	}
	if contains("cashback", "cash", "money") {
		goals = append(goals, "cashback")
	}
	if contains("business", "corporate", "expense") {
		goals = append(goals, "business")
	}
	if contains("student", "college", "university") {
		goals = append(goals, "student")
	}
	if contains("credit", "building", "first") {
		goals = append(goals, "building_credit")
	}
	if len(goals) == 0 {
		goals = []string{model.DefaultGoal}
	}

	return &model.StructuredRequest{
		Intent:        model.IntentRecommendCard,
		Goals:         goals,
		Constraints:   make(map[string]float64),
		Jurisdiction:  "SG",
		RiskTolerance: model.RiskStandard,
		TimeHorizon:   model.DefaultTimeHorizon,
		Confidence:    0.6,
	}, nil
}

// AnalyzeCategory implements service.Intelligence.
func (m *MockIntelligence) AnalyzeCategory(_ context.Context, category string, req *model.StructuredRequest) (*model.CategoryAnalysis, error) {
	if m.AnalyzeErr != nil {
		return nil, m.AnalyzeErr
	}

	goals := []string{}
	risk := string(model.RiskStandard)
	if req != nil {
		goals = append(goals, req.Goals...)
		risk = string(req.RiskTolerance)
	}

	return &model.CategoryAnalysis{
		Emphasis:           map[string]string{"category": category},
		PriorityCategories: []string{category},
		RewardPreferences:  goals,
		ConstraintNotes:    []string{},
		RiskAssessment:     risk,
	}, nil
}

// Explain implements service.Intelligence.
func (m *MockIntelligence) Explain(_ context.Context, _ *model.StructuredRequest, candidates []model.AggregatedCandidate) (string, error) {
	if m.ExplainErr != nil {
		return "", m.ExplainErr
	}
	if len(candidates) == 0 {
		return "", nil
	}
	return fmt.Sprintf("The %s stands out for your stated goals.", candidates[0].Card.Name), nil
}

// MockCatalog serves a fixed card list. Err fails every search; the call
// counter is safe for concurrent handlers.
type MockCatalog struct {
	Err   error
	Cards []model.Card

	mu    sync.Mutex
	calls int
}

// Search implements service.Catalog.
func (m *MockCatalog) Search(_ context.Context, _ service.SearchCriteria) ([]model.Card, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Cards, nil
}

// Calls reports how many searches were issued.
func (m *MockCatalog) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockResearch serves fixed findings and records the queries it saw.
type MockResearch struct {
	Err      error
	Findings []model.SearchFinding
	Queries  []string
}

// Search implements service.Research.
func (m *MockResearch) Search(_ context.Context, query string) ([]model.SearchFinding, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Findings, nil
}

// MockPolicy serves fixed policy data with per-operation failure injection.
type MockPolicy struct {
	PackErr     error
	ValidateErr error
	Pack        model.PolicyPack
	Report      model.PolicyReport
}

// PolicyPack implements service.Policy.
func (m *MockPolicy) PolicyPack(_ context.Context, jurisdiction, locale string) (model.PolicyPack, error) {
	if m.PackErr != nil {
		return model.PolicyPack{}, m.PackErr
	}
	pack := m.Pack
	if pack.Jurisdiction == "" {
		pack.Jurisdiction = jurisdiction
		pack.Locale = locale
	}
	return pack, nil
}

// Validate implements service.Policy.
func (m *MockPolicy) Validate(_ context.Context, _ *model.StructuredRequest, _ model.Consent, _ model.PolicyPack) (model.PolicyReport, error) {
	if m.ValidateErr != nil {
		return model.PolicyReport{}, m.ValidateErr
	}
	return m.Report, nil
}
