package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/service"
)

// Extractor implements the service.Intelligence interface using LLM APIs.
type Extractor struct {
	client    Client
	cache     *extractionCache
	logger    *slog.Logger
	limiter   *rateLimiter
	retryOpts service.RetryOptions
}

// Config holds configuration for the LLM extractor.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// NewExtractor creates a new LLM-backed intelligence collaborator.
func NewExtractor(cfg Config, logger *slog.Logger) (*Extractor, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}

	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = 100 * time.Millisecond
	}

	return &Extractor{
		client:    client,
		cache:     newExtractionCache(cfg.CacheTTL),
		logger:    logger,
		retryOpts: retryOpts,
		limiter:   newRateLimiter(cfg.RateLimit),
	}, nil
}

// ExtractRequest parses a free-text query into a structured request.
func (e *Extractor) ExtractRequest(ctx context.Context, text, locale string) (*model.StructuredRequest, error) {
	// Check cache first
	key := cacheKey(text, locale)
	if cached, found := e.cache.get(key); found {
		e.logger.Debug("cache hit for query",
			"locale", locale,
			"goals", cached.Goals)
		return &cached, nil
	}

	// Rate limiting
	if err := e.limiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildExtractionPrompt(text, locale)

	var extraction ExtractionResponse

	// Use common retry logic
	err := common.WithRetry(ctx, func() error {
		e.logger.Debug("attempting LLM extraction", "locale", locale)

		resp, err := e.client.Extract(ctx, prompt)
		if err != nil {
			e.logger.Warn("LLM extraction attempt failed",
				"error", err,
				"locale", locale)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		extraction = resp
		return nil
	}, e.retryOpts)

	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	request := toStructuredRequest(extraction)

	// Cache the result
	e.cache.set(key, *request)

	e.logger.Info("query extracted",
		"goals", request.Goals,
		"jurisdiction", request.Jurisdiction,
		"risk_tolerance", request.RiskTolerance,
		"confidence", request.Confidence)

	return request, nil
}

// AnalyzeCategory asks the collaborator what matters most when picking cards
// within a single category for the given request.
func (e *Extractor) AnalyzeCategory(ctx context.Context, category string, req *model.StructuredRequest) (*model.CategoryAnalysis, error) {
	// Rate limiting
	if err := e.limiter.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildAnalysisPrompt(category, req)

	var analysis AnalysisResponse

	// Use common retry logic
	err := common.WithRetry(ctx, func() error {
		resp, err := e.client.Analyze(ctx, prompt)
		if err != nil {
			e.logger.Warn("LLM category analysis attempt failed",
				"error", err,
				"category", category)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		analysis = resp
		return nil
	}, e.retryOpts)

	if err != nil {
		return nil, fmt.Errorf("category analysis failed: %w", err)
	}

	e.logger.Debug("category analyzed",
		"category", category,
		"priorities", analysis.PriorityCategories)

	return &model.CategoryAnalysis{
		PriorityCategories: analysis.PriorityCategories,
		RewardPreferences:  analysis.RewardPreferences,
		RiskAssessment:     analysis.RiskAssessment,
		ConstraintNotes:    analysis.ConstraintNotes,
		Emphasis:           analysis.Emphasis,
	}, nil
}

// Explain generates a natural-language summary for an aggregated
// recommendation set.
func (e *Extractor) Explain(ctx context.Context, req *model.StructuredRequest, candidates []model.AggregatedCandidate) (string, error) {
	// Rate limiting
	if err := e.limiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildSummaryPrompt(req, candidates)

	var summary SummaryResponse

	// Use common retry logic
	err := common.WithRetry(ctx, func() error {
		resp, err := e.client.Summarize(ctx, prompt)
		if err != nil {
			e.logger.Warn("LLM summary attempt failed", "error", err)
			return &common.RetryableError{Err: err, Retryable: true}
		}

		summary = resp
		return nil
	}, e.retryOpts)

	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	return summary.Summary, nil
}

// Close stops background goroutines and cleans up resources.
func (e *Extractor) Close() error {
	if e.cache != nil {
		e.cache.Close()
	}
	return nil
}

// toStructuredRequest converts a wire extraction into the domain request.
// Field defaults and jurisdiction overrides are the engine's job, not ours.
func toStructuredRequest(resp ExtractionResponse) *model.StructuredRequest {
	return &model.StructuredRequest{
		Intent:        resp.Intent,
		Goals:         resp.Goals,
		Constraints:   resp.Constraints,
		SpendFocus:    resp.SpendFocus,
		Priority:      resp.Priority,
		MustHave:      resp.MustHave,
		NiceToHave:    resp.NiceToHave,
		Jurisdiction:  resp.Jurisdiction,
		RiskTolerance: model.RiskTolerance(resp.RiskTolerance),
		TimeHorizon:   resp.TimeHorizon,
		Confidence:    resp.Confidence,
	}
}

// buildExtractionPrompt creates the prompt for structured request extraction.
func buildExtractionPrompt(text, locale string) string {
	return fmt.Sprintf(`Extract a structured credit card request from this user query.

User Query:
%s

Locale: %s

Field guidance:
- intent: always "recommend_card"
- goals: zero or more of miles, cashback, rewards, travel, business, student, building_credit
- constraints: optional numeric limits, using keys annual_fee_max, fx_fee_max_pct, min_credit_score
- spend_focus: spending categories mapped to shares between 0.0 and 1.0
- priority: what the user cares about most, in order
- must_have: hard requirements stated by the user
- nice_to_have: soft preferences stated by the user
- jurisdiction: two-letter country code only if the user names a country
- risk_tolerance: one of conservative, standard, aggressive
- time_horizon: how long the user plans around, e.g. "12m"
- confidence: your confidence in this extraction between 0.0 and 1.0

Omit any field the query gives no evidence for.

Respond in this exact JSON format:
{"intent": "recommend_card", "goals": ["miles"], "constraints": {"annual_fee_max": 100}, "spend_focus": {"dining": 0.4}, "priority": ["low fees"], "must_have": [], "nice_to_have": [], "jurisdiction": "SG", "risk_tolerance": "standard", "time_horizon": "12m", "confidence": 0.9}`,
		text,
		locale)
}

// buildAnalysisPrompt creates the prompt for category analysis.
func buildAnalysisPrompt(category string, req *model.StructuredRequest) string {
	// Build request details, handling optional fields
	requestDetails := fmt.Sprintf("Goals: %s\nRisk tolerance: %s\nTime horizon: %s",
		strings.Join(req.Goals, ", "),
		req.RiskTolerance,
		req.TimeHorizon)

	if len(req.Constraints) > 0 {
		requestDetails += fmt.Sprintf("\nConstraints: %v", req.Constraints)
	}

	if len(req.Priority) > 0 {
		requestDetails += fmt.Sprintf("\nPriorities: %s", strings.Join(req.Priority, ", "))
	}

	if len(req.MustHave) > 0 {
		requestDetails += fmt.Sprintf("\nMust have: %s", strings.Join(req.MustHave, ", "))
	}

	return fmt.Sprintf(`Analyze what matters most when recommending %s credit cards for this request.

Request Details:
%s

Respond in this exact JSON format:
{"priority_categories": ["dining"], "reward_preferences": ["high earn rate"], "risk_assessment": "one sentence", "constraint_notes": ["note"], "emphasis": {"annual_fee": "why it matters here"}}`,
		category,
		requestDetails)
}

// buildSummaryPrompt creates the prompt for recommendation summaries.
func buildSummaryPrompt(req *model.StructuredRequest, candidates []model.AggregatedCandidate) string {
	candidateList := ""
	for _, c := range candidates {
		candidateList += fmt.Sprintf("- %s (score %.2f): %s\n", c.Card.Name, c.AggregateScore, c.Rationale)
	}

	goals := "rewards"
	if req != nil && len(req.Goals) > 0 {
		goals = strings.Join(req.Goals, ", ")
	}

	return fmt.Sprintf(`Write a short summary (2-3 sentences) explaining these credit card recommendations to the user.

User goals: %s

Recommended cards:
%s
Respond in this exact JSON format:
{"summary": "your summary here", "confidence": 0.85}`,
		goals,
		candidateList)
}
