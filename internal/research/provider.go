// Package research provides the informational-search collaborator. The
// built-in provider answers from a curated static corpus, so runs stay
// deterministic and need no network access.
package research

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/cardsage/cardsage/internal/model"
)

// maxResults caps how many findings a single query returns.
const maxResults = 5

// corpusEntry pairs a finding with the query keywords that surface it. An
// entry with no keywords matches every query.
type corpusEntry struct {
	finding  model.SearchFinding
	keywords []string
}

func (e corpusEntry) matches(query string) bool {
	if len(e.keywords) == 0 {
		return true
	}
	for _, keyword := range e.keywords {
		if strings.Contains(query, keyword) {
			return true
		}
	}
	return false
}

// Provider serves research findings from the static corpus.
type Provider struct {
	logger *slog.Logger
	corpus []corpusEntry
}

// NewProvider creates a provider over the default corpus.
func NewProvider(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		logger: logger,
		corpus: defaultCorpus(),
	}
}

// Search returns corpus findings whose keywords appear in the query, sorted
// by relevance descending (ties keep corpus order) and capped at
// maxResults. The basics entry matches everything, so no query comes back
// empty.
func (p *Provider) Search(ctx context.Context, query string) ([]model.SearchFinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lowered := strings.ToLower(query)
	findings := make([]model.SearchFinding, 0, maxResults)
	for _, entry := range p.corpus {
		if entry.matches(lowered) {
			findings = append(findings, entry.finding)
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Relevance > findings[j].Relevance
	})
	if len(findings) > maxResults {
		findings = findings[:maxResults]
	}

	p.logger.Debug("research search complete", "found", len(findings))
	return findings, nil
}

// defaultCorpus returns the built-in findings: one block per card topic,
// card-specific entries for the seeded flagship cards, and a catch-all
// basics entry.
func defaultCorpus() []corpusEntry {
	return []corpusEntry{
		{
			keywords: []string{"travel", "miles"},
			finding: model.SearchFinding{
				Source:    "Credit Card Review Site",
				Title:     "Best Travel Credit Cards 2024",
				Content:   "Top travel credit cards with airline miles and hotel benefits. Compare annual fees and signup bonuses.",
				URL:       "https://example.com/travel-cards-2024",
				Relevance: 0.9,
			},
		},
		{
			keywords: []string{"travel", "miles"},
			finding: model.SearchFinding{
				Source:    "Bank Website",
				Title:     "Travel Rewards Program",
				Content:   "Earn miles on every purchase. No foreign transaction fees. Travel insurance included.",
				URL:       "https://example.com/travel-rewards",
				Relevance: 0.8,
			},
		},
		{
			keywords: []string{"cashback", "rewards"},
			finding: model.SearchFinding{
				Source:    "Financial Blog",
				Title:     "Cashback vs Points: Which is Better?",
				Content:   "Detailed comparison of cashback and points credit cards. Learn which type fits your spending habits.",
				URL:       "https://example.com/cashback-vs-points",
				Relevance: 0.85,
			},
		},
		{
			keywords: []string{"business", "corporate"},
			finding: model.SearchFinding{
				Source:    "Business Finance Site",
				Title:     "Business Credit Card Guide",
				Content:   "Essential guide to business credit cards. Employee cards, expense tracking, and corporate benefits.",
				URL:       "https://example.com/business-cards",
				Relevance: 0.9,
			},
		},
		{
			keywords: []string{"student", "building credit"},
			finding: model.SearchFinding{
				Source:    "Student Finance Blog",
				Title:     "First Credit Card for Students",
				Content:   "How to build credit as a student. Best first credit cards with no annual fees.",
				URL:       "https://example.com/student-cards",
				Relevance: 0.9,
			},
		},
		{
			keywords: []string{"krisflyer"},
			finding: model.SearchFinding{
				Source:    "Singapore Airlines",
				Title:     "KrisFlyer Credit Card Benefits",
				Content:   "Earn KrisFlyer miles on every purchase. Exclusive travel benefits and airport lounge access.",
				URL:       "https://example.com/krisflyer-card",
				Relevance: 0.95,
			},
		},
		{
			keywords: []string{"live fresh"},
			finding: model.SearchFinding{
				Source:    "DBS Bank",
				Title:     "Live Fresh Card Features",
				Content:   "5% cashback on online spending. No annual fee. Perfect for digital lifestyle.",
				URL:       "https://example.com/live-fresh-card",
				Relevance: 0.95,
			},
		},
		{
			keywords: []string{"business"},
			finding: model.SearchFinding{
				Source:    "UOB Bank",
				Title:     "Business Card Solutions",
				Content:   "Corporate expense management. Employee card programs. Business rewards and benefits.",
				URL:       "https://example.com/business-card",
				Relevance: 0.9,
			},
		},
		{
			finding: model.SearchFinding{
				Source:    "Credit Card Comparison",
				Title:     "Credit Card Basics",
				Content:   "Understanding annual fees, interest rates, and rewards programs. Tips for choosing the right card.",
				URL:       "https://example.com/credit-card-basics",
				Relevance: 0.7,
			},
		},
	}
}
