package sheets

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cardsage/cardsage/internal/model"
)

// ReportRow is one candidate line in a run's report tab.
type ReportRow struct {
	CardID         string
	CardName       string
	Issuer         string
	CategoryScores string
	BestFor        string
	Rationale      string
	AnnualFee      float64
	AggregateScore float64
	Rank           int
}

// Report is everything one run exports: the header block plus one row per
// aggregated candidate.
type Report struct {
	GeneratedAt   time.Time
	SessionID     string
	Query         string
	Locale        string
	Summary       string
	Warnings      []string
	Rows          []ReportRow
	Confidence    float64
	CardsAnalyzed int
}

// BuildReport converts a completed session into its exportable form.
func BuildReport(session *model.SessionState) *Report {
	report := &Report{
		GeneratedAt: time.Now(),
		SessionID:   session.ID,
		Query:       session.Query,
		Locale:      session.Locale,
	}

	if session.Answer != nil {
		report.Summary = session.Answer.Summary
		report.Confidence = session.Answer.Confidence
		report.CardsAnalyzed = session.Answer.CardsAnalyzed

		for i, cand := range session.Answer.Candidates {
			report.Rows = append(report.Rows, ReportRow{
				Rank:           i + 1,
				CardID:         cand.Card.ID,
				CardName:       cand.Card.Name,
				Issuer:         cand.Card.Issuer,
				AnnualFee:      cand.Card.AnnualFee,
				AggregateScore: cand.AggregateScore,
				CategoryScores: formatCategoryScores(cand.CategoryScores),
				BestFor:        strings.Join(cand.BestFor, ", "),
				Rationale:      cand.Rationale,
			})
		}
	}

	for _, warning := range session.Warnings() {
		report.Warnings = append(report.Warnings, fmt.Sprintf("[%s] %s", warning.Stage, warning.Message))
	}

	return report
}

// TabTitle returns a sheet title unique to this run. Colons are avoided:
// they are not valid in tab names.
func (r *Report) TabTitle() string {
	id := r.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Run %s %s", r.GeneratedAt.Format("2006-01-02 15-04-05"), id)
}

// formatCategoryScores joins per-category scores in category name order so
// the cell content is stable across runs.
func formatCategoryScores(scores map[string]float64) string {
	if len(scores) == 0 {
		return ""
	}
	categories := make([]string, 0, len(scores))
	for category := range scores {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	parts := make([]string, len(categories))
	for i, category := range categories {
		parts[i] = fmt.Sprintf("%s: %.2f", category, scores[category])
	}
	return strings.Join(parts, ", ")
}
