package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cardsage/cardsage/internal/model"
	"github.com/cardsage/cardsage/internal/profile"
)

// RenderAnswer formats a completed run for the terminal: the summary box,
// the ranked candidate table, research notes, compliance output, and any
// warnings the pipeline absorbed along the way.
func RenderAnswer(session *model.SessionState) string {
	if session == nil || session.Answer == nil {
		return FormatWarning("No recommendation was produced.")
	}
	answer := session.Answer

	var sections []string
	sections = append(sections, RenderBox("Recommendation", answer.Summary))
	sections = append(sections, renderCandidates(answer.Candidates))

	if len(session.Findings) > 0 {
		sections = append(sections, renderFindings(session.Findings))
	}
	if session.Compliance != nil {
		sections = append(sections, renderCompliance(session.Compliance))
	}
	if warnings := session.Warnings(); len(warnings) > 0 {
		sections = append(sections, renderWarnings(warnings))
	}
	if session.Recovery != nil && session.Recovery.ErrorsHandled > 0 {
		sections = append(sections, renderRecovery(session.Recovery))
	}

	footer := SubtleStyle.Render(fmt.Sprintf("Analyzed %d cards in %s.",
		answer.CardsAnalyzed, answer.Elapsed.Round(time.Millisecond)))
	sections = append(sections, footer)

	return strings.Join(sections, "\n\n")
}

func renderCandidates(candidates model.AggregatedCandidates) string {
	if len(candidates) == 0 {
		return FormatInfo("No candidates matched. Try fewer constraints or a broader goal.")
	}

	var buf strings.Builder
	buf.WriteString(FormatTitle("Top candidates") + "\n")

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("#"),
		TableHeaderStyle.Render("Card"),
		TableHeaderStyle.Render("Issuer"),
		TableHeaderStyle.Render("Score"),
		TableHeaderStyle.Render("Annual fee"),
		TableHeaderStyle.Render("Best for"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 2),
		strings.Repeat("-", 30),
		strings.Repeat("-", 12),
		strings.Repeat("-", 5),
		strings.Repeat("-", 10),
		strings.Repeat("-", 30))

	for i, cand := range candidates {
		score := ScoreStyle(cand.AggregateScore).Render(fmt.Sprintf("%.2f", cand.AggregateScore))
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			cand.Card.Name,
			cand.Card.Issuer,
			score,
			formatFee(cand.Card.AnnualFee),
			strings.Join(cand.BestFor, ", "))
	}
	w.Flush()

	if top := candidates[0]; top.Rationale != "" {
		buf.WriteString("\n" + InfoStyle.Render(top.Rationale))
	}

	return buf.String()
}

func renderFindings(findings []model.SearchFinding) string {
	var buf strings.Builder
	buf.WriteString(FormatTitle("Research notes") + "\n")

	shown := findings
	if len(shown) > 3 {
		shown = shown[:3]
	}
	for _, finding := range shown {
		buf.WriteString(fmt.Sprintf("  %s %s %s\n",
			SearchIcon,
			BoldStyle.Render(finding.Title),
			SubtleStyle.Render("("+finding.Source+")")))
	}
	if len(findings) > len(shown) {
		buf.WriteString(SubtleStyle.Render(fmt.Sprintf("  ... and %d more findings", len(findings)-len(shown))) + "\n")
	}

	return strings.TrimRight(buf.String(), "\n")
}

func renderCompliance(report *model.PolicyReport) string {
	var buf strings.Builder
	if report.Valid {
		buf.WriteString(SuccessStyle.Render(ShieldIcon+" Compliance checks passed") + "\n")
	} else {
		buf.WriteString(ErrorStyle.Render(ShieldIcon+" Compliance review needed") + "\n")
	}
	for _, warning := range report.Warnings {
		buf.WriteString("  " + FormatWarning(warning) + "\n")
	}
	for _, note := range report.ComplianceNotes {
		buf.WriteString("  " + SubtleStyle.Render(note) + "\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderWarnings(warnings []model.ErrorRecord) string {
	var buf strings.Builder
	buf.WriteString(WarningStyle.Render(fmt.Sprintf("%s %d warnings during processing:", WarningIcon, len(warnings))) + "\n")
	for _, record := range warnings {
		buf.WriteString(fmt.Sprintf("  • [%s] %s\n", record.Stage, record.Message))
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderRecovery(recovery *model.Recovery) string {
	var buf strings.Builder
	buf.WriteString(FormatWarning(recovery.Message) + "\n")
	for _, action := range recovery.RecoveryActions {
		buf.WriteString("  • " + action + "\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

// RenderCards formats the catalog listing.
func RenderCards(cards []model.Card) string {
	if len(cards) == 0 {
		return FormatInfo("Catalog is empty. Seed it with 'cardsage catalog seed'.")
	}

	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("ID"),
		TableHeaderStyle.Render("Name"),
		TableHeaderStyle.Render("Category"),
		TableHeaderStyle.Render("Issuer"),
		TableHeaderStyle.Render("Annual fee"),
		TableHeaderStyle.Render("Rewards"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 12),
		strings.Repeat("-", 30),
		strings.Repeat("-", 8),
		strings.Repeat("-", 12),
		strings.Repeat("-", 10),
		strings.Repeat("-", 25))

	for _, card := range cards {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			card.ID,
			card.Name,
			card.Category,
			card.Issuer,
			formatFee(card.AnnualFee),
			card.RewardsRate)
	}
	w.Flush()

	return strings.TrimRight(buf.String(), "\n")
}

// RenderFocus formats a derived spending focus alongside the statement
// totals it came from.
func RenderFocus(spends []profile.Spend, focus map[string]float64) string {
	if len(spends) == 0 {
		return FormatInfo("No spend entries found in the statement.")
	}

	var total float64
	for _, spend := range spends {
		total += spend.Amount
	}

	var buf strings.Builder
	buf.WriteString(FormatTitle("Spending focus") + "\n")
	buf.WriteString(fmt.Sprintf("%s %d entries, S$%.2f total\n\n", ChartIcon, len(spends), total))

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\n",
		TableHeaderStyle.Render("Category"),
		TableHeaderStyle.Render("Share"),
		TableHeaderStyle.Render("Amount"))
	for _, entry := range sortedShares(focus) {
		fmt.Fprintf(w, "%s\t%5.1f%%\tS$%.2f\n", entry.category, entry.share*100, entry.share*total)
	}
	w.Flush()

	return strings.TrimRight(buf.String(), "\n")
}

type shareEntry struct {
	category string
	share    float64
}

// sortedShares orders focus shares descending, ties alphabetical, so the
// output is stable across runs.
func sortedShares(focus map[string]float64) []shareEntry {
	entries := make([]shareEntry, 0, len(focus))
	for category, share := range focus {
		entries = append(entries, shareEntry{category: category, share: share})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].share != entries[j].share {
			return entries[i].share > entries[j].share
		}
		return entries[i].category < entries[j].category
	})
	return entries
}

func formatFee(fee float64) string {
	if fee == 0 {
		return "None"
	}
	return fmt.Sprintf("S$%.2f", fee)
}
