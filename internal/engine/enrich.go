package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/cardsage/cardsage/internal/model"
)

// maxFindings caps how many research findings a session keeps.
const maxFindings = 8

// maxResearchTopics caps how many card-name queries the research stage
// issues on top of the raw query.
const maxResearchTopics = 3

// researchStage augments the session with informational findings for the
// top-ranked cards. Failures leave the findings empty; the run continues.
func (e *Engine) researchStage(ctx context.Context, session *model.SessionState) error {
	topics := researchTopics(session)

	var findings []model.SearchFinding
	for _, topic := range topics {
		var results []model.SearchFinding
		err := e.collaborate(ctx, func(callCtx context.Context) error {
			var searchErr error
			results, searchErr = e.research.Search(callCtx, topic)
			return searchErr
		})
		if err != nil {
			session.RecordError(model.StageResearch,
				fmt.Sprintf("research query %q failed: %v", topic, err),
				model.SeverityWarning)
			continue
		}
		findings = append(findings, results...)
	}

	session.Findings = dedupeFindings(findings)

	e.logger.Debug("Research complete",
		"session_id", session.ID,
		"topics", len(topics),
		"findings", len(session.Findings))
	return nil
}

// researchTopics lists the queries to issue: the first three recommended
// card names in plan order, then the raw query text.
func researchTopics(session *model.SessionState) []string {
	var topics []string
	for _, category := range session.FanoutPlan {
		result, ok := session.CategoryResults[category]
		if !ok {
			continue
		}
		for _, candidate := range result.Candidates {
			if len(topics) == maxResearchTopics {
				break
			}
			topics = append(topics, candidate.Card.Name)
		}
		if len(topics) == maxResearchTopics {
			break
		}
	}
	return append(topics, session.Query)
}

// dedupeFindings collapses findings sharing (source, title), keeping the
// higher relevance, then orders by relevance and caps the list.
func dedupeFindings(findings []model.SearchFinding) []model.SearchFinding {
	type findingKey struct {
		source string
		title  string
	}

	index := make(map[findingKey]int)
	deduped := make([]model.SearchFinding, 0, len(findings))
	for _, finding := range findings {
		key := findingKey{source: finding.Source, title: finding.Title}
		if at, ok := index[key]; ok {
			if finding.Relevance > deduped[at].Relevance {
				deduped[at] = finding
			}
			continue
		}
		index[key] = len(deduped)
		deduped = append(deduped, finding)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Relevance > deduped[j].Relevance
	})

	if len(deduped) > maxFindings {
		deduped = deduped[:maxFindings]
	}
	return deduped
}

// complianceStage validates the request against the jurisdiction policy
// pack. Report warnings surface on the session; collaborator failures
// collapse to a compliant default so the check never blocks aggregation.
func (e *Engine) complianceStage(ctx context.Context, session *model.SessionState) error {
	req := session.Request

	var pack model.PolicyPack
	err := e.collaborate(ctx, func(callCtx context.Context) error {
		var packErr error
		pack, packErr = e.policy.PolicyPack(callCtx, req.Jurisdiction, session.Locale)
		return packErr
	})

	var report model.PolicyReport
	if err == nil {
		err = e.collaborate(ctx, func(callCtx context.Context) error {
			var validateErr error
			report, validateErr = e.policy.Validate(callCtx, req, session.Consent, pack)
			return validateErr
		})
	}
	if err != nil {
		session.RecordError(model.StageCompliance,
			fmt.Sprintf("policy check failed, assuming compliant: %v", err),
			model.SeverityWarning)
		report = compliantDefault()
	}

	for _, warning := range report.Warnings {
		session.RecordError(model.StageCompliance, warning, model.SeverityWarning)
	}
	session.Compliance = &report

	e.logger.Debug("Compliance complete",
		"session_id", session.ID,
		"valid", report.Valid,
		"warnings", len(report.Warnings))
	return nil
}

// compliantDefault is the report used when the policy collaborator is
// unavailable.
func compliantDefault() model.PolicyReport {
	return model.PolicyReport{
		Valid:           true,
		Warnings:        []string{},
		RequiredConsent: []string{},
		ComplianceNotes: []string{},
		Suggestions:     []string{},
	}
}
