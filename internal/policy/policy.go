// Package policy provides the jurisdiction-policy collaborator. Packs and
// validation rules are static; nothing here blocks a recommendation run.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cardsage/cardsage/internal/model"
)

// Provider implements service.Policy with built-in rules.
type Provider struct {
	logger *slog.Logger
}

// NewProvider creates a policy provider.
func NewProvider(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{logger: logger}
}

// PolicyPack returns the rules for a jurisdiction. Every pack carries the
// same regulation stance; only the compliance flags vary: GDPR applies to
// en-* locales, CCPA to the US.
func (p *Provider) PolicyPack(ctx context.Context, jurisdiction, locale string) (model.PolicyPack, error) {
	if err := ctx.Err(); err != nil {
		return model.PolicyPack{}, err
	}

	pack := model.PolicyPack{
		Jurisdiction:    jurisdiction,
		Locale:          locale,
		CreditPull:      "soft_only",
		DataSharing:     "minimal",
		ConsentRequired: true,
		GDPR:            strings.HasPrefix(locale, "en-"),
		CCPA:            jurisdiction == "US",
	}

	p.logger.Debug("policy pack resolved",
		"jurisdiction", jurisdiction,
		"gdpr", pack.GDPR,
		"ccpa", pack.CCPA)
	return pack, nil
}

// Validate checks the request against the pack. The request itself is always
// valid; the report carries consent warnings, jurisdiction notes, and
// suggestions for the final answer.
func (p *Provider) Validate(ctx context.Context, req *model.StructuredRequest, consent model.Consent, pack model.PolicyPack) (model.PolicyReport, error) {
	if err := ctx.Err(); err != nil {
		return model.PolicyReport{}, err
	}
	if req == nil {
		return model.PolicyReport{}, fmt.Errorf("no request to validate")
	}

	report := model.PolicyReport{
		Valid:           true,
		RequiredConsent: []string{"personalization", "data_sharing"},
		Warnings:        []string{},
		ComplianceNotes: []string{},
		Suggestions:     []string{},
	}

	if !consent.Personalization {
		report.Warnings = append(report.Warnings, "Personalization consent required for better recommendations")
		report.Suggestions = append(report.Suggestions, "Enable personalization for tailored results")
	}
	if !consent.DataSharing {
		report.Warnings = append(report.Warnings, "Data sharing consent required for comprehensive analysis")
		report.Suggestions = append(report.Suggestions, "Enable data sharing for detailed insights")
	}

	switch req.Jurisdiction {
	case "SG":
		if !pack.GDPR {
			report.ComplianceNotes = append(report.ComplianceNotes, "GDPR compliance not applicable for Singapore")
		}
		report.Suggestions = append(report.Suggestions, "Singapore regulations apply")
	case "US":
		if !pack.CCPA {
			report.ComplianceNotes = append(report.ComplianceNotes, "CCPA compliance not applicable for US")
		}
		report.Suggestions = append(report.Suggestions, "US regulations apply")
	}

	if req.RiskTolerance == model.RiskAggressive {
		report.Suggestions = append(report.Suggestions, "Consider conservative options for better approval chances")
	}
	if req.TimeHorizon == "12m" {
		report.Suggestions = append(report.Suggestions, "Focus on cards with good signup bonuses")
	}

	p.logger.Debug("policy validation complete",
		"jurisdiction", req.Jurisdiction,
		"warnings", len(report.Warnings),
		"suggestions", len(report.Suggestions))
	return report, nil
}
