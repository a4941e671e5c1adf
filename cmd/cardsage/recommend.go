package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"log/slog"

	"github.com/cardsage/cardsage/internal/cli"
	"github.com/cardsage/cardsage/internal/engine"
	"github.com/cardsage/cardsage/internal/model"
	"github.com/spf13/cobra"
)

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <query>",
		Short: "Recommend credit cards for a plain-language query",
		Long: `Run the full recommendation pipeline for one query.

The query is parsed into a structured request, routed to per-category
scorers, enriched with research findings, checked against jurisdiction
policy, and aggregated into a ranked answer.

Examples:
  # Ask in plain language
  cardsage recommend "a card that earns airline miles"

  # Pin the jurisdiction
  cardsage recommend "cashback with no annual fee" --locale en-SG

  # Personalize from a bank statement
  cardsage recommend "miles for my usual spending" --statement jan.ofx

  # Machine-readable output
  cardsage recommend "business travel card" --json`,
		Args: cobra.ExactArgs(1),
		RunE: runRecommend,
	}

	addRunFlags(cmd)
	cmd.Flags().String("statement", "", "OFX statement used to derive spending focus")
	cmd.Flags().Bool("json", false, "print the answer as JSON instead of styled text")
	cmd.Flags().Bool("trace", false, "export OpenTelemetry traces for this run")

	return cmd
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := args[0]
	locale, _ := cmd.Flags().GetString("locale")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	trace, _ := cmd.Flags().GetBool("trace")
	statement, _ := cmd.Flags().GetString("statement")

	consent := consentFromFlags(cmd)

	var runOpts []engine.RunOption
	if statement != "" {
		if !consent.Personalization {
			slog.Warn("Statement provided without personalization consent; spending focus will be dropped")
		}
		focus, err := loadSpendFocus(ctx, statement)
		if err != nil {
			return err
		}
		runOpts = append(runOpts, engine.WithSpendFocus(focus))
	}

	eng, cleanup, err := buildEngine(ctx, cmd, trace)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := eng.Run(ctx, query, locale, consent, runOpts...)
	if err != nil {
		return fmt.Errorf("recommendation run failed: %w", err)
	}

	if jsonOutput {
		return printAnswerJSON(os.Stdout, session)
	}

	fmt.Println(cli.RenderAnswer(session))
	return nil
}

// answerJSON is the machine-readable form of a completed run. The model
// types stay presentation-free; this view owns the wire field names.
type answerJSON struct {
	SessionID     string          `json:"session_id"`
	Query         string          `json:"query"`
	Locale        string          `json:"locale"`
	Summary       string          `json:"summary"`
	Candidates    []candidateJSON `json:"candidates"`
	Warnings      []string        `json:"warnings,omitempty"`
	CardsAnalyzed int             `json:"cards_analyzed"`
	Confidence    float64         `json:"confidence"`
	ElapsedMs     int64           `json:"elapsed_ms"`
}

type candidateJSON struct {
	CategoryScores map[string]float64 `json:"category_scores"`
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Issuer         string             `json:"issuer"`
	Rationale      string             `json:"rationale"`
	BestFor        []string           `json:"best_for"`
	AnnualFee      float64            `json:"annual_fee"`
	AggregateScore float64            `json:"aggregate_score"`
}

func buildAnswerJSON(session *model.SessionState) answerJSON {
	out := answerJSON{
		SessionID: session.ID,
		Query:     session.Query,
		Locale:    session.Locale,
	}

	if answer := session.Answer; answer != nil {
		out.Summary = answer.Summary
		out.CardsAnalyzed = answer.CardsAnalyzed
		out.Confidence = answer.Confidence
		out.ElapsedMs = answer.Elapsed.Milliseconds()
		for _, candidate := range answer.Candidates {
			out.Candidates = append(out.Candidates, candidateJSON{
				ID:             candidate.Card.ID,
				Name:           candidate.Card.Name,
				Issuer:         candidate.Card.Issuer,
				AnnualFee:      candidate.Card.AnnualFee,
				AggregateScore: candidate.AggregateScore,
				CategoryScores: candidate.CategoryScores,
				BestFor:        candidate.BestFor,
				Rationale:      candidate.Rationale,
			})
		}
	}

	for _, record := range session.Warnings() {
		out.Warnings = append(out.Warnings, fmt.Sprintf("[%s] %s", record.Stage, record.Message))
	}

	return out
}

func printAnswerJSON(w io.Writer, session *model.SessionState) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildAnswerJSON(session))
}
