package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardsage/cardsage/internal/model"
)

// exportedSession builds a completed session the way the aggregate stage
// leaves it.
func exportedSession() *model.SessionState {
	session := model.NewSessionState("best miles card for frequent flyers", "SG", model.DefaultConsent())
	session.Answer = &model.FinalAnswer{
		Summary:       "Based on your goals of miles, travel, I've analyzed 2 credit cards.",
		CardsAnalyzed: 2,
		Confidence:    0.82,
		Elapsed:       125 * time.Millisecond,
		Candidates: model.AggregatedCandidates{
			{
				Card: model.Card{
					ID:        "dbs-altitude",
					Name:      "DBS Altitude",
					Issuer:    "DBS",
					AnnualFee: 196.20,
				},
				AggregateScore: 0.91,
				CategoryScores: map[string]float64{"travel": 0.91, "general": 0.55},
				BestFor:        []string{"Airline miles earning", "International travel"},
				Rationale:      "Strong miles earn rate on travel spend.",
			},
			{
				Card: model.Card{
					ID:     "uob-one",
					Name:   "UOB One",
					Issuer: "UOB",
				},
				AggregateScore: 0.64,
				CategoryScores: map[string]float64{"cashback": 0.64},
				BestFor:        []string{"Flat-rate cashback"},
				Rationale:      "Solid cashback alternative with no annual fee.",
			},
		},
	}
	return session
}

func TestBuildReport(t *testing.T) {
	session := exportedSession()
	session.RecordError("travel", "catalog lookup failed, using backup candidates", model.SeverityWarning)
	session.RecordError("research", "search provider unavailable", model.SeverityFatal)

	report := BuildReport(session)

	assert.Equal(t, session.ID, report.SessionID)
	assert.Equal(t, "best miles card for frequent flyers", report.Query)
	assert.Equal(t, "SG", report.Locale)
	assert.Equal(t, session.Answer.Summary, report.Summary)
	assert.InDelta(t, 0.82, report.Confidence, 1e-9)
	assert.Equal(t, 2, report.CardsAnalyzed)
	assert.False(t, report.GeneratedAt.IsZero())

	require.Len(t, report.Rows, 2)
	first := report.Rows[0]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, "dbs-altitude", first.CardID)
	assert.Equal(t, "DBS Altitude", first.CardName)
	assert.Equal(t, "DBS", first.Issuer)
	assert.InDelta(t, 196.20, first.AnnualFee, 1e-9)
	assert.InDelta(t, 0.91, first.AggregateScore, 1e-9)
	assert.Equal(t, "general: 0.55, travel: 0.91", first.CategoryScores)
	assert.Equal(t, "Airline miles earning, International travel", first.BestFor)
	assert.Equal(t, 2, report.Rows[1].Rank)

	// Fatal records belong to the fallback narrative, not the report.
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "[travel] catalog lookup failed, using backup candidates", report.Warnings[0])
}

func TestBuildReportWithoutAnswer(t *testing.T) {
	session := model.NewSessionState("any cashback card", "SG", model.DefaultConsent())

	report := BuildReport(session)

	assert.Equal(t, session.ID, report.SessionID)
	assert.Equal(t, "any cashback card", report.Query)
	assert.Empty(t, report.Rows)
	assert.Empty(t, report.Summary)
	assert.Zero(t, report.Confidence)
}

func TestReportTabTitle(t *testing.T) {
	report := &Report{
		GeneratedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		SessionID:   "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
	}

	assert.Equal(t, "Run 2026-03-14 09-26-53 a1b2c3d4", report.TabTitle())
	assert.NotContains(t, report.TabTitle(), ":")

	report.SessionID = "short"
	assert.Equal(t, "Run 2026-03-14 09-26-53 short", report.TabTitle())
}

func TestPrepareReportData(t *testing.T) {
	report := BuildReport(exportedSession())

	values := prepareReportData(report)

	require.Len(t, values, candidateHeaderRow+1+2)
	assert.Equal(t, "CardSage Recommendation Report", values[0][0])
	assert.Equal(t, []any{"Query", "best miles card for frequent flyers"}, values[2])
	assert.Equal(t, []any{"Locale", "SG"}, values[3])
	assert.Equal(t, []any{"Confidence", 0.82}, values[4])
	assert.Equal(t, []any{"Cards analyzed", 2}, values[5])

	header := values[candidateHeaderRow]
	assert.Equal(t, []any{"Rank", "Card", "Issuer", "Score", "Category scores", "Best for", "Annual fee", "Rationale"}, header)

	first := values[candidateHeaderRow+1]
	require.Len(t, first, 8)
	assert.Equal(t, 1, first[0])
	assert.Equal(t, "DBS Altitude", first[1])
	assert.Equal(t, "DBS", first[2])
	assert.Equal(t, 0.91, first[3])
	assert.Equal(t, "general: 0.55, travel: 0.91", first[4])
	assert.Equal(t, "Airline miles earning, International travel", first[5])
	assert.Equal(t, 196.20, first[6])
	assert.Equal(t, "Strong miles earn rate on travel spend.", first[7])

	last := values[len(values)-1]
	assert.Equal(t, "UOB One", last[1])
}

func TestPrepareReportDataWarnings(t *testing.T) {
	session := exportedSession()
	session.RecordError("travel", "catalog lookup failed", model.SeverityWarning)

	values := prepareReportData(BuildReport(session))

	require.Len(t, values, candidateHeaderRow+1+2+3)
	assert.Equal(t, []any{"Warnings"}, values[len(values)-2])
	assert.Equal(t, []any{"[travel] catalog lookup failed"}, values[len(values)-1])
}

func TestFormatCategoryScores(t *testing.T) {
	assert.Empty(t, formatCategoryScores(nil))
	assert.Equal(t, "cashback: 0.64", formatCategoryScores(map[string]float64{"cashback": 0.64}))
	assert.Equal(t, "general: 0.55, travel: 0.91",
		formatCategoryScores(map[string]float64{"travel": 0.91, "general": 0.55}))
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	session := exportedSession()

	require.NoError(t, mock.Write(context.Background(), session))
	assert.Equal(t, 1, mock.WriteCallCount)
	assert.Same(t, session, mock.LastSession)

	mock.SetWriteError(errors.New("quota exceeded"))
	err := mock.Write(context.Background(), session)
	require.Error(t, err)
	assert.Equal(t, "quota exceeded", err.Error())

	calls := mock.GetWriteCalls()
	require.Len(t, calls, 2)
	assert.NoError(t, calls[0].Error)
	assert.Error(t, calls[1].Error)

	mock.AssertWriteCalled(t, 2)

	mock.Reset()
	assert.Equal(t, 0, mock.WriteCallCount)
	assert.Nil(t, mock.LastSession)
	assert.Empty(t, mock.GetWriteCalls())
}
