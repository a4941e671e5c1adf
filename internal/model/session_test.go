package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionState(t *testing.T) {
	session := NewSessionState("best miles card", "en-SG", DefaultConsent())

	_, err := uuid.Parse(session.ID)
	require.NoError(t, err, "session ID should be a UUID")

	assert.Equal(t, "best miles card", session.Query)
	assert.Equal(t, "en-SG", session.Locale)
	assert.True(t, session.Consent.Personalization)
	assert.False(t, session.Consent.DataSharing)
	assert.NotNil(t, session.CategoryResults)
	assert.Empty(t, session.CompletedStages)
	assert.Empty(t, session.Errors)
	assert.False(t, session.CreatedAt.IsZero())
}

func TestNewSessionStateUniqueIDs(t *testing.T) {
	first := NewSessionState("q", "en-SG", DefaultConsent())
	second := NewSessionState("q", "en-SG", DefaultConsent())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRecordError(t *testing.T) {
	session := NewSessionState("q", "en-SG", DefaultConsent())

	session.RecordError(StageResearch, "search degraded", SeverityWarning)
	session.RecordError(StageExtract, "collaborator unreachable", SeverityFatal)

	require.Len(t, session.Errors, 2)
	assert.Equal(t, StageResearch, session.Errors[0].Stage)
	assert.Equal(t, SeverityWarning, session.Errors[0].Severity)
	assert.False(t, session.Errors[0].Timestamp.IsZero())
	assert.Equal(t, SeverityFatal, session.Errors[1].Severity)
}

func TestHasFatalErrors(t *testing.T) {
	tests := []struct {
		name       string
		severities []ErrorSeverity
		want       bool
	}{
		{
			name:       "no errors",
			severities: nil,
			want:       false,
		},
		{
			name:       "warnings only",
			severities: []ErrorSeverity{SeverityWarning, SeverityWarning},
			want:       false,
		},
		{
			name:       "one fatal",
			severities: []ErrorSeverity{SeverityWarning, SeverityFatal},
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSessionState("q", "en-SG", DefaultConsent())
			for _, severity := range tt.severities {
				session.RecordError(StageResearch, "boom", severity)
			}
			assert.Equal(t, tt.want, session.HasFatalErrors())
		})
	}
}

func TestWarningsFiltersFatal(t *testing.T) {
	session := NewSessionState("q", "en-SG", DefaultConsent())
	session.RecordError(StageResearch, "first warning", SeverityWarning)
	session.RecordError(StageExtract, "fatal", SeverityFatal)
	session.RecordError(StageCompliance, "second warning", SeverityWarning)

	warnings := session.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "first warning", warnings[0].Message)
	assert.Equal(t, "second warning", warnings[1].Message)
}

func TestCompleteStagePreservesOrder(t *testing.T) {
	session := NewSessionState("q", "en-SG", DefaultConsent())
	session.CompleteStage(StageExtract)
	session.CompleteStage(StageRoute)
	session.CompleteStage(StageAggregate)

	assert.Equal(t, []string{StageExtract, StageRoute, StageAggregate}, session.CompletedStages)
}

func TestRecordEvent(t *testing.T) {
	session := NewSessionState("q", "en-SG", DefaultConsent())
	session.RecordEvent("fanout_planned", map[string]any{"categories": 2})

	require.Len(t, session.Events, 1)
	assert.Equal(t, "fanout_planned", session.Events[0].Name)
	assert.Equal(t, 2, session.Events[0].Meta["categories"])
	assert.False(t, session.Events[0].Timestamp.IsZero())
}
