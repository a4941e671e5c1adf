// Package model defines the core domain types for the recommendation pipeline.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline stage names, in the order they appear in the stage graph.
const (
	StageExtract    = "extract"
	StageRoute      = "route"
	StageResearch   = "research"
	StageCompliance = "compliance"
	StageAggregate  = "aggregate"
	StageFallback   = "fallback"
)

// ErrorSeverity classifies an error record as recoverable or not.
type ErrorSeverity string

const (
	// SeverityWarning marks a degraded-but-continuing condition.
	SeverityWarning ErrorSeverity = "warning"
	// SeverityFatal marks a condition that diverted the run to the fallback path.
	SeverityFatal ErrorSeverity = "fatal"
)

// ErrorRecord captures one error observed during a run. Records are appended
// and never removed.
type ErrorRecord struct {
	Timestamp time.Time
	Stage     string
	Message   string
	Severity  ErrorSeverity
}

// EventRecord is one entry in the session's append-only telemetry log.
type EventRecord struct {
	Timestamp time.Time
	Meta      map[string]any
	Name      string
}

// Recovery summarizes what the fallback stage did for the caller.
type Recovery struct {
	Message         string
	RecoveryActions []string
	ErrorsHandled   int
	CanContinue     bool
}

// SessionState is the single mutable record threaded through every pipeline
// stage. One instance exists per run and is never shared across runs.
// Stages may read any earlier field but only append to list fields or set
// optional fields once.
type SessionState struct {
	CreatedAt       time.Time
	CategoryResults map[string]CategoryResult
	SpendProfile    map[string]float64
	Request         *StructuredRequest
	Answer          *FinalAnswer
	Compliance      *PolicyReport
	Recovery        *Recovery
	ID              string
	Query           string
	Locale          string
	FanoutPlan      []string
	CompletedStages []string
	Errors          []ErrorRecord
	Events          []EventRecord
	Findings        []SearchFinding
	Consent         Consent
}

// NewSessionState creates the state record for a single run.
func NewSessionState(query, locale string, consent Consent) *SessionState {
	return &SessionState{
		ID:              uuid.NewString(),
		Query:           query,
		Locale:          locale,
		Consent:         consent,
		CategoryResults: make(map[string]CategoryResult),
		CompletedStages: make([]string, 0),
		Errors:          make([]ErrorRecord, 0),
		Events:          make([]EventRecord, 0),
		CreatedAt:       time.Now(),
	}
}

// RecordError appends an error record for the given stage.
func (s *SessionState) RecordError(stage, message string, severity ErrorSeverity) {
	s.Errors = append(s.Errors, ErrorRecord{
		Stage:     stage,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
	})
}

// RecordEvent appends a telemetry event to the session log.
func (s *SessionState) RecordEvent(name string, meta map[string]any) {
	s.Events = append(s.Events, EventRecord{
		Name:      name,
		Meta:      meta,
		Timestamp: time.Now(),
	})
}

// CompleteStage marks a stage as finished. Stages appear in completion order.
func (s *SessionState) CompleteStage(stage string) {
	s.CompletedStages = append(s.CompletedStages, stage)
}

// HasFatalErrors reports whether any recorded error was fatal.
func (s *SessionState) HasFatalErrors() bool {
	for _, rec := range s.Errors {
		if rec.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Warnings returns the non-fatal error records, preserving order.
func (s *SessionState) Warnings() []ErrorRecord {
	var warnings []ErrorRecord
	for _, rec := range s.Errors {
		if rec.Severity == SeverityWarning {
			warnings = append(warnings, rec)
		}
	}
	return warnings
}
