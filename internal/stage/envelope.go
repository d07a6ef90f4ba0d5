package stage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Envelope is the payload snapshot carried between pipeline stages in
// interviews.payload_json. Each stage validates the fields it requires at
// entry and augments the envelope for its successor.
type Envelope struct {
	AccountID      string          `json:"account_id"`
	ProjectID      string          `json:"project_id"`
	InterviewID    int64           `json:"interview_id"`
	MediaURL       string          `json:"media_url,omitempty"`
	FullTranscript string          `json:"full_transcript,omitempty"`
	Segments       []Segment       `json:"segments,omitempty"`
	EvidenceResult *EvidenceResult `json:"evidence_result,omitempty"`
	InsightResult  *InsightResult  `json:"insight_result,omitempty"`
	ThemeResult    *ThemeResult    `json:"theme_result,omitempty"`
	AnalysisJobID  string          `json:"analysis_job_id,omitempty"`
}

// Segment is one diarized span of the transcript.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}

// EvidenceResult summarizes the extraction stage's output. The evidence rows
// themselves live in the store; the envelope carries only the tallies the
// later stages and diagnostics need.
type EvidenceResult struct {
	Count        int  `json:"count"`
	Attributed   int  `json:"attributed"`
	ParityPassed bool `json:"parity_passed"`
}

// Insight is one synthesized takeaway grounded in evidence.
type Insight struct {
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// InsightResult is the synthesis stage's output.
type InsightResult struct {
	Summary  string    `json:"summary,omitempty"`
	Insights []Insight `json:"insights,omitempty"`
}

// Theme is a cross-cutting pattern tagged over the interview's evidence.
type Theme struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// Persona is an optional speaker archetype produced when persona analysis is
// enabled.
type Persona struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PersonID    string `json:"person_id,omitempty"`
}

// ThemeResult is the theme/persona stage's output. PersonaEnabled records
// whether persona analysis ran; when disabled Personas is empty rather than
// an error.
type ThemeResult struct {
	Themes         []Theme   `json:"themes,omitempty"`
	Personas       []Persona `json:"personas,omitempty"`
	PersonaEnabled bool      `json:"persona_enabled"`
}

// Parse decodes an envelope from its persisted JSON form.
func Parse(raw string) (Envelope, error) {
	var env Envelope
	if strings.TrimSpace(raw) == "" {
		return Envelope{}, errors.New("payload is empty")
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Envelope{}, fmt.Errorf("decode payload: %w", err)
	}
	return env, nil
}

// Encode serializes the envelope for persistence.
func (e Envelope) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

// Validate checks the fields every stage requires.
func (e Envelope) Validate() error {
	if e.InterviewID <= 0 {
		return errors.New("payload missing interview id")
	}
	if strings.TrimSpace(e.AccountID) == "" {
		return errors.New("payload missing account id")
	}
	return nil
}

// RequireTranscript checks that transcription output is present.
func (e Envelope) RequireTranscript() error {
	if err := e.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.FullTranscript) == "" {
		return errors.New("payload missing transcript")
	}
	return nil
}

// RequireEvidence checks that the extraction stage has run.
func (e Envelope) RequireEvidence() error {
	if err := e.RequireTranscript(); err != nil {
		return err
	}
	if e.EvidenceResult == nil {
		return errors.New("payload missing evidence result")
	}
	return nil
}
