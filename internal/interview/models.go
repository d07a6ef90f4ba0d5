package interview

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an interview.
type Status string

const (
	StatusUploading    Status = "uploading"
	StatusUploaded     Status = "uploaded"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusProcessing   Status = "processing"
	StatusTagged       Status = "tagged"
	StatusReady        Status = "ready"
	StatusError        Status = "error"
)

var allStatuses = []Status{
	StatusUploading,
	StatusUploaded,
	StatusTranscribing,
	StatusTranscribed,
	StatusProcessing,
	StatusTagged,
	StatusReady,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// inFlightStatuses are the statuses that imply a worker owns the interview.
// An interview stuck in one of these with no recent activity is repairable.
var inFlightStatuses = map[Status]struct{}{
	StatusUploading:    {},
	StatusUploaded:     {},
	StatusTranscribing: {},
	StatusProcessing:   {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is terminal absent manual reprocessing.
func IsTerminal(status Status) bool {
	return status == StatusReady || status == StatusError
}

// IsInFlight reports whether a status implies in-flight work.
func IsInFlight(status Status) bool {
	_, ok := inFlightStatuses[status]
	return ok
}

// InFlightStatuses returns the statuses the stuck detector scans.
func InFlightStatuses() []Status {
	return []Status{StatusUploading, StatusUploaded, StatusTranscribing, StatusProcessing}
}

// Interview represents an interview persisted in SQLite.
type Interview struct {
	ID              int64
	AccountID       string
	ProjectID       string
	Title           string
	MediaURL        string
	Transcript      string
	Status          Status
	ErrorMessage    string
	ProgressStage   string
	ProgressMessage string
	ProgressPercent float64
	PayloadJSON     string
	AnalysisJSON    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// IsTerminal reports whether the interview has reached a terminal state.
func (i Interview) IsTerminal() bool {
	return IsTerminal(i.Status)
}

// HasTranscript reports whether a transcript is present.
func (i Interview) HasTranscript() bool {
	return strings.TrimSpace(i.Transcript) != ""
}

// HasMedia reports whether a media reference is present.
func (i Interview) HasMedia() bool {
	return strings.TrimSpace(i.MediaURL) != ""
}

// SetProgress updates the progress fields together, clamping percent to [0, 100].
func (i *Interview) SetProgress(stage, message string, percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetError marks the interview as terminally failed with the given reason.
// Only the workflow manager and the repairer call this.
func (i *Interview) SetError(message string) {
	i.Status = StatusError
	i.ErrorMessage = message
	i.ProgressStage = "Error"
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.LastHeartbeat = nil
}

// Person links a transcript speaker key to a canonical account-level person.
type Person struct {
	InterviewID   int64
	TranscriptKey string
	PersonID      string
	DisplayName   string
	PersonName    string
}

// EvidenceUnit is an extracted claim or quote with optional speaker attribution.
// PersonID is set only at insert time, never by a later update.
type EvidenceUnit struct {
	ID          string
	InterviewID int64
	PersonID    string
	Kind        string
	Verbatim    string
	Summary     string
	SourcePath  string
	Position    int
	CreatedAt   time.Time
}

// EvidencePersonLink is the denormalized (evidence, person) projection written
// alongside each attributed evidence insert.
type EvidencePersonLink struct {
	EvidenceID string
	PersonID   string
}

// HealthSummary describes aggregated interview counts per key lifecycle state.
type HealthSummary struct {
	Total       int `json:"total"`
	InFlight    int `json:"inFlight"`
	Transcribed int `json:"transcribed"`
	Ready       int `json:"ready"`
	Error       int `json:"error"`
}
