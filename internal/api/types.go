package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Interview describes an interview in a transport-friendly format.
type Interview struct {
	ID           int64    `json:"id"`
	AccountID    string   `json:"accountId,omitempty"`
	ProjectID    string   `json:"projectId,omitempty"`
	Title        string   `json:"title"`
	MediaURL     string   `json:"mediaUrl,omitempty"`
	Status       string   `json:"status"`
	Progress     Progress `json:"progress"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// Progress captures stage progress information for an interview.
type Progress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running       bool           `json:"running"`
	Stats         map[string]int `json:"stats"`
	LastError     string         `json:"lastError,omitempty"`
	LastInterview *Interview     `json:"lastInterview,omitempty"`
	StageHealth   []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DBPath       string         `json:"dbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// ListResponse wraps a collection of interviews for API responses.
type ListResponse struct {
	Interviews []Interview `json:"interviews"`
}

// InterviewResponse wraps a single interview.
type InterviewResponse struct {
	Interview Interview `json:"interview"`
}

// StuckListResponse reports interviews the staleness detector flagged.
type StuckListResponse struct {
	StuckInterviews []Interview `json:"stuckInterviews"`
}

// Repair intents accepted by POST /api/stuck-interviews.
const (
	RepairIntentFixOne = "fix-one"
	RepairIntentFixAll = "fix-all"
)

// RepairRequest asks the daemon to repair one or all stuck interviews.
type RepairRequest struct {
	Intent      string `json:"intent"`
	InterviewID int64  `json:"interviewId,omitempty"`
}

// RepairResponse reports the outcome of a repair request.
type RepairResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Fixed   int    `json:"fixed,omitempty"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
