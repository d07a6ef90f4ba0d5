package api

import (
	"slices"

	"chorus/internal/interview"
	"chorus/internal/workflow"
)

// FromInterview converts an interview record to its API representation.
func FromInterview(iv *interview.Interview) Interview {
	if iv == nil {
		return Interview{}
	}
	dto := Interview{
		ID:        iv.ID,
		AccountID: iv.AccountID,
		ProjectID: iv.ProjectID,
		Title:     iv.Title,
		MediaURL:  iv.MediaURL,
		Status:    string(iv.Status),
		Progress: Progress{
			Stage:   iv.ProgressStage,
			Percent: iv.ProgressPercent,
			Message: iv.ProgressMessage,
		},
		ErrorMessage: iv.ErrorMessage,
	}
	if !iv.CreatedAt.IsZero() {
		dto.CreatedAt = iv.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !iv.UpdatedAt.IsZero() {
		dto.UpdatedAt = iv.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromInterviews converts a slice of interview records into API DTOs.
func FromInterviews(items []*interview.Interview) []Interview {
	if len(items) == 0 {
		return nil
	}
	out := make([]Interview, 0, len(items))
	for _, iv := range items {
		out = append(out, FromInterview(iv))
	}
	return out
}

// MergeStats flattens a status-keyed count map into string keys for JSON.
func MergeStats(stats map[interview.Status]int) map[string]int {
	if len(stats) == 0 {
		return map[string]int{}
	}
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromStatusSummary converts a workflow status summary to an API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	names := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		names = append(names, name)
	}
	slices.Sort(names)

	health := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := summary.StageHealth[name]
		health = append(health, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}

	status := WorkflowStatus{
		Running:     summary.Running,
		Stats:       MergeStats(summary.QueueStats),
		LastError:   summary.LastError,
		StageHealth: health,
	}
	if summary.LastInterview != nil {
		last := FromInterview(summary.LastInterview)
		status.LastInterview = &last
	}
	return status
}
