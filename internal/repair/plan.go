package repair

import (
	"time"

	"chorus/internal/interview"
)

// Action describes what repair will do with a stuck interview.
type Action string

const (
	// ActionNone means the interview is not stuck (terminal, a hand-off
	// marker, or recently touched) and must be left alone.
	ActionNone Action = "none"
	// ActionComplete means the transcript already exists, so the expensive
	// work is done and the interview can be marked ready.
	ActionComplete Action = "complete"
	// ActionFail means the interview has neither transcript nor media and
	// can never make progress.
	ActionFail Action = "fail"
	// ActionRequeue means media exists but transcription never finished, so
	// the interview re-enters the pipeline at the transcription stage.
	ActionRequeue Action = "requeue"
)

// FailureReason is the terminal error message recorded for unrepairable
// interviews.
const FailureReason = "Stuck with no transcript and no media source"

// Plan decides the repair action for one interview against a staleness
// cutoff. It is a pure function of the row; the conditional store writes
// re-check the same predicate at update time.
func Plan(iv *interview.Interview, cutoff time.Time) Action {
	if iv == nil {
		return ActionNone
	}
	if !interview.IsInFlight(iv.Status) {
		return ActionNone
	}
	if !iv.UpdatedAt.Before(cutoff) {
		return ActionNone
	}
	if iv.HasTranscript() {
		return ActionComplete
	}
	if !iv.HasMedia() {
		return ActionFail
	}
	return ActionRequeue
}
