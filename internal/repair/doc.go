// Package repair detects and fixes stuck interviews.
//
// An interview is stuck when it sits in an in-flight status while nothing is
// actually working on it, which the detector reads as updated_at falling
// behind a staleness cutoff. Repair decides per interview whether the work
// already finished (transcript present, flip to ready), can never finish
// (no transcript and no media, flip to error), or should be retried (media
// present, requeue for transcription). Every repair write is conditional on
// the row still being stale and in-flight, so repairs are idempotent and
// never clobber an interview that resumed on its own.
//
// The Sweeper runs the repairer periodically at the conservative cleanup
// threshold; the daemon API exposes the same logic on demand at the shorter
// dashboard threshold.
package repair
