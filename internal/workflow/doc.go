// Package workflow advances interviews through the configured pipeline
// stages.
//
// The Manager polls the interview store, feeds uploaded interviews into the
// transcription stage and transcribed interviews into the analysis processor,
// and captures progress and failure metadata along the way. Stage execution
// runs under a heartbeat loop so the repair sweeper can tell live work from
// abandoned work, and every non-recoverable failure lands the interview in
// the error status with a human-readable reason. The manager is the only
// component that writes the error status during normal processing.
//
// Add new lifecycle stages by extending StageSet, updating the interview
// status enums, and teaching the manager how to transition interviews; this
// package is the authoritative home for that coordination logic.
package workflow
