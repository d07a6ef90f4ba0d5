// Package services defines the shared error taxonomy for pipeline stages and
// external provider wrappers, plus context annotation helpers used to thread
// interview/stage/request identifiers through logging.
//
// External LLM and transcription calls must surface failures through Wrap so
// the workflow manager can classify them; raw transport errors never cross a
// stage boundary.
package services
