// Package interview persists the pipeline's durable state: interviews and
// their lifecycle status, per-interview speaker-to-person links, and the
// extracted evidence units with their person attribution.
//
// Evidence person attribution is insert-only: InsertEvidence is the only
// write path that accepts a person id, and no update path for it exists.
// Repair-oriented status transitions are conditional on observed status and
// staleness so the detector never clobbers a job that just resumed.
package interview
