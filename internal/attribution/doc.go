// Package attribution resolves transcript speaker labels to canonical people
// and verifies that the two persisted attribution projections agree.
//
// A Context is built once per interview from the interview_people rows and
// consulted exactly once per evidence unit, at insert time. Attribution is
// write-once: the store accepts a person id only on insert, so resolution
// happens before the row exists and is never revisited.
package attribution
