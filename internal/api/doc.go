// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal interview models into transport-friendly
// DTOs so dashboard consumers never couple to internal types.
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (interview.Status) are exposed as lowercase strings. Timestamps use
// RFC3339 with milliseconds.
package api
