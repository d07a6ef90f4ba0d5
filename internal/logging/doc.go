// Package logging provides slog construction and shared structured-logging
// helpers: standardized field names, attribute constructors, context-derived
// attributes, and a no-op logger for tests.
package logging
