// Package llm wraps the OpenRouter-compatible chat completion API used by the
// evidence, insight, theme, and answer stages. All calls request JSON-only
// responses; transient failures retry with exponential backoff while client
// errors fail immediately.
package llm
