// Package transcriber wraps the hosted diarizing transcription provider. A
// job is submitted for a media URL and polled until it completes, fails, or
// the context expires. The transcript comes back with per-speaker segments so
// downstream attribution can map diarized labels to people.
package transcriber
