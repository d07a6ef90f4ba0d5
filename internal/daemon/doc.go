// Package daemon hosts the long-running chorus process: the workflow
// manager, the repair sweeper, and the HTTP API, all behind a file lock
// that enforces single-instance execution.
package daemon
