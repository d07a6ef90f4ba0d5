// Command chorus is the operator CLI for the interview insights pipeline:
// inspecting pipeline state, uploading interviews, repairing stuck ones, and
// verifying evidence attribution parity. It opens the interview store
// directly, so it works whether or not the daemon is running.
package main
