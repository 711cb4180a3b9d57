// Package launch spawns and supervises game processes. Each launch is an
// explicit state machine (NotStarted, Running, Exited, Killed) behind a
// non-blocking handle: the caller decides whether to wait, poll, or walk
// away, and termination is a graceful signal first, force only after the
// grace period runs out.
package launch
