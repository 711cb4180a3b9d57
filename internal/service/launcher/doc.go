// Package launcher turns a ready instance into a running game: it provisions
// the runtime, computes the conflict-free classpath from the instance's
// manifest, builds the JVM invocation, and hands back the supervisor's
// non-blocking handle.
package launcher
