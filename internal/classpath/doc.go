// Package classpath computes conflict-free launch classpaths.
//
// Resolve is a pure function from the instance's library set to an ordered
// plan: version collisions within one group:artifact are settled by pin or
// highest version, losers are excluded from the launch but left on disk,
// and the final order is deterministic so launches are diffable.
package classpath
