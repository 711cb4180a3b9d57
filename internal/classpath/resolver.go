package classpath

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
)

var (
	// errMainClass is returned when no main class is provided.
	errMainClass = errors.New("classpath plan needs a main class")
	// errEntryPath is returned when a candidate has no filesystem path.
	errEntryPath = errors.New("classpath entry needs a path")
	// errEntryCoordinate is returned when a candidate has no coordinate.
	errEntryCoordinate = errors.New("classpath entry needs a coordinate")
)

// Entry is one candidate library for a launch classpath.
type Entry struct {
	// Coordinate identifies the library.
	Coordinate pack.Coordinate
	// Path is the artifact's location on disk.
	Path string
	// LoaderCore marks loader libraries that must precede everything else.
	LoaderCore bool
}

// Conflict records a version collision and how it was settled.
type Conflict struct {
	// Identity is the colliding group:artifact.
	Identity string
	// Kept is the version that stays on the classpath.
	Kept Entry
	// Dropped are the versions excluded from the classpath. Their files
	// stay on disk; other instances may still reference them.
	Dropped []Entry
	// Pinned is true when a loader pin decided the winner.
	Pinned bool
}

// Plan is a computed launch classpath: ordered, duplicate-free, with a
// record of every conflict that was pruned. Plans are derived fresh for
// each launch, never persisted.
type Plan struct {
	// MainClass is the JVM entry point.
	MainClass string
	// Entries is the launch order: loader-core first, then alphabetical
	// by identity.
	Entries []Entry
	// Conflicts lists the version collisions that were settled.
	Conflicts []Conflict
}

// Paths returns the ordered filesystem paths of the plan.
func (p *Plan) Paths() []string {
	paths := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		paths[i] = e.Path
	}

	return paths
}

// Resolve computes a conflict-free classpath from the instance's full
// library set. When several versions of one group:artifact are present,
// the highest version wins unless pins maps that identity to a version
// that is actually among the candidates; every losing version is dropped
// from the plan and reported in Conflicts. Two incompatible versions of
// one library visible together crash the child process at class-load
// time, so this pruning is what makes launches viable.
func Resolve(entries []Entry, mainClass string, pins map[string]string) (*Plan, error) {
	if mainClass == "" {
		return nil, errMainClass
	}

	groups := make(map[string][]Entry)
	order := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.Coordinate.IsZero() {
			return nil, fmt.Errorf("%w: %q", errEntryCoordinate, e.Path)
		}

		if e.Path == "" {
			return nil, fmt.Errorf("%w: %s", errEntryPath, e.Coordinate)
		}

		id := e.Coordinate.Identity()

		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}

		groups[id] = append(groups[id], e)
	}

	plan := &Plan{MainClass: mainClass}

	for _, id := range order {
		kept, conflict := settle(id, groups[id], pins)

		plan.Entries = append(plan.Entries, kept)

		if conflict != nil {
			plan.Conflicts = append(plan.Conflicts, *conflict)
		}
	}

	sortEntries(plan.Entries)

	return plan, nil
}

// settle picks the winning entry within one identity group.
func settle(id string, candidates []Entry, pins map[string]string) (Entry, *Conflict) {
	candidates = dedupe(candidates)

	if len(candidates) == 1 {
		return candidates[0], nil
	}

	winner, pinned := -1, false

	if pin, ok := pins[id]; ok {
		for i, c := range candidates {
			if c.Coordinate.Version == pin {
				winner, pinned = i, true
				break
			}
		}
	}

	if winner < 0 {
		// No usable pin: highest version wins.
		winner = 0
		for i := 1; i < len(candidates); i++ {
			if compareVersions(candidates[i].Coordinate.Version, candidates[winner].Coordinate.Version) > 0 {
				winner = i
			}
		}
	}

	conflict := &Conflict{
		Identity: id,
		Kept:     candidates[winner],
		Pinned:   pinned,
	}

	for i, c := range candidates {
		if i != winner {
			conflict.Dropped = append(conflict.Dropped, c)
		}
	}

	return candidates[winner], conflict
}

// dedupe removes exact version duplicates, keeping the first occurrence.
func dedupe(candidates []Entry) []Entry {
	if len(candidates) == 1 {
		return candidates
	}

	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0:0]

	for _, c := range candidates {
		if _, ok := seen[c.Coordinate.Version]; ok {
			continue
		}

		seen[c.Coordinate.Version] = struct{}{}
		out = append(out, c)
	}

	return out
}

// compareVersions orders two version strings. Semantic versions compare
// numerically; a parseable version beats an unparseable one; two
// unparseable versions fall back to lexicographic order so the result
// stays deterministic.
func compareVersions(a, b string) int {
	va, errA := pack.ParseVersion(a)
	vb, errB := pack.ParseVersion(b)

	switch {
	case errA == nil && errB == nil:
		return va.Compare(*vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// sortEntries orders the final plan: loader-core entries first, then
// alphabetical by identity, so launches are reproducible and diffable.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].LoaderCore != entries[j].LoaderCore {
			return entries[i].LoaderCore
		}

		return entries[i].Coordinate.Identity() < entries[j].Coordinate.Identity()
	})
}
