package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/download"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
)

var (
	// ErrConflict is returned when a requested artifact's checksum differs
	// from what is already cached under the same coordinate. The cached
	// copy is never overwritten.
	ErrConflict = errors.New("cached artifact conflicts with requested checksum")
	// errNotLibrary is returned when an entry without a coordinate is passed in.
	errNotLibrary = errors.New("entry does not describe a shared library")
)

// filePermissions is used for sidecar digest files.
const filePermissions os.FileMode = 0o644

// Store is the shared content-addressed library store.
// Artifacts live under a Maven repository layout keyed by coordinate, each
// with a sidecar digest file recording the verified checksum, so presence
// checks and conflict detection survive restarts without re-hashing.
type Store struct {
	root   string
	engine *download.Engine
	group  singleflight.Group
}

// NewStore creates a store rooted at dir, fetching through the engine.
func NewStore(dir string, engine *download.Engine) *Store {
	return &Store{
		root:   filepath.Clean(dir),
		engine: engine,
	}
}

// PathFor returns where an artifact lives in the store.
// The path is computed, not checked: pair with Verify when presence matters.
func (s *Store) PathFor(c pack.Coordinate) string {
	return filepath.Join(s.root, filepath.FromSlash(c.RepoPath()))
}

// Ensure makes the entry's artifact present and verified in the store and
// returns its path. A cached artifact that matches is returned with no
// network activity. Concurrent calls for the same coordinate coalesce onto
// a single fetch; the in-progress slot clears when that fetch finishes, so
// later callers after a failure get a fresh attempt.
func (s *Store) Ensure(ctx context.Context, entry pack.FileEntry) (string, error) {
	if entry.Kind != pack.DestLibrary || entry.Coordinate.IsZero() {
		return "", fmt.Errorf("%s: %w", entry.Name, errNotLibrary)
	}

	key := entry.Coordinate.String()

	path, err, _ := s.group.Do(key, func() (any, error) {
		return s.ensureOne(ctx, entry)
	})
	if err != nil {
		return "", err
	}

	return path.(string), nil //nolint:forcetypeassert // ensureOne always returns a string.
}

func (s *Store) ensureOne(ctx context.Context, entry pack.FileEntry) (string, error) {
	dest := s.PathFor(entry.Coordinate)

	cached, err := s.check(dest, entry.Checksum)
	if err != nil {
		return "", fmt.Errorf("%s: %w", entry.Coordinate, err)
	}

	if cached {
		logger.DebugKV(ctx, "Library already cached", "coordinate", entry.Coordinate.String())

		return dest, nil
	}

	if _, err = s.engine.Fetch(ctx, download.Job{
		Name:     entry.Coordinate.String(),
		URLs:     entry.URLs,
		Dest:     dest,
		Checksum: entry.Checksum,
		Size:     entry.Size,
	}); err != nil {
		return "", err
	}

	if err = s.writeSidecar(dest, entry.Checksum); err != nil {
		return "", fmt.Errorf("%s: %w", entry.Coordinate, err)
	}

	return dest, nil
}

// check reports whether a matching verified artifact is already present.
// A checksum recorded under the same coordinate with different content is a
// conflict, not a cache miss.
func (s *Store) check(dest string, want pack.Checksum) (bool, error) {
	if _, err := os.Stat(dest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat artifact: %w", err)
	}

	recorded, err := s.readSidecar(dest, want.Algo)
	if err != nil {
		return false, err
	}

	if recorded != "" {
		if want.Matches(recorded) {
			return true, nil
		}

		return false, fmt.Errorf("%w: have %s:%s, want %s", ErrConflict, want.Algo, recorded, want)
	}

	// Artifact present but never verified with this algorithm: hash it.
	actual, err := hashFile(dest, want)
	if err != nil {
		return false, err
	}

	if !want.Matches(actual) {
		return false, fmt.Errorf("%w: have %s:%s, want %s", ErrConflict, want.Algo, actual, want)
	}

	if err = s.writeSidecar(dest, want); err != nil {
		return false, err
	}

	return true, nil
}

// Verify reports whether the entry's artifact is present and its recorded
// digest matches. Used before building a launch classpath.
func (s *Store) Verify(entry pack.FileEntry) (bool, error) {
	if entry.Kind != pack.DestLibrary || entry.Coordinate.IsZero() {
		return false, fmt.Errorf("%s: %w", entry.Name, errNotLibrary)
	}

	ok, err := s.check(s.PathFor(entry.Coordinate), entry.Checksum)
	if err != nil && !errors.Is(err, ErrConflict) {
		return false, err
	}

	return ok && err == nil, nil
}

// Export links the cached artifact into dest, falling back to a copy when
// the store and destination are on different volumes. The cached copy is
// the source of truth and is never modified.
func (s *Store) Export(c pack.Coordinate, dest string) error {
	src := s.PathFor(c)

	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("export %s: %w", c, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("export %s: %w", c, err)
	}

	_ = os.Remove(dest)

	if err := os.Link(src, dest); err == nil {
		return nil
	}

	if err := copyFile(src, dest); err != nil {
		return fmt.Errorf("export %s: %w", c, err)
	}

	return nil
}

// sidecarPath returns the digest file path for an artifact and algorithm.
func sidecarPath(dest string, algo pack.ChecksumAlgo) string {
	return dest + "." + string(algo)
}

func (s *Store) readSidecar(dest string, algo pack.ChecksumAlgo) (string, error) {
	data, err := os.ReadFile(sidecarPath(dest, algo))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("read digest file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

func (s *Store) writeSidecar(dest string, sum pack.Checksum) error {
	if err := os.WriteFile(sidecarPath(dest, sum.Algo), []byte(sum.Hex+"\n"), filePermissions); err != nil {
		return fmt.Errorf("write digest file: %w", err)
	}

	return nil
}

// hashFile computes the hex digest of a file with the checksum's algorithm.
func hashFile(path string, sum pack.Checksum) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}

	defer f.Close()

	hasher, err := sum.NewHash()
	if err != nil {
		return "", err
	}

	if _, err = io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash artifact: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// copyFile copies src to dest through a temp file in dest's directory.
func copyFile(src, dest string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return err
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	return os.Rename(tmp.Name(), dest)
}
