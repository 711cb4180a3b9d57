package instances

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/WillHanighen/CottageLauncher/internal/config"
	"github.com/WillHanighen/CottageLauncher/internal/domain/instance"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
)

const (
	// RecordFilename is the instance record file inside each instance directory.
	RecordFilename = "instance.yaml"
	// ManifestFilename is the resolved manifest copy inside each instance directory.
	ManifestFilename = "manifest.yaml"

	// dirPermissions is used when creating instance directories.
	dirPermissions os.FileMode = 0o755
)

var (
	// ErrNotFound is returned when no instance exists under a slug.
	ErrNotFound = errors.New("instance not found")
	// ErrBusy is returned when another operation already holds the slug.
	ErrBusy = errors.New("another operation is already running on this instance")
)

// Repository stores instance records and manifests on disk.
// Each instance owns one directory under the instances root; the record and
// manifest are YAML files inside it. Every load returns a fresh copy, so
// callers never share mutable state through the repository.
type Repository struct {
	root  string
	locks *slugLocks
}

// NewRepository creates a repository over the given instances directory.
func NewRepository(root string) *Repository {
	return &Repository{
		root:  filepath.Clean(root),
		locks: newSlugLocks(),
	}
}

// Dir returns the directory owned by the slug's instance.
func (r *Repository) Dir(slug string) string {
	return filepath.Join(r.root, slug)
}

// LogsDir returns the slug's launch log directory.
func (r *Repository) LogsDir(slug string) string {
	return filepath.Join(r.Dir(slug), "logs")
}

// Acquire takes the slug's busy lock and returns a release function.
// A held slug returns ErrBusy immediately: concurrent operations against one
// instance are a caller mistake, not something to queue.
func (r *Repository) Acquire(slug string) (func(), error) {
	if !r.locks.tryLock(slug) {
		return nil, fmt.Errorf("%s: %w", slug, ErrBusy)
	}

	return func() { r.locks.unlock(slug) }, nil
}

// Exists reports whether an instance record is present for the slug.
func (r *Repository) Exists(slug string) bool {
	_, err := os.Stat(filepath.Join(r.Dir(slug), RecordFilename))

	return err == nil
}

// Load reads the slug's instance record.
func (r *Repository) Load(_ context.Context, slug string) (*instance.Instance, error) {
	contents, err := os.ReadFile(filepath.Join(r.Dir(slug), RecordFilename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", slug, ErrNotFound)
		}

		return nil, fmt.Errorf("read instance record: %w", err)
	}

	var rec instanceRecord
	if err = yaml.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode instance record: %w", err)
	}

	inst := rec.toDomain()
	if err = inst.Validate(); err != nil {
		return nil, fmt.Errorf("instance record %s: %w", slug, err)
	}

	return inst, nil
}

// Save writes the instance record, stamping UpdatedAt.
func (r *Repository) Save(_ context.Context, inst *instance.Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}

	inst.UpdatedAt = time.Now().UTC()

	data, err := yaml.Marshal(recordFromDomain(inst))
	if err != nil {
		return fmt.Errorf("encode instance record: %w", err)
	}

	dir := r.Dir(inst.Slug)
	if err = os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create instance directory: %w", err)
	}

	if err = writeAtomic(filepath.Join(dir, RecordFilename), data); err != nil {
		return fmt.Errorf("write instance record: %w", err)
	}

	return nil
}

// List returns every stored instance, sorted by slug.
// Directories without a readable record are skipped: a half-removed instance
// must not break listing the healthy ones.
func (r *Repository) List(ctx context.Context) ([]*instance.Instance, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read instances directory: %w", err)
	}

	var out []*instance.Instance

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		inst, loadErr := r.Load(ctx, entry.Name())
		if loadErr != nil {
			continue
		}

		out = append(out, inst)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })

	return out, nil
}

// Delete removes the slug's entire instance directory.
// The shared library cache is a different tree and is never touched.
func (r *Repository) Delete(_ context.Context, slug string) error {
	dir := r.Dir(slug)

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", slug, ErrNotFound)
		}

		return fmt.Errorf("stat instance directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove instance directory: %w", err)
	}

	return nil
}

// SaveManifest writes the resolved manifest next to the instance record.
// The stored copy is what relaunches and content operations read, so the
// catalog is not needed again after installation.
func (r *Repository) SaveManifest(slug string, m *pack.Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(manifestFromDomain(m))
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	dir := r.Dir(slug)
	if err = os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create instance directory: %w", err)
	}

	if err = writeAtomic(filepath.Join(dir, ManifestFilename), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// LoadManifest reads the slug's stored manifest.
func (r *Repository) LoadManifest(slug string) (*pack.Manifest, error) {
	contents, err := os.ReadFile(filepath.Join(r.Dir(slug), ManifestFilename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", slug, ErrNotFound)
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var rec manifestRecord
	if err = yaml.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	m, err := rec.toDomain()
	if err != nil {
		return nil, fmt.Errorf("manifest for %s: %w", slug, err)
	}

	return m, nil
}

// writeAtomic writes data through a temp file and rename, so a crash never
// leaves a truncated record behind.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return err
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	if err = os.Chmod(tmp.Name(), config.DefaultFilePermissions); err != nil {
		_ = os.Remove(tmp.Name())

		return err
	}

	return os.Rename(tmp.Name(), path)
}
