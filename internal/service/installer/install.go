package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WillHanighen/CottageLauncher/internal/domain/instance"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/download"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
)

// CreateRequest names what to install and where.
type CreateRequest struct {
	// Slug is the instance directory name. Empty derives one from the
	// pack's title.
	Slug string
	// PackID is the catalog project id or slug.
	PackID string
	// VersionID is the exact catalog version, or empty for the newest
	// compatible one.
	VersionID string
}

// Create resolves a manifest and materializes a new instance from it.
// A slug that already holds an instance fails with ErrAlreadyInstalled and
// is left untouched. A failed required step removes the partial instance
// directory entirely; shared-cache entries populated along the way stay,
// since they are verified and reusable regardless of this instance's fate.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*instance.Instance, error) {
	manifest, err := s.catalog.Resolve(ctx, req.PackID, req.VersionID)
	if err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" {
		slug = instance.Slugify(manifest.Name)
	}

	release, err := s.repo.Acquire(slug)
	if err != nil {
		return nil, err
	}

	defer release()

	if s.repo.Exists(slug) {
		return nil, fmt.Errorf("%s: %w", slug, ErrAlreadyInstalled)
	}

	ctx = logger.WithKV(ctx, "instance", slug)

	now := time.Now().UTC()
	inst := &instance.Instance{
		Slug:          slug,
		Name:          manifest.Name,
		PackID:        manifest.PackID,
		PackVersion:   manifest.PackVersion,
		GameVersion:   manifest.GameVersion,
		LoaderVersion: manifest.LoaderVersion,
		JavaMajor:     manifest.JavaMajor,
		Status:        instance.StatusInstalling,
		CreatedAt:     now,
	}

	if err = s.repo.Save(ctx, inst); err != nil {
		return nil, err
	}

	warnings, err := s.install(ctx, slug, manifest)
	if err != nil {
		// No half-installed instance stays discoverable.
		if cleanupErr := s.repo.Delete(ctx, slug); cleanupErr != nil {
			logger.ErrorKV(ctx, "Failed to clean up partial instance", "error", cleanupErr)
		}

		return nil, err
	}

	inst.Status = instance.StatusReady
	inst.Warnings = warnings

	if err = s.repo.SaveManifest(slug, manifest); err != nil {
		return nil, err
	}

	if err = s.repo.Save(ctx, inst); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Instance installed",
		"pack", manifest.PackID, "version", manifest.PackVersion, "warnings", len(warnings))

	return inst, nil
}

// Update re-materializes an existing instance against a new pack version.
// Instance files the new manifest no longer names are removed, except
// user-added content; a failure marks the instance broken instead of
// deleting it, since the previous installation's files are still there.
func (s *Service) Update(ctx context.Context, slug, versionID string) (*instance.Instance, error) {
	release, err := s.repo.Acquire(slug)
	if err != nil {
		return nil, err
	}

	defer release()

	ctx = logger.WithKV(ctx, "instance", slug)

	inst, err := s.repo.Load(ctx, slug)
	if err != nil {
		return nil, err
	}

	oldManifest, err := s.repo.LoadManifest(slug)
	if err != nil {
		return nil, err
	}

	manifest, err := s.catalog.Resolve(ctx, inst.PackID, versionID)
	if err != nil {
		return nil, err
	}

	inst.Status = instance.StatusInstalling
	if err = s.repo.Save(ctx, inst); err != nil {
		return nil, err
	}

	warnings, err := s.install(ctx, slug, manifest)
	if err != nil {
		inst.Status = instance.StatusBroken
		_ = s.repo.Save(ctx, inst)

		return nil, err
	}

	s.removeStaleFiles(ctx, slug, oldManifest, manifest, inst.Content)

	inst.PackVersion = manifest.PackVersion
	inst.GameVersion = manifest.GameVersion
	inst.LoaderVersion = manifest.LoaderVersion
	inst.JavaMajor = manifest.JavaMajor
	inst.Status = instance.StatusReady
	inst.Warnings = warnings

	if err = s.repo.SaveManifest(slug, manifest); err != nil {
		return nil, err
	}

	if err = s.repo.Save(ctx, inst); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Instance updated", "version", manifest.PackVersion)

	return inst, nil
}

// Remove deletes an instance's directory. The shared library cache keeps
// every artifact; other instances may reference them.
func (s *Service) Remove(ctx context.Context, slug string) error {
	release, err := s.repo.Acquire(slug)
	if err != nil {
		return err
	}

	defer release()

	if err = s.repo.Delete(ctx, slug); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Instance removed", "instance", slug)

	return nil
}

// install runs the materialization steps for one manifest: shared libraries
// through the cache, instance files through the engine, then the runtime.
// It returns the warnings collected from failed optional files.
func (s *Service) install(ctx context.Context, slug string, manifest *pack.Manifest) ([]string, error) {
	instDir := s.repo.Dir(slug)

	warnings, err := s.ensureLibraries(ctx, manifest)
	if err != nil {
		return nil, err
	}

	fileWarnings, err := s.fetchInstanceFiles(ctx, instDir, manifest)
	if err != nil {
		return nil, err
	}

	warnings = append(warnings, fileWarnings...)

	if _, err = s.runtime.Ensure(ctx, instDir, manifest.JavaMajor); err != nil {
		return nil, err
	}

	return warnings, nil
}

// ensureLibraries populates the shared cache with every library the
// manifest names, with bounded parallelism. The cache coalesces concurrent
// ensures per coordinate, so parallel installs never race duplicate writes.
func (s *Service) ensureLibraries(ctx context.Context, manifest *pack.Manifest) ([]string, error) {
	libs := manifest.Libraries()
	if len(libs) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		warnings []string
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for _, lib := range libs {
		group.Go(func() error {
			_, err := s.store.Ensure(groupCtx, lib)
			if err == nil {
				return nil
			}

			if lib.Optional {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("optional library %s: %s", lib.Name, err))
				mu.Unlock()

				return nil
			}

			return fmt.Errorf("library %s: %w", lib.Name, err)
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return warnings, nil
}

// fetchInstanceFiles downloads the manifest's instance-local files.
// Files already present with a matching digest are skipped, which makes
// updates and repairs cheap.
func (s *Service) fetchInstanceFiles(ctx context.Context, instDir string, manifest *pack.Manifest) ([]string, error) {
	var jobs []download.Job

	for _, f := range manifest.Files {
		if f.Kind != pack.DestInstance {
			continue
		}

		dest := filepath.Join(instDir, filepath.FromSlash(f.Path))

		if present, err := fileMatches(dest, f.Checksum); err == nil && present {
			continue
		}

		jobs = append(jobs, download.Job{
			Name:     f.Name,
			URLs:     f.URLs,
			Dest:     dest,
			Checksum: f.Checksum,
			Size:     f.Size,
			Optional: f.Optional,
		})
	}

	if len(jobs) == 0 {
		return nil, nil
	}

	report := s.engine.Run(ctx, jobs)
	if err := report.Err(); err != nil {
		return nil, err
	}

	var warnings []string

	for _, failed := range report.FailedOptional() {
		warnings = append(warnings, fmt.Sprintf("optional file %s: %s", failed.Job.Name, failed.Err))
	}

	return warnings, nil
}

// removeStaleFiles deletes instance files the old manifest placed but the
// new one no longer names. User-added content is never touched.
func (s *Service) removeStaleFiles(ctx context.Context, slug string, oldManifest, newManifest *pack.Manifest, content []instance.Content) {
	keep := make(map[string]struct{})

	for _, f := range newManifest.Files {
		if f.Kind == pack.DestInstance {
			keep[f.Path] = struct{}{}
		}
	}

	for _, c := range content {
		keep[filepath.ToSlash(filepath.Join("mods", c.FileName))] = struct{}{}
	}

	instDir := s.repo.Dir(slug)

	for _, f := range oldManifest.Files {
		if f.Kind != pack.DestInstance {
			continue
		}

		if _, ok := keep[f.Path]; ok {
			continue
		}

		target := filepath.Join(instDir, filepath.FromSlash(f.Path))
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Failed to remove stale file", "file", f.Path, "error", err)
		}
	}
}

// fileMatches reports whether the file at path hashes to the expected digest.
func fileMatches(path string, sum pack.Checksum) (bool, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return false, err
	}

	defer f.Close()

	actual, err := pack.HashReader(f, sum.Algo)
	if err != nil {
		return false, err
	}

	return sum.Matches(actual), nil
}
