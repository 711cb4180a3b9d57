package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/WillHanighen/CottageLauncher/internal/domain/instance"
	"github.com/WillHanighen/CottageLauncher/internal/download"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
)

// AddContent installs one content project (a mod, resource pack or shader)
// into an existing instance and records it, so it survives pack updates and
// can be removed again. An empty versionID picks the newest version
// compatible with the instance's loader and game release.
func (s *Service) AddContent(ctx context.Context, slug, projectID, versionID string) (*instance.Instance, error) {
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

	if inst.Status != instance.StatusReady {
		return nil, fmt.Errorf("%s: %w", slug, ErrNotReady)
	}

	content, err := s.catalog.ResolveContent(ctx, projectID, versionID, inst.GameVersion)
	if err != nil {
		return nil, err
	}

	for _, existing := range inst.Content {
		if existing.ProjectID == content.ProjectID {
			return nil, fmt.Errorf("content %s: %w", content.ProjectID, ErrAlreadyInstalled)
		}
	}

	entry := content.Entry
	dest := filepath.Join(s.repo.Dir(slug), filepath.FromSlash(entry.Path))

	if _, err = s.engine.Fetch(ctx, download.Job{
		Name:     entry.Name,
		URLs:     entry.URLs,
		Dest:     dest,
		Checksum: entry.Checksum,
		Size:     entry.Size,
	}); err != nil {
		return nil, err
	}

	inst.Content = append(inst.Content, instance.Content{
		ProjectID: content.ProjectID,
		VersionID: content.VersionID,
		FileName:  filepath.Base(entry.Path),
		Sha1:      content.Sha1,
	})

	if err = s.repo.Save(ctx, inst); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Content added", "project", content.ProjectID, "file", entry.Name)

	return inst, nil
}

// RemoveContent deletes one recorded content entry, matched by project id
// or file name, and removes its file from the instance.
func (s *Service) RemoveContent(ctx context.Context, slug, key string) (*instance.Instance, error) {
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

	index := -1

	for i, c := range inst.Content {
		if c.ProjectID == key || c.FileName == key {
			index = i
			break
		}
	}

	if index < 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrContentNotFound)
	}

	removed := inst.Content[index]

	// Content lands in one of the content directories depending on its
	// project type; the record stores only the file name.
	for _, dir := range []string{"mods", "resourcepacks", "shaderpacks"} {
		target := filepath.Join(s.repo.Dir(slug), dir, removed.FileName)
		if err = os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove content file: %w", err)
		}
	}

	inst.Content = append(inst.Content[:index], inst.Content[index+1:]...)

	if err = s.repo.Save(ctx, inst); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Content removed", "project", removed.ProjectID, "file", removed.FileName)

	return inst, nil
}
