package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/WillHanighen/CottageLauncher/internal/cache"
	"github.com/WillHanighen/CottageLauncher/internal/classpath"
	"github.com/WillHanighen/CottageLauncher/internal/domain/instance"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/launch"
	"github.com/WillHanighen/CottageLauncher/internal/logger"
	"github.com/WillHanighen/CottageLauncher/internal/repository/instances"
	"github.com/WillHanighen/CottageLauncher/internal/service/installer"
)

const (
	// pidFilename records the running game's pid inside the instance
	// directory, backing the double-launch guard.
	pidFilename = "game.pid"

	// launchLogFilename is the append-only child output log.
	launchLogFilename = "launch.log"
)

// ErrAlreadyRunning is returned when the instance's recorded game process
// is still alive.
var ErrAlreadyRunning = errors.New("instance is already running")

// Service prepares and starts game processes for installed instances.
type Service struct {
	store   *cache.Store
	runtime installer.RuntimeProvisioner
	repo    *instances.Repository
	heapMB  int
	pins    map[string]string
}

// NewService wires a launch service over its collaborators.
// pins maps group:artifact identities to loader-required versions that
// override the classpath resolver's highest-version rule.
func NewService(
	store *cache.Store,
	runtime installer.RuntimeProvisioner,
	repo *instances.Repository,
	heapMB int,
	pins map[string]string,
) *Service {
	return &Service{
		store:   store,
		runtime: runtime,
		repo:    repo,
		heapMB:  heapMB,
		pins:    pins,
	}
}

// Launch starts the slug's game and returns the supervising handle.
// The slug's busy lock is held only through preparation; once the process
// is up, the handle is the caller's and the lock is released.
func (s *Service) Launch(ctx context.Context, slug string) (*launch.Handle, error) {
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
		return nil, fmt.Errorf("%s: %w", slug, installer.ErrNotReady)
	}

	if s.gameRunning(slug) {
		return nil, fmt.Errorf("%s: %w", slug, ErrAlreadyRunning)
	}

	manifest, err := s.repo.LoadManifest(slug)
	if err != nil {
		return nil, err
	}

	instDir := s.repo.Dir(slug)

	rt, err := s.runtime.Ensure(ctx, instDir, inst.JavaMajor)
	if err != nil {
		return nil, err
	}

	plan, err := s.buildPlan(manifest)
	if err != nil {
		return nil, err
	}

	for _, conflict := range plan.Conflicts {
		logger.InfoKV(ctx, "Pruned conflicting library versions",
			"library", conflict.Identity,
			"kept", conflict.Kept.Coordinate.Version,
			"dropped", len(conflict.Dropped),
			"pinned", conflict.Pinned)
	}

	spec := &launch.Spec{
		JavaBin: rt.JavaBin,
		Args:    s.buildArgs(plan, inst, instDir),
		Dir:     instDir,
		LogPath: filepath.Join(s.repo.LogsDir(slug), launchLogFilename),
	}

	handle, err := launch.Start(ctx, spec)
	if err != nil {
		return nil, err
	}

	s.recordLaunch(ctx, inst, handle.PID())

	return handle, nil
}

// buildPlan assembles classpath candidates from the manifest's verified
// cache entries and resolves them into a conflict-free plan. A required
// library missing from the cache fails the launch before any process
// starts.
func (s *Service) buildPlan(manifest *pack.Manifest) (*classpath.Plan, error) {
	var entries []classpath.Entry

	for _, f := range manifest.Files {
		if f.Kind != pack.DestLibrary || !f.OnClasspath {
			continue
		}

		ok, err := s.store.Verify(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", launch.ErrLaunch, err)
		}

		if !ok {
			if f.Optional {
				continue
			}

			return nil, fmt.Errorf("%w: library %s is not in the cache", launch.ErrLaunch, f.Coordinate)
		}

		entries = append(entries, classpath.Entry{
			Coordinate: f.Coordinate,
			Path:       s.store.PathFor(f.Coordinate),
			LoaderCore: f.LoaderCore,
		})
	}

	plan, err := classpath.Resolve(entries, manifest.MainClass, s.pins)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", launch.ErrLaunch, err)
	}

	return plan, nil
}

// buildArgs composes the JVM invocation: memory settings, the resolved
// classpath, the loader's entry point, then game arguments rooted at the
// instance directory.
func (s *Service) buildArgs(plan *classpath.Plan, inst *instance.Instance, instDir string) []string {
	args := []string{
		fmt.Sprintf("-Xmx%dM", s.heapMB),
		"-Dfile.encoding=UTF-8",
		"-cp", strings.Join(plan.Paths(), string(os.PathListSeparator)),
		plan.MainClass,
		"--gameDir", instDir,
		"--assetsDir", filepath.Join(instDir, "assets"),
		"--version", inst.GameVersion,
	}

	return args
}

// recordLaunch stamps the record and writes the pid file. Both are best
// effort: the game is already running and must not be torn down over
// bookkeeping.
func (s *Service) recordLaunch(ctx context.Context, inst *instance.Instance, pid int) {
	now := time.Now().UTC()
	inst.LastLaunchedAt = &now

	if err := s.repo.Save(ctx, inst); err != nil {
		logger.WarnKV(ctx, "Failed to stamp launch time", "error", err)
	}

	pidPath := filepath.Join(s.repo.Dir(inst.Slug), pidFilename)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		logger.WarnKV(ctx, "Failed to write pid file", "error", err)
	}
}

// gameRunning reports whether the slug's recorded game process is alive.
// A stale pid file, or a pid now owned by some unrelated process, does not
// block launching.
func (s *Service) gameRunning(slug string) bool {
	data, err := os.ReadFile(filepath.Join(s.repo.Dir(slug), pidFilename))
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}

	proc, err := ps.FindProcess(pid)
	if err != nil || proc == nil {
		return false
	}

	return strings.Contains(strings.ToLower(proc.Executable()), "java")
}
