package launcher

import (
	"context"
	"crypto/sha1" //nolint:gosec // Matches the digests upstream metadata publishes.
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WillHanighen/CottageLauncher/internal/cache"
	"github.com/WillHanighen/CottageLauncher/internal/domain/instance"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/download"
	"github.com/WillHanighen/CottageLauncher/internal/fetch"
	"github.com/WillHanighen/CottageLauncher/internal/jre"
	"github.com/WillHanighen/CottageLauncher/internal/launch"
	"github.com/WillHanighen/CottageLauncher/internal/repository/instances"
	"github.com/WillHanighen/CottageLauncher/internal/service/installer"
)

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec // Matches the digests upstream metadata publishes.

	return hex.EncodeToString(sum[:])
}

// stubRuntime hands back a prepared java binary instead of provisioning one.
type stubRuntime struct {
	javaBin string
	err     error
}

func (f *stubRuntime) Ensure(_ context.Context, instanceDir string, major int) (*jre.Runtime, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &jre.Runtime{
		Major:   major,
		Home:    filepath.Join(instanceDir, "runtime"),
		JavaBin: f.javaBin,
	}, nil
}

// writeJavaStub writes a shell script standing in for the java binary. It
// records its arguments and exits with the given code.
func writeJavaStub(t *testing.T, dir string, exitCode int) (bin, argsFile string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("stub java script requires a POSIX shell")
	}

	argsFile = filepath.Join(dir, "args.txt")
	bin = filepath.Join(dir, "java")

	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$@\" > %q\nexit %d\n", argsFile, exitCode)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))

	return bin, argsFile
}

type testEnv struct {
	service *Service
	repo    *instances.Repository
	store   *cache.Store
	runtime *stubRuntime
}

// newTestEnv builds a launcher over a populated cache and one ready
// instance named "sky".
func newTestEnv(t *testing.T, manifest *pack.Manifest) *testEnv {
	t.Helper()

	root := t.TempDir()
	client := fetch.New(fetch.WithMaxRetries(0), fetch.WithBaseDelay(time.Millisecond))
	engine := download.NewEngine(client, root)
	store := cache.NewStore(filepath.Join(root, "libraries"), engine)
	repo := instances.NewRepository(filepath.Join(root, "instances"))
	rt := &stubRuntime{}

	inst := &instance.Instance{
		Slug:        "sky",
		Name:        "Skyblock",
		PackID:      "PACK1",
		PackVersion: "v1",
		GameVersion: "1.20.4",
		JavaMajor:   17,
		Status:      instance.StatusReady,
		CreatedAt:   time.Now().UTC(),
	}

	require.NoError(t, repo.Save(context.Background(), inst))
	require.NoError(t, repo.SaveManifest("sky", manifest))

	return &testEnv{
		service: NewService(store, rt, repo, 2048, nil),
		repo:    repo,
		store:   store,
		runtime: rt,
	}
}

// launchManifest names one required classpath library served by the
// fixture server.
func launchManifest(baseURL string, payload []byte) *pack.Manifest {
	return &pack.Manifest{
		PackID:        "PACK1",
		PackVersion:   "v1",
		Name:          "Skyblock",
		GameVersion:   "1.20.4",
		LoaderVersion: "0.15.6",
		MainClass:     "net.fabricmc.loader.impl.launch.knot.KnotClient",
		JavaMajor:     17,
		Files: []pack.FileEntry{{
			Name:        "net.fabricmc:fabric-loader:0.15.6",
			URLs:        []string{baseURL + "/maven/fabric-loader.jar"},
			Checksum:    pack.Checksum{Algo: pack.AlgoSHA1, Hex: sha1Hex(payload)},
			Size:        int64(len(payload)),
			Kind:        pack.DestLibrary,
			Coordinate:  pack.Coordinate{Group: "net.fabricmc", Artifact: "fabric-loader", Version: "0.15.6"},
			OnClasspath: true,
			LoaderCore:  true,
		}},
	}
}

func libraryServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maven/fabric-loader.jar" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write(payload)
	}))

	t.Cleanup(server.Close)

	return server
}

// TestLaunchStartsGame covers the happy path: cached library on the
// classpath, stub process started, record stamped, pid file written.
func TestLaunchStartsGame(t *testing.T) {
	t.Parallel()

	payload := []byte("loader jar")
	server := libraryServer(t, payload)
	manifest := launchManifest(server.URL, payload)
	env := newTestEnv(t, manifest)
	ctx := context.Background()

	_, err := env.store.Ensure(ctx, manifest.Files[0])
	require.NoError(t, err)

	bin, argsFile := writeJavaStub(t, t.TempDir(), 0)
	env.runtime.javaBin = bin

	handle, err := env.service.Launch(ctx, "sky")
	require.NoError(t, err)
	require.NoError(t, handle.Wait(ctx))

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(args)), "\n")
	require.Contains(t, lines, "-Xmx2048M")
	require.Contains(t, lines, manifest.MainClass)
	require.Contains(t, lines, "--gameDir")
	require.Contains(t, lines, "1.20.4")

	// The classpath points into the shared cache.
	cpIndex := -1
	for i, line := range lines {
		if line == "-cp" {
			cpIndex = i
		}
	}

	require.GreaterOrEqual(t, cpIndex, 0)
	coord := pack.Coordinate{Group: "net.fabricmc", Artifact: "fabric-loader", Version: "0.15.6"}
	require.Equal(t, env.store.PathFor(coord), lines[cpIndex+1])

	// Bookkeeping: launch time stamped, pid recorded, output logged.
	loaded, err := env.repo.Load(ctx, "sky")
	require.NoError(t, err)
	require.NotNil(t, loaded.LastLaunchedAt)

	require.FileExists(t, filepath.Join(env.repo.Dir("sky"), pidFilename))
	require.FileExists(t, filepath.Join(env.repo.LogsDir("sky"), launchLogFilename))
}

// TestLaunchReportsGameExit verifies a crashing game surfaces its exit code.
func TestLaunchReportsGameExit(t *testing.T) {
	t.Parallel()

	payload := []byte("loader jar")
	server := libraryServer(t, payload)
	manifest := launchManifest(server.URL, payload)
	env := newTestEnv(t, manifest)
	ctx := context.Background()

	_, err := env.store.Ensure(ctx, manifest.Files[0])
	require.NoError(t, err)

	bin, _ := writeJavaStub(t, t.TempDir(), 3)
	env.runtime.javaBin = bin

	handle, err := env.service.Launch(ctx, "sky")
	require.NoError(t, err)

	var exitErr *launch.GameExitError
	require.ErrorAs(t, handle.Wait(ctx), &exitErr)
	require.Equal(t, 3, exitErr.Code)
}

// TestLaunchRejectsNotReadyInstance verifies broken or installing instances
// cannot launch.
func TestLaunchRejectsNotReadyInstance(t *testing.T) {
	t.Parallel()

	payload := []byte("loader jar")
	server := libraryServer(t, payload)
	env := newTestEnv(t, launchManifest(server.URL, payload))
	ctx := context.Background()

	inst, err := env.repo.Load(ctx, "sky")
	require.NoError(t, err)

	inst.Status = instance.StatusBroken
	require.NoError(t, env.repo.Save(ctx, inst))

	_, err = env.service.Launch(ctx, "sky")
	require.ErrorIs(t, err, installer.ErrNotReady)
}

// TestLaunchFailsOnMissingLibrary verifies a required classpath library
// absent from the cache aborts before any process starts.
func TestLaunchFailsOnMissingLibrary(t *testing.T) {
	t.Parallel()

	payload := []byte("loader jar")
	server := libraryServer(t, payload)
	env := newTestEnv(t, launchManifest(server.URL, payload))

	// The cache was never populated.
	_, err := env.service.Launch(context.Background(), "sky")
	require.ErrorIs(t, err, launch.ErrLaunch)
	require.NoFileExists(t, filepath.Join(env.repo.Dir("sky"), pidFilename))
}

// TestLaunchIgnoresStalePid verifies a pid file pointing at a dead or
// unrelated process does not block launching.
func TestLaunchIgnoresStalePid(t *testing.T) {
	t.Parallel()

	payload := []byte("loader jar")
	server := libraryServer(t, payload)
	manifest := launchManifest(server.URL, payload)
	env := newTestEnv(t, manifest)
	ctx := context.Background()

	_, err := env.store.Ensure(ctx, manifest.Files[0])
	require.NoError(t, err)

	// The current test process: alive, but no java executable.
	pidPath := filepath.Join(env.repo.Dir("sky"), pidFilename)
	require.NoError(t, os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644))

	bin, _ := writeJavaStub(t, t.TempDir(), 0)
	env.runtime.javaBin = bin

	handle, err := env.service.Launch(ctx, "sky")
	require.NoError(t, err)
	require.NoError(t, handle.Wait(ctx))
}
