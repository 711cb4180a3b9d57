package installer

import (
	"context"
	"crypto/sha1" //nolint:gosec // Matches the digests upstream metadata publishes.
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WillHanighen/CottageLauncher/internal/cache"
	"github.com/WillHanighen/CottageLauncher/internal/catalog"
	"github.com/WillHanighen/CottageLauncher/internal/domain/instance"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
	"github.com/WillHanighen/CottageLauncher/internal/download"
	"github.com/WillHanighen/CottageLauncher/internal/fetch"
	"github.com/WillHanighen/CottageLauncher/internal/jre"
	"github.com/WillHanighen/CottageLauncher/internal/repository/instances"
)

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec // Matches the digests upstream metadata publishes.

	return hex.EncodeToString(sum[:])
}

// fakeCatalog hands back canned resolutions.
type fakeCatalog struct {
	manifest   *pack.Manifest
	resolveErr error

	content    *catalog.ContentFile
	contentErr error
}

func (f *fakeCatalog) Resolve(_ context.Context, _, _ string) (*pack.Manifest, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}

	clone := *f.manifest

	return &clone, nil
}

func (f *fakeCatalog) ResolveContent(_ context.Context, _, _, _ string) (*catalog.ContentFile, error) {
	if f.contentErr != nil {
		return nil, f.contentErr
	}

	return f.content, nil
}

// fakeRuntime records provisioning calls instead of downloading a JRE.
type fakeRuntime struct {
	mu     sync.Mutex
	err    error
	majors []int
}

func (f *fakeRuntime) Ensure(_ context.Context, instanceDir string, major int) (*jre.Runtime, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	f.majors = append(f.majors, major)
	f.mu.Unlock()

	home := filepath.Join(instanceDir, "runtime", "jre-17")

	return &jre.Runtime{Major: major, Home: home, JavaBin: filepath.Join(home, "bin", "java")}, nil
}

type testEnv struct {
	service *Service
	repo    *instances.Repository
	store   *cache.Store
	runtime *fakeRuntime
}

func newTestEnv(t *testing.T, cat Catalog) *testEnv {
	t.Helper()

	root := t.TempDir()
	client := fetch.New(fetch.WithMaxRetries(0), fetch.WithBaseDelay(time.Millisecond))
	engine := download.NewEngine(client, root)
	store := cache.NewStore(filepath.Join(root, "libraries"), engine)
	repo := instances.NewRepository(filepath.Join(root, "instances"))
	runtime := &fakeRuntime{}

	return &testEnv{
		service: NewService(cat, store, engine, runtime, repo, 2),
		repo:    repo,
		store:   store,
		runtime: runtime,
	}
}

// fixtureServer serves named payloads and 404s everything else.
func fixtureServer(t *testing.T, payloads map[string][]byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write(payload)
	}))

	t.Cleanup(server.Close)

	return server
}

var (
	loaderBytes = []byte("fabric loader jar")
	configBytes = []byte("pack config payload")
)

// fixtureManifest describes a small pack: one shared library and one
// instance-local file, both served by the fixture server.
func fixtureManifest(baseURL string) *pack.Manifest {
	return &pack.Manifest{
		PackID:        "PACK1",
		PackVersion:   "v1",
		Name:          "Test Pack",
		GameVersion:   "1.20.4",
		LoaderVersion: "0.15.6",
		MainClass:     "net.fabricmc.loader.impl.launch.knot.KnotClient",
		JavaMajor:     17,
		Files: []pack.FileEntry{
			{
				Name:        "net.fabricmc:fabric-loader:0.15.6",
				URLs:        []string{baseURL + "/maven/fabric-loader.jar"},
				Checksum:    pack.Checksum{Algo: pack.AlgoSHA1, Hex: sha1Hex(loaderBytes)},
				Size:        int64(len(loaderBytes)),
				Kind:        pack.DestLibrary,
				Coordinate:  pack.Coordinate{Group: "net.fabricmc", Artifact: "fabric-loader", Version: "0.15.6"},
				OnClasspath: true,
				LoaderCore:  true,
			},
			{
				Name:     "server-config.toml",
				URLs:     []string{baseURL + "/cdn/server-config.toml"},
				Checksum: pack.Checksum{Algo: pack.AlgoSHA1, Hex: sha1Hex(configBytes)},
				Size:     int64(len(configBytes)),
				Kind:     pack.DestInstance,
				Path:     "config/server-config.toml",
			},
		},
	}
}

func fixturePayloads() map[string][]byte {
	return map[string][]byte{
		"/maven/fabric-loader.jar": loaderBytes,
		"/cdn/server-config.toml":  configBytes,
	}
}

// TestCreateInstallsInstance covers the happy path end to end: libraries in
// the shared cache, instance files in place, runtime provisioned, record and
// manifest persisted as ready.
func TestCreateInstallsInstance(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t, fixturePayloads())
	cat := &fakeCatalog{manifest: fixtureManifest(server.URL)}
	env := newTestEnv(t, cat)
	ctx := context.Background()

	inst, err := env.service.Create(ctx, &CreateRequest{PackID: "PACK1"})
	require.NoError(t, err)
	require.Equal(t, "test-pack", inst.Slug, "slug derives from the pack title")
	require.Equal(t, instance.StatusReady, inst.Status)
	require.Empty(t, inst.Warnings)

	// Library lands in the shared cache, not the instance.
	coord := pack.Coordinate{Group: "net.fabricmc", Artifact: "fabric-loader", Version: "0.15.6"}
	got, err := os.ReadFile(env.store.PathFor(coord))
	require.NoError(t, err)
	require.Equal(t, loaderBytes, got)

	got, err = os.ReadFile(filepath.Join(env.repo.Dir("test-pack"), "config", "server-config.toml"))
	require.NoError(t, err)
	require.Equal(t, configBytes, got)

	require.Equal(t, []int{17}, env.runtime.majors)

	manifest, err := env.repo.LoadManifest("test-pack")
	require.NoError(t, err)
	require.Equal(t, "v1", manifest.PackVersion)

	loaded, err := env.repo.Load(ctx, "test-pack")
	require.NoError(t, err)
	require.Equal(t, instance.StatusReady, loaded.Status)
}

// TestCreateRejectsExistingSlug verifies a second install of the same slug
// fails without touching the installed instance.
func TestCreateRejectsExistingSlug(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t, fixturePayloads())
	cat := &fakeCatalog{manifest: fixtureManifest(server.URL)}
	env := newTestEnv(t, cat)
	ctx := context.Background()

	_, err := env.service.Create(ctx, &CreateRequest{PackID: "PACK1"})
	require.NoError(t, err)

	_, err = env.service.Create(ctx, &CreateRequest{PackID: "PACK1"})
	require.ErrorIs(t, err, ErrAlreadyInstalled)

	loaded, err := env.repo.Load(ctx, "test-pack")
	require.NoError(t, err)
	require.Equal(t, instance.StatusReady, loaded.Status)
}

// TestCreateCleansUpOnRequiredFailure verifies a failing required file
// removes the partial instance entirely.
func TestCreateCleansUpOnRequiredFailure(t *testing.T) {
	t.Parallel()

	// The server carries the library but not the instance file.
	server := fixtureServer(t, map[string][]byte{"/maven/fabric-loader.jar": loaderBytes})
	cat := &fakeCatalog{manifest: fixtureManifest(server.URL)}
	env := newTestEnv(t, cat)

	_, err := env.service.Create(context.Background(), &CreateRequest{PackID: "PACK1"})
	require.Error(t, err)
	require.False(t, env.repo.Exists("test-pack"), "no half-installed instance stays behind")
}

// TestCreateKeepsOptionalFailuresAsWarnings verifies a failing optional
// file degrades to a warning on a ready instance.
func TestCreateKeepsOptionalFailuresAsWarnings(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t, fixturePayloads())

	manifest := fixtureManifest(server.URL)
	manifest.Files = append(manifest.Files, pack.FileEntry{
		Name:     "extra-shaders.zip",
		URLs:     []string{server.URL + "/cdn/missing.zip"},
		Checksum: pack.Checksum{Algo: pack.AlgoSHA1, Hex: sha1Hex(nil)},
		Size:     -1,
		Kind:     pack.DestInstance,
		Path:     "shaderpacks/extra-shaders.zip",
		Optional: true,
	})

	env := newTestEnv(t, &fakeCatalog{manifest: manifest})

	inst, err := env.service.Create(context.Background(), &CreateRequest{PackID: "PACK1"})
	require.NoError(t, err)
	require.Equal(t, instance.StatusReady, inst.Status)
	require.Len(t, inst.Warnings, 1)
	require.Contains(t, inst.Warnings[0], "extra-shaders.zip")
}

// TestCreateCleansUpWhenRuntimeUnavailable verifies runtime provisioning is
// part of the required path.
func TestCreateCleansUpWhenRuntimeUnavailable(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t, fixturePayloads())
	env := newTestEnv(t, &fakeCatalog{manifest: fixtureManifest(server.URL)})
	env.runtime.err = jre.ErrUnavailable

	_, err := env.service.Create(context.Background(), &CreateRequest{PackID: "PACK1"})
	require.ErrorIs(t, err, jre.ErrUnavailable)
	require.False(t, env.repo.Exists("test-pack"))
}

// TestUpdateRemovesStaleFiles verifies an update drops files the new pack
// version no longer ships while keeping user-added content.
func TestUpdateRemovesStaleFiles(t *testing.T) {
	t.Parallel()

	newConfig := []byte("renamed config payload")

	payloads := fixturePayloads()
	payloads["/cdn/game-options.toml"] = newConfig

	server := fixtureServer(t, payloads)
	cat := &fakeCatalog{manifest: fixtureManifest(server.URL)}
	env := newTestEnv(t, cat)
	ctx := context.Background()

	inst, err := env.service.Create(ctx, &CreateRequest{Slug: "sky", PackID: "PACK1"})
	require.NoError(t, err)

	// A user-added mod file next to the managed ones.
	modPath := filepath.Join(env.repo.Dir("sky"), "mods", "sodium.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(modPath), 0o755))
	require.NoError(t, os.WriteFile(modPath, []byte("user mod"), 0o644))

	inst.Content = append(inst.Content, instance.Content{
		ProjectID: "P1", VersionID: "V1", FileName: "sodium.jar", Sha1: "ab",
	})
	require.NoError(t, env.repo.Save(ctx, inst))

	// Version 2 replaces the config file with a renamed one.
	next := fixtureManifest(server.URL)
	next.PackVersion = "v2"
	next.Files[1] = pack.FileEntry{
		Name:     "game-options.toml",
		URLs:     []string{server.URL + "/cdn/game-options.toml"},
		Checksum: pack.Checksum{Algo: pack.AlgoSHA1, Hex: sha1Hex(newConfig)},
		Size:     int64(len(newConfig)),
		Kind:     pack.DestInstance,
		Path:     "config/game-options.toml",
	}
	cat.manifest = next

	updated, err := env.service.Update(ctx, "sky", "")
	require.NoError(t, err)
	require.Equal(t, "v2", updated.PackVersion)
	require.Equal(t, instance.StatusReady, updated.Status)

	instDir := env.repo.Dir("sky")
	require.NoFileExists(t, filepath.Join(instDir, "config", "server-config.toml"))
	require.FileExists(t, filepath.Join(instDir, "config", "game-options.toml"))
	require.FileExists(t, modPath, "user content survives updates")

	manifest, err := env.repo.LoadManifest("sky")
	require.NoError(t, err)
	require.Equal(t, "v2", manifest.PackVersion)
}

// TestUpdateFailureMarksBroken verifies a failed update keeps the instance
// on disk, flagged broken instead of deleted.
func TestUpdateFailureMarksBroken(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t, fixturePayloads())
	cat := &fakeCatalog{manifest: fixtureManifest(server.URL)}
	env := newTestEnv(t, cat)
	ctx := context.Background()

	_, err := env.service.Create(ctx, &CreateRequest{Slug: "sky", PackID: "PACK1"})
	require.NoError(t, err)

	next := fixtureManifest(server.URL)
	next.PackVersion = "v2"
	next.Files[1].URLs = []string{server.URL + "/cdn/gone.toml"}
	next.Files[1].Checksum = pack.Checksum{Algo: pack.AlgoSHA1, Hex: sha1Hex([]byte("other"))}
	cat.manifest = next

	_, err = env.service.Update(ctx, "sky", "")
	require.Error(t, err)

	loaded, err := env.repo.Load(ctx, "sky")
	require.NoError(t, err)
	require.Equal(t, instance.StatusBroken, loaded.Status)
}

// TestRemoveDeletesInstance verifies removal and its not-found case.
func TestRemoveDeletesInstance(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t, fixturePayloads())
	env := newTestEnv(t, &fakeCatalog{manifest: fixtureManifest(server.URL)})
	ctx := context.Background()

	_, err := env.service.Create(ctx, &CreateRequest{Slug: "sky", PackID: "PACK1"})
	require.NoError(t, err)

	require.NoError(t, env.service.Remove(ctx, "sky"))
	require.False(t, env.repo.Exists("sky"))

	require.ErrorIs(t, env.service.Remove(ctx, "sky"), instances.ErrNotFound)
}

// contentFixture returns a resolvable mod file served at /mods/sodium.jar.
func contentFixture(baseURL string, payload []byte) *catalog.ContentFile {
	return &catalog.ContentFile{
		ProjectID: "MODPROJ",
		VersionID: "MODVER",
		Sha1:      sha1Hex(payload),
		Entry: pack.FileEntry{
			Name:     "sodium.jar",
			URLs:     []string{baseURL + "/mods/sodium.jar"},
			Checksum: pack.Checksum{Algo: pack.AlgoSHA1, Hex: sha1Hex(payload)},
			Size:     int64(len(payload)),
			Kind:     pack.DestInstance,
			Path:     "mods/sodium.jar",
		},
	}
}

// TestAddContent verifies content installs into the instance and lands in
// the record, and a second add of the same project is rejected.
func TestAddContent(t *testing.T) {
	t.Parallel()

	modBytes := []byte("sodium jar bytes")

	payloads := fixturePayloads()
	payloads["/mods/sodium.jar"] = modBytes

	server := fixtureServer(t, payloads)
	cat := &fakeCatalog{
		manifest: fixtureManifest(server.URL),
		content:  contentFixture(server.URL, modBytes),
	}
	env := newTestEnv(t, cat)
	ctx := context.Background()

	_, err := env.service.Create(ctx, &CreateRequest{Slug: "sky", PackID: "PACK1"})
	require.NoError(t, err)

	inst, err := env.service.AddContent(ctx, "sky", "sodium", "")
	require.NoError(t, err)
	require.Len(t, inst.Content, 1)
	require.Equal(t, "MODPROJ", inst.Content[0].ProjectID)
	require.Equal(t, "sodium.jar", inst.Content[0].FileName)

	got, err := os.ReadFile(filepath.Join(env.repo.Dir("sky"), "mods", "sodium.jar"))
	require.NoError(t, err)
	require.Equal(t, modBytes, got)

	_, err = env.service.AddContent(ctx, "sky", "sodium", "")
	require.ErrorIs(t, err, ErrAlreadyInstalled)
}

// TestAddContentRequiresReadyInstance verifies content cannot be added to a
// broken or installing instance.
func TestAddContentRequiresReadyInstance(t *testing.T) {
	t.Parallel()

	server := fixtureServer(t, fixturePayloads())
	env := newTestEnv(t, &fakeCatalog{manifest: fixtureManifest(server.URL)})
	ctx := context.Background()

	inst, err := env.service.Create(ctx, &CreateRequest{Slug: "sky", PackID: "PACK1"})
	require.NoError(t, err)

	inst.Status = instance.StatusBroken
	require.NoError(t, env.repo.Save(ctx, inst))

	_, err = env.service.AddContent(ctx, "sky", "sodium", "")
	require.ErrorIs(t, err, ErrNotReady)
}

// TestRemoveContent verifies removal by project id and by file name, plus
// the not-found case.
func TestRemoveContent(t *testing.T) {
	t.Parallel()

	modBytes := []byte("sodium jar bytes")

	payloads := fixturePayloads()
	payloads["/mods/sodium.jar"] = modBytes

	server := fixtureServer(t, payloads)
	cat := &fakeCatalog{
		manifest: fixtureManifest(server.URL),
		content:  contentFixture(server.URL, modBytes),
	}
	env := newTestEnv(t, cat)
	ctx := context.Background()

	_, err := env.service.Create(ctx, &CreateRequest{Slug: "sky", PackID: "PACK1"})
	require.NoError(t, err)

	_, err = env.service.AddContent(ctx, "sky", "sodium", "")
	require.NoError(t, err)

	inst, err := env.service.RemoveContent(ctx, "sky", "sodium.jar")
	require.NoError(t, err)
	require.Empty(t, inst.Content)
	require.NoFileExists(t, filepath.Join(env.repo.Dir("sky"), "mods", "sodium.jar"))

	_, err = env.service.RemoveContent(ctx, "sky", "sodium.jar")
	require.ErrorIs(t, err, ErrContentNotFound)
}
