package instances

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WillHanighen/CottageLauncher/internal/domain/instance"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
)

func testInstance() *instance.Instance {
	launched := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	return &instance.Instance{
		Slug:          "skyblock",
		Name:          "Skyblock Classic",
		PackID:        "AABBCCDD",
		PackVersion:   "v123",
		GameVersion:   "1.20.4",
		LoaderVersion: "0.15.6",
		JavaMajor:     17,
		Status:        instance.StatusReady,
		Content: []instance.Content{{
			ProjectID: "P1",
			VersionID: "V1",
			FileName:  "sodium.jar",
			Sha1:      "ab",
		}},
		Warnings:       []string{"optional file shaders.zip: status 500"},
		CreatedAt:      time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		LastLaunchedAt: &launched,
	}
}

func testManifest() *pack.Manifest {
	return &pack.Manifest{
		PackID:        "AABBCCDD",
		PackVersion:   "v123",
		Name:          "Skyblock Classic",
		GameVersion:   "1.20.4",
		LoaderVersion: "0.15.6",
		MainClass:     "net.fabricmc.loader.impl.launch.knot.KnotClient",
		JavaMajor:     17,
		Files: []pack.FileEntry{
			{
				Name: "org.ow2.asm:asm:9.6",
				URLs: []string{"https://repo.example/asm-9.6.jar"},
				Checksum: pack.Checksum{
					Algo: pack.AlgoSHA1,
					Hex:  "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				},
				Size:        100,
				Kind:        pack.DestLibrary,
				Coordinate:  pack.Coordinate{Group: "org.ow2.asm", Artifact: "asm", Version: "9.6"},
				OnClasspath: true,
				LoaderCore:  true,
			},
			{
				Name: "overrides.zip",
				URLs: []string{"https://cdn.example/overrides.zip"},
				Checksum: pack.Checksum{
					Algo: pack.AlgoSHA1,
					Hex:  "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
				},
				Size:     -1,
				Kind:     pack.DestInstance,
				Path:     "config/overrides.zip",
				Optional: true,
			},
		},
	}
}

// TestSaveLoadRoundTrip verifies a record survives the YAML round trip.
func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir())
	ctx := context.Background()

	inst := testInstance()
	require.NoError(t, repo.Save(ctx, inst))
	require.True(t, repo.Exists("skyblock"))

	loaded, err := repo.Load(ctx, "skyblock")
	require.NoError(t, err)

	require.Equal(t, inst.Slug, loaded.Slug)
	require.Equal(t, inst.Name, loaded.Name)
	require.Equal(t, inst.PackVersion, loaded.PackVersion)
	require.Equal(t, inst.JavaMajor, loaded.JavaMajor)
	require.Equal(t, inst.Status, loaded.Status)
	require.Equal(t, inst.Content, loaded.Content)
	require.Equal(t, inst.Warnings, loaded.Warnings)
	require.NotNil(t, loaded.LastLaunchedAt)
	require.True(t, inst.LastLaunchedAt.Equal(*loaded.LastLaunchedAt))
	require.False(t, loaded.UpdatedAt.IsZero(), "save must stamp UpdatedAt")
}

// TestLoadMissing verifies the not-found sentinel.
func TestLoadMissing(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir())

	_, err := repo.Load(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestManifestRoundTrip verifies the stored manifest parses back with its
// checksums and coordinates intact.
func TestManifestRoundTrip(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir())
	manifest := testManifest()

	require.NoError(t, repo.SaveManifest("skyblock", manifest))

	loaded, err := repo.LoadManifest("skyblock")
	require.NoError(t, err)
	require.Equal(t, manifest, loaded)
}

// TestListSkipsBrokenDirectories verifies listing survives a directory
// without a readable record.
func TestListSkipsBrokenDirectories(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir())
	ctx := context.Background()

	first := testInstance()
	require.NoError(t, repo.Save(ctx, first))

	second := testInstance()
	second.Slug = "another"
	require.NoError(t, repo.Save(ctx, second))

	// A directory with no record: a crashed install's leftovers.
	require.NoError(t, os.MkdirAll(repo.Dir("broken"), 0o755))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "another", list[0].Slug)
	require.Equal(t, "skyblock", list[1].Slug)
}

// TestDelete verifies removal of the instance directory.
func TestDelete(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testInstance()))
	require.NoError(t, repo.Delete(ctx, "skyblock"))
	require.False(t, repo.Exists("skyblock"))

	require.ErrorIs(t, repo.Delete(ctx, "skyblock"), ErrNotFound)
}

// TestAcquireRejectsHeldSlug verifies the busy guard: one slug, one
// operation at a time, independent slugs unaffected.
func TestAcquireRejectsHeldSlug(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir())

	release, err := repo.Acquire("skyblock")
	require.NoError(t, err)

	_, err = repo.Acquire("skyblock")
	require.ErrorIs(t, err, ErrBusy)

	otherRelease, err := repo.Acquire("other")
	require.NoError(t, err)
	otherRelease()

	release()

	release, err = repo.Acquire("skyblock")
	require.NoError(t, err)
	release()
}
