package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for the settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing data directory.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad catalog URL.
	cfg = &Config{
		DataDir:    t.TempDir(),
		CatalogURL: "not a url",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay, defaults filled in.
	cfg = &Config{
		DataDir:    t.TempDir(),
		CatalogURL: "https://catalog.local/v2",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultDownloadWorkers, cfg.DownloadWorkers)
	require.Equal(t, DefaultJavaHeapMB, cfg.JavaHeapMB)
	require.Equal(t, "info", cfg.LogLevel)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		DataDir:         filepath.Join(dir, "data"),
		CatalogURL:      "https://catalog.local/v2",
		DownloadWorkers: 4,
		LoaderPins: map[string]string{
			"org.ow2.asm:asm": "9.6",
		},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.DataDir, loaded.DataDir)
	require.Equal(t, cfg.CatalogURL, loaded.CatalogURL)
	require.Equal(t, 4, loaded.DownloadWorkers)
	require.Equal(t, "9.6", loaded.LoaderPins["org.ow2.asm:asm"])

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadMissingFile ensures a missing settings file yields defaults.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultCatalogURL, cfg.CatalogURL)
	require.NotEmpty(t, cfg.DataDir)
}

// TestDirectoryHelpers ensures the derived directories live under the data root.
func TestDirectoryHelpers(t *testing.T) {
	t.Parallel()

	cfg := &Config{DataDir: filepath.Join("some", "root")}
	require.Equal(t, filepath.Join("some", "root", "libraries"), cfg.LibrariesDir())
	require.Equal(t, filepath.Join("some", "root", "runtimes"), cfg.RuntimesDir())
	require.Equal(t, filepath.Join("some", "root", "instances"), cfg.InstancesDir())
}
