package jre

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// errEntryPath is returned for archive entries that would land outside the
// destination directory.
var errEntryPath = errors.New("archive entry escapes destination")

// maxEntrySize caps a single decompressed archive entry. Runtime archives
// carry nothing near this large; anything bigger is a malformed or hostile
// archive.
const maxEntrySize = 2 << 30

// unpack extracts a runtime archive into dest, stripping the single
// top-level directory runtime distributions wrap their contents in.
func unpack(archive, dest string) error {
	if strings.HasSuffix(archive, ".zip") {
		return unpackZip(archive, dest)
	}

	return unpackTarGz(archive, dest)
}

func unpackTarGz(archive, dest string) error {
	f, err := os.Open(filepath.Clean(archive))
	if err != nil {
		return err
	}

	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}

	defer gz.Close()

	reader := tar.NewReader(gz)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		target, ok, err := entryTarget(dest, header.Name)
		if err != nil {
			return err
		}

		if !ok {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err = writeEntry(target, reader, header.FileInfo().Mode()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			// Runtime images link libs into place relative to themselves.
			// Absolute or escaping link targets are rejected.
			if err = writeSymlink(dest, target, header.Linkname); err != nil {
				return err
			}
		default:
			// Hard links, devices and the like have no place in a runtime
			// archive.
			continue
		}
	}
}

func unpackZip(archive, dest string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer reader.Close()

	for _, entry := range reader.File {
		target, ok, err := entryTarget(dest, entry.Name)
		if err != nil {
			return err
		}

		if !ok {
			continue
		}

		if entry.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return err
			}

			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
		}

		err = writeEntry(target, rc, entry.Mode())

		_ = rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// entryTarget maps an archive entry name to its destination path, dropping
// the top-level wrapper directory and anything trying to escape dest.
func entryTarget(dest, name string) (string, bool, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", false, nil
	}

	// jdk-21.0.2+13-jre/bin/java -> bin/java
	parts := strings.SplitN(clean, "/", 2)
	if len(parts) < 2 {
		return "", false, nil
	}

	target := filepath.Join(dest, filepath.FromSlash(parts[1]))

	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false, fmt.Errorf("%w: %q", errEntryPath, name)
	}

	return target, true, nil
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	_, err = io.Copy(out, io.LimitReader(r, maxEntrySize))
	if err != nil {
		_ = out.Close()

		return fmt.Errorf("write %s: %w", target, err)
	}

	return out.Close()
}

func writeSymlink(dest, target, linkname string) error {
	if path.IsAbs(linkname) {
		return fmt.Errorf("%w: absolute link %q", errEntryPath, linkname)
	}

	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))

	rel, err := filepath.Rel(dest, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: link %q", errEntryPath, linkname)
	}

	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	_ = os.Remove(target)

	return os.Symlink(linkname, target)
}
