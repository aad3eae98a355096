package fetch

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// extractTarGz unpacks archive into dest and returns the archive's top-level
// directory name. Entries escaping dest are rejected.
func extractTarGz(archive, dest string) (string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	var top string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read tar entry: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if name == "." || name == ".." || strings.HasPrefix(name, ".."+string(os.PathSeparator)) || filepath.IsAbs(name) {
			return "", fmt.Errorf("tar entry escapes destination: %s", hdr.Name)
		}
		if top == "" {
			top = strings.SplitN(name, string(os.PathSeparator), 2)[0]
		}
		target := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)|0o700); err != nil {
				return "", err
			}
		case tar.TypeReg:
			if err := ensureParent(dest, target); err != nil {
				return "", err
			}
			// Never write through a symlink left by an earlier entry.
			if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
				if err := os.Remove(target); err != nil {
					return "", err
				}
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return "", err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return "", fmt.Errorf("write %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return "", err
			}
		case tar.TypeSymlink:
			if linkEscapes(name, hdr.Linkname) {
				return "", fmt.Errorf("tar link escapes destination: %s -> %s", hdr.Name, hdr.Linkname)
			}
			if err := ensureParent(dest, target); err != nil {
				return "", err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil && !os.IsExist(err) {
				return "", err
			}
		default:
			// Hard links and device nodes do not appear in tool archives.
		}
	}

	return top, nil
}

// linkEscapes reports whether a symlink with the given archive name and
// target would resolve outside the extraction root.
func linkEscapes(name, linkname string) bool {
	if filepath.IsAbs(linkname) {
		return true
	}
	joined := filepath.Clean(filepath.Join(filepath.Dir(name), linkname))
	return joined == ".." || strings.HasPrefix(joined, ".."+string(os.PathSeparator))
}

// ensureParent creates target's parent directory and verifies it still
// resolves inside dest, so a directory symlink cannot redirect writes.
func ensureParent(dest, target string) error {
	parent := filepath.Dir(target)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	resolvedDest, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}
	resolved, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return err
	}
	if resolved != resolvedDest && !strings.HasPrefix(resolved, resolvedDest+string(os.PathSeparator)) {
		return fmt.Errorf("tar entry escapes destination: %s", target)
	}
	return nil
}
