package launcher

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// EnableGameDrive mirrors Steam's game drive behavior: the first mount point
// above the game's install path joins STEAM_COMPAT_LIBRARY_PATHS, and the
// runtime library search path is seeded from LD_LIBRARY_PATH, the install
// path and the standard system library directories.
func EnableGameDrive(env map[string]string) {
	install := env["STEAM_COMPAT_INSTALL_PATH"]

	if install != "" {
		for dir := filepath.Dir(install); dir != "/"; dir = filepath.Dir(dir) {
			if !isMountPoint(dir) {
				continue
			}
			if existing := env["STEAM_COMPAT_LIBRARY_PATHS"]; existing != "" {
				env["STEAM_COMPAT_LIBRARY_PATHS"] = existing + ":" + dir
			} else {
				env["STEAM_COMPAT_LIBRARY_PATHS"] = dir
			}
			break
		}
	}

	// A set, so repeated launches don't grow the path.
	seen := make(map[string]struct{})
	var paths []string
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	if ld := os.Getenv("LD_LIBRARY_PATH"); ld != "" {
		for _, p := range strings.Split(ld, ":") {
			add(p)
		}
	}
	add(install)
	// Standard locations, hard-coded to avoid shelling out to ldconfig.
	add("/usr/lib")
	add("/usr/lib32")

	env["STEAM_RUNTIME_LIBRARY_PATH"] = strings.Join(paths, ":")
}

// isMountPoint reports whether path sits on a different device than its
// parent, which also catches btrfs subvolume boundaries.
func isMountPoint(path string) bool {
	var self, parent unix.Stat_t
	if err := unix.Stat(path, &self); err != nil {
		return false
	}
	if err := unix.Stat(filepath.Dir(path), &parent); err != nil {
		return false
	}
	return self.Dev != parent.Dev
}
