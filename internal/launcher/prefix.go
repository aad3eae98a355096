// Package launcher prepares the environment and command line for a single
// game launch: wine prefix layout, Steam compatibility-tool variables, game
// drive library paths and the supervisor/gamescope/systemd wrapping.
package launcher

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"go.uber.org/zap"
)

// EnsurePrefix creates the wine prefix directory when missing and lays out
// the symlinks a compatibility tool expects: a pfx link to the prefix itself,
// a tracked_files marker, and the steamuser/unix-user link pair.
func EnsurePrefix(prefix string, log *zap.Logger) error {
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		return fmt.Errorf("create prefix: %w", err)
	}

	pfx := filepath.Join(prefix, "pfx")
	if info, err := os.Lstat(pfx); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(pfx); err != nil {
			return fmt.Errorf("replace pfx link: %w", err)
		}
	}
	if _, err := os.Stat(pfx); os.IsNotExist(err) {
		if err := os.Symlink(prefix, pfx); err != nil {
			return fmt.Errorf("link pfx: %w", err)
		}
	}

	tracked, err := os.OpenFile(filepath.Join(prefix, "tracked_files"), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("touch tracked_files: %w", err)
	}
	tracked.Close()

	return linkSteamUser(prefix, log)
}

// linkSteamUser keeps drive_c/users/steamuser and the unix user's directory
// pointing at the same profile, whichever of the two already exists. New
// prefixes get a steamuser directory with the unix user linked onto it.
func linkSteamUser(prefix string, log *zap.Logger) error {
	current, err := user.Current()
	if err != nil {
		return fmt.Errorf("resolve current user: %w", err)
	}

	users := filepath.Join(prefix, "drive_c", "users")
	steam := filepath.Join(users, "steamuser")
	wineuser := filepath.Join(users, current.Username)

	steamExists := isDir(steam)
	wineuserExists := isDir(wineuser)
	steamLinked := isSymlink(steam)
	wineuserLinked := isSymlink(wineuser)

	switch {
	case !steamExists && !wineuserExists && !steamLinked && !wineuserLinked:
		if err := os.MkdirAll(steam, 0o755); err != nil {
			return fmt.Errorf("create steamuser dir: %w", err)
		}
		if err := relink(wineuser, "steamuser"); err != nil {
			return err
		}
	case wineuserExists && !steamExists && !steamLinked:
		if err := relink(steam, current.Username); err != nil {
			return err
		}
	case !wineuserExists && !wineuserLinked && steamExists:
		if err := relink(wineuser, "steamuser"); err != nil {
			return err
		}
	default:
		log.Debug("skipping user link creation for prefix",
			zap.String("steamuser", steam), zap.String("wineuser", wineuser))
	}
	return nil
}

func relink(path, target string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if err := os.Symlink(target, path); err != nil {
		return fmt.Errorf("link %s -> %s: %w", path, target, err)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}
