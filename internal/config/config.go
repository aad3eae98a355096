// Package config resolves the parameters of a single launch, either from a
// TOML file or from the environment. It only decides *what* to launch; the
// launcher package assembles the runtime environment around it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default locations, relative to the user's home directory.
const (
	defaultPrefixRoot = "Games/ward"
	steamCompatDir    = ".local/share/Steam/compatibilitytools.d"
)

// DefaultVerb is assigned when no valid compatibility-tool verb is requested.
const DefaultVerb = "waitforexitandrun"

// Verbs are the compatibility-tool verbs a launch may request.
var Verbs = map[string]struct{}{
	"waitforexitandrun": {},
	"run":               {},
	"runinprefix":       {},
	"destroyprefix":     {},
	"getcompatpath":     {},
	"getnativepath":     {},
}

// Launch holds the resolved parameters for one game launch.
type Launch struct {
	// GameID identifies the title, e.g. "ward-1234". Required.
	GameID string

	// Prefix is the wine prefix directory.
	Prefix string

	// Proton is the compatibility tool directory. Empty means the launcher
	// must resolve or download one.
	Proton string

	// Exe is the wrapped executable. Empty creates the prefix and exits.
	Exe string

	// LaunchArgs are appended to the wrapped executable's own arguments.
	LaunchArgs []string

	// Store tags the storefront the title came from, when known.
	Store string

	// Verb is the compatibility-tool verb, DefaultVerb when unset.
	Verb string

	// UseReaper selects the built-in supervisor; false delegates subtree
	// tracking to a transient systemd scope.
	UseReaper bool

	// Grace bounds voluntary shutdown of the launched tree after a
	// termination request. Zero means the supervisor default.
	Grace time.Duration

	// Gamescope holds the validated [plugins.gamescope] option table.
	Gamescope map[string]any
}

// ID returns the launch identifier used to label the supervisor and any
// transient systemd unit.
func (l *Launch) ID() string {
	return l.GameID
}

// defaultPrefix computes the prefix directory conventionally used for a game
// id when WINEPREFIX is not set.
func defaultPrefix(gameID string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, defaultPrefixRoot, gameID), nil
}

// DataDir returns the launcher's per-user data directory, mounted alongside
// the compatibility tool so runtime components placed there are visible to
// the launched game.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "ward"), nil
}

// SteamCompatDir returns the user's compatibilitytools.d directory.
func SteamCompatDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, steamCompatDir), nil
}

func expandUser(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if len(path) > 1 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
