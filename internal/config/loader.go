package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variables read by FromEnv.
const (
	EnvGameID  = "GAMEID"
	EnvPrefix  = "WINEPREFIX"
	EnvProton  = "PROTONPATH"
	EnvVerb    = "PROTON_VERB"
	EnvStore   = "STORE"
	EnvSystemd = "WARD_SYSTEMD"
	EnvGrace   = "WARD_GRACE"
)

const tomlTable = "ward"

// FromFile reads a launch definition from a TOML file. The [ward] table is
// required, as are its proton, prefix and exe keys; key matching is
// case-insensitive.
func FromFile(path string) (*Launch, error) {
	absPath, err := filepath.Abs(expandUser(path))
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if info, err := os.Stat(absPath); err != nil || info.IsDir() {
		return nil, fmt.Errorf("path to configuration is not a file: %s", path)
	}

	v := viper.New()
	v.SetConfigFile(absPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: read config: %w", absPath, err)
	}

	if !v.IsSet(tomlTable) {
		return nil, fmt.Errorf("%s: table %q is not defined", absPath, tomlTable)
	}

	launch := &Launch{
		GameID:    v.GetString(tomlTable + ".game_id"),
		Prefix:    expandUser(v.GetString(tomlTable + ".prefix")),
		Proton:    expandUser(v.GetString(tomlTable + ".proton")),
		Exe:       expandUser(v.GetString(tomlTable + ".exe")),
		Store:     v.GetString(tomlTable + ".store"),
		UseReaper: true,
	}
	if v.IsSet(tomlTable + ".launch_args") {
		launch.LaunchArgs = v.GetStringSlice(tomlTable + ".launch_args")
	}
	if v.IsSet(tomlTable + ".reaper") {
		if _, ok := v.Get(tomlTable + ".reaper").(bool); !ok {
			return nil, fmt.Errorf("%s: value for key %q is not a boolean", absPath, "reaper")
		}
		launch.UseReaper = v.GetBool(tomlTable + ".reaper")
	}
	if v.IsSet(tomlTable + ".grace") {
		grace, err := time.ParseDuration(v.GetString(tomlTable + ".grace"))
		if err != nil || grace <= 0 {
			return nil, fmt.Errorf("%s: value for key %q is not a positive duration", absPath, "grace")
		}
		launch.Grace = grace
	}
	if v.IsSet("plugins.gamescope") {
		launch.Gamescope = v.GetStringMap("plugins.gamescope")
	}

	if err := validateFile(absPath, v, launch); err != nil {
		return nil, err
	}

	launch.Verb = verbFromEnv()
	if launch.GameID == "" {
		launch.GameID = "ward-default"
	}
	return launch, nil
}

// validateFile mirrors the strictness of the env path: required keys present,
// the exe a file, proton and prefix directories, and no empty string values.
func validateFile(source string, v *viper.Viper, launch *Launch) error {
	for _, key := range []string{"proton", "prefix", "exe"} {
		if !v.IsSet(tomlTable + "." + key) {
			return fmt.Errorf("%s: key %q in table %q is required", source, key, tomlTable)
		}
	}

	for key, value := range v.GetStringMap(tomlTable) {
		if s, ok := value.(string); ok && s == "" {
			return fmt.Errorf("%s: value is empty for key %q", source, key)
		}
	}

	if info, err := os.Stat(launch.Exe); err != nil || info.IsDir() {
		return fmt.Errorf("%s: value for key %q is not a file: %s", source, "exe", launch.Exe)
	}
	for key, dir := range map[string]string{"proton": launch.Proton, "prefix": launch.Prefix} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("%s: value for key %q is not a directory: %s", source, key, dir)
		}
	}
	return nil
}

// FromEnv reads a launch definition from the environment. GAMEID is strictly
// required; the prefix defaults to a per-game directory under ~/Games/ward.
func FromEnv(exe string, args []string) (*Launch, error) {
	gameID := os.Getenv(EnvGameID)
	if gameID == "" {
		return nil, fmt.Errorf("environment variable not set: %s", EnvGameID)
	}

	prefix := os.Getenv(EnvPrefix)
	if prefix == "" {
		var err error
		prefix, err = defaultPrefix(gameID)
		if err != nil {
			return nil, err
		}
	}

	proton := os.Getenv(EnvProton)
	if proton != "" && !strings.ContainsRune(proton, os.PathSeparator) {
		// A bare name selects a tool under compatibilitytools.d.
		if compat, err := SteamCompatDir(); err == nil {
			if candidate := filepath.Join(compat, proton); isDir(candidate) {
				proton = candidate
			}
		}
	}

	launch := &Launch{
		GameID:     gameID,
		Prefix:     expandUser(prefix),
		Proton:     expandUser(proton),
		Exe:        expandUser(exe),
		LaunchArgs: append([]string(nil), args...),
		Store:      os.Getenv(EnvStore),
		Verb:       verbFromEnv(),
		UseReaper:  os.Getenv(EnvSystemd) != "1",
	}

	if value := os.Getenv(EnvGrace); value != "" {
		grace, err := time.ParseDuration(value)
		if err != nil || grace <= 0 {
			return nil, fmt.Errorf("%s is not a positive duration: %q", EnvGrace, value)
		}
		launch.Grace = grace
	}

	return launch, nil
}

func verbFromEnv() string {
	verb := os.Getenv(EnvVerb)
	if _, ok := Verbs[verb]; ok {
		return verb
	}
	return DefaultVerb
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
