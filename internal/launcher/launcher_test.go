package launcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ward-launcher/ward/internal/config"
)

func TestEnvironDerivesAppID(t *testing.T) {
	cases := []struct {
		name   string
		gameID string
		want   string
	}{
		{"numeric id", "ward-1234", "1234"},
		{"alphanumeric id", "ward-abc123", "abc123"},
		{"foreign id", "some-game", "0"},
		{"bare id", "ward", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			launch := &config.Launch{
				GameID: tc.gameID,
				Prefix: "/tmp/prefix",
				Proton: "/tmp/proton",
				Exe:    "/tmp/game/game.exe",
				Verb:   config.DefaultVerb,
			}
			env := Environ(launch, "/tmp/runtime")
			if env["STEAM_COMPAT_APP_ID"] != tc.want {
				t.Fatalf("STEAM_COMPAT_APP_ID = %q, want %q", env["STEAM_COMPAT_APP_ID"], tc.want)
			}
			if env["SteamAppId"] != tc.want || env["SteamGameId"] != tc.want {
				t.Fatalf("SteamAppId/SteamGameId not mirrored: %q/%q", env["SteamAppId"], env["SteamGameId"])
			}
		})
	}
}

func TestEnvironAssemblesCompatPaths(t *testing.T) {
	launch := &config.Launch{
		GameID: "ward-1",
		Prefix: "/tmp/prefix",
		Proton: "/tmp/proton",
		Exe:    "/tmp/game/game.exe",
		Verb:   "runinprefix",
	}
	env := Environ(launch, "/tmp/runtime")

	if env["PROTON_VERB"] != "runinprefix" {
		t.Errorf("PROTON_VERB = %q", env["PROTON_VERB"])
	}
	if env["STEAM_COMPAT_INSTALL_PATH"] != "/tmp/game" {
		t.Errorf("STEAM_COMPAT_INSTALL_PATH = %q", env["STEAM_COMPAT_INSTALL_PATH"])
	}
	if env["STEAM_COMPAT_DATA_PATH"] != "/tmp/prefix" {
		t.Errorf("STEAM_COMPAT_DATA_PATH = %q", env["STEAM_COMPAT_DATA_PATH"])
	}
	if env["STEAM_COMPAT_SHADER_PATH"] != "/tmp/prefix/shadercache" {
		t.Errorf("STEAM_COMPAT_SHADER_PATH = %q", env["STEAM_COMPAT_SHADER_PATH"])
	}
	if want := "/tmp/proton:/tmp/runtime"; env["STEAM_COMPAT_TOOL_PATHS"] != want {
		t.Errorf("STEAM_COMPAT_TOOL_PATHS = %q, want %q", env["STEAM_COMPAT_TOOL_PATHS"], want)
	}
	if env["STEAM_COMPAT_MOUNTS"] != env["STEAM_COMPAT_TOOL_PATHS"] {
		t.Error("STEAM_COMPAT_MOUNTS should mirror STEAM_COMPAT_TOOL_PATHS")
	}
}

func TestEnvironEmptyExeCreatesPrefixOnly(t *testing.T) {
	launch := &config.Launch{
		GameID: "ward-1",
		Prefix: "/tmp/prefix",
		Proton: "/tmp/proton",
		Verb:   "runinprefix",
	}
	env := Environ(launch, "/tmp/runtime")

	if env["EXE"] != "" || env["STEAM_COMPAT_INSTALL_PATH"] != "" {
		t.Errorf("empty exe should clear EXE and install path: %q, %q",
			env["EXE"], env["STEAM_COMPAT_INSTALL_PATH"])
	}
	if env["PROTON_VERB"] != config.DefaultVerb {
		t.Errorf("PROTON_VERB = %q, want %q", env["PROTON_VERB"], config.DefaultVerb)
	}
}

func TestEnableGameDriveLibraryPath(t *testing.T) {
	t.Setenv("LD_LIBRARY_PATH", "/opt/libs:/usr/lib")

	env := map[string]string{"STEAM_COMPAT_INSTALL_PATH": "/tmp/game"}
	EnableGameDrive(env)

	got := strings.Split(env["STEAM_RUNTIME_LIBRARY_PATH"], ":")
	want := []string{"/opt/libs", "/usr/lib", "/tmp/game", "/usr/lib32"}
	if len(got) != len(want) {
		t.Fatalf("STEAM_RUNTIME_LIBRARY_PATH = %q", env["STEAM_RUNTIME_LIBRARY_PATH"])
	}
	for i, p := range want {
		if got[i] != p {
			t.Fatalf("path[%d] = %q, want %q (full: %q)", i, got[i], p, env["STEAM_RUNTIME_LIBRARY_PATH"])
		}
	}
}

func TestEnsurePrefixLayout(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "prefix")
	log := zap.NewNop()

	if err := EnsurePrefix(prefix, log); err != nil {
		t.Fatalf("EnsurePrefix: %v", err)
	}

	pfx, err := os.Readlink(filepath.Join(prefix, "pfx"))
	if err != nil {
		t.Fatalf("pfx should be a symlink: %v", err)
	}
	if pfx != prefix {
		t.Errorf("pfx -> %q, want %q", pfx, prefix)
	}
	if _, err := os.Stat(filepath.Join(prefix, "tracked_files")); err != nil {
		t.Errorf("tracked_files missing: %v", err)
	}
	if !isDir(filepath.Join(prefix, "drive_c", "users", "steamuser")) {
		t.Error("steamuser directory missing for a new prefix")
	}

	// A second run against the same prefix must be idempotent.
	if err := EnsurePrefix(prefix, log); err != nil {
		t.Fatalf("EnsurePrefix rerun: %v", err)
	}
}

func TestGamescopeFlags(t *testing.T) {
	flags, err := gamescopeFlags(map[string]any{
		"fullscreen":   true,
		"output_width": int64(2560),
		"filter":       "fsr",
	})
	if err == nil {
		t.Fatalf("fullscreen is not a recognized option, got flags %v", flags)
	}

	flags, err = gamescopeFlags(map[string]any{
		"grab":         true,
		"output_width": int64(2560),
		"filter":       "fsr",
	})
	if err != nil {
		t.Fatalf("gamescopeFlags: %v", err)
	}
	want := []string{"--filter=fsr", "--grab", "--output-width=2560"}
	if len(flags) != len(want) {
		t.Fatalf("flags = %v, want %v", flags, want)
	}
	for i := range want {
		if flags[i] != want[i] {
			t.Fatalf("flags = %v, want %v", flags, want)
		}
	}
}

func TestGamescopeFlagsRejectsWrongType(t *testing.T) {
	if _, err := gamescopeFlags(map[string]any{"grab": "yes"}); err == nil {
		t.Fatal("string value for a boolean option should be rejected")
	}
	if _, err := gamescopeFlags(map[string]any{"output_width": true}); err == nil {
		t.Fatal("boolean value for a numeric option should be rejected")
	}
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	proton := filepath.Join(dir, "proton-tool")
	if err := os.Mkdir(proton, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(proton, "proton"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	launch := &config.Launch{
		GameID:     "ward-77",
		Prefix:     dir,
		Proton:     proton,
		Exe:        "/tmp/game/game.exe",
		LaunchArgs: []string{"-opengl"},
		Verb:       config.DefaultVerb,
		UseReaper:  true,
		Grace:      10 * time.Second,
	}
	env := Environ(launch, "/tmp/runtime")

	command, err := Build(launch, env, "/usr/bin/ward", zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{
		"/usr/bin/ward", "reap", "--id", "ward-77", "--grace", "10s", "--",
		filepath.Join(proton, "proton"), config.DefaultVerb, "/tmp/game/game.exe", "-opengl",
	}
	if len(command) != len(want) {
		t.Fatalf("command = %v, want %v", command, want)
	}
	for i := range want {
		if command[i] != want[i] {
			t.Fatalf("command[%d] = %q, want %q", i, command[i], want[i])
		}
	}
}

func TestBuildRequiresProtonFile(t *testing.T) {
	launch := &config.Launch{
		GameID:    "ward-77",
		Prefix:    t.TempDir(),
		Proton:    t.TempDir(),
		Exe:       "/tmp/game/game.exe",
		Verb:      config.DefaultVerb,
		UseReaper: true,
	}
	env := Environ(launch, "/tmp/runtime")

	if _, err := Build(launch, env, "/usr/bin/ward", zap.NewNop()); err == nil {
		t.Fatal("expected error for a proton directory without the proton script")
	}
}
