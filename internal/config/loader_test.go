package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "ward.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func launchFixture(t *testing.T) (dir, exe, proton, prefix string) {
	t.Helper()
	dir = t.TempDir()
	exe = filepath.Join(dir, "game.exe")
	if err := os.WriteFile(exe, []byte("MZ"), 0o755); err != nil {
		t.Fatalf("write exe: %v", err)
	}
	proton = filepath.Join(dir, "proton-tool")
	prefix = filepath.Join(dir, "prefix")
	for _, d := range []string{proton, prefix} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return dir, exe, proton, prefix
}

func TestFromFile(t *testing.T) {
	dir, exe, proton, prefix := launchFixture(t)
	path := writeConfig(t, dir, `
[ward]
game_id = "ward-1234"
proton = "`+proton+`"
prefix = "`+prefix+`"
exe = "`+exe+`"
launch_args = ["-opengl", "-windowed"]
store = "gog"
grace = "10s"

[plugins.gamescope]
fullscreen = true
output_width = 2560
`)

	launch, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}

	if launch.GameID != "ward-1234" {
		t.Errorf("GameID = %q", launch.GameID)
	}
	if launch.Exe != exe || launch.Proton != proton || launch.Prefix != prefix {
		t.Errorf("paths not preserved: %+v", launch)
	}
	if len(launch.LaunchArgs) != 2 || launch.LaunchArgs[0] != "-opengl" {
		t.Errorf("LaunchArgs = %v", launch.LaunchArgs)
	}
	if launch.Store != "gog" {
		t.Errorf("Store = %q", launch.Store)
	}
	if !launch.UseReaper {
		t.Error("UseReaper should default to true")
	}
	if launch.Grace != 10*time.Second {
		t.Errorf("Grace = %v", launch.Grace)
	}
	if len(launch.Gamescope) != 2 {
		t.Errorf("Gamescope = %v", launch.Gamescope)
	}
}

func TestFromFileErrors(t *testing.T) {
	dir, exe, proton, prefix := launchFixture(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing table",
			body: "[other]\nx = 1\n",
			want: `table "ward" is not defined`,
		},
		{
			name: "missing required key",
			body: "[ward]\nproton = \"" + proton + "\"\nprefix = \"" + prefix + "\"\n",
			want: `key "exe" in table "ward" is required`,
		},
		{
			name: "exe not a file",
			body: "[ward]\nproton = \"" + proton + "\"\nprefix = \"" + prefix + "\"\nexe = \"" + filepath.Join(dir, "missing.exe") + "\"\n",
			want: "is not a file",
		},
		{
			name: "proton not a directory",
			body: "[ward]\nproton = \"" + exe + "\"\nprefix = \"" + prefix + "\"\nexe = \"" + exe + "\"\n",
			want: "is not a directory",
		},
		{
			name: "empty value",
			body: "[ward]\nproton = \"" + proton + "\"\nprefix = \"" + prefix + "\"\nexe = \"" + exe + "\"\nstore = \"\"\n",
			want: "value is empty",
		},
		{
			name: "reaper not boolean",
			body: "[ward]\nproton = \"" + proton + "\"\nprefix = \"" + prefix + "\"\nexe = \"" + exe + "\"\nreaper = \"yes\"\n",
			want: "not a boolean",
		},
		{
			name: "bad grace",
			body: "[ward]\nproton = \"" + proton + "\"\nprefix = \"" + prefix + "\"\nexe = \"" + exe + "\"\ngrace = \"fast\"\n",
			want: "not a positive duration",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tc.body)
			_, err := FromFile(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestFromFileMissingPath(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestFromEnvRequiresGameID(t *testing.T) {
	t.Setenv(EnvGameID, "")
	if _, err := FromEnv("game.exe", nil); err == nil {
		t.Fatal("expected error when GAMEID is unset")
	}
}

func TestFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvGameID, "ward-42")
	t.Setenv(EnvPrefix, dir)
	t.Setenv(EnvProton, filepath.Join(dir, "proton"))
	t.Setenv(EnvVerb, "runinprefix")
	t.Setenv(EnvStore, "egs")
	t.Setenv(EnvSystemd, "")
	t.Setenv(EnvGrace, "3s")

	launch, err := FromEnv("game.exe", []string{"-skipintro"})
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if launch.GameID != "ward-42" || launch.Prefix != dir {
		t.Errorf("unexpected launch: %+v", launch)
	}
	if launch.Verb != "runinprefix" {
		t.Errorf("Verb = %q", launch.Verb)
	}
	if launch.Store != "egs" {
		t.Errorf("Store = %q", launch.Store)
	}
	if !launch.UseReaper {
		t.Error("UseReaper should be true without WARD_SYSTEMD")
	}
	if launch.Grace != 3*time.Second {
		t.Errorf("Grace = %v", launch.Grace)
	}
	if len(launch.LaunchArgs) != 1 || launch.LaunchArgs[0] != "-skipintro" {
		t.Errorf("LaunchArgs = %v", launch.LaunchArgs)
	}
}

func TestFromEnvInvalidVerbFallsBack(t *testing.T) {
	t.Setenv(EnvGameID, "ward-42")
	t.Setenv(EnvPrefix, t.TempDir())
	t.Setenv(EnvVerb, "explode")

	launch, err := FromEnv("game.exe", nil)
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if launch.Verb != DefaultVerb {
		t.Errorf("Verb = %q, want %q", launch.Verb, DefaultVerb)
	}
}

func TestFromEnvSystemdDisablesReaper(t *testing.T) {
	t.Setenv(EnvGameID, "ward-42")
	t.Setenv(EnvPrefix, t.TempDir())
	t.Setenv(EnvSystemd, "1")

	launch, err := FromEnv("game.exe", nil)
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if launch.UseReaper {
		t.Error("UseReaper should be false with WARD_SYSTEMD=1")
	}
}
