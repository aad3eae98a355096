package launcher

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ward-launcher/ward/internal/config"
)

// EnvID labels the launch for the supervisor and any transient systemd unit.
const EnvID = "WARD_ID"

var appIDPattern = regexp.MustCompile(`^ward-[\d\w]+$`)

// Environ assembles the compatibility-tool environment for a launch.
// runtimeDir is the launcher's data directory, added to the tool paths so
// Steam runtime components placed there are mounted alongside proton.
func Environ(launch *config.Launch, runtimeDir string) map[string]string {
	env := map[string]string{
		"PROTON_CRASH_REPORT_DIR": "/tmp/ward_crashreports",
	}

	env["PROTON_VERB"] = launch.Verb

	// An empty executable is the convention for "just create the prefix".
	if launch.Exe == "" {
		env["EXE"] = ""
		env["STEAM_COMPAT_INSTALL_PATH"] = ""
		env["PROTON_VERB"] = config.DefaultVerb
	} else {
		exe := absPath(launch.Exe)
		env["EXE"] = exe
		env["STEAM_COMPAT_INSTALL_PATH"] = filepath.Dir(exe)
	}

	if launch.Store != "" {
		env["STORE"] = launch.Store
	}

	env[EnvID] = launch.GameID
	env["STEAM_COMPAT_APP_ID"] = "0"
	if appIDPattern.MatchString(launch.GameID) {
		env["STEAM_COMPAT_APP_ID"] = launch.GameID[strings.Index(launch.GameID, "-")+1:]
	}
	env["SteamAppId"] = env["STEAM_COMPAT_APP_ID"]
	env["SteamGameId"] = env["SteamAppId"]

	prefix := absPath(launch.Prefix)
	proton := absPath(launch.Proton)
	env["WINEPREFIX"] = prefix
	env["PROTONPATH"] = proton
	env["STEAM_COMPAT_DATA_PATH"] = prefix
	env["STEAM_COMPAT_SHADER_PATH"] = filepath.Join(prefix, "shadercache")
	env["STEAM_COMPAT_TOOL_PATHS"] = proton + ":" + runtimeDir
	env["STEAM_COMPAT_MOUNTS"] = env["STEAM_COMPAT_TOOL_PATHS"]

	env[config.EnvGameID] = launch.GameID

	return env
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
