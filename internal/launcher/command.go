package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ward-launcher/ward/internal/config"
)

// Build assembles the full command line for a launch: an optional gamescope
// wrapper, the subtree supervisor, then the compatibility tool itself.
// selfExe is the ward binary, re-executed as `ward reap` to supervise the
// launched tree.
func Build(launch *config.Launch, env map[string]string, selfExe string, log *zap.Logger) ([]string, error) {
	protonBin := filepath.Join(env["PROTONPATH"], "proton")
	if info, err := os.Stat(protonBin); err != nil || info.IsDir() {
		return nil, fmt.Errorf("the following file was not found in PROTONPATH: proton")
	}

	var command []string
	if len(launch.Gamescope) > 0 {
		wrapper, err := gamescopeWrapper(launch.Gamescope)
		if err != nil {
			return nil, err
		}
		command = append(command, wrapper...)
	}

	command = append(command, supervisorWrapper(launch, selfExe, log)...)
	command = append(command, protonBin, env["PROTON_VERB"], env["EXE"])
	command = append(command, launch.LaunchArgs...)
	return command, nil
}

// supervisorWrapper picks the subtree reaper for the launch. The default is
// the built-in supervisor; a transient systemd scope can take its place, with
// a unique unit name so repeated launches of the same title never collide.
// The unit's description carries the launch id for later cleanup.
func supervisorWrapper(launch *config.Launch, selfExe string, log *zap.Logger) []string {
	if !launch.UseReaper {
		if bin, err := exec.LookPath("systemd-run"); err == nil {
			log.Debug("using a transient systemd scope as subreaper")
			unit := fmt.Sprintf("%s-%s.scope", launch.ID(), uuid.NewString()[:8])
			return []string{bin, "--user", "--scope", "--send-sighup",
				"--unit=" + unit, "--description=" + launch.ID()}
		}
		log.Debug("systemd-run is not found in system, using the built-in supervisor")
	}

	args := []string{selfExe, "reap", "--id", launch.ID()}
	if launch.Grace > 0 {
		args = append(args, "--grace", launch.Grace.String())
	}
	return append(args, "--")
}
