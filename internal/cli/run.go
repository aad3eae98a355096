package cli

import (
	stdcontext "context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ward-launcher/ward/internal/config"
	"github.com/ward-launcher/ward/internal/fetch"
	"github.com/ward-launcher/ward/internal/launcher"
	"github.com/ward-launcher/ward/internal/logging"
	"github.com/ward-launcher/ward/internal/systemdunit"
)

func newRunCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "run [--config FILE.toml] [EXE [ARG...]]",
		Short: "Launch a game under the compatibility tool",
		Long: `Run resolves the launch configuration from a TOML file or the environment
(GAMEID is required there), prepares the wine prefix and compatibility tool,
and starts the game under the subtree supervisor. The command's exit code is
the supervisor's verdict on the whole launched tree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			defer log.Sync()
			return runLaunch(cmd.Context(), configFile, args, log)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to a TOML launch definition")

	return cmd
}

func runLaunch(ctx stdcontext.Context, configFile string, args []string, log *zap.Logger) error {
	var (
		launch *config.Launch
		err    error
	)
	if configFile != "" {
		launch, err = config.FromFile(configFile)
	} else {
		exe := ""
		var exeArgs []string
		if len(args) > 0 {
			exe = args[0]
			exeArgs = args[1:]
		}
		launch, err = config.FromEnv(exe, exeArgs)
	}
	if err != nil {
		return err
	}

	if err := launcher.EnsurePrefix(launch.Prefix, log); err != nil {
		return err
	}
	if err := fetch.Resolve(ctx, launch, log); err != nil {
		return err
	}

	runtimeDir, err := config.DataDir()
	if err != nil {
		return err
	}

	env := launcher.Environ(launch, runtimeDir)
	launcher.EnableGameDrive(env)

	// The assembled environment is read-only from here on.
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		log.Info("env", zap.String(key, env[key]))
		os.Setenv(key, env[key])
	}

	selfExe, err := os.Executable()
	if err != nil {
		return err
	}
	command, err := launcher.Build(launch, env, selfExe, log)
	if err != nil {
		return err
	}
	log.Debug("built command", zap.Strings("command", command))

	code, err := runCommand(command)
	if err != nil {
		return err
	}

	// A compositor-driven force exit can strand the transient scope and its
	// zombies, which would block relaunching the title.
	if !launch.UseReaper && len(launch.Gamescope) > 0 && systemdunit.Available() {
		cleanupCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 10*time.Second)
		defer cancel()
		if err := systemdunit.StopByDescription(cleanupCtx, launch.ID(), log); err != nil {
			log.Warn("transient unit cleanup failed", zap.Error(err))
		}
	}

	if code != 0 {
		return exitCodeError(code)
	}
	return nil
}

// runCommand starts the built command with inherited stdio and reports its
// exit code, translating death-by-signal the same way the supervisor does.
func runCommand(command []string) (int, error) {
	child := exec.Command(command[0], command[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return 0, err
	}

	err := child.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, err
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
