package reaper

import (
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ward-launcher/ward/internal/metrics"
)

// DefaultGracePeriod bounds how long the tracked subtree may take to exit
// voluntarily after a termination request before it is force-killed.
const DefaultGracePeriod = 5 * time.Second

// State describes the supervisor's lifecycle. Transitions are monotonic:
// Starting -> Running -> Draining -> Reported.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateReported
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateReported:
		return "reported"
	default:
		return "unknown"
	}
}

// Config carries the supervisor's tunables.
type Config struct {
	// ID labels log lines so concurrent launches can be told apart.
	ID string

	// GracePeriod overrides DefaultGracePeriod when positive.
	GracePeriod time.Duration

	// Logger defaults to zap.NewNop when nil.
	Logger *zap.Logger
}

// Reaper supervises the process tree rooted at a single launched command.
type Reaper struct {
	command []string
	grace   time.Duration
	log     *zap.Logger

	tracked *trackedSet

	root       int
	rootStatus Status
	rootSeen   bool

	state         atomic.Int32
	termRequested atomic.Bool

	// forced is set once the grace period has elapsed. Owned by the reaping
	// loop goroutine.
	forced bool
}

// New validates the command line and prepares a supervisor for it.
func New(command []string, cfg Config) (*Reaper, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, &LaunchError{Command: "", Err: errors.New("no command given")}
	}

	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ID != "" {
		log = log.With(zap.String("id", cfg.ID))
	}

	return &Reaper{
		command: command,
		grace:   grace,
		log:     log,
		tracked: newTrackedSet(),
	}, nil
}

// State returns the supervisor's current lifecycle state.
func (r *Reaper) State() State {
	return State(r.state.Load())
}

// advance moves the state machine forward. Backward transitions are dropped.
func (r *Reaper) advance(next State) {
	for {
		current := r.state.Load()
		if current >= int32(next) {
			return
		}
		if r.state.CompareAndSwap(current, int32(next)) {
			r.log.Debug("state transition",
				zap.Stringer("from", State(current)),
				zap.Stringer("to", next))
			return
		}
	}
}

// Run launches the root command and reaps its process tree until no tracked
// descendant remains, then returns the exit code owed to the caller per the
// supervisor's exit code contract. The returned error is non-nil only for
// launch failures and the never-observed-root internal error.
func (r *Reaper) Run() (int, error) {
	if err := becomeSubreaper(); err != nil {
		// Orphaned grandchildren may escape observation, but the direct
		// child can still be supervised.
		r.log.Warn("could not become child subreaper", zap.Error(err))
	}

	// Registered before launch so no state change can be missed. SIGCHLD
	// wakes the loop on any descendant transition; the termination set is
	// relayed to the tracked tree.
	sigchld := make(chan os.Signal, 1)
	signal.Notify(sigchld, unix.SIGCHLD)
	defer signal.Stop(sigchld)

	term := make(chan os.Signal, 1)
	signal.Notify(term, unix.SIGINT, unix.SIGTERM, unix.SIGHUP, unix.SIGQUIT)
	defer signal.Stop(term)

	if err := r.launch(); err != nil {
		r.advance(StateReported)
		return ExitCodeLaunchFailure, err
	}
	r.advance(StateRunning)

	var grace <-chan time.Time
	for {
		r.refreshTracked()
		if r.reap() {
			break
		}

		select {
		case <-sigchld:
		case sig := <-term:
			signum, ok := sig.(syscall.Signal)
			if !ok {
				signum = unix.SIGTERM
			}
			r.requestTermination(signum)
			if grace == nil {
				grace = time.After(r.grace)
			}
		case <-grace:
			r.forceKill()
			grace = nil
		}
	}

	r.advance(StateReported)
	if !r.rootSeen {
		return ExitCodeInternalError, ErrRootStatusUnknown
	}
	r.log.Info("tracked set drained", zap.Stringer("root", r.rootStatus))
	return r.rootStatus.ExitCode(), nil
}

// launch starts the root command with inherited stdio and environment in its
// own process group, so relayed signals reach the whole group.
func (r *Reaper) launch() error {
	path, err := exec.LookPath(r.command[0])
	if err != nil {
		return &LaunchError{Command: r.command[0], Err: err}
	}

	cmd := exec.Command(path, r.command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return &LaunchError{Command: r.command[0], Err: err}
	}

	r.root = cmd.Process.Pid
	r.tracked.Add(r.root, os.Getpid())
	r.log.Info("launched", zap.Int("pid", r.root), zap.Strings("command", r.command))

	// The pid is all that is needed from here on; the reaping loop collects
	// the exit status itself instead of cmd.Wait.
	_ = cmd.Process.Release()
	return nil
}

// refreshTracked folds newly reparented descendants into the tracked set.
func (r *Reaper) refreshTracked() {
	pids, err := childPIDs()
	if err != nil {
		r.log.Debug("list children", zap.Error(err))
		return
	}
	self := os.Getpid()
	for _, pid := range pids {
		if !r.tracked.Contains(pid) {
			r.tracked.Add(pid, self)
			r.log.Debug("tracking reparented descendant", zap.Int("pid", pid))
			if r.forced {
				// The grace period already elapsed; a descendant surfacing
				// only now must not outlive the one-shot force kill.
				_ = unix.Kill(pid, unix.SIGKILL)
			}
		}
	}
}

// reap collects every available child state change without blocking. It
// reports true once the kernel has no children left to wait for, which is the
// drained condition: the subreaper mark guarantees every living descendant
// eventually becomes a direct child.
func (r *Reaper) reap() bool {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			return true
		case err != nil:
			r.log.Warn("wait4", zap.Error(err))
			return false
		case pid == 0:
			return false
		}

		if ws.Stopped() || ws.Continued() {
			// Informational only; stop/continue never changes the tracked set.
			r.log.Debug("descendant stop/continue", zap.Int("pid", pid))
			continue
		}

		r.observeExit(pid, statusFromWait(ws))
	}
}

// observeExit records a termination notification. Unknown pids are the benign
// reparent/exit race and are ignored.
func (r *Reaper) observeExit(pid int, status Status) {
	r.advance(StateDraining)
	metrics.IncChildrenReaped()

	if pid == r.root {
		r.rootStatus = status
		r.rootSeen = true
	}

	if !r.tracked.Reap(pid, status) {
		metrics.IncReapRaces()
		r.log.Debug("reaped untracked process", zap.Int("pid", pid), zap.Stringer("status", status))
		return
	}
	r.log.Debug("reaped", zap.Int("pid", pid), zap.Stringer("status", status),
		zap.Int("remaining", r.tracked.Len()))
}

// requestTermination raises the termination flag and relays the received
// signal to the whole tracked tree. Repeated signals relay again; the flag
// and grace timer are armed only once.
func (r *Reaper) requestTermination(sig syscall.Signal) {
	if r.termRequested.CompareAndSwap(false, true) {
		r.log.Warn("termination requested",
			zap.String("signal", unix.SignalName(sig)),
			zap.Duration("grace", r.grace))
	}
	r.advance(StateDraining)
	r.relay(sig)
}

// relay delivers sig to every currently tracked process. Members of the
// root's process group are covered by a single group delivery; descendants
// that moved themselves to another group are signaled directly.
func (r *Reaper) relay(sig syscall.Signal) {
	r.refreshTracked()

	relayed := 0
	if err := unix.Kill(-r.root, sig); err == nil {
		relayed++
	} else if !errors.Is(err, unix.ESRCH) {
		r.log.Warn("signal process group", zap.Error(err))
	}

	for _, pid := range r.tracked.Live() {
		if pid == r.root {
			continue
		}
		if pgid, err := unix.Getpgid(pid); err == nil && pgid == r.root {
			continue
		}
		if err := unix.Kill(pid, sig); err == nil {
			relayed++
		} else if !errors.Is(err, unix.ESRCH) {
			r.log.Warn("signal descendant", zap.Int("pid", pid), zap.Error(err))
		}
	}

	metrics.AddSignalsRelayed(unix.SignalName(sig), relayed)
	r.log.Debug("relayed signal",
		zap.String("signal", unix.SignalName(sig)), zap.Int("deliveries", relayed))
}

// forceKill ends the grace period: everything still tracked gets SIGKILL and
// the loop drains unconditionally, bounding shutdown latency for the caller.
// The forced state is sticky, so descendants that reparent to the supervisor
// afterwards are killed as soon as they are discovered.
func (r *Reaper) forceKill() {
	r.forced = true
	r.refreshTracked()
	if r.tracked.Empty() {
		return
	}

	r.log.Warn("grace period elapsed, force-killing tracked processes",
		zap.Int("remaining", r.tracked.Len()))

	_ = unix.Kill(-r.root, unix.SIGKILL)
	for _, pid := range r.tracked.Live() {
		if pid == r.root {
			continue
		}
		_ = unix.Kill(pid, unix.SIGKILL)
	}
	metrics.IncForcedKills()
}
