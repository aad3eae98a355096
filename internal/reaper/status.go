package reaper

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Exit codes reserved by the supervisor. The 0-127 range mirrors the root
// process's own exit code and 128+N reports death by signal N, so the
// reserved values sit above both ranges for any signal Linux delivers.
const (
	// ExitCodeLaunchFailure is returned when the root process could not be
	// created at all.
	ExitCodeLaunchFailure = 255

	// ExitCodeInternalError is returned when the tracked set drained without
	// the root's exit status ever being observed.
	ExitCodeInternalError = 254

	exitSignalBase = 128
)

// ErrRootStatusUnknown reports that every tracked process terminated but the
// root's status was never collected. Callers see ExitCodeInternalError.
var ErrRootStatusUnknown = errors.New("root exit status never observed")

// LaunchError reports that the root process could not be resolved or created.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Status is the collected exit status of a reaped process. A clean exit
// carries a numeric code; abnormal termination carries the fatal signal.
type Status struct {
	Code     int
	Signal   unix.Signal
	Signaled bool
}

func statusFromWait(ws unix.WaitStatus) Status {
	if ws.Signaled() {
		return Status{Signal: ws.Signal(), Signaled: true}
	}
	return Status{Code: ws.ExitStatus()}
}

// ExitCode maps the status onto the supervisor's exit code contract:
// the numeric code as-is for clean exits, 128+N for death by signal N.
func (s Status) ExitCode() int {
	if s.Signaled {
		return exitSignalBase + int(s.Signal)
	}
	return s.Code
}

func (s Status) String() string {
	if s.Signaled {
		return fmt.Sprintf("signal %s", unix.SignalName(s.Signal))
	}
	return fmt.Sprintf("exit %d", s.Code)
}
