package reaper

// procInfo is the lightweight metadata kept per tracked process.
type procInfo struct {
	ppid   int
	status Status
	exited bool
}

// trackedSet records every process the supervisor is responsible for
// observing until it terminates. It is owned exclusively by the reaping
// loop goroutine; no locking is required.
type trackedSet struct {
	procs map[int]*procInfo
}

func newTrackedSet() *trackedSet {
	return &trackedSet{procs: make(map[int]*procInfo)}
}

// Add starts tracking a process. Re-adding a known pid is a no-op so that
// /proc refreshes never clobber recorded state.
func (s *trackedSet) Add(pid, ppid int) {
	if _, ok := s.procs[pid]; ok {
		return
	}
	s.procs[pid] = &procInfo{ppid: ppid}
}

// Contains reports whether pid is currently tracked.
func (s *trackedSet) Contains(pid int) bool {
	_, ok := s.procs[pid]
	return ok
}

// Reap records a termination for pid and removes it from the set. It reports
// whether the pid was tracked; an unknown pid is the benign race between a
// reparent notification and the exit notification.
func (s *trackedSet) Reap(pid int, status Status) bool {
	info, ok := s.procs[pid]
	if !ok {
		return false
	}
	info.status = status
	info.exited = true
	delete(s.procs, pid)
	return true
}

// Live returns the pids still being tracked.
func (s *trackedSet) Live() []int {
	pids := make([]int, 0, len(s.procs))
	for pid := range s.procs {
		pids = append(pids, pid)
	}
	return pids
}

// Len returns the number of tracked processes.
func (s *trackedSet) Len() int {
	return len(s.procs)
}

// Empty reports whether the set has drained.
func (s *trackedSet) Empty() bool {
	return len(s.procs) == 0
}
