//go:build linux

package reaper

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// becomeSubreaper marks the calling process as the designated reaper for its
// descendant tree. The mark is process-wide and released automatically at
// exit; there is no teardown.
func becomeSubreaper() error {
	return unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)
}

// childPIDs lists the current direct children of this process across all of
// its threads. Orphaned descendants appear here once the kernel reparents
// them to the subreaper, which is the only reparenting notification Linux
// offers.
func childPIDs() ([]int, error) {
	tasks, err := os.ReadDir("/proc/self/task")
	if err != nil {
		return nil, err
	}

	var pids []int
	for _, task := range tasks {
		data, err := os.ReadFile(filepath.Join("/proc/self/task", task.Name(), "children"))
		if err != nil {
			// The thread may have exited between the listing and the read.
			continue
		}
		for _, field := range strings.Fields(string(data)) {
			pid, err := strconv.Atoi(field)
			if err != nil {
				continue
			}
			pids = append(pids, pid)
		}
	}
	return pids, nil
}
