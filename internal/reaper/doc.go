// Package reaper implements the process-tree supervisor behind "ward reap".
//
// The supervisor marks itself as a child subreaper before starting the wrapped
// command, so any descendant that outlives its parent is reparented to the
// supervisor instead of escaping to an ancestor shell. A single goroutine owns
// the tracked process set and performs all reaping; termination signals are
// observed on a channel and relayed to every tracked process, with a bounded
// grace period before the remaining tree is force-killed.
//
// Subtree-wide guarantees rely on PR_SET_CHILD_SUBREAPER and /proc, so the
// package is only fully functional on Linux. Elsewhere the supervisor still
// reaps its direct children but orphaned grandchildren may escape observation.
package reaper
