//go:build !linux && !windows

package reaper

import "errors"

var errNoSubreaper = errors.New("child subreaper designation is not supported on this platform")

func becomeSubreaper() error {
	return errNoSubreaper
}

func childPIDs() ([]int, error) {
	return nil, nil
}
