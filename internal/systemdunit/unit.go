// Package systemdunit cleans up the transient scope a launch may have been
// wrapped in. Compositor-driven shutdowns can leave the scope and its
// processes behind; stopping the unit reaps them so the game can be
// relaunched.
package systemdunit

import (
	"context"
	"fmt"

	systemd "github.com/coreos/go-systemd/v22/dbus"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

// Available reports whether a session bus can be reached at all, so callers
// can skip cleanup quietly on systems without a user bus.
func Available() bool {
	conn, err := dbus.SessionBus()
	if err != nil {
		return false
	}
	return conn.Connected()
}

// StopByDescription stops the transient unit whose Description equals id on
// the user manager. The description is how a launch tags its scope, since
// transient unit names carry a uniquifying suffix.
func StopByDescription(ctx context.Context, id string, log *zap.Logger) error {
	conn, err := systemd.NewUserConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("connect to user manager: %w", err)
	}
	defer conn.Close()

	units, err := conn.ListUnitsContext(ctx)
	if err != nil {
		return fmt.Errorf("list units: %w", err)
	}

	var name string
	for _, unit := range units {
		if unit.Description == id {
			name = unit.Name
			break
		}
	}
	if name == "" {
		log.Debug("no transient unit found for launch", zap.String("id", id))
		return nil
	}

	log.Warn("reaping zombies due to explicit shutdown", zap.String("unit", name))
	done := make(chan string, 1)
	if _, err := conn.StopUnitContext(ctx, name, "replace", done); err != nil {
		return fmt.Errorf("stop %s: %w", name, err)
	}

	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("stop %s: job result %q", name, result)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
