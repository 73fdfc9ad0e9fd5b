package backend

import (
	"context"
	"os/exec"
	"time"
)

// checkTimeout bounds a plugin's detection command.
const checkTimeout = 5 * time.Second

// Available reports whether the backend can be started on this machine.
// Plugins with a check command run it; everything else is a PATH lookup.
func (s Spec) Available(ctx context.Context) bool {
	if s.CheckCommand == "" {
		_, err := exec.LookPath(s.Command)
		return err == nil
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return exec.CommandContext(ctx, s.CheckCommand, s.CheckArgs...).Run() == nil
}
