//go:build !unix

package invoker

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// terminate has no graceful equivalent off Unix; the process is killed.
func terminate(cmd *exec.Cmd) error {
	return kill(cmd)
}

func kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// killGroup is a no-op: without process groups only the leader is
// tracked, and it has already exited.
func killGroup(*exec.Cmd) error { return nil }
