// Package supervisor optionally launches and supervises a single agent
// process, per SPEC_FULL.md §C.1: off by default, enabled only when
// AGENT_BINARY_PATH is set. It is deliberately minimal — one child
// process, no restart policy — since simulated agents are expected to
// run out-of-process already in the common case and this only covers
// the convenience of a single co-located instance for local testing.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	logging "github.com/sirupsen/logrus"
)

// killGrace is how long Stop waits after SIGTERM before escalating to
// SIGKILL.
const killGrace = 2 * time.Second

// Supervisor manages a single child process's lifecycle.
type Supervisor struct {
	binaryPath string
	args       []string
	log        *logging.Entry

	cmd *exec.Cmd
}

// New returns a Supervisor for binaryPath. A zero-value binaryPath means
// supervision is disabled; Start becomes a no-op.
func New(binaryPath string, args []string, log *logging.Entry) *Supervisor {
	return &Supervisor{binaryPath: binaryPath, args: args, log: log}
}

// Enabled reports whether a binary path was configured.
func (s *Supervisor) Enabled() bool {
	return s.binaryPath != ""
}

// Start launches the agent binary, if enabled, and returns immediately;
// Wait (in a separate goroutine) or Stop manage its lifetime.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	cmd := exec.CommandContext(ctx, s.binaryPath, s.args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("supervisor: start %s: %w", s.binaryPath, err)
	}
	s.cmd = cmd
	s.log.WithField("pid", cmd.Process.Pid).Info("agent process started")
	return nil
}

// Wait blocks until the supervised process exits. It is a no-op if
// supervision is disabled or Start was never called.
func (s *Supervisor) Wait() error {
	if s.cmd == nil {
		return nil
	}
	return s.cmd.Wait()
}

// Stop sends SIGTERM and escalates to SIGKILL after killGrace if the
// process has not exited.
func (s *Supervisor) Stop() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		s.cmd.Wait()
		close(done)
	}()

	s.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
		return
	case <-time.After(killGrace):
		s.log.WithField("pid", s.cmd.Process.Pid).Warn("agent process did not exit after SIGTERM, sending SIGKILL")
		s.cmd.Process.Kill()
		<-done
	}
}
