package command

import (
	"os/exec"
)

// Process is a spawned child whose exit is collected by a background
// goroutine so that Exited never blocks.
type Process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func newProcess(c *exec.Cmd) *Process {
	p := &Process{cmd: c, done: make(chan struct{})}
	go func() {
		p.err = c.Wait()
		close(p.done)
	}()
	return p
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Exited reports whether the child has finished.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the child has finished and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}
