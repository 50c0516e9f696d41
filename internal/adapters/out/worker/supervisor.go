package worker

import (
	"sync"

	"github.com/bnema/zerowrap"

	"github.com/2cd/getctr/internal/boundaries/out"
)

type tracked struct {
	label string
	proc  out.Process
}

// Supervisor keeps spawned processes in submission order until WaitAll.
type Supervisor struct {
	log zerowrap.Logger

	mu    sync.Mutex
	procs []tracked
}

var _ out.ProcessSupervisor = (*Supervisor)(nil)

func NewSupervisor(log zerowrap.Logger) *Supervisor {
	return &Supervisor{log: log}
}

// Track adds p under label.
func (s *Supervisor) Track(label string, p out.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs = append(s.procs, tracked{label: label, proc: p})
}

// Len returns the number of processes not yet joined.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// WaitAll waits for the tracked processes in order. Processes that have
// already exited are skipped and wait errors are only logged.
func (s *Supervisor) WaitAll() {
	s.mu.Lock()
	procs := s.procs
	s.procs = nil
	s.mu.Unlock()

	for _, t := range procs {
		if t.proc.Exited() {
			continue
		}
		s.log.Info().Str(zerowrap.FieldAdapter, "supervisor").Str("task", t.label).Int("pid", t.proc.Pid()).Msg("waiting for process")
		if err := t.proc.Wait(); err != nil {
			s.log.Error().Err(err).Str(zerowrap.FieldAdapter, "supervisor").Str("task", t.label).Msg("process failed")
		}
	}
}
