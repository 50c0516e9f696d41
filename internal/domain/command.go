package domain

import "strings"

// Command is an external program invocation.
type Command struct {
	Program string
	Args    []string
	// Env entries are appended to the parent environment.
	Env []string
	Dir string
	// ExitOnFailure terminates the process with the child's exit code once
	// every attempt has failed.
	ExitOnFailure bool
	// Privileged prefixes the command with the escalation helper unless the
	// effective uid is already 0.
	Privileged bool
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Args, " ")
}

// EscalationHelper is the tool used to run privileged commands.
type EscalationHelper string

const (
	EscalationDoas EscalationHelper = "doas"
	EscalationSudo EscalationHelper = "sudo"
	// EscalationNone is the placeholder used when neither helper exists.
	EscalationNone EscalationHelper = "please-install-sudo-or-doas-first"
)

// Available reports whether a real helper was found.
func (h EscalationHelper) Available() bool {
	return h == EscalationDoas || h == EscalationSudo
}

// BuildSpec describes one container image build.
type BuildSpec struct {
	Tags       []string
	Platform   string
	ContextDir string
}

// EngineInfo is what the container engine reports during preflight.
type EngineInfo struct {
	Version    string
	APIVersion string
	OS         string
	Arch       string
}
