package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent release-level failures shared across layers.
var (
	// Descriptor errors
	ErrInvalidDescriptor     = errors.New("invalid repository descriptor")
	ErrEmptyRepositories     = errors.New("empty repository list")
	ErrMissingURL            = errors.New("repository has no source URL")
	ErrMissingDebootstrapSrc = errors.New("repository has no debootstrap source")
	ErrUnknownArch           = errors.New("unknown architecture")

	// Command errors
	ErrCommandFailed        = errors.New("command failed")
	ErrNoEscalationHelper   = errors.New("no privilege escalation helper found")
	ErrUnsafePath           = errors.New("refusing to operate on a top-level path")
	ErrDebootstrapFailed    = errors.New("debootstrap failed")
	ErrEngineUnavailable    = errors.New("container engine unavailable")
	ErrInvalidRepoReference = errors.New("invalid repository reference")

	// Side-car errors
	ErrSidecarNotFound = errors.New("side-car file not found")

	// Catalog errors
	ErrReleaseNotFound = errors.New("release not found in catalog")
)

// DescriptorError reports which field of a repository descriptor is invalid.
type DescriptorError struct {
	Field  string
	Reason string
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidDescriptor, e.Field, e.Reason)
}

func (e *DescriptorError) Unwrap() error { return ErrInvalidDescriptor }

// CommandError carries the exit status of a command that failed every attempt.
type CommandError struct {
	Program  string
	Args     []string
	Code     int
	Attempts int
	Err      error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (exit code %d after %d attempts): %v", ErrCommandFailed, e.Program, e.Code, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %s (exit code %d after %d attempts)", ErrCommandFailed, e.Program, e.Code, e.Attempts)
}

func (e *CommandError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCommandFailed, e.Err}
	}
	return []error{ErrCommandFailed}
}

// SidecarError reports a side-car file that a later stage expected to find.
type SidecarError struct {
	Path string
	Err  error
}

func (e *SidecarError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrSidecarNotFound, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrSidecarNotFound, e.Path)
}

func (e *SidecarError) Unwrap() error { return ErrSidecarNotFound }
