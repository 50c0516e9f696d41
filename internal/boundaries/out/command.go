package out

import (
	"context"

	"github.com/2cd/getctr/internal/domain"
)

// Process is a spawned child process.
type Process interface {
	Pid() int
	// Exited reports whether the process has already finished. It never blocks.
	Exited() bool
	// Wait blocks until the process exits.
	Wait() error
}

// CommandRunner executes external programs.
type CommandRunner interface {
	// Run executes cmd synchronously with retries.
	Run(ctx context.Context, cmd domain.Command) error

	// Output executes cmd once and returns its stdout.
	Output(ctx context.Context, cmd domain.Command) ([]byte, error)

	// Start spawns cmd without waiting for it.
	Start(ctx context.Context, cmd domain.Command) (Process, error)
}

// SystemTools are privileged filesystem and archive helpers built on
// CommandRunner.
type SystemTools interface {
	Curl(ctx context.Context, url, file string) error
	PackTar(ctx context.Context, dir, archive string, excludeDev bool) error
	ExtractTar(ctx context.Context, archive, dir string) error
	Nspawn(ctx context.Context, rootfs, script string, xterm bool, env ...string) error
	RemoveAll(ctx context.Context, path string) error
	Move(ctx context.Context, src, dst string) error
	MkdirAll(ctx context.Context, path string) error
}
