package command

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
)

// tarExcludes are never packed into a release archive.
var tarExcludes = []string{
	"proc/*",
	"sys/*",
	"tmp/*",
	"run/*",
	"var/cache/apt/archives/*.deb",
	"var/lib/apt/lists/*",
}

// Tools implements out.SystemTools with privileged commands.
type Tools struct {
	run           out.CommandRunner
	exitOnFailure bool
}

var _ out.SystemTools = (*Tools)(nil)

// NewTools wraps run. With exitOnFailure set every helper terminates the
// process once its command has failed all attempts.
func NewTools(run out.CommandRunner, exitOnFailure bool) *Tools {
	return &Tools{run: run, exitOnFailure: exitOnFailure}
}

func (t *Tools) root(program string, args ...string) domain.Command {
	return domain.Command{
		Program:       program,
		Args:          args,
		Privileged:    true,
		ExitOnFailure: t.exitOnFailure,
	}
}

// Curl downloads url into file, following redirects.
func (t *Tools) Curl(ctx context.Context, url, file string) error {
	return t.run.Run(ctx, domain.Command{
		Program:       "curl",
		Args:          []string{"-L", "-o", file, url},
		ExitOnFailure: t.exitOnFailure,
	})
}

// PackTar archives the contents of dir into a POSIX tar archive.
// excludeDev also drops device nodes under dev/.
func (t *Tools) PackTar(ctx context.Context, dir, archive string, excludeDev bool) error {
	args := []string{"--posix", "--directory", dir}
	for _, ex := range tarExcludes {
		args = append(args, "--exclude="+ex)
	}
	if excludeDev {
		args = append(args, "--exclude=dev/*")
	}
	args = append(args, "-cf", archive, ".")
	return t.run.Run(ctx, t.root("tar", args...))
}

// ExtractTar unpacks archive into dir, creating dir first.
func (t *Tools) ExtractTar(ctx context.Context, archive, dir string) error {
	if err := t.MkdirAll(ctx, dir); err != nil {
		return err
	}
	return t.run.Run(ctx, t.root("tar", "--directory", dir, "-xf", archive))
}

// Nspawn runs script with sh inside rootfs. Empty env entries are skipped.
func (t *Tools) Nspawn(ctx context.Context, rootfs, script string, xterm bool, env ...string) error {
	args := []string{"-D", rootfs}
	if xterm {
		args = append(args, "-E", "TERM=xterm")
	}
	args = append(args, "-E", "DEBIAN_FRONTEND=noninteractive")
	for _, kv := range env {
		if strings.TrimSpace(kv) == "" {
			continue
		}
		args = append(args, "-E", kv)
	}
	args = append(args, "sh", "-c", script)
	return t.run.Run(ctx, t.root("systemd-nspawn", args...))
}

// RemoveAll deletes path recursively. Paths with fewer than two components,
// such as "/" or "/home", are refused.
func (t *Tools) RemoveAll(ctx context.Context, path string) error {
	if err := checkRemovable(path); err != nil {
		return err
	}
	return t.run.Run(ctx, t.root("rm", "-rf", path))
}

func checkRemovable(path string) error {
	clean := strings.Trim(filepath.Clean(path), "/")
	if clean == "" || clean == "." || clean == ".." {
		return fmt.Errorf("%w: %q", domain.ErrUnsafePath, path)
	}
	parts := 0
	for _, p := range strings.Split(clean, "/") {
		if p != "" && p != "." {
			parts++
		}
	}
	if parts <= 1 {
		return fmt.Errorf("%w: %q", domain.ErrUnsafePath, path)
	}
	return nil
}

// Move renames src to dst, overwriting dst.
func (t *Tools) Move(ctx context.Context, src, dst string) error {
	return t.run.Run(ctx, t.root("mv", "-f", src, dst))
}

// MkdirAll creates path and its parents.
func (t *Tools) MkdirAll(ctx context.Context, path string) error {
	return t.run.Run(ctx, t.root("mkdir", "-p", path))
}
