// Package docker implements the container engine adapter. Image builds,
// pushes and manifests go through the engine CLI; the Docker API is used to
// check that the daemon is reachable.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bnema/zerowrap"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
	"github.com/2cd/getctr/pkg/validation"
)

// DefaultBinary is the engine CLI used when none is configured.
const DefaultBinary = "docker"

// rootfsPlatform is the platform of the prebuilt rootfs carrier images.
const rootfsPlatform = "linux/amd64"

// daemonAPI is the subset of the Docker API client used for preflight.
type daemonAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
}

// Engine implements out.ContainerEngine.
type Engine struct {
	binary        string
	buildkit      bool
	exitOnFailure bool
	run           out.CommandRunner
	api           daemonAPI
	log           zerowrap.Logger
}

var _ out.ContainerEngine = (*Engine)(nil)

// Options configures an Engine.
type Options struct {
	// Binary is the engine CLI, "docker" by default.
	Binary string
	// BuildKit sets DOCKER_BUILDKIT=1 for builds.
	BuildKit bool
	// ExitOnFailure terminates the process when push, manifest create or
	// pull still fails after the last attempt.
	ExitOnFailure bool
}

// NewEngine creates an engine that talks to the daemon configured by the
// DOCKER_* environment variables.
func NewEngine(run out.CommandRunner, opts Options, log zerowrap.Logger) (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return newEngine(run, cli, opts, log), nil
}

func newEngine(run out.CommandRunner, api daemonAPI, opts Options, log zerowrap.Logger) *Engine {
	binary := opts.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	return &Engine{
		binary:        binary,
		buildkit:      opts.BuildKit,
		exitOnFailure: opts.ExitOnFailure,
		run:           run,
		api:           api,
		log:           log,
	}
}

func (e *Engine) command(args ...string) domain.Command {
	return domain.Command{Program: e.binary, Args: args}
}

// publish is a registry command that honors ExitOnFailure.
func (e *Engine) publish(args ...string) domain.Command {
	cmd := e.command(args...)
	cmd.ExitOnFailure = e.exitOnFailure
	return cmd
}

// Preflight pings the daemon and reports its version.
func (e *Engine) Preflight(ctx context.Context) (domain.EngineInfo, error) {
	if e.api == nil {
		return domain.EngineInfo{}, domain.ErrEngineUnavailable
	}
	if _, err := e.api.Ping(ctx); err != nil {
		return domain.EngineInfo{}, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	v, err := e.api.ServerVersion(ctx)
	if err != nil {
		return domain.EngineInfo{}, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}

	info := domain.EngineInfo{
		Version:    v.Version,
		APIVersion: v.APIVersion,
		OS:         v.Os,
		Arch:       v.Arch,
	}
	e.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "docker").
		Str("version", info.Version).
		Str("api_version", info.APIVersion).
		Msg("engine reachable")
	return info, nil
}

// Build spawns an image build and returns without waiting for it.
func (e *Engine) Build(ctx context.Context, spec domain.BuildSpec) (out.Process, error) {
	args := []string{"build"}
	for _, tag := range spec.Tags {
		args = append(args, "--tag", tag)
	}
	args = append(args, "--platform", spec.Platform, "--pull", spec.ContextDir)

	cmd := e.command(args...)
	if e.buildkit {
		cmd.Env = []string{"DOCKER_BUILDKIT=1"}
	}
	p, err := e.run.Start(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to start build of %s: %w", spec.ContextDir, err)
	}
	return p, nil
}

// Push uploads every local tag of repo.
func (e *Engine) Push(ctx context.Context, repo string) error {
	return e.run.Run(ctx, e.publish("push", "--all-tags", repo))
}

// CreateManifest creates or amends the manifest list main from tags.
func (e *Engine) CreateManifest(ctx context.Context, main string, tags []string) error {
	args := append([]string{"manifest", "create", "--amend", main}, tags...)
	return e.run.Run(ctx, e.publish(args...))
}

// PushManifest pushes the manifest list main and returns its digest.
func (e *Engine) PushManifest(ctx context.Context, main string) (string, error) {
	stdout, err := e.run.Output(ctx, e.command("manifest", "push", "--purge", main))
	if err != nil {
		return "", fmt.Errorf("failed to push manifest %s: %w", main, err)
	}
	digest, err := validation.LastDigest(string(stdout))
	if err != nil {
		return "", fmt.Errorf("failed to read digest of manifest %s: %w", main, err)
	}
	return digest, nil
}

// Pull fetches ref from its registry.
func (e *Engine) Pull(ctx context.Context, ref string) error {
	return e.run.Run(ctx, e.publish("pull", ref))
}

// RepoDigests returns the registry digests of the local image ref.
func (e *Engine) RepoDigests(ctx context.Context, ref string) ([]string, error) {
	stdout, err := e.run.Output(ctx, e.command("inspect", "--format", "{{json .RepoDigests}}", ref))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", ref, err)
	}
	var digests []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(stdout))), &digests); err != nil {
		return nil, fmt.Errorf("failed to parse repo digests of %s: %w", ref, err)
	}
	for _, d := range digests {
		if _, _, err := validation.ParseRepoDigest(d); err != nil {
			return nil, fmt.Errorf("unexpected repo digest of %s: %w", ref, err)
		}
	}
	return digests, nil
}

// ExportRootfs runs image with hostDir mounted at /host and moves the
// image's /base.tar there.
func (e *Engine) ExportRootfs(ctx context.Context, image, hostDir string) error {
	abs, err := filepath.Abs(hostDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", hostDir, err)
	}
	return e.run.Run(ctx, domain.Command{
		Program: e.binary,
		Args: []string{
			"run", "--platform=" + rootfsPlatform, "-t", "--rm",
			"-v", abs + ":/host",
			"--pull", "always",
			image,
			"mv", "-f", "/base.tar", "/host",
		},
	})
}
