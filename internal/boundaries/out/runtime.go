// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (external commands, the container engine, the filesystem, etc.).
package out

import (
	"context"

	"github.com/2cd/getctr/internal/domain"
)

// ContainerEngine defines the container engine operations used by a release.
// Argument shapes follow the docker CLI.
type ContainerEngine interface {
	// Preflight checks that the engine daemon is reachable.
	Preflight(ctx context.Context) (domain.EngineInfo, error)

	// Build spawns `build --tag ... --platform <p> --pull <ctx>` without waiting.
	Build(ctx context.Context, spec domain.BuildSpec) (Process, error)

	// Push runs `push --all-tags <repo>`.
	Push(ctx context.Context, repo string) error

	// CreateManifest runs `manifest create --amend <main> <tags>...`.
	CreateManifest(ctx context.Context, main string, tags []string) error

	// PushManifest runs `manifest push --purge <main>` and returns the digest.
	PushManifest(ctx context.Context, main string) (string, error)

	// Pull runs `pull <ref>`.
	Pull(ctx context.Context, ref string) error

	// RepoDigests returns the `.RepoDigests` of a local image.
	RepoDigests(ctx context.Context, ref string) ([]string, error)

	// ExportRootfs runs image and moves its /base.tar into hostDir.
	ExportRootfs(ctx context.Context, image, hostDir string) error
}
