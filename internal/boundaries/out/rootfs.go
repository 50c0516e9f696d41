package out

import (
	"context"

	"github.com/2cd/getctr/internal/domain"
)

// RootfsBuilder synthesizes and patches root filesystems.
type RootfsBuilder interface {
	// Bootstrap fills rootfsDir, either with debootstrap or from a prebuilt
	// rootfs image.
	Bootstrap(ctx context.Context, r *domain.Repository, dockerDir, rootfsDir string) error

	// InstallSources writes the descriptor's apt source lists into rootfsDir.
	InstallSources(ctx context.Context, r *domain.Repository, dockerDir, rootfsDir string) error

	// InstallArchiveSources points a legacy rootfs at the Debian archive.
	InstallArchiveSources(ctx context.Context, r *domain.Repository, dockerDir, rootfsDir string) error

	// Patch upgrades the rootfs and installs base tooling inside nspawn.
	Patch(ctx context.Context, r *domain.Repository, rootfsDir string) error
}

// Catalog resolves release descriptors from OS catalogs.
type Catalog interface {
	Repositories(osName, version, tag string) ([]*domain.Repository, error)
	Releases() []domain.Release
	Mirrors() domain.MirrorTable
}
