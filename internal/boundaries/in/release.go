// Package in defines input ports (interfaces) for use cases.
package in

import (
	"context"

	"github.com/2cd/getctr/internal/domain"
)

// ReleaseService runs the release pipeline over a batch of descriptors.
type ReleaseService interface {
	// Execute runs the stages selected by plan, in pipeline order.
	Execute(ctx context.Context, repos []*domain.Repository, plan domain.ReleasePlan) error

	// Title returns the release title of the batch.
	Title(repos []*domain.Repository) (string, error)

	// ReleaseTag returns the release tag of the batch.
	ReleaseTag(repos []*domain.Repository) (string, error)
}

// CatalogService lists known releases.
type CatalogService interface {
	Releases() []domain.Release
	Repositories(osName, version, tag string) ([]*domain.Repository, error)
}
