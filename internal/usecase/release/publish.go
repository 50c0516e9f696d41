package release

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bnema/zerowrap"

	"github.com/2cd/getctr/internal/domain"
)

// loadRepoMap reads the RepoMap written by the build stage.
func (p *pipeline) loadRepoMap() (*domain.RepoMap, error) {
	m := domain.NewRepoMap()
	if err := p.store.Load(p.batchFile(p.first().RepoMapFileName()), m); err != nil {
		if errors.Is(err, domain.ErrSidecarNotFound) {
			return nil, fmt.Errorf("%w; rebuild it using --build", err)
		}
		return nil, err
	}
	return m, nil
}

// push uploads every distinct repository named by the RepoMap once.
func (p *pipeline) push(ctx context.Context) error {
	m, err := p.loadRepoMap()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{})
	var repos []string
	for _, key := range m.Keys() {
		repo, err := domain.SplitRepo(key.Name)
		if err != nil {
			return err
		}
		if _, ok := seen[repo]; ok {
			continue
		}
		seen[repo] = struct{}{}
		repos = append(repos, repo)
	}

	for _, repo := range repos {
		p.log.Info().Str("repo", repo).Msg("pushing")
		if err := p.engine.Push(ctx, repo); err != nil {
			return fmt.Errorf("failed to push %s: %w", repo, err)
		}
	}
	return nil
}

// createManifest creates and pushes one manifest list per main repo and
// records the pushed digests grouped by registry.
func (p *pipeline) createManifest(ctx context.Context) error {
	m, err := p.loadRepoMap()
	if err != nil {
		return err
	}

	digests := make(domain.RepoDigestMap)
	for _, key := range m.Keys() {
		p.log.Info().Str("manifest", key.String()).Msg("creating manifest")
		if err := p.engine.CreateManifest(ctx, key.Name, m.Tags(key)); err != nil {
			return fmt.Errorf("failed to create manifest %s: %w", key.Name, err)
		}
		digest, err := p.engine.PushManifest(ctx, key.Name)
		if err != nil {
			return err
		}
		repo, err := domain.SplitRepo(key.Name)
		if err != nil {
			return err
		}
		kind := key.Kind.String()
		digests[kind] = append(digests[kind], repo+"@"+digest)
	}

	return p.store.Save(p.batchFile(p.first().RepoDigestsFileName()), digests)
}

var repoDigestSidecars = []struct{ tags, digests string }{
	{domain.SidecarGHCRTags, domain.SidecarGHCRDigests},
	{domain.SidecarRegTags, domain.SidecarRegDigests},
}

// updateRepoDigests pulls the first tag of each registry and records the
// digests the engine reports for it.
func (s *Service) updateRepoDigests(ctx context.Context, r *domain.Repository) error {
	dir := r.TarFile(s.cfg.Workdir).Dir
	for _, sc := range repoDigestSidecars {
		var tags []string
		if err := s.store.Load(filepath.Join(dir, sc.tags), &tags); err != nil {
			return err
		}
		if len(tags) == 0 {
			continue
		}
		ref := tags[0]
		if err := s.engine.Pull(ctx, ref); err != nil {
			return fmt.Errorf("failed to pull %s: %w", ref, err)
		}
		digests, err := s.engine.RepoDigests(ctx, ref)
		if err != nil {
			return err
		}
		dst := filepath.Join(dir, sc.digests)
		zerowrap.FromCtx(ctx).Info().Str("ref", ref).Str(zerowrap.FieldPath, dst).Msg("writing repo digests")
		if err := s.store.Save(dst, digests); err != nil {
			return err
		}
	}
	return nil
}
