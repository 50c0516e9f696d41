package release

import (
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/2cd/getctr/internal/domain"
	"github.com/2cd/getctr/pkg/archmap"
)

//go:embed templates
var templates embed.FS

// tarPlaceholder is replaced by the archive name in Dockerfile templates.
const tarPlaceholder = "base.tar"

// dockerfile renders the Dockerfile of r. Releases that need TERM=xterm use
// the legacy template.
func dockerfile(r *domain.Repository, tarName string) ([]byte, error) {
	name := "templates/Dockerfile"
	if r.RequiresXterm() {
		name = "templates/Dockerfile.legacy"
	}
	tmpl, err := templates.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return []byte(strings.ReplaceAll(string(tmpl), tarPlaceholder, tarName)), nil
}

// build spawns one image build per live descriptor, then writes the batch
// RepoMap and platform set and joins the builds.
func (p *pipeline) build(ctx context.Context) error {
	first := p.first()
	repoMap := domain.NewRepoMap()
	platforms := make(map[string]struct{})

	err := p.each(ctx, "build", func(ctx context.Context, r *domain.Repository) error {
		platform, err := p.buildOne(ctx, r, repoMap)
		if err != nil {
			return err
		}
		platforms[platform] = struct{}{}
		return nil
	})
	if err != nil {
		return err
	}

	if err := p.store.Save(p.batchFile(first.RepoMapFileName()), repoMap); err != nil {
		return err
	}
	set := make([]string, 0, len(platforms))
	for pl := range platforms {
		set = append(set, pl)
	}
	slices.Sort(set)
	if err := p.store.Save(p.batchFile(first.PlatformsFileName()), set); err != nil {
		return err
	}
	p.log.Debug().Int("main_repos", repoMap.Len()).Strs("platforms", set).Msg("repo map written")

	p.procs.WaitAll()
	return nil
}

func (p *pipeline) buildOne(ctx context.Context, r *domain.Repository, repoMap *domain.RepoMap) (string, error) {
	platform, ok := archmap.OCIPlatform(r.Arch)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownArch, r.Arch)
	}
	tf := r.TarFile(p.cfg.Workdir)

	content, err := dockerfile(r, tf.Name)
	if err != nil {
		return "", err
	}
	if err := p.store.WriteFile(filepath.Join(tf.Dir, domain.DockerfileName), content); err != nil {
		return "", err
	}
	ignore, err := templates.ReadFile("templates/dockerignore")
	if err != nil {
		return "", fmt.Errorf("failed to read dockerignore: %w", err)
	}
	if err := p.store.WriteFile(filepath.Join(tf.Dir, domain.DockerIgnoreName), ignore); err != nil {
		return "", err
	}

	tags := p.tagger.Tags(r)
	sidecars := []struct {
		name  string
		value any
	}{
		{domain.SidecarGHCRTags, tags.GHCR},
		{domain.SidecarRegTags, tags.Reg},
		{domain.SidecarTagName, domain.TagName(tags.GHCR[0])},
	}
	for _, sc := range sidecars {
		if err := p.store.Save(filepath.Join(tf.Dir, sc.name), sc.value); err != nil {
			return "", err
		}
	}

	for _, tag := range tags.All() {
		p.log.Info().Str("repo", r.BaseName()).Str("tag", tag).Msg("tag")
	}
	proc, err := p.engine.Build(ctx, domain.BuildSpec{
		Tags:       tags.All(),
		Platform:   platform,
		ContextDir: tf.Dir,
	})
	if err != nil {
		return "", err
	}
	p.procs.Track(r.BaseName(), proc)
	p.tagger.Record(repoMap, r, tags)
	return platform, nil
}

// batchFile places a batch side-car under the working directory.
func (s *Service) batchFile(name string) string {
	return filepath.Join(s.cfg.Workdir, name)
}
