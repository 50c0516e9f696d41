package release

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/2cd/getctr/internal/domain"
)

// noDevSeries keeps /dev entries when a patched legacy rootfs is repacked.
const noDevSeries = "slink"

// obtain produces the uncompressed archive of r, either from a legacy base
// tarball or by building a rootfs.
func (s *Service) obtain(ctx context.Context, r *domain.Repository) error {
	tf := r.TarFile(s.cfg.Workdir)
	if err := s.store.MkdirAll(tf.Dir); err != nil {
		return err
	}
	if err := s.store.Save(filepath.Join(tf.Dir, domain.SidecarBuildTime), domain.BuildTime{Time: s.cfg.Now().UTC()}); err != nil {
		return err
	}

	if r.Debootstrap == nil {
		return s.obtainLegacy(ctx, r, tf)
	}
	return s.obtainRootfs(ctx, r, tf)
}

func (s *Service) obtainLegacy(ctx context.Context, r *domain.Repository, tf domain.TarFile) error {
	if r.URL == "" {
		return domain.ErrMissingURL
	}
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldAction:   "ObtainLegacy",
		zerowrap.FieldEntityID: r.BaseName(),
	})
	log := zerowrap.FromCtx(ctx)

	gz := r.DownloadFile(s.cfg.Workdir)
	if err := s.tools.Curl(ctx, r.URL, gz); err != nil {
		return fmt.Errorf("failed to download %s: %w", r.URL, err)
	}
	log.Info().Str("src", gz).Str("dst", tf.Path).Msg("decompressing")
	if err := s.decode(gz, tf.Path); err != nil {
		return fmt.Errorf("failed to decompress %s: %w", gz, err)
	}

	if r.Patch == nil {
		return nil
	}
	log.Debug().Msg("patching legacy rootfs")

	now := s.cfg.Now().UTC()
	extracted := filepath.Join(tf.Dir, fmt.Sprintf("tar_%s_%d", now.Format(time.DateOnly), now.Hour()))
	if err := s.tools.ExtractTar(ctx, tf.Path, extracted); err != nil {
		return fmt.Errorf("failed to extract %s: %w", tf.Path, err)
	}
	if r.Patch.AddSourceMirrors {
		if err := s.rootfs.InstallArchiveSources(ctx, r, tf.Dir, extracted); err != nil {
			return fmt.Errorf("failed to add archive sources: %w", err)
		}
	}
	if err := s.tools.PackTar(ctx, extracted, tf.Path, r.Series != noDevSeries); err != nil {
		return fmt.Errorf("failed to repack %s: %w", tf.Path, err)
	}
	return nil
}

func (s *Service) obtainRootfs(ctx context.Context, r *domain.Repository, tf domain.TarFile) error {
	rootfs := filepath.Join(tf.Dir, domain.RootfsDirName)

	if s.store.Exists(rootfs) && s.store.Exists(tf.Path) {
		zerowrap.FromCtx(ctx).Info().Str(zerowrap.FieldEntityID, r.BaseName()).Msg("rootfs and archive exist, skipping bootstrap")
	} else if err := s.rootfs.Bootstrap(ctx, r, tf.Dir, rootfs); err != nil {
		return fmt.Errorf("failed to bootstrap rootfs: %w", err)
	}

	if err := s.rootfs.InstallSources(ctx, r, tf.Dir, rootfs); err != nil {
		return fmt.Errorf("failed to install apt sources: %w", err)
	}
	if err := s.rootfs.Patch(ctx, r, rootfs); err != nil {
		return fmt.Errorf("failed to patch rootfs: %w", err)
	}
	if err := s.tools.PackTar(ctx, rootfs, tf.Path, true); err != nil {
		return fmt.Errorf("failed to pack %s: %w", rootfs, err)
	}
	return nil
}

// repack queues compression of r's archive and records where it goes.
func (p *pipeline) repack(_ context.Context, r *domain.Repository) error {
	tf := r.TarFile(p.cfg.Workdir)
	zst := r.ZstdFile(p.cfg.Workdir)
	if err := p.store.MkdirAll(filepath.Dir(zst)); err != nil {
		return err
	}
	op := domain.ZstdOp{Path: zst, Level: p.plan.ZstdLevel}
	if err := p.store.Save(filepath.Join(tf.Dir, domain.SidecarZstd), op); err != nil {
		return err
	}
	p.pool.SubmitEncode(tf.Path, zst, op.Level)
	return nil
}
