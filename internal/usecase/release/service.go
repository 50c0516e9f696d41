// Package release implements the release pipeline: acquire root
// filesystems, compress them, build and publish multi-arch images and
// report their digests.
package release

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/2cd/getctr/internal/boundaries/in"
	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
	"github.com/2cd/getctr/pkg/repack"
)

// Deps are the driven ports the pipeline runs on.
type Deps struct {
	Store   out.ArtifactStore
	Hasher  out.Hasher
	Reports out.ReportWriter
	Tools   out.SystemTools
	Engine  out.ContainerEngine
	Rootfs  out.RootfsBuilder
	Pool    out.EncodePool
	Procs   out.ProcessSupervisor
}

// Config holds the run-wide settings of the pipeline.
type Config struct {
	// Workdir holds build directories, compressed archives and batch side-cars.
	Workdir    string
	Registries domain.Registries
	// Today is the ISO date used by date-tagged releases.
	Today string
	// ContinueOnError drops a failing descriptor and keeps going instead of
	// aborting the run. The collected errors are returned at the end.
	ContinueOnError bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service implements in.ReleaseService.
type Service struct {
	store   out.ArtifactStore
	hasher  out.Hasher
	reports out.ReportWriter
	tools   out.SystemTools
	engine  out.ContainerEngine
	rootfs  out.RootfsBuilder
	pool    out.EncodePool
	procs   out.ProcessSupervisor

	cfg    Config
	tagger domain.Tagger
	decode func(src, dst string) error
	log    zerowrap.Logger
}

var _ in.ReleaseService = (*Service)(nil)

// NewService creates a release service.
func NewService(deps Deps, cfg Config, log zerowrap.Logger) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Today == "" {
		cfg.Today = cfg.Now().Format(time.DateOnly)
	}
	return &Service{
		store:   deps.Store,
		hasher:  deps.Hasher,
		reports: deps.Reports,
		tools:   deps.Tools,
		engine:  deps.Engine,
		rootfs:  deps.Rootfs,
		pool:    deps.Pool,
		procs:   deps.Procs,
		cfg:     cfg,
		tagger:  domain.Tagger{Registries: cfg.Registries, Today: cfg.Today},
		decode:  decodeGzip,
		log:     log,
	}
}

func decodeGzip(src, dst string) error {
	return repack.New(src, dst).WithOperation(repack.Decode()).Run()
}

type stage struct {
	name    string
	enabled bool
	run     func(ctx context.Context) error
}

// Execute runs the selected stages over repos in pipeline order: obtain,
// repack, build, push, create-manifest, update-repo-digest, digest.
// Background compression and spawned builds are joined before the digest
// stage and before Execute returns.
func (s *Service) Execute(ctx context.Context, repos []*domain.Repository, plan domain.ReleasePlan) error {
	if len(repos) == 0 {
		return domain.ErrEmptyRepositories
	}
	ctx = zerowrap.CtxWithFields(zerowrap.WithCtx(ctx, s.log), map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "Release",
		"release":             repos[0].ReleaseTag(),
	})
	log := zerowrap.FromCtx(ctx)
	defer s.drain()

	if needsEngine(plan) {
		if _, err := s.engine.Preflight(ctx); err != nil {
			return fmt.Errorf("failed to reach container engine: %w", err)
		}
	}

	p := &pipeline{
		Service: s,
		log:     log,
		plan:    plan,
		live:    append([]*domain.Repository(nil), repos...),
	}
	stages := []stage{
		{"obtain", plan.Obtain, func(ctx context.Context) error { return p.each(ctx, "obtain", s.obtain) }},
		{"repack", plan.Repack, func(ctx context.Context) error { return p.each(ctx, "repack", p.repack) }},
		{"build", plan.Build, p.build},
		{"push", plan.Push, p.push},
		{"create-manifest", plan.CreateManifest, p.createManifest},
		{"update-repo-digest", plan.UpdateRepoDigests, func(ctx context.Context) error {
			return p.each(ctx, "update-repo-digest", s.updateRepoDigests)
		}},
		{"digest", plan.Digest, p.digest},
	}

	for _, st := range stages {
		if !st.enabled {
			continue
		}
		if len(p.live) == 0 {
			log.Warn().Str("stage", st.name).Msg("no descriptors left, skipping remaining stages")
			break
		}
		if st.name == "digest" {
			s.drain()
		}
		log.Info().Str("stage", st.name).Int(zerowrap.FieldCount, len(p.live)).Msg("running stage")
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.run(ctx); err != nil {
			if !s.cfg.ContinueOnError {
				return fmt.Errorf("%s: %w", st.name, err)
			}
			p.errs = append(p.errs, fmt.Errorf("%s: %w", st.name, err))
		}
	}
	return errors.Join(p.errs...)
}

func needsEngine(plan domain.ReleasePlan) bool {
	return plan.Build || plan.Push || plan.CreateManifest || plan.UpdateRepoDigests
}

func (s *Service) drain() {
	s.pool.Wait()
	s.procs.WaitAll()
}

// Title returns the release title of the batch, taken from its first
// descriptor.
func (s *Service) Title(repos []*domain.Repository) (string, error) {
	if len(repos) == 0 {
		return "", domain.ErrEmptyRepositories
	}
	return repos[0].Title(), nil
}

// ReleaseTag returns {version}[-{tag}] of the batch.
func (s *Service) ReleaseTag(repos []*domain.Repository) (string, error) {
	if len(repos) == 0 {
		return "", domain.ErrEmptyRepositories
	}
	return repos[0].ReleaseTag(), nil
}

// pipeline is the state of one Execute call. live holds the descriptors that
// have not failed yet.
type pipeline struct {
	*Service
	log  zerowrap.Logger
	plan domain.ReleasePlan
	live []*domain.Repository
	errs []error
}

// each runs fn for every live descriptor. A failing descriptor aborts the
// stage, or is dropped from the run when ContinueOnError is set.
func (p *pipeline) each(ctx context.Context, name string, fn func(context.Context, *domain.Repository) error) error {
	kept := p.live[:0:0]
	for _, r := range p.live {
		if err := fn(ctx, r); err != nil {
			err = fmt.Errorf("%s: %w", r.BaseName(), err)
			if !p.cfg.ContinueOnError {
				return err
			}
			p.log.Error().Err(err).Str("stage", name).Str("repo", r.BaseName()).Msg("descriptor failed, continuing")
			p.errs = append(p.errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		kept = append(kept, r)
	}
	p.live = kept
	return nil
}

// first is the descriptor that names the batch side-cars.
func (p *pipeline) first() *domain.Repository {
	return p.live[0]
}
