package app

import (
	"fmt"
	"io"
	"os"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"

	"github.com/2cd/getctr/internal/adapters/out/catalog"
	"github.com/2cd/getctr/internal/adapters/out/command"
	"github.com/2cd/getctr/internal/adapters/out/docker"
	"github.com/2cd/getctr/internal/adapters/out/filesystem"
	"github.com/2cd/getctr/internal/adapters/out/report"
	"github.com/2cd/getctr/internal/adapters/out/rootfs"
	"github.com/2cd/getctr/internal/adapters/out/worker"
	"github.com/2cd/getctr/internal/boundaries/in"
	"github.com/2cd/getctr/internal/domain"
	"github.com/2cd/getctr/internal/logging"
	"github.com/2cd/getctr/internal/usecase/release"
)

// Options override configuration values from the command line.
type Options struct {
	ConfigPath string
	// LogLevel wins over log.level when set.
	LogLevel string
	Stdout   io.Writer
	Stderr   io.Writer
}

// Kernel provides in-process service access for the CLI.
type Kernel struct {
	cfg        Config
	env        RuntimeEnv
	releaseSvc in.ReleaseService
	catalogSvc in.CatalogService
	log        zerowrap.Logger
	cleanup    func()
}

// NewKernel loads configuration and wires every adapter into the release
// and catalog services.
func NewKernel(opts Options) (*Kernel, error) {
	_, cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	log, cleanup, err := logging.Setup(cfg.Log, opts.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	k, err := wire(afero.NewOsFs(), cfg, NewRuntimeEnv(), opts, log)
	if err != nil {
		cleanup()
		return nil, err
	}
	k.cleanup = cleanup
	return k, nil
}

func wire(fsys afero.Fs, cfg Config, env RuntimeEnv, opts Options, log zerowrap.Logger) (*Kernel, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	cat, err := catalog.Load(cfg.Catalog.Path, env.CN, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	runnerOpts := []command.Option{command.WithAttempts(cfg.Command.Attempts)}
	if cfg.Command.Timeout > 0 {
		runnerOpts = append(runnerOpts, command.WithTimeout(cfg.Command.Timeout))
	}
	run := command.NewRunner(env.Escalation, log, runnerOpts...)
	tools := command.NewTools(run, cfg.Command.ExitOnFailure)

	engine, err := docker.NewEngine(run, docker.Options{
		Binary:        cfg.Engine.Binary,
		BuildKit:      cfg.Engine.BuildKit,
		ExitOnFailure: cfg.Command.ExitOnFailure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create container engine: %w", err)
	}

	builder := rootfs.NewBuilder(fsys, tools, run, engine, rootfs.Options{
		Mirrors:       cat.Mirrors(),
		RegHost:       cfg.Registry.Reg,
		Today:         env.Now,
		ScriptDir:     cfg.Rootfs.ScriptDir,
		EnvScriptDir:  env.ScriptDir,
		Debootstrap:   cfg.Rootfs.Debootstrap,
		ExitOnFailure: cfg.Command.ExitOnFailure,
	}, log)

	svc := release.NewService(release.Deps{
		Store:   filesystem.NewSidecarStore(fsys, log),
		Hasher:  filesystem.NewFileHasher(fsys),
		Reports: report.NewWriter(fsys, stdout, log),
		Tools:   tools,
		Engine:  engine,
		Rootfs:  builder,
		Pool:    worker.NewPool(cfg.Pool.Size, log),
		Procs:   worker.NewSupervisor(log),
	}, release.Config{
		Workdir:         cfg.Workdir,
		Registries:      domain.Registries{GHCR: cfg.Registry.GHCR, Reg: cfg.Registry.Reg},
		Today:           env.Today,
		ContinueOnError: cfg.Pipeline.ContinueOnError,
	}, log)

	log.Debug().
		Str(zerowrap.FieldLayer, "app").
		Str("workdir", cfg.Workdir).
		Str("escalation", string(env.Escalation)).
		Bool("cn", env.CN).
		Msg("kernel ready")

	return &Kernel{
		cfg:        cfg,
		env:        env,
		releaseSvc: svc,
		catalogSvc: cat,
		log:        log,
		cleanup:    func() {},
	}, nil
}

// Release returns the release service.
func (k *Kernel) Release() in.ReleaseService { return k.releaseSvc }

// Catalog returns the catalog service.
func (k *Kernel) Catalog() in.CatalogService { return k.catalogSvc }

// Config returns the loaded configuration.
func (k *Kernel) Config() Config { return k.cfg }

// Logger returns the process logger.
func (k *Kernel) Logger() zerowrap.Logger { return k.log }

// Close releases the log file sink.
func (k *Kernel) Close() {
	if k.cleanup != nil {
		k.cleanup()
	}
}
