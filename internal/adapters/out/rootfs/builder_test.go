package rootfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
)

func testLogger() zerowrap.Logger {
	return zerowrap.New(zerowrap.Config{Level: "disabled", Output: io.Discard})
}

type fakeTools struct {
	calls  []string
	nspawn []nspawnCall
	err    error
}

type nspawnCall struct {
	script string
	xterm  bool
	env    []string
}

func (f *fakeTools) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeTools) Curl(_ context.Context, url, file string) error {
	return f.record("curl " + url + " " + file)
}

func (f *fakeTools) PackTar(_ context.Context, dir, archive string, excludeDev bool) error {
	return f.record("pack " + dir + " " + archive)
}

func (f *fakeTools) ExtractTar(_ context.Context, archive, dir string) error {
	return f.record("extract " + archive + " " + dir)
}

func (f *fakeTools) Nspawn(_ context.Context, _ string, script string, xterm bool, env ...string) error {
	f.nspawn = append(f.nspawn, nspawnCall{script: script, xterm: xterm, env: env})
	return f.record("nspawn")
}

func (f *fakeTools) RemoveAll(_ context.Context, path string) error {
	return f.record("rm " + path)
}

func (f *fakeTools) Move(_ context.Context, src, dst string) error {
	return f.record("mv " + src + " " + dst)
}

func (f *fakeTools) MkdirAll(_ context.Context, path string) error {
	return f.record("mkdir " + path)
}

type fakeRunner struct {
	commands []domain.Command
	output   []byte
	err      error
	// onRun runs after a command is recorded.
	onRun func(domain.Command)
}

func (f *fakeRunner) Run(_ context.Context, cmd domain.Command) error {
	f.commands = append(f.commands, cmd)
	if f.onRun != nil {
		f.onRun(cmd)
	}
	return f.err
}

func (f *fakeRunner) Output(_ context.Context, cmd domain.Command) ([]byte, error) {
	f.commands = append(f.commands, cmd)
	return f.output, f.err
}

func (f *fakeRunner) Start(_ context.Context, cmd domain.Command) (out.Process, error) {
	f.commands = append(f.commands, cmd)
	return nil, f.err
}

type fakeEngine struct {
	out.ContainerEngine
	exported []string
}

func (f *fakeEngine) ExportRootfs(_ context.Context, image, hostDir string) error {
	f.exported = append(f.exported, image+" "+hostDir)
	return nil
}

func testTable() domain.MirrorTable {
	return domain.MirrorTable{
		"debian-archive": {
			Keyring: "/usr/share/keyrings/debian-archive-keyring.gpg",
			Mirrors: []domain.Mirror{
				{Name: "Official", URL: "https://archive.debian.org/"},
				{Name: "NJU", Region: domain.RegionCN, URL: "https://mirrors.nju.edu.cn/debian-archive/"},
			},
		},
		"debian": {
			Keyring: "/usr/share/keyrings/debian-archive-keyring.gpg",
			Mirrors: []domain.Mirror{
				{Name: "Official", URL: "https://deb.debian.org/debian/"},
				{Name: "NJU", Region: domain.RegionCN, URL: "https://mirrors.nju.edu.cn/debian/"},
			},
		},
		"ubuntu": {
			Keyring: "/usr/share/keyrings/ubuntu-archive-keyring.gpg",
			Mirrors: []domain.Mirror{
				{Name: "Official", URL: "http://archive.ubuntu.com/ubuntu/"},
			},
		},
		"ubuntu-old": {
			Mirrors: []domain.Mirror{
				{Name: "Official", URL: "https://old-releases.ubuntu.com/ubuntu/"},
			},
		},
	}
}

type harness struct {
	builder *Builder
	tools   *fakeTools
	runner  *fakeRunner
	engine  *fakeEngine
	dir     string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		tools:  &fakeTools{},
		runner: &fakeRunner{},
		engine: &fakeEngine{},
		dir:    t.TempDir(),
	}
	if opts.Mirrors == nil {
		opts.Mirrors = testTable()
	}
	if opts.Today.IsZero() {
		opts.Today = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	}
	if opts.ScriptDir == "" {
		opts.ScriptDir = filepath.Join(h.dir, "scripts")
		require.NoError(t, os.MkdirAll(opts.ScriptDir, 0o755))
	}
	h.builder = NewBuilder(afero.NewOsFs(), h.tools, h.runner, h.engine, opts, testLogger())
	return h
}

func mustRepo(t *testing.T, series, version, arch string, opts domain.RepositoryOptions) *domain.Repository {
	t.Helper()
	r, err := domain.NewRepository(series, series, version, arch, opts)
	require.NoError(t, err)
	return r
}

func readLink(t *testing.T, path string) string {
	t.Helper()
	target, err := os.Readlink(path)
	require.NoError(t, err)
	return target
}

func TestUsesPrebuilt(t *testing.T) {
	tests := []struct {
		series, arch string
		want         bool
	}{
		{"lenny", "amd64", true},
		{"lenny", "i386", false},
		{"woody", "i386", true},
		{"jessie", "arm64", true},
		{"jessie", "amd64", false},
		{"sarge", "powerpc", true},
		{"sarge", "i386", false},
		{"bookworm", "amd64", false},
	}
	for _, tt := range tests {
		t.Run(tt.series+"-"+tt.arch, func(t *testing.T) {
			assert.Equal(t, tt.want, usesPrebuilt(tt.series, tt.arch))
		})
	}
}

func TestBuilder_BootstrapPrebuilt(t *testing.T) {
	h := newHarness(t, Options{RegHost: "reg.example.com/"})
	r := mustRepo(t, "sarge", "3.1", "x64", domain.RepositoryOptions{DebArch: "amd64"})

	docker := filepath.Join(h.dir, "docker")
	rootfs := filepath.Join(docker, "rootfs")
	require.NoError(t, h.builder.Bootstrap(context.Background(), r, docker, rootfs))

	assert.Equal(t, []string{"reg.example.com/rootfs/sarge:amd64 " + docker}, h.engine.exported)
	base := filepath.Join(docker, "base.tar")
	assert.Equal(t, []string{"extract " + base + " " + rootfs, "rm " + base}, h.tools.calls)
	assert.Empty(t, h.runner.commands)
}

func TestBuilder_BootstrapDebootstrap(t *testing.T) {
	h := newHarness(t, Options{ExitOnFailure: true})
	require.NoError(t, os.WriteFile(filepath.Join(h.builder.opts.ScriptDir, "lenny"), nil, 0o644))

	r := mustRepo(t, "lenny", "5.0", "x86", domain.RepositoryOptions{
		DebArch: "i386",
		Debootstrap: &domain.DebootstrapSource{
			URL:        "https://archive.debian.org/debian/",
			Components: "main,contrib,non-free",
			Suite:      "lenny",
		},
	})
	docker := filepath.Join(h.dir, "docker")
	rootfs := filepath.Join(docker, "rootfs")

	require.NoError(t, h.builder.Bootstrap(context.Background(), r, docker, rootfs))

	require.Len(t, h.runner.commands, 1)
	cmd := h.runner.commands[0]
	assert.Equal(t, DefaultDebootstrap, cmd.Program)
	assert.True(t, cmd.Privileged)
	assert.True(t, cmd.ExitOnFailure)
	assert.Equal(t, []string{"lenny", rootfs, "https://archive.debian.org/debian/"}, cmd.Args[len(cmd.Args)-3:])
	assert.Contains(t, cmd.Args, "minbase")
	assert.NotContains(t, cmd.Args, "--include")

	exclude := cmd.Args[1]
	assert.True(t, strings.HasPrefix(exclude, "--exclude=ubuntu-minimal,ubuntu-base,"))
	assert.Equal(t, "--arch=i386", cmd.Args[3])
	assert.True(t, strings.HasSuffix(exclude, ",apt-transport-https"))

	// the script existed, so no link was created
	assert.Empty(t, h.tools.calls)
}

func TestBuilder_BootstrapNoMinbaseWithIncludes(t *testing.T) {
	h := newHarness(t, Options{})
	r := mustRepo(t, "noble", "24.04", "arm64", domain.RepositoryOptions{
		OSName:    "Ubuntu",
		DebArch:   "arm64",
		NoMinbase: true,
		Debootstrap: &domain.DebootstrapSource{
			URL:             "http://ports.ubuntu.com/ubuntu-ports/",
			Components:      "main,restricted,universe,multiverse",
			Suite:           "noble",
			IncludePackages: "ca-certificates",
		},
	})
	docker := filepath.Join(h.dir, "docker")
	require.NoError(t, os.MkdirAll(docker, 0o755))

	require.NoError(t, h.builder.Bootstrap(context.Background(), r, docker, filepath.Join(docker, "rootfs")))

	args := h.runner.commands[0].Args
	assert.NotContains(t, args, "minbase")
	assert.Contains(t, args, "ca-certificates")
	assert.NotContains(t, args[1], "apt-transport-https")

	// unknown suite is linked to gutsy and moved into the script dir
	link := filepath.Join(docker, "noble")
	assert.Equal(t, "gutsy", readLink(t, link))
	assert.Equal(t, []string{"mv " + link + " " + filepath.Join(h.builder.opts.ScriptDir, "noble")}, h.tools.calls)
}

func TestBuilder_BootstrapEnvScriptDir(t *testing.T) {
	envDir := filepath.Join(t.TempDir(), "scripts")
	require.NoError(t, os.MkdirAll(envDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "trixie"), nil, 0o644))

	h := newHarness(t, Options{EnvScriptDir: envDir})
	r := mustRepo(t, "trixie", "13", "x64", domain.RepositoryOptions{
		DebArch:     "amd64",
		Debootstrap: &domain.DebootstrapSource{URL: "https://deb.debian.org/debian/", Suite: "trixie"},
	})

	require.NoError(t, h.builder.Bootstrap(context.Background(), r, h.dir, filepath.Join(h.dir, "rootfs")))
	assert.Empty(t, h.tools.calls)
}

func TestBuilder_BootstrapFailureLog(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(h.builder.opts.ScriptDir, "etch"), nil, 0o644))

	rootfs := filepath.Join(h.dir, "rootfs")
	h.runner.onRun = func(domain.Command) {
		logFile := filepath.Join(rootfs, "debootstrap", "debootstrap.log")
		require.NoError(t, os.MkdirAll(filepath.Dir(logFile), 0o755))
		require.NoError(t, os.WriteFile(logFile, []byte("E: no such suite"), 0o644))
	}
	r := mustRepo(t, "etch", "4.0", "x86", domain.RepositoryOptions{
		DebArch:     "i386",
		Debootstrap: &domain.DebootstrapSource{URL: "https://archive.debian.org/debian/", Suite: "etch"},
	})

	err := h.builder.Bootstrap(context.Background(), r, h.dir, rootfs)
	assert.True(t, errors.Is(err, domain.ErrDebootstrapFailed))
}

func TestBuilder_BootstrapErrors(t *testing.T) {
	h := newHarness(t, Options{})

	noArch := mustRepo(t, "bookworm", "12", "x64", domain.RepositoryOptions{})
	err := h.builder.Bootstrap(context.Background(), noArch, h.dir, h.dir+"/rootfs")
	assert.ErrorIs(t, err, domain.ErrUnknownArch)

	noSource := mustRepo(t, "bookworm", "12", "x64", domain.RepositoryOptions{DebArch: "amd64"})
	err = h.builder.Bootstrap(context.Background(), noSource, h.dir, h.dir+"/rootfs")
	assert.ErrorIs(t, err, domain.ErrMissingDebootstrapSrc)

	h.runner.err = errors.New("exit status 1")
	require.NoError(t, os.WriteFile(filepath.Join(h.builder.opts.ScriptDir, "bookworm"), nil, 0o644))
	withSource := mustRepo(t, "bookworm", "12", "x64", domain.RepositoryOptions{
		DebArch:     "amd64",
		Debootstrap: &domain.DebootstrapSource{URL: "https://deb.debian.org/debian/", Suite: "bookworm"},
	})
	err = h.builder.Bootstrap(context.Background(), withSource, h.dir, h.dir+"/rootfs")
	assert.ErrorIs(t, err, domain.ErrDebootstrapFailed)
}

func TestBuilder_DevelSuite(t *testing.T) {
	h := newHarness(t, Options{})
	h.runner.output = []byte("Archive: plucky\nVersion: 25.04\nComponent: main\nOrigin: Ubuntu\n")
	require.NoError(t, os.WriteFile(filepath.Join(h.builder.opts.ScriptDir, "plucky"), nil, 0o644))

	r := mustRepo(t, "devel", "devel", "x64", domain.RepositoryOptions{
		OSName:      "Ubuntu",
		DebArch:     "amd64",
		Debootstrap: &domain.DebootstrapSource{URL: "http://archive.ubuntu.com/ubuntu/", Suite: "devel"},
	})
	require.NoError(t, h.builder.Bootstrap(context.Background(), r, h.dir, h.dir+"/rootfs"))

	require.Len(t, h.runner.commands, 2)
	assert.Equal(t, []string{"-L", "http://archive.ubuntu.com/ubuntu/dists/devel/main/source/Release"}, h.runner.commands[0].Args)
	args := h.runner.commands[1].Args
	assert.Equal(t, "plucky", args[len(args)-3])
}

func TestBuilder_InstallSourcesComplex(t *testing.T) {
	h := newHarness(t, Options{})
	r := mustRepo(t, "bookworm", "12", "x64", domain.RepositoryOptions{
		DebArch:    "amd64",
		Deb822:     true,
		TitleDate:  "2023-06-10",
		Components: "main contrib non-free non-free-firmware",
		Source: &domain.SourceSpec{
			Enabled:  []string{"debian/ bookworm"},
			Disabled: []string{"debian/ bookworm-backports"},
		},
	})
	docker := filepath.Join(h.dir, "docker")
	rootfs := filepath.Join(docker, "rootfs")

	require.NoError(t, h.builder.InstallSources(context.Background(), r, docker, rootfs))

	mirrors := filepath.Join(docker, "mirrors")
	official, err := os.ReadFile(filepath.Join(mirrors, "Official.list"))
	require.NoError(t, err)
	assert.Equal(t,
		"deb [trusted=yes] https://deb.debian.org/debian/ bookworm main contrib non-free non-free-firmware\n"+
			"# deb-src [trusted=yes] https://deb.debian.org/debian/ bookworm main contrib non-free non-free-firmware\n\n"+
			"# deb [trusted=yes] https://deb.debian.org/debian/ bookworm-backports main contrib non-free non-free-firmware\n"+
			"# deb-src [trusted=yes] https://deb.debian.org/debian/ bookworm-backports main contrib non-free non-free-firmware\n\n",
		string(official))

	cn, err := os.ReadFile(filepath.Join(mirrors, "NJU.CN.sources"))
	require.NoError(t, err)
	assert.Contains(t, string(cn), "URIs: https://mirrors.nju.edu.cn/debian/\n")
	assert.Contains(t, string(cn), "Enabled: yes\n")
	assert.Contains(t, string(cn), "Enabled: no\n")
	assert.Contains(t, string(cn), "Signed-By: /usr/share/keyrings/debian-archive-keyring.gpg\n")
	assert.Contains(t, string(cn), "# Architectures: amd64\n")

	assert.Equal(t, "../../usr/local/etc/apt/mirrors/Official.list", readLink(t, filepath.Join(mirrors, "sources.list")))
	assert.Equal(t, "../../../usr/local/etc/apt/mirrors/Official.sources", readLink(t, filepath.Join(mirrors, "mirror.sources")))

	local := filepath.Join(rootfs, "usr/local/etc/apt/mirrors")
	assert.Equal(t, []string{
		"mv " + filepath.Join(mirrors, "mirror.sources") + " " + filepath.Join(rootfs, "etc/apt/sources.list.d"),
		"mkdir " + local,
		"rm " + local,
		"mv " + mirrors + " " + local,
	}, h.tools.calls)
}

func TestBuilder_InstallSourcesPlainHTTP(t *testing.T) {
	h := newHarness(t, Options{})
	r := mustRepo(t, "sarge", "3.1", "x86", domain.RepositoryOptions{
		DebArch:   "i386",
		TitleDate: "2005-06-06",
		Source:    &domain.SourceSpec{Enabled: []string{"debian-archive/debian/ sarge"}},
	})
	rootfs := filepath.Join(h.dir, "rootfs")
	require.NoError(t, os.MkdirAll(filepath.Join(rootfs, "etc/apt"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootfs, "etc/apt/sources.list"), nil, 0o644))

	require.NoError(t, h.builder.InstallSources(context.Background(), r, h.dir, rootfs))

	official, err := os.ReadFile(filepath.Join(h.dir, "mirrors", "Official.list"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(official), "deb http://archive.debian.org/debian/ sarge main contrib non-free\n"))

	srcList := filepath.Join(rootfs, "etc/apt/sources.list")
	assert.Equal(t, "mv "+srcList+" "+srcList+".bak", h.tools.calls[0])
	assert.Equal(t, "mv "+filepath.Join(h.dir, "mirrors", "sources.list")+" "+srcList, h.tools.calls[1])
}

func TestBuilder_InstallSourcesSimple(t *testing.T) {
	h := newHarness(t, Options{})
	r := mustRepo(t, "noble", "24.04", "x64", domain.RepositoryOptions{
		DebArch:   "amd64",
		Deb822:    true,
		TitleDate: "2024-04-25",
		Source:    &domain.SourceSpec{Alias: "ubuntu"},
	})

	require.NoError(t, h.builder.InstallSources(context.Background(), r, h.dir, filepath.Join(h.dir, "rootfs")))

	list, err := os.ReadFile(filepath.Join(h.dir, "mirrors", "Official.list"))
	require.NoError(t, err)
	assert.Contains(t, string(list), "deb [trusted=yes] http://archive.ubuntu.com/ubuntu/ noble-security main restricted universe multiverse\n")
	assert.Contains(t, string(list), "# deb [trusted=yes] http://archive.ubuntu.com/ubuntu/ noble-proposed")

	sources, err := os.ReadFile(filepath.Join(h.dir, "mirrors", "Official.sources"))
	require.NoError(t, err)
	assert.Contains(t, string(sources), "# URIs: mirror://mirrors.ubuntu.com/mirrors.txt\n")
	assert.Contains(t, string(sources), "Suites: noble noble-updates noble-backports noble-security\n")
	assert.Contains(t, string(sources), "# Trusted: no\n")
}

func TestBuilder_InstallSourcesUnknownAlias(t *testing.T) {
	h := newHarness(t, Options{})
	r := mustRepo(t, "warty", "4.10", "x86", domain.RepositoryOptions{
		DebArch:   "i386",
		TitleDate: "2004-10-20",
		Source:    &domain.SourceSpec{Alias: "ubuntu-vintage"},
	})

	require.NoError(t, h.builder.InstallSources(context.Background(), r, h.dir, filepath.Join(h.dir, "rootfs")))

	list, err := os.ReadFile(filepath.Join(h.dir, "mirrors", "Official.list"))
	require.NoError(t, err)
	assert.Contains(t, string(list), "\ndeb http://old-releases.ubuntu.com/ubuntu/ warty main")
}

func TestBuilder_InstallSourcesWithoutSpec(t *testing.T) {
	h := newHarness(t, Options{})
	r := mustRepo(t, "bookworm", "12", "x64", domain.RepositoryOptions{})

	require.NoError(t, h.builder.InstallSources(context.Background(), r, h.dir, filepath.Join(h.dir, "rootfs")))
	assert.Empty(t, h.tools.calls)
	assert.NoDirExists(t, filepath.Join(h.dir, "mirrors"))
}

func TestBuilder_InstallArchiveSources(t *testing.T) {
	h := newHarness(t, Options{})
	r := mustRepo(t, "potato", "2.2", "x86", domain.RepositoryOptions{Tag: "base"})
	rootfs := filepath.Join(h.dir, "tar_2000-08-15")

	require.NoError(t, h.builder.InstallArchiveSources(context.Background(), r, h.dir, rootfs))

	mirrors := filepath.Join(h.dir, "mirrors")
	official, err := os.ReadFile(filepath.Join(mirrors, "Official.list"))
	require.NoError(t, err)
	assert.Equal(t,
		"deb http://archive.debian.org/debian/ potato main contrib non-free\n# deb-src http://archive.debian.org/debian/ potato main contrib non-free\n",
		string(official))

	cn, err := os.ReadFile(filepath.Join(mirrors, "NJU.CN.list"))
	require.NoError(t, err)
	assert.Contains(t, string(cn), "deb http://mirrors.nju.edu.cn/debian-archive/debian/ potato")

	assert.NoFileExists(t, filepath.Join(mirrors, "Official.sources"))
	assert.Equal(t, "../../usr/local/etc/apt/mirrors/Official.list", readLink(t, filepath.Join(mirrors, "sources.list")))
	assert.Equal(t, "mv "+filepath.Join(mirrors, "sources.list")+" "+filepath.Join(rootfs, "etc/apt/sources.list"), h.tools.calls[0])
}

func TestBuilder_Patch(t *testing.T) {
	h := newHarness(t, Options{})
	rootfs := filepath.Join(h.dir, "rootfs")
	require.NoError(t, os.MkdirAll(filepath.Join(rootfs, "usr/share/i18n/locales"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootfs, "usr/share/i18n/locales/en_US"), nil, 0o644))

	r := mustRepo(t, "etch", "4.0", "x86", domain.RepositoryOptions{DebArch: "i386", TitleDate: "2007-04-08"})
	require.NoError(t, h.builder.Patch(context.Background(), r, rootfs))

	require.Len(t, h.tools.nspawn, 4)
	assert.Equal(t, "apt-get update", h.tools.nspawn[0].script)
	assert.Equal(t, []string{"LANG=C.UTF-8"}, h.tools.nspawn[0].env)
	assert.Contains(t, h.tools.nspawn[1].script, "debian-backports-keyring")
	assert.Contains(t, h.tools.nspawn[2].script, "localedef")
	assert.Contains(t, h.tools.nspawn[3].script, "apt-get dist-upgrade --assume-yes --force-yes")
	for _, c := range h.tools.nspawn {
		assert.True(t, c.xterm)
	}
}

func TestPatchSteps(t *testing.T) {
	steps := patchSteps("xenial", 2016, false)
	require.Len(t, steps, 3)
	assert.Equal(t, "apt-get autoremove --purge --assume-yes makedev", steps[1].script)
	assert.NotContains(t, steps[2].script, "--force-yes")
	assert.Contains(t, steps[2].script, "apt-get clean")

	steps = patchSteps("bookworm", DefaultPatchYear, false)
	assert.Len(t, steps, 2)
}

func TestBuilder_PatchStopsOnError(t *testing.T) {
	h := newHarness(t, Options{})
	h.tools.err = errors.New("boom")
	r := mustRepo(t, "bookworm", "12", "x64", domain.RepositoryOptions{DebArch: "amd64"})

	err := h.builder.Patch(context.Background(), r, filepath.Join(h.dir, "rootfs"))
	require.Error(t, err)
	assert.Len(t, h.tools.nspawn, 1)
}
