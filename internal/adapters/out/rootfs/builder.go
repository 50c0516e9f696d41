// Package rootfs builds Debian and Ubuntu root filesystems with debootstrap
// or from prebuilt rootfs images, installs apt source lists and patches the
// result inside systemd-nspawn.
package rootfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
)

const (
	DefaultScriptDir   = "/usr/share/debootstrap/scripts"
	DefaultDebootstrap = "/usr/sbin/debootstrap"
	// DefaultPatchYear is assumed when a release has no parseable title date.
	DefaultPatchYear = 2020

	baseTarName    = "base.tar"
	debootstrapLog = "debootstrap/debootstrap.log"
	listLinkName   = "sources.list"
	deb822Link     = "mirror.sources"
	listLinkDir    = "../../usr/local/etc/apt/mirrors"
	deb822LinkDir  = "../../../usr/local/etc/apt/mirrors"
)

// excludedPackages are left out of every debootstrap rootfs.
var excludedPackages = []string{
	"ubuntu-minimal",
	"ubuntu-base",
	"cpio",
	"dmidecode",
	"fdisk",
	"ifupdown",
	"iproute2",
	"iputils-ping",
	"isc-dhcp-common",
	"isc-dhcp-client",
	"kmod",
	"less",
	"logrotate",
	"nano",
	"nftables",
	"procps",
	"udev",
	"vim",
	"vim-common",
	"vim-tiny",
	"man-db",
	"tasksel",
	"tasksel-data",
}

// Releases whose debootstrap pulls apt-transport-https, which their archive
// no longer serves.
var noHTTPSTransport = []string{"squeeze", "lenny", "etch"}

// amd64 releases that debootstrap can no longer build from the archive.
var prebuiltAMD64 = []string{
	"breezy", "dapper", "edgy", "etch", "feisty", "hardy", "hoary", "intrepid",
	"jaunty", "karmic", "lenny", "lucid", "maverick", "natty", "oneiric",
	"sarge", "squeeze", "warty", "wheezy",
}

var (
	prebuiltSeries = []string{"warty", "hoary", "gutsy", "potato", "woody"}
	// jessie archs without LTS coverage
	prebuiltJessie = []string{"arm64", "mipsel", "mips", "powerpc", "ppc64el", "s390x"}
	prebuiltSarge  = []string{"mips", "mipsel", "powerpc"}
)

// usesPrebuilt reports whether (series, debArch) comes from a prebuilt
// rootfs image instead of debootstrap.
func usesPrebuilt(series, debArch string) bool {
	switch {
	case debArch == "amd64" && slices.Contains(prebuiltAMD64, series):
		return true
	case slices.Contains(prebuiltSeries, series):
		return true
	case series == "jessie":
		return slices.Contains(prebuiltJessie, debArch)
	case series == "sarge":
		return slices.Contains(prebuiltSarge, debArch)
	}
	return false
}

// Options configures a Builder.
type Options struct {
	Mirrors domain.MirrorTable
	// RegHost hosts the prebuilt images "{RegHost}/rootfs/{series}:{debArch}".
	RegHost string
	// Today decides whether old releases get plain http sources.
	Today time.Time
	// ScriptDir holds the debootstrap suite scripts.
	ScriptDir string
	// EnvScriptDir is $DEBOOTSTRAP_DIR/scripts, empty when unset.
	EnvScriptDir string
	Debootstrap  string
	// ExitOnFailure is set on every command the builder runs.
	ExitOnFailure bool
}

// Builder implements out.RootfsBuilder.
type Builder struct {
	fs     afero.Fs
	tools  out.SystemTools
	run    out.CommandRunner
	engine out.ContainerEngine
	opts   Options
	log    zerowrap.Logger
}

var _ out.RootfsBuilder = (*Builder)(nil)

// NewBuilder creates a Builder. fsys must support symlinks for source lists
// to be linked.
func NewBuilder(fsys afero.Fs, tools out.SystemTools, run out.CommandRunner, engine out.ContainerEngine, opts Options, log zerowrap.Logger) *Builder {
	if opts.ScriptDir == "" {
		opts.ScriptDir = DefaultScriptDir
	}
	if opts.Debootstrap == "" {
		opts.Debootstrap = DefaultDebootstrap
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	return &Builder{
		fs:     fsys,
		tools:  tools,
		run:    run,
		engine: engine,
		opts:   opts,
		log:    log,
	}
}

// Bootstrap fills rootfsDir with a fresh root filesystem for r.
func (b *Builder) Bootstrap(ctx context.Context, r *domain.Repository, dockerDir, rootfsDir string) error {
	if r.DebArch == "" {
		return fmt.Errorf("%w: %s has no Debian architecture", domain.ErrUnknownArch, r.Arch)
	}

	if usesPrebuilt(r.Series, r.DebArch) {
		b.log.Info().
			Str(zerowrap.FieldLayer, "adapter").
			Str(zerowrap.FieldAdapter, "rootfs").
			Str("series", r.Series).
			Str("arch", r.DebArch).
			Msg("using prebuilt rootfs image")
		return b.prebuilt(ctx, r, dockerDir, rootfsDir)
	}

	if r.Debootstrap == nil {
		return fmt.Errorf("%w: %s", domain.ErrMissingDebootstrapSrc, r.Series)
	}
	b.log.Info().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "rootfs").
		Str("series", r.Series).
		Str("arch", r.DebArch).
		Str("url", r.Debootstrap.URL).
		Msg("running debootstrap")
	return b.debootstrap(ctx, r, dockerDir, rootfsDir)
}

func (b *Builder) prebuilt(ctx context.Context, r *domain.Repository, dockerDir, rootfsDir string) error {
	image := fmt.Sprintf("%s/rootfs/%s:%s", strings.TrimSuffix(b.opts.RegHost, "/"), r.Series, r.DebArch)
	if err := b.engine.ExportRootfs(ctx, image, dockerDir); err != nil {
		return fmt.Errorf("failed to export %s: %w", image, err)
	}

	base := filepath.Join(dockerDir, baseTarName)
	if err := b.tools.ExtractTar(ctx, base, rootfsDir); err != nil {
		return fmt.Errorf("failed to extract %s: %w", base, err)
	}
	return b.tools.RemoveAll(ctx, base)
}

func (b *Builder) debootstrap(ctx context.Context, r *domain.Repository, dockerDir, rootfsDir string) error {
	src := r.Debootstrap

	suite := src.Suite
	if suite == "devel" {
		name, err := b.develSuite(ctx, src.URL)
		if err != nil {
			return err
		}
		suite = name
	}
	if err := b.fixScriptLink(ctx, suite, r.OSName, dockerDir); err != nil {
		return err
	}

	cmd := domain.Command{
		Program:       b.opts.Debootstrap,
		Args:          debootstrapArgs(r, suite, rootfsDir),
		Privileged:    true,
		ExitOnFailure: b.opts.ExitOnFailure,
	}
	if err := b.run.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrDebootstrapFailed, r.Series, err)
	}

	// debootstrap removes its log on success
	logFile := filepath.Join(rootfsDir, debootstrapLog)
	if ok, _ := afero.Exists(b.fs, logFile); ok {
		if data, err := afero.ReadFile(b.fs, logFile); err == nil {
			b.log.Debug().Str(zerowrap.FieldAdapter, "rootfs").Str(zerowrap.FieldPath, logFile).Msg(string(data))
		}
		return fmt.Errorf("%w: %s (dir: %s)", domain.ErrDebootstrapFailed, r.Series, rootfsDir)
	}
	return nil
}

func debootstrapArgs(r *domain.Repository, suite, rootfsDir string) []string {
	exclude := slices.Clone(excludedPackages)
	if slices.Contains(noHTTPSTransport, r.Series) {
		exclude = append(exclude, "apt-transport-https")
	}

	src := r.Debootstrap
	args := []string{
		"--no-check-gpg",
		"--exclude=" + strings.Join(exclude, ","),
		"--components=" + src.Components,
		"--arch=" + r.DebArch,
	}
	if !r.NoMinbase {
		args = append(args, "--variant", "minbase")
	}
	if src.IncludePackages != "" {
		args = append(args, "--include", src.IncludePackages)
	}
	return append(args, suite, rootfsDir, src.URL)
}

// develSuite resolves the real name of Ubuntu's "devel" suite from its
// Release file.
func (b *Builder) develSuite(ctx context.Context, url string) (string, error) {
	releaseURL := strings.TrimSuffix(url, "/") + "/dists/devel/main/source/Release"
	data, err := b.run.Output(ctx, domain.Command{Program: "curl", Args: []string{"-L", releaseURL}})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", releaseURL, err)
	}
	var release struct {
		Archive string `yaml:"Archive"`
	}
	if err := yaml.Unmarshal(data, &release); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", releaseURL, err)
	}
	if release.Archive == "" {
		return "", fmt.Errorf("no Archive field in %s", releaseURL)
	}
	return release.Archive, nil
}

// fixScriptLink makes sure debootstrap knows suite, linking unknown suites
// to gutsy (Ubuntu) or sid.
func (b *Builder) fixScriptLink(ctx context.Context, suite, osName, dockerDir string) error {
	if b.opts.EnvScriptDir != "" {
		if ok, _ := afero.Exists(b.fs, filepath.Join(b.opts.EnvScriptDir, suite)); ok {
			return nil
		}
	}
	script := filepath.Join(b.opts.ScriptDir, suite)
	if ok, _ := afero.Exists(b.fs, script); ok {
		return nil
	}

	target := "sid"
	if osName == "Ubuntu" {
		target = "gutsy"
	}
	b.log.Info().Str(zerowrap.FieldAdapter, "rootfs").Str("src", target).Str("dst", suite).Msg("creating debootstrap script link")

	link := filepath.Join(dockerDir, suite)
	if err := b.symlink(target, link); err != nil {
		return err
	}
	return b.tools.Move(ctx, link, script)
}

// InstallSources writes r's apt source lists to dockerDir/mirrors and moves
// them into rootfsDir. Releases without a source spec are left untouched.
func (b *Builder) InstallSources(ctx context.Context, r *domain.Repository, dockerDir, rootfsDir string) error {
	if r.Source == nil {
		return nil
	}

	current := b.opts.Today.Year()
	plain := plainHTTP(r.TitleYear(current), current)

	var (
		files *sourceFiles
		err   error
	)
	if r.Source.IsSimple() {
		files, err = renderSimple(r, r.Source.Alias, b.opts.Mirrors, plain)
	} else {
		files, err = renderComplex(r, r.Source, b.opts.Mirrors, plain)
	}
	if err != nil {
		return fmt.Errorf("failed to render sources of %s: %w", r.Series, err)
	}

	mirrorDir := filepath.Join(dockerDir, domain.MirrorsDirName)
	if err := b.writeSources(mirrorDir, files, true); err != nil {
		return err
	}
	return b.moveMirrors(ctx, mirrorDir, rootfsDir, r.Deb822)
}

// InstallArchiveSources points a legacy rootfs at the Debian archive.
func (b *Builder) InstallArchiveSources(ctx context.Context, r *domain.Repository, dockerDir, rootfsDir string) error {
	files, err := renderArchive(r, b.opts.Mirrors)
	if err != nil {
		return fmt.Errorf("failed to render archive sources of %s: %w", r.Series, err)
	}

	mirrorDir := filepath.Join(dockerDir, domain.MirrorsDirName)
	if err := b.writeSources(mirrorDir, files, false); err != nil {
		return err
	}
	return b.moveMirrors(ctx, mirrorDir, rootfsDir, false)
}

func (b *Builder) writeSources(mirrorDir string, files *sourceFiles, deb822 bool) error {
	if err := b.fs.MkdirAll(mirrorDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", mirrorDir, err)
	}

	for _, base := range files.order {
		list := filepath.Join(mirrorDir, base+".list")
		if err := afero.WriteFile(b.fs, list, []byte(files.oneLine[base].String()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", list, err)
		}
		if !deb822 {
			continue
		}
		sources := filepath.Join(mirrorDir, base+".sources")
		if err := afero.WriteFile(b.fs, sources, []byte(files.deb822[base].String()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", sources, err)
		}
	}

	primary := files.primary()
	if primary == "" {
		return nil
	}
	if err := b.symlink(listLinkDir+"/"+primary+".list", filepath.Join(mirrorDir, listLinkName)); err != nil {
		return err
	}
	if deb822 {
		return b.symlink(deb822LinkDir+"/"+primary+".sources", filepath.Join(mirrorDir, deb822Link))
	}
	return nil
}

// moveMirrors installs the active source list into rootfsDir and moves the
// whole mirrors directory to usr/local/etc/apt/mirrors. An existing
// sources.list is kept as sources.list.bak.
func (b *Builder) moveMirrors(ctx context.Context, mirrorDir, rootfsDir string, deb822 bool) error {
	srcList := filepath.Join(rootfsDir, "etc/apt/sources.list")
	if ok, _ := afero.Exists(b.fs, srcList); ok {
		if err := b.tools.Move(ctx, srcList, srcList+".bak"); err != nil {
			return err
		}
	}

	if deb822 {
		if err := b.tools.Move(ctx, filepath.Join(mirrorDir, deb822Link), srcList+".d"); err != nil {
			return err
		}
	} else {
		if err := b.tools.Move(ctx, filepath.Join(mirrorDir, listLinkName), srcList); err != nil {
			return err
		}
	}

	local := filepath.Join(rootfsDir, "usr/local/etc/apt/mirrors")
	if err := b.tools.MkdirAll(ctx, local); err != nil {
		return err
	}
	if err := b.tools.RemoveAll(ctx, local); err != nil {
		return err
	}
	return b.tools.Move(ctx, mirrorDir, local)
}

func (b *Builder) symlink(target, link string) error {
	linker, ok := b.fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("failed to link %s: filesystem does not support symlinks", link)
	}
	if err := b.fs.Remove(link); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", link, err)
	}
	if err := linker.SymlinkIfPossible(target, link); err != nil {
		return fmt.Errorf("failed to link %s -> %s: %w", link, target, err)
	}
	return nil
}

// Patch upgrades r's rootfs and installs base tooling inside nspawn.
func (b *Builder) Patch(ctx context.Context, r *domain.Repository, rootfsDir string) error {
	year := r.TitleYear(DefaultPatchYear)
	xterm := r.RequiresXterm()
	b.log.Debug().Str(zerowrap.FieldAdapter, "rootfs").Str("codename", r.Codename).Str("arch", r.DebArch).Int("year", year).Msg("patching rootfs")

	for _, step := range patchSteps(r.Series, year, b.hasLocales(rootfsDir)) {
		if err := b.tools.Nspawn(ctx, rootfsDir, step.script, xterm, step.env...); err != nil {
			return fmt.Errorf("failed to patch %s: %w", r.Series, err)
		}
	}
	return nil
}

func (b *Builder) hasLocales(rootfsDir string) bool {
	ok, _ := afero.Exists(b.fs, filepath.Join(rootfsDir, "usr/share/i18n/locales/en_US"))
	return ok
}

type patchStep struct {
	script string
	env    []string
}

const localedefScript = `for i in en_US zh_CN; do
    localedef --force --inputfile $i --charmap UTF-8 $i.UTF-8
done`

func patchSteps(series string, year int, locales bool) []patchStep {
	steps := []patchStep{{script: "apt-get update", env: []string{"LANG=C.UTF-8"}}}

	switch series {
	case "etch", "lenny":
		steps = append(steps, patchStep{
			script: "apt-get install --assume-yes --force-yes debian-backports-keyring",
			env:    []string{"LANG=C"},
		})
	case "xenial":
		steps = append(steps, patchStep{script: "apt-get autoremove --purge --assume-yes makedev"})
	}

	force := ""
	if year < 2010 {
		force = " --force-yes"
	}

	if locales {
		steps = append(steps, patchStep{script: localedefScript, env: []string{"LANG=C"}})
	}

	steps = append(steps, patchStep{
		script: fmt.Sprintf(`apt-get dist-upgrade --assume-yes%[1]s
for i in gpgv apt-utils eatmydata whiptail; do
    apt-get install --assume-yes%[1]s $i
done
apt-get clean`, force),
		env: []string{"LANG=C"},
	})
	return steps
}
