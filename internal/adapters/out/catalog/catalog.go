// Package catalog resolves release descriptors from the TOML release catalog.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bnema/zerowrap"
	"github.com/spf13/viper"

	"github.com/2cd/getctr/internal/boundaries/out"
	"github.com/2cd/getctr/internal/domain"
	"github.com/2cd/getctr/pkg/archmap"
)

//go:embed catalog.toml
var embedded []byte

// LegacyVersions are the Debian releases distributed as floppy-disk base
// tarballs.
var LegacyVersions = []string{"1.3", "2.0", "2.1", "2.2"}

// LegacyTag is the variant tag required to select the 2.2 base tarballs.
const LegacyTag = "base"

// Apt component lists.
const (
	ComponentsOldDebian       = "main contrib non-free"
	ComponentsDebianBootstrap = "main,contrib,non-free"
	ComponentsUbuntu          = "main restricted universe multiverse"
	ComponentsUbuntuBootstrap = "main,restricted,universe,multiverse"
)

const legacySite = "debian-archive"

type file struct {
	Mirrors     domain.MirrorTable `mapstructure:"mirrors"`
	Legacy      []legacyOS         `mapstructure:"legacy"`
	Debootstrap []bootstrapOS      `mapstructure:"debootstrap"`
}

type legacyOS struct {
	Codename string          `mapstructure:"codename"`
	Version  string          `mapstructure:"version"`
	Date     string          `mapstructure:"date"`
	BaseTgz  string          `mapstructure:"base-tgz"`
	Path     string          `mapstructure:"path"`
	Patch    *domain.OSPatch `mapstructure:"patch"`
	Disk     []legacyDisk    `mapstructure:"disk"`
}

type legacyDisk struct {
	Arch    string `mapstructure:"arch"`
	DebArch string `mapstructure:"deb-arch"`
	Date    string `mapstructure:"date"`
	Path    string `mapstructure:"path"`
	Tag     string `mapstructure:"tag"`
}

type bootstrapOS struct {
	Name            string          `mapstructure:"name"`
	Owner           string          `mapstructure:"owner"`
	Project         string          `mapstructure:"project"`
	Version         string          `mapstructure:"version"`
	Codename        string          `mapstructure:"codename"`
	Series          string          `mapstructure:"series"`
	Date            string          `mapstructure:"date"`
	Components      string          `mapstructure:"components"`
	NoMinbase       bool            `mapstructure:"no-minbase"`
	Deb822          *bool           `mapstructure:"deb822"`
	DateTagged      bool            `mapstructure:"date-tagged"`
	Bootstrap       string          `mapstructure:"bootstrap"`
	Src             string          `mapstructure:"src"`
	Sources         []string        `mapstructure:"sources"`
	DisabledSources []string        `mapstructure:"disabled-sources"`
	Tag             []bootstrapArch `mapstructure:"tag"`
}

type bootstrapArch struct {
	Arch      string `mapstructure:"arch"`
	DebArch   string `mapstructure:"deb-arch"`
	Bootstrap string `mapstructure:"bootstrap"`
	Src       string `mapstructure:"src"`
}

// Catalog implements out.Catalog.
type Catalog struct {
	data file
	cn   bool
	log  zerowrap.Logger
}

var _ out.Catalog = (*Catalog)(nil)

// IsCN reports whether lang (the LANG environment variable) prefers
// Chinese mirrors.
func IsCN(lang string) bool {
	return strings.Contains(lang, domain.RegionCN)
}

// Load reads the catalog at path, or the embedded catalog when path is empty.
// cn selects regional CN mirrors.
func Load(path string, cn bool, log zerowrap.Logger) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("toml")

	if path == "" {
		if err := v.ReadConfig(bytes.NewReader(embedded)); err != nil {
			return nil, fmt.Errorf("failed to read embedded catalog: %w", err)
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
	}

	var data file
	if err := v.Unmarshal(&data); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "catalog").
		Str(zerowrap.FieldPath, path).
		Int("legacy", len(data.Legacy)).
		Int("debootstrap", len(data.Debootstrap)).
		Bool("cn", cn).
		Msg("catalog loaded")

	return &Catalog{data: data, cn: cn, log: log}, nil
}

// Mirrors returns the mirror families of the catalog.
func (c *Catalog) Mirrors() domain.MirrorTable {
	return c.data.Mirrors
}

// IsLegacy reports whether (osName, version, tag) selects floppy-disk base
// tarballs. Debian 2.2 only does so with the "base" tag.
func IsLegacy(osName, version, tag string) bool {
	if !strings.EqualFold(osName, "debian") {
		return false
	}
	for _, v := range LegacyVersions {
		if v == version {
			if version == "2.2" {
				return strings.TrimSpace(tag) == LegacyTag
			}
			return true
		}
	}
	return false
}

// Repositories returns the descriptors of one release, one per
// architecture, in catalog order.
func (c *Catalog) Repositories(osName, version, tag string) ([]*domain.Repository, error) {
	var (
		repos []*domain.Repository
		err   error
	)
	if IsLegacy(osName, version, tag) {
		repos, err = c.legacyRepositories(version)
	} else {
		repos, err = c.bootstrapRepositories(osName, version, tag)
	}
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrReleaseNotFound, osName, version)
	}
	c.log.Debug().
		Str(zerowrap.FieldAdapter, "catalog").
		Str("os", osName).
		Str("version", version).
		Int("archs", len(repos)).
		Msg("release resolved")
	return repos, nil
}

func (c *Catalog) legacyRepositories(version string) ([]*domain.Repository, error) {
	mirror, err := c.data.Mirrors.Preferred(legacySite, c.cn)
	if err != nil {
		return nil, err
	}

	var repos []*domain.Repository
	for _, rel := range c.data.Legacy {
		if rel.Version != version {
			continue
		}
		for _, disk := range rel.Disk {
			r, err := domain.NewRepository(rel.Codename, rel.Codename, rel.Version, disk.Arch, domain.RepositoryOptions{
				Project:   domain.DefaultProject,
				Tag:       disk.Tag,
				Date:      disk.Date,
				URL:       joinURL(mirror.URL, rel.Path, disk.Path, rel.BaseTgz),
				TitleDate: rel.Date,
				Patch:     rel.Patch,
				DebArch:   disk.DebArch,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to build %s %s: %w", rel.Codename, disk.Arch, err)
			}
			repos = append(repos, r)
		}
	}
	return repos, nil
}

func (c *Catalog) bootstrapRepositories(osName, version, tag string) ([]*domain.Repository, error) {
	var repos []*domain.Repository
	for _, rel := range c.data.Debootstrap {
		if !rel.matches(osName, version) {
			continue
		}
		for _, a := range rel.Tag {
			r, err := c.bootstrapRepository(rel, a, tag)
			if err != nil {
				return nil, err
			}
			repos = append(repos, r)
		}
	}
	return repos, nil
}

func (rel bootstrapOS) matches(name, version string) bool {
	if !strings.EqualFold(rel.Name, name) {
		return false
	}
	return rel.Version == version ||
		strings.EqualFold(rel.Series, version) ||
		strings.EqualFold(rel.Codename, version)
}

func (rel bootstrapOS) isUbuntu() bool {
	return strings.EqualFold(rel.Name, "ubuntu")
}

func (c *Catalog) bootstrapRepository(rel bootstrapOS, a bootstrapArch, tag string) (*domain.Repository, error) {
	debArch := a.DebArch
	if debArch == "" {
		mapped, ok := archmap.DebArch(a.Arch)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownArch, a.Arch)
		}
		debArch = mapped
	}

	bootstrap := firstNonEmpty(a.Bootstrap, rel.Bootstrap)
	line, err := domain.ParseSourceLine(bootstrap)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bootstrap source of %s: %w", rel.Series, err)
	}
	site, err := c.data.Mirrors.Site(line.Site)
	if err != nil {
		return nil, err
	}
	mirror, err := c.data.Mirrors.Preferred(line.Site, c.cn)
	if err != nil {
		return nil, err
	}

	components, bootComponents := ComponentsOldDebian, ComponentsDebianBootstrap
	if rel.isUbuntu() {
		components, bootComponents = ComponentsUbuntu, ComponentsUbuntuBootstrap
	}
	if rel.Components != "" {
		components = rel.Components
		bootComponents = strings.Join(strings.Fields(rel.Components), ",")
	}

	source := &domain.SourceSpec{Alias: firstNonEmpty(a.Src, rel.Src)}
	if source.Alias == "" {
		source.Enabled = rel.Sources
		source.Disabled = rel.DisabledSources
	}
	if source.Alias == "" && len(source.Enabled) == 0 {
		source = nil
	}

	deb822 := true
	if rel.Deb822 != nil {
		deb822 = *rel.Deb822
	}

	return domain.NewRepository(rel.Codename, rel.Series, rel.Version, a.Arch, domain.RepositoryOptions{
		Owner:      rel.Owner,
		Project:    firstNonEmpty(rel.Project, strings.ToLower(rel.Name)),
		OSName:     rel.Name,
		Tag:        tag,
		TitleDate:  rel.Date,
		Deb822:     deb822,
		NoMinbase:  rel.NoMinbase,
		DateTagged: rel.DateTagged,
		DebArch:    debArch,
		Components: components,
		Source:     source,
		Debootstrap: &domain.DebootstrapSource{
			URL:             mirror.URL + line.Suffix,
			Components:      bootComponents,
			Suite:           line.Suite,
			IncludePackages: site.Include,
		},
	})
}

// Releases lists every catalog release, ordered by OS then version.
func (c *Catalog) Releases() []domain.Release {
	var releases []domain.Release
	for _, legacy := range c.data.Legacy {
		rel := domain.Release{
			OS:       domain.DefaultOSName,
			Version:  legacy.Version,
			Codename: legacy.Codename,
			Series:   strings.ToLower(legacy.Codename),
			Date:     legacy.Date,
			Method:   domain.MethodLegacy,
		}
		for _, d := range legacy.Disk {
			rel.Archs = appendUnique(rel.Archs, d.Arch)
			if d.Tag != "" {
				rel.Tags = appendUnique(rel.Tags, d.Tag)
			}
		}
		releases = append(releases, rel)
	}
	for _, boot := range c.data.Debootstrap {
		rel := domain.Release{
			OS:       boot.Name,
			Version:  boot.Version,
			Codename: boot.Codename,
			Series:   boot.Series,
			Date:     boot.Date,
			Method:   domain.MethodDebootstrap,
		}
		for _, a := range boot.Tag {
			rel.Archs = appendUnique(rel.Archs, a.Arch)
		}
		releases = append(releases, rel)
	}

	sort.SliceStable(releases, func(i, j int) bool {
		if releases[i].OS != releases[j].OS {
			return releases[i].OS < releases[j].OS
		}
		return versionLess(releases[i].Version, releases[j].Version)
	})
	return releases
}

// versionLess orders parseable versions numerically and puts the rest,
// such as "sid", last.
func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.LessThan(vb)
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

func joinURL(base string, parts ...string) string {
	u := strings.TrimSuffix(base, "/")
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			u += "/" + p
		}
	}
	return u
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
