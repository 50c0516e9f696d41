package domain

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultOwner   = "2cd"
	DefaultProject = "debian"
	DefaultOSName  = "Debian"
	// UnsetDate marks a descriptor without a floppy-disk creation date.
	UnsetDate = "1900-01-01"
)

// xtermSeries lists releases whose userland needs TERM=xterm inside nspawn and
// the legacy Dockerfile template.
var xtermSeries = []string{"bo", "hamm", "slink", "potato", "woody", "sarge", "etch", "warty"}

// OSPatch describes fixups applied to a downloaded legacy rootfs.
type OSPatch struct {
	AddSourceMirrors bool `mapstructure:"add-src-mirrors" yaml:"add-src-mirrors"`
}

// SourceSpec selects the apt source lists installed into a rootfs.
// Alias is the simple form (a mirror family such as "ubuntu" or
// "ubuntu-ports"); Enabled and Disabled hold explicit "site/suffix suite"
// lines such as "debian-archive/debian/ potato".
type SourceSpec struct {
	Alias    string
	Enabled  []string
	Disabled []string
}

// IsSimple reports whether the spec names a mirror alias.
func (s SourceSpec) IsSimple() bool {
	return s.Alias != ""
}

// DebootstrapSource is the resolved input of a debootstrap run.
type DebootstrapSource struct {
	URL             string
	Components      string
	Suite           string
	IncludePackages string
}

// RepositoryOptions carries the optional descriptor fields.
type RepositoryOptions struct {
	Owner       string
	Project     string
	OSName      string
	Tag         string
	Date        string
	URL         string
	TitleDate   string
	Patch       *OSPatch
	Deb822      bool
	NoMinbase   bool
	DateTagged  bool
	DebArch     string
	Components  string
	Source      *SourceSpec
	Debootstrap *DebootstrapSource
}

// Repository is one buildable (OS, version, architecture, tag) unit.
// It is built by NewRepository and must not be modified afterwards.
type Repository struct {
	Owner       string
	Project     string
	OSName      string
	Codename    string
	Series      string
	Version     string
	Arch        string
	Tag         string
	Date        string
	URL         string
	TitleDate   string
	Patch       *OSPatch
	Deb822      bool
	NoMinbase   bool
	DateTagged  bool
	DebArch     string
	Components  string
	Source      *SourceSpec
	Debootstrap *DebootstrapSource
}

// NewRepository validates the required fields and applies defaults.
func NewRepository(codename, series, version, arch string, opts RepositoryOptions) (*Repository, error) {
	required := []struct{ field, value string }{
		{"arch", arch},
		{"series", series},
		{"version", version},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, &DescriptorError{Field: r.field, Reason: "must not be empty"}
		}
	}

	r := &Repository{
		Owner:       orDefault(opts.Owner, DefaultOwner),
		Project:     orDefault(opts.Project, DefaultProject),
		OSName:      orDefault(opts.OSName, DefaultOSName),
		Codename:    codename,
		Series:      strings.ToLower(strings.TrimSpace(series)),
		Version:     strings.TrimSpace(version),
		Arch:        strings.TrimSpace(arch),
		Tag:         strings.TrimSpace(opts.Tag),
		Date:        orDefault(strings.TrimSpace(opts.Date), UnsetDate),
		URL:         opts.URL,
		TitleDate:   opts.TitleDate,
		Patch:       opts.Patch,
		Deb822:      opts.Deb822,
		NoMinbase:   opts.NoMinbase,
		DateTagged:  opts.DateTagged,
		DebArch:     opts.DebArch,
		Components:  opts.Components,
		Source:      opts.Source,
		Debootstrap: opts.Debootstrap,
	}
	return r, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// HasTag reports whether the descriptor carries a variant tag.
func (r *Repository) HasTag() bool {
	return r.Tag != ""
}

// BaseName returns {version}_{series}_{arch}[_{tag}][_{date}].
func (r *Repository) BaseName() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s_%s_%s", r.Version, r.Series, r.Arch)
	if r.HasTag() {
		b.WriteString("_" + r.Tag)
	}
	if d := strings.TrimSpace(r.Date); d != "" && d != UnsetDate {
		b.WriteString("_" + d)
	}
	return b.String()
}

// TagSuffix returns "-{tag}" or "".
func (r *Repository) TagSuffix() string {
	if r.HasTag() {
		return "-" + r.Tag
	}
	return ""
}

// TagPrefix returns "{tag}-" or "".
func (r *Repository) TagPrefix() string {
	if r.HasTag() {
		return r.Tag + "-"
	}
	return ""
}

// TagOrLatest returns the tag, or "latest" when none is set.
func (r *Repository) TagOrLatest() string {
	if r.HasTag() {
		return r.Tag
	}
	return "latest"
}

// TarFile locates the descriptor's archive under workdir.
// The owning directory is not created here.
func (r *Repository) TarFile(workdir string) TarFile {
	base := r.BaseName()
	name := base + ".tar"
	dir := filepath.Join(workdir, base, "docker")
	return TarFile{
		Name: name,
		Path: filepath.Join(dir, name),
		Dir:  dir,
	}
}

// DownloadFile is the path a legacy base tarball is fetched to.
func (r *Repository) DownloadFile(workdir string) string {
	return filepath.Join(workdir, r.BaseName()+".tgz")
}

// ZstdFile is the path of the compressed archive.
func (r *Repository) ZstdFile(workdir string) string {
	return filepath.Join(workdir, "zstd", r.BaseName()+".tar.zst")
}

func (r *Repository) batchName() string {
	return fmt.Sprintf("%s-%s%s", r.Version, r.Series, r.TagSuffix())
}

// RepoMapFileName is the side-car holding the batch RepoMap.
func (r *Repository) RepoMapFileName() string {
	return r.batchName() + ".yaml"
}

// PlatformsFileName is the side-car holding the batch's OCI platform set.
func (r *Repository) PlatformsFileName() string {
	return r.batchName() + ".platforms.yaml"
}

// RepoDigestsFileName is the side-car holding pushed manifest digests.
func (r *Repository) RepoDigestsFileName() string {
	return r.batchName() + ".repo-digests"
}

// RequiresXterm reports whether the release needs TERM=xterm and the legacy
// Dockerfile template.
func (r *Repository) RequiresXterm() bool {
	return slices.Contains(xtermSeries, r.Series)
}

// GitHubRepo is the release repository archives are mirrored to.
func (r *Repository) GitHubRepo() string {
	switch r.Project {
	case "debian", "debian-sid":
		return "debian-museum"
	default:
		return "ubuntu-museum"
	}
}

// ReleaseTag returns {version}[-{tag}].
func (r *Repository) ReleaseTag() string {
	return r.Version + r.TagSuffix()
}

// Title returns the human-readable release title, e.g.
// "2.2 Potato (base, 2000-08-15)".
func (r *Repository) Title() string {
	var details []string
	if r.HasTag() {
		details = append(details, r.Tag)
	}
	if r.TitleDate != "" {
		details = append(details, r.TitleDate)
	}
	title := r.Version + " " + r.Codename
	if len(details) > 0 {
		title += " (" + strings.Join(details, ", ") + ")"
	}
	return title
}

// TitleYear parses the year of TitleDate, or returns fallback.
func (r *Repository) TitleYear(fallback int) int {
	year, _, _ := strings.Cut(r.TitleDate, "-")
	y, err := strconv.Atoi(year)
	if err != nil {
		return fallback
	}
	return y
}
