package rootfs

import (
	"fmt"
	"slices"
	"strings"

	"github.com/2cd/getctr/internal/domain"
)

// Apt component lists written into source files.
const (
	componentsOldDebian = "main contrib non-free"
	componentsUbuntu    = "main restricted universe multiverse"
)

const (
	ubuntuKeyring  = "/usr/share/keyrings/ubuntu-archive-keyring.gpg"
	fallbackAlias  = "ubuntu-old"
	archiveSite    = "debian-archive"
	archiveSuffix  = "debian/"
	debianCDNNote  = " URIs: https://cloudflaremirrors.com/debian/"
	ubuntuMirrorTx = "URIs: mirror://mirrors.ubuntu.com/mirrors.txt"
)

// Series whose apt predates the [trusted=yes] option.
var untrustedSeries = []string{"sarge", "woody", "potato", "warty"}

// sourceFiles collects rendered source lists keyed by mirror file base,
// e.g. "Official" or "NJU.CN". Keys keep first-seen order.
type sourceFiles struct {
	order   []string
	oneLine map[string]*strings.Builder
	deb822  map[string]*strings.Builder
}

func newSourceFiles() *sourceFiles {
	return &sourceFiles{
		oneLine: make(map[string]*strings.Builder),
		deb822:  make(map[string]*strings.Builder),
	}
}

func (f *sourceFiles) add(base, oneLine, deb822 string) {
	if _, ok := f.oneLine[base]; !ok {
		f.order = append(f.order, base)
		f.oneLine[base] = &strings.Builder{}
		f.deb822[base] = &strings.Builder{}
	}
	f.oneLine[base].WriteString(oneLine)
	f.deb822[base].WriteString(deb822)
}

// primary is the file the active source list links to.
func (f *sourceFiles) primary() string {
	if len(f.order) == 0 {
		return ""
	}
	return f.order[0]
}

// plainHTTP reports whether sources of a release dated year use http. Old
// userlands lack a usable TLS stack.
func plainHTTP(year, currentYear int) bool {
	return year < currentYear-5
}

func mirrorURL(m domain.Mirror, plain bool) string {
	if plain {
		return m.PlainURL()
	}
	return m.URL
}

func debVendor(series string) string {
	if slices.Contains(untrustedSeries, series) {
		return ""
	}
	return "[trusted=yes] "
}

// debianSource is one enabled or disabled entry of a complex source spec
// rendered for a single mirror.
type debianSource struct {
	name       string
	url        string
	suffix     string
	suite      string
	components string
	keyring    string
	vendor     string
	arch       string
	enabled    bool
}

func (s debianSource) oneLine() string {
	prefix := ""
	if !s.enabled {
		prefix = "# "
	}
	return fmt.Sprintf("%sdeb %s%s%s %s %s\n# deb-src %s%s%s %s %s\n\n",
		prefix, s.vendor, s.url, s.suffix, s.suite, s.components,
		s.vendor, s.url, s.suffix, s.suite, s.components)
}

func (s debianSource) deb822() string {
	enabled := "no"
	if s.enabled {
		enabled = "yes"
	}
	note := ""
	if strings.HasSuffix(s.url, "/debian/") {
		note = debianCDNNote
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Name: %s\n", s.name)
	b.WriteString("# yes or no\n")
	fmt.Fprintf(&b, "Enabled: %s\n", enabled)
	b.WriteString("# Types: deb deb-src\n")
	b.WriteString("Types: deb\n")
	fmt.Fprintf(&b, "#%s\n", note)
	fmt.Fprintf(&b, "URIs: %s%s\n", s.url, s.suffix)
	fmt.Fprintf(&b, "Suites: %s\n", s.suite)
	fmt.Fprintf(&b, "Components: %s\n", s.components)
	fmt.Fprintf(&b, "Signed-By: %s\n", s.keyring)
	b.WriteString("Trusted: yes\n")
	b.WriteString("#\n")
	b.WriteString("# When using official source, recommend => yes;\n")
	b.WriteString("#      using mirror   => no;\n")
	b.WriteString("#      using snapshot => no.\n")
	b.WriteString("Check-Valid-Until: no\n")
	b.WriteString("#\n")
	b.WriteString("# Allow-Insecure: no\n")
	fmt.Fprintf(&b, "# Architectures: %s\n\n\n", s.arch)
	return b.String()
}

type sourceEntry struct {
	src     string
	enabled bool
}

// renderComplex renders explicit "site/suffix suite" entries, enabled ones
// first, once per mirror of their site.
func renderComplex(r *domain.Repository, spec *domain.SourceSpec, mirrors domain.MirrorTable, plain bool) (*sourceFiles, error) {
	components := r.Components
	if components == "" {
		components = componentsOldDebian
	}
	vendor := debVendor(r.Series)
	files := newSourceFiles()

	entries := make([]sourceEntry, 0, len(spec.Enabled)+len(spec.Disabled))
	for _, src := range spec.Enabled {
		entries = append(entries, sourceEntry{src: src, enabled: true})
	}
	for _, src := range spec.Disabled {
		entries = append(entries, sourceEntry{src: src})
	}

	for _, e := range entries {
		line, err := domain.ParseSourceLine(e.src)
		if err != nil {
			return nil, err
		}
		site, err := mirrors.Site(line.Site)
		if err != nil {
			return nil, err
		}
		for _, m := range site.Mirrors {
			src := debianSource{
				name:       e.src,
				url:        mirrorURL(m, plain),
				suffix:     line.Suffix,
				suite:      line.Suite,
				components: components,
				keyring:    site.Keyring,
				vendor:     vendor,
				arch:       r.DebArch,
				enabled:    e.enabled,
			}
			files.add(m.FileBase(), src.oneLine(), src.deb822())
		}
	}
	return files, nil
}

// renderSimple renders the Ubuntu-style source list of a mirror alias for
// every mirror of the aliased site. Unknown aliases use old-releases.
func renderSimple(r *domain.Repository, alias string, mirrors domain.MirrorTable, plain bool) (*sourceFiles, error) {
	site, err := mirrors.Site(alias)
	if err != nil {
		if site, err = mirrors.Site(fallbackAlias); err != nil {
			return nil, err
		}
	}
	keyring := site.Keyring
	if keyring == "" {
		keyring = ubuntuKeyring
	}

	files := newSourceFiles()
	for i, m := range site.Mirrors {
		url := mirrorURL(m, plain)
		comment := "URIs: " + strings.Replace(url, "http://", "https://", 1)
		if i == 0 && alias == "ubuntu" {
			comment = ubuntuMirrorTx
		}
		files.add(m.FileBase(),
			ubuntuOneLine(r.Series, url),
			ubuntuDeb822(r.Series, url, m.Name, comment, keyring, r.DebArch))
	}
	return files, nil
}

func ubuntuOneLine(suite, url string) string {
	vendor := "[trusted=yes] "
	if suite == "warty" {
		vendor = ""
	}
	c := componentsUbuntu

	var b strings.Builder
	b.WriteString("\n")
	for _, s := range []string{suite, suite + "-updates", suite + "-backports", suite + "-security"} {
		fmt.Fprintf(&b, "deb %s%s %s %s\n", vendor, url, s, c)
		fmt.Fprintf(&b, "# deb-src %s%s %s %s\n\n", vendor, url, s, c)
	}
	b.WriteString("# --------\n")
	b.WriteString("# Disabled\n")
	fmt.Fprintf(&b, "# deb [trusted=yes] %s %s-proposed %s\n", url, suite, c)
	fmt.Fprintf(&b, "# deb-src [trusted=yes] %s %s-proposed %s\n", url, suite, c)
	return b.String()
}

func ubuntuDeb822(suite, url, name, comment, keyring, arch string) string {
	trusted := "no"
	if strings.HasPrefix(url, "https") {
		trusted = "yes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Name: ubuntu %s (%s)\n", suite, name)
	b.WriteString("# yes or no\n")
	b.WriteString("Enabled: yes\n")
	b.WriteString("# Types: deb deb-src\n")
	b.WriteString("Types: deb\n")
	fmt.Fprintf(&b, "# %s\n", comment)
	fmt.Fprintf(&b, "URIs: %s\n", url)
	fmt.Fprintf(&b, "# Suites: %[1]s %[1]s-updates %[1]s-backports %[1]s-security %[1]s-proposed\n", suite)
	fmt.Fprintf(&b, "Suites: %[1]s %[1]s-updates %[1]s-backports %[1]s-security\n", suite)
	fmt.Fprintf(&b, "Components: %s\n", componentsUbuntu)
	fmt.Fprintf(&b, "Signed-By: %s\n", keyring)
	b.WriteString("#\n")
	fmt.Fprintf(&b, "# Trusted: %s\n", trusted)
	b.WriteString("#\n")
	b.WriteString("# When using official source, recommend => yes;\n")
	b.WriteString("#      using mirror => no.\n")
	b.WriteString("Check-Valid-Until: no\n")
	b.WriteString("#\n")
	b.WriteString("# Allow-Insecure: no\n")
	fmt.Fprintf(&b, "# Architectures: %s\n\n", arch)
	return b.String()
}

// renderArchive renders the one-line sources of a legacy release pointing
// at the Debian archive over plain http.
func renderArchive(r *domain.Repository, mirrors domain.MirrorTable) (*sourceFiles, error) {
	site, err := mirrors.Site(archiveSite)
	if err != nil {
		return nil, err
	}
	files := newSourceFiles()
	for _, m := range site.Mirrors {
		url := m.PlainURL() + archiveSuffix
		content := fmt.Sprintf("deb %[1]s %[2]s %[3]s\n# deb-src %[1]s %[2]s %[3]s\n",
			url, r.Series, componentsOldDebian)
		files.add(m.FileBase(), content, "")
	}
	return files, nil
}
