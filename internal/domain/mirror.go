package domain

import (
	"fmt"
	"strings"
)

// RegionCN marks mirrors preferred when LANG names a Chinese locale.
const RegionCN = "CN"

// Mirror is one download site of a mirror family.
type Mirror struct {
	Name   string `mapstructure:"name"`
	Region string `mapstructure:"region"`
	URL    string `mapstructure:"url"`
}

// FileBase is the source list base name, e.g. "Official" or "NJU.CN".
func (m Mirror) FileBase() string {
	if m.Region == "" {
		return m.Name
	}
	return m.Name + "." + m.Region
}

// PlainURL returns URL with an https scheme downgraded to http.
func (m Mirror) PlainURL() string {
	return strings.Replace(m.URL, "https://", "http://", 1)
}

// MirrorSite is a mirror family such as "debian-archive" or "ubuntu-ports".
// The first mirror is the official one.
type MirrorSite struct {
	Mirrors []Mirror `mapstructure:"mirror"`
	// Keyring is the Signed-By path of deb822 sources.
	Keyring string `mapstructure:"keyring"`
	// Include lists extra packages passed to debootstrap --include.
	Include string `mapstructure:"include"`
}

// MirrorTable maps site names to mirror families.
type MirrorTable map[string]MirrorSite

// Site returns the family called name.
func (t MirrorTable) Site(name string) (MirrorSite, error) {
	s, ok := t[name]
	if !ok || len(s.Mirrors) == 0 {
		return MirrorSite{}, fmt.Errorf("unknown mirror site %q", name)
	}
	return s, nil
}

// Preferred picks the first mirror of site usable in the caller's region.
// With cn set only regional CN mirrors qualify; otherwise any mirror
// without a region or with a non-CN region does.
func (t MirrorTable) Preferred(site string, cn bool) (Mirror, error) {
	s, err := t.Site(site)
	if err != nil {
		return Mirror{}, err
	}
	for _, m := range s.Mirrors {
		switch {
		case m.Region == "" && cn:
		case m.Region == RegionCN:
			if cn {
				return m, nil
			}
		default:
			return m, nil
		}
	}
	return Mirror{}, fmt.Errorf("no mirror of %q matches the current region", site)
}

// SourceLine is a parsed "site/suffix suite" entry such as
// "debian-archive/debian/ potato".
type SourceLine struct {
	Site   string
	Suffix string
	Suite  string
}

// ParseSourceLine splits a source entry into its site, URL suffix and suite.
func ParseSourceLine(s string) (SourceLine, error) {
	left, suite, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || strings.TrimSpace(suite) == "" {
		return SourceLine{}, fmt.Errorf("source %q must contain a space before the suite", s)
	}
	site, suffix, ok := strings.Cut(left, "/")
	if !ok {
		return SourceLine{}, fmt.Errorf("source %q must contain a '/' after the site", s)
	}
	return SourceLine{Site: site, Suffix: suffix, Suite: strings.TrimSpace(suite)}, nil
}
