package domain

import (
	"fmt"
	"strings"
)

// RegistryKind distinguishes the two registries images are published to.
type RegistryKind int

const (
	// KindReg is the self-hosted registry, images named {project}:{tag}.
	KindReg RegistryKind = iota
	// KindGHCR is GitHub Container Registry, images named {owner}/{project}:{tag}.
	KindGHCR
)

func (k RegistryKind) String() string {
	if k == KindGHCR {
		return "ghcr"
	}
	return "reg"
}

// MarshalText encodes the kind by name.
func (k RegistryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes "reg" or "ghcr".
func (k *RegistryKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "reg":
		*k = KindReg
	case "ghcr":
		*k = KindGHCR
	default:
		return fmt.Errorf("unknown registry kind %q", string(b))
	}
	return nil
}

// Registries holds the host of each registry. An empty host yields
// unqualified names such as "2cd/debian:potato-x86".
type Registries struct {
	GHCR string
	Reg  string
}

// TagSet is the per-registry list of tags one descriptor's image is built with.
type TagSet struct {
	Reg  []string
	GHCR []string
}

// All returns the registry tags followed by the GHCR tags.
func (t TagSet) All() []string {
	all := make([]string, 0, len(t.Reg)+len(t.GHCR))
	all = append(all, t.Reg...)
	return append(all, t.GHCR...)
}

// Tagger derives registry-qualified names. Today is the ISO date used by
// date-tagged releases and is fixed for the whole run.
type Tagger struct {
	Registries Registries
	Today      string
}

func hostPrefix(host string) string {
	host = strings.TrimSuffix(host, "/")
	if host == "" {
		return ""
	}
	return host + "/"
}

// Prefix returns the "{host/}{image}:" prefix of kind for r.
func (t Tagger) Prefix(kind RegistryKind, r *Repository) string {
	if kind == KindGHCR {
		return fmt.Sprintf("%s%s/%s:", hostPrefix(t.Registries.GHCR), r.Owner, r.Project)
	}
	return fmt.Sprintf("%s%s:", hostPrefix(t.Registries.Reg), r.Project)
}

// Tags returns the per-architecture tags of r for both registries.
func (t Tagger) Tags(r *Repository) TagSet {
	return TagSet{
		Reg:  t.tagsFor(KindReg, r),
		GHCR: t.tagsFor(KindGHCR, r),
	}
}

func (t Tagger) tagsFor(kind RegistryKind, r *Repository) []string {
	prefix := t.Prefix(kind, r)
	suffix := r.TagSuffix()
	if r.DateTagged {
		return []string{
			prefix + r.Arch + suffix,
			prefix + r.Arch + suffix + "-" + t.Today,
		}
	}
	return []string{
		prefix + r.Series + "-" + r.Arch + suffix,
		prefix + r.Version + "-" + r.Arch + suffix,
	}
}

// MainRepos returns the manifest-level names of r for kind. The i-th main
// repo aggregates the i-th per-architecture tag of the same kind.
func (t Tagger) MainRepos(kind RegistryKind, r *Repository) []MainRepo {
	prefix := t.Prefix(kind, r)
	var names []string
	switch {
	case r.DateTagged:
		names = []string{
			prefix + r.TagOrLatest(),
			prefix + r.TagPrefix() + t.Today,
		}
	case kind == KindGHCR:
		names = []string{
			prefix + r.Series + r.TagSuffix(),
			prefix + r.Version + r.TagSuffix(),
		}
	default:
		names = []string{
			prefix + r.Series + "-" + r.TagOrLatest(),
			prefix + r.Version + "-" + r.TagOrLatest(),
		}
	}

	repos := make([]MainRepo, len(names))
	for i, n := range names {
		repos[i] = MainRepo{Kind: kind, Name: n}
	}
	return repos
}

// Record adds every (main repo, tag) pair of r to m, registry entries first.
func (t Tagger) Record(m *RepoMap, r *Repository, tags TagSet) {
	for _, kind := range []RegistryKind{KindReg, KindGHCR} {
		list := tags.Reg
		if kind == KindGHCR {
			list = tags.GHCR
		}
		for i, main := range t.MainRepos(kind, r) {
			if i < len(list) {
				m.RecordTag(main, list[i])
			}
		}
	}
}

// TagName is the single-word tag of a fully qualified reference, i.e. the
// text after its last ':'.
func TagName(ref string) string {
	i := strings.LastIndex(ref, ":")
	if i < 0 || i == len(ref)-1 {
		return "latest"
	}
	return ref[i+1:]
}

// SplitRepo strips the tag from ref. The split happens at the last ':' so a
// "host:port/name:tag" reference keeps its port.
func SplitRepo(ref string) (string, error) {
	i := strings.LastIndex(ref, ":")
	if i < 0 {
		return ref, nil
	}
	repo := ref[:i]
	if strings.Contains(ref[i+1:], "/") {
		// "host:port/name" without a tag.
		return ref, nil
	}
	if repo == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepoReference, ref)
	}
	return repo, nil
}
